package health

import (
	"crypto/tls"
	"fmt"
	"time"
)

// CredentialSource is the view of the merchant credential the readiness
// check needs. *merchant.Credential satisfies it.
type CredentialSource interface {
	HasMerchantIdentifier() bool
	KeyPair() (tls.Certificate, error)
}

// MerchantCredentialCheck reports degraded when the credential cannot
// produce an accepted validation call.
func MerchantCredentialCheck(cred CredentialSource) CheckFunc {
	return merchantCredentialCheck(cred, time.Now)
}

func merchantCredentialCheck(cred CredentialSource, now func() time.Time) CheckFunc {
	return func() Check {
		if !cred.HasMerchantIdentifier() {
			return Check{
				Status:  StatusDegraded,
				Message: "merchant identifier could not be extracted from the certificate",
			}
		}

		keyPair, err := cred.KeyPair()
		if err != nil {
			return Check{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("merchant certificate has no usable key pair: %v", err),
			}
		}

		if leaf := keyPair.Leaf; leaf != nil && now().After(leaf.NotAfter) {
			return Check{
				Status:  StatusDegraded,
				Message: "merchant certificate expired at " + leaf.NotAfter.UTC().Format(time.RFC3339),
			}
		}

		return Check{Status: StatusHealthy, Message: "merchant credential loaded"}
	}
}

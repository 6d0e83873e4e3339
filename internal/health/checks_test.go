package health

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/applepay-relay/internal/merchant"
	"github.com/vyrodovalexey/applepay-relay/internal/merchant/merchanttest"
)

type fakeCredential struct {
	hasIdentifier bool
	keyPair       tls.Certificate
	keyPairErr    error
}

func (f fakeCredential) HasMerchantIdentifier() bool { return f.hasIdentifier }

func (f fakeCredential) KeyPair() (tls.Certificate, error) { return f.keyPair, f.keyPairErr }

func TestMerchantCredentialCheck(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	valid := tls.Certificate{Leaf: &x509.Certificate{NotAfter: now.Add(time.Hour)}}
	expired := tls.Certificate{Leaf: &x509.Certificate{NotAfter: now.Add(-time.Hour)}}

	tests := []struct {
		name        string
		cred        fakeCredential
		want        Status
		wantMessage string
	}{
		{
			name:        "ready",
			cred:        fakeCredential{hasIdentifier: true, keyPair: valid},
			want:        StatusHealthy,
			wantMessage: "merchant credential loaded",
		},
		{
			name:        "identifier missing",
			cred:        fakeCredential{keyPair: valid},
			want:        StatusDegraded,
			wantMessage: "merchant identifier could not be extracted",
		},
		{
			name:        "key pair missing",
			cred:        fakeCredential{hasIdentifier: true, keyPairErr: errors.New("no private key")},
			want:        StatusDegraded,
			wantMessage: "no private key",
		},
		{
			name:        "expired",
			cred:        fakeCredential{hasIdentifier: true, keyPair: expired},
			want:        StatusDegraded,
			wantMessage: "expired at 2026-05-31T23:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			check := merchantCredentialCheck(tt.cred, func() time.Time { return now })()
			assert.Equal(t, tt.want, check.Status)
			assert.Contains(t, check.Message, tt.wantMessage)
		})
	}
}

func TestMerchantCredentialCheck_Readiness(t *testing.T) {
	t.Parallel()

	t.Run("certificate without extension degrades readiness", func(t *testing.T) {
		t.Parallel()

		cred := merchant.NewCredential("merchant.pem", merchanttest.GeneratePEM(t, merchanttest.Options{}), nil)
		checker := NewChecker("test", nil)
		checker.RegisterCheck("merchant_credential", MerchantCredentialCheck(cred))

		resp := checker.Readiness()
		assert.Equal(t, StatusDegraded, resp.Status)
		require.Contains(t, resp.Checks, "merchant_credential")
		assert.Equal(t, StatusDegraded, resp.Checks["merchant_credential"].Status)
	})

	t.Run("complete certificate is ready", func(t *testing.T) {
		t.Parallel()

		cred := merchant.NewCredential("merchant.pem", merchanttest.GeneratePEM(t, merchanttest.Options{
			ExtensionValue: []byte("XXmerchant.id"),
		}), nil)
		checker := NewChecker("test", nil)
		checker.RegisterCheck("merchant_credential", MerchantCredentialCheck(cred))

		assert.Equal(t, StatusHealthy, checker.Readiness().Status)
	})
}

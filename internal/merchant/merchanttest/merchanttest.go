// Package merchanttest generates throwaway merchant certificates for tests.
package merchanttest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// OIDMerchantIdentifier is Apple's merchant identifier extension OID.
var OIDMerchantIdentifier = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 6, 32}

// Options controls the generated certificate.
type Options struct {
	// ExtensionValue is stored verbatim under the merchant identifier
	// OID. Nil omits the extension.
	ExtensionValue []byte
	// KeyFirst writes the private key block before the certificate.
	KeyFirst bool
	// OmitKey leaves the private key out of the PEM output.
	OmitKey bool
	// NotAfter defaults to one day from now.
	NotAfter time.Time
}

// GeneratePEM returns a self-signed client certificate and its EC
// private key concatenated in PEM form.
func GeneratePEM(t testing.TB, opts Options) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	notAfter := opts.NotAfter
	if notAfter.IsZero() {
		notAfter = time.Now().Add(24 * time.Hour)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			Organization: []string{"Test Merchant"},
			CommonName:   "Merchant ID: test",
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}
	if opts.ExtensionValue != nil {
		template.ExtraExtensions = []pkix.Extension{{
			Id:    OIDMerchantIdentifier,
			Value: opts.ExtensionValue,
		}}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	switch {
	case opts.OmitKey:
		return certPEM
	case opts.KeyFirst:
		return append(keyPEM, certPEM...)
	default:
		return append(certPEM, keyPEM...)
	}
}

// WriteFile writes data to a file in a per-test temporary directory
// and returns its path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

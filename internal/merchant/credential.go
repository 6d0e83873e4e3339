package merchant

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vyrodovalexey/applepay-relay/internal/observability"
)

// MerchantIdentifierOID is Apple's merchant identifier extension.
const MerchantIdentifierOID = "1.2.840.113635.100.6.32"

var oidMerchantIdentifier = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 6, 32}

// identifierPrefixLen is the number of leading bytes of the extension
// value that precede the identifier text.
const identifierPrefixLen = 2

// Extraction errors.
var (
	ErrNoCertificate      = errors.New("no CERTIFICATE block found in PEM data")
	ErrExtensionNotFound  = errors.New("merchant identifier extension not found")
	ErrMalformedExtension = errors.New("merchant identifier extension too short")
)

// Credential is the merchant identity loaded once at startup. It is
// immutable after LoadCredential returns and safe to share.
type Credential struct {
	path               string
	merchantIdentifier string
	keyPair            *tls.Certificate
	keyPairErr         error
}

// LoadCredential reads the certificate file at path. Only a read
// failure is returned as an error. Identifier extraction and key pair
// failures are logged and leave the credential in a degraded state.
func LoadCredential(path string, logger observability.Logger) (*Credential, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied certificate path
	if err != nil {
		return nil, fmt.Errorf("failed to read merchant certificate %s: %w", path, err)
	}

	return NewCredential(path, data, logger), nil
}

// NewCredential builds a Credential from PEM bytes already in memory.
func NewCredential(path string, data []byte, logger observability.Logger) *Credential {
	if logger == nil {
		logger = observability.NopLogger()
	}
	logger = logger.With(observability.String("certificate_path", path))

	c := &Credential{
		path: path,
	}

	id, err := ExtractMerchantIdentifier(data)
	if err != nil {
		logger.Error("unable to extract merchant identifier from certificate",
			observability.String("oid", MerchantIdentifierOID),
			observability.Error(err),
		)
	} else {
		c.merchantIdentifier = id
		logger.Info("merchant identifier loaded",
			observability.String("merchant_identifier", id),
		)
	}

	keyPair, err := tls.X509KeyPair(data, data)
	if err != nil {
		c.keyPairErr = fmt.Errorf("failed to load merchant key pair: %w", err)
		logger.Error("merchant certificate has no usable private key",
			observability.Error(err),
		)
	} else {
		c.keyPair = &keyPair
		logCertificate(logger, keyPair.Leaf)
	}

	return c
}

// logCertificate logs the subject and validity of the parsed certificate.
func logCertificate(logger observability.Logger, cert *x509.Certificate) {
	if cert == nil {
		return
	}

	fields := []observability.Field{
		observability.String("subject", cert.Subject.String()),
		observability.String("issuer", cert.Issuer.String()),
		observability.Time("not_before", cert.NotBefore),
		observability.Time("not_after", cert.NotAfter),
	}

	if time.Now().After(cert.NotAfter) {
		logger.Warn("merchant certificate has expired", fields...)
		return
	}
	logger.Info("merchant certificate loaded", fields...)
}

// ExtractMerchantIdentifier parses the first certificate in pemData and
// returns the merchant identifier stored in its Apple extension.
func ExtractMerchantIdentifier(pemData []byte) (string, error) {
	cert, err := parseFirstCertificate(pemData)
	if err != nil {
		return "", err
	}

	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(oidMerchantIdentifier) {
			continue
		}
		if len(ext.Value) <= identifierPrefixLen {
			return "", ErrMalformedExtension
		}
		return string(ext.Value[identifierPrefixLen:]), nil
	}

	return "", ErrExtensionNotFound
}

// parseFirstCertificate skips non-certificate blocks such as the
// private key, which may precede the certificate in the file.
func parseFirstCertificate(pemData []byte) (*x509.Certificate, error) {
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, ErrNoCertificate
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		return cert, nil
	}
}

// Path returns the file the credential was loaded from.
func (c *Credential) Path() string {
	return c.path
}

// MerchantIdentifier returns the extracted identifier, or "" when
// extraction failed.
func (c *Credential) MerchantIdentifier() string {
	return c.merchantIdentifier
}

// HasMerchantIdentifier reports whether extraction succeeded.
func (c *Credential) HasMerchantIdentifier() bool {
	return c.merchantIdentifier != ""
}

// KeyPair returns the TLS client certificate built from the file.
func (c *Credential) KeyPair() (tls.Certificate, error) {
	if c.keyPair == nil {
		if c.keyPairErr != nil {
			return tls.Certificate{}, c.keyPairErr
		}
		return tls.Certificate{}, errors.New("merchant key pair not loaded")
	}
	return *c.keyPair, nil
}

// Package merchant loads the Apple Pay merchant identity certificate.
//
// The certificate file holds the merchant certificate and its private
// key concatenated in PEM form. The merchant identifier is embedded in
// the certificate under extension OID 1.2.840.113635.100.6.32.
//
// Extraction is lenient: a certificate without a readable identifier
// still produces a Credential, with an empty MerchantIdentifier, and
// the failure is logged instead of aborting startup.
package merchant

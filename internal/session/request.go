package session

import (
	"github.com/vyrodovalexey/applepay-relay/internal/config"
)

// ValidationURLParam is the query parameter carrying the validation URL
// supplied by Apple's client-side script.
const ValidationURLParam = "validationURL"

// ValidationRequest is one outbound merchant validation call. It is
// built per inbound request and never retained.
type ValidationRequest struct {
	ValidationURL string
	DomainName    string
	DisplayName   string
}

// StartSessionPayload is the JSON body posted to the validation URL.
// All keys are always present, even when empty.
type StartSessionPayload struct {
	MerchantIdentifier string `json:"merchantIdentifier"`
	DomainName         string `json:"domainName"`
	DisplayName        string `json:"displayName"`
}

// MerchantProfile is the per-process merchant configuration shared by
// every request.
type MerchantProfile struct {
	DomainName           string
	DisplayName          string
	DefaultValidationURL string
}

// NewValidationRequest resolves the validation URL, falling back to the
// profile default when the caller supplied none. The URL is otherwise
// used unmodified.
func NewValidationRequest(validationURL string, profile MerchantProfile) ValidationRequest {
	if validationURL == "" {
		validationURL = profile.DefaultValidationURL
	}
	if validationURL == "" {
		validationURL = config.DefaultValidationURL
	}

	return ValidationRequest{
		ValidationURL: validationURL,
		DomainName:    profile.DomainName,
		DisplayName:   profile.DisplayName,
	}
}

// Payload builds the outbound body for the given merchant identifier.
func (r ValidationRequest) Payload(merchantIdentifier string) StartSessionPayload {
	return StartSessionPayload{
		MerchantIdentifier: merchantIdentifier,
		DomainName:         r.DomainName,
		DisplayName:        r.DisplayName,
	}
}

package generation

import (
	"errors"

	"github.com/aldoetobex/pi-case-backend/internal/payload"
)

var (
	ErrUnknownDocumentType = errors.New("unknown document type")
	ErrNoClientSelected    = errors.New("select at least one client")
	ErrNoClients           = errors.New("case has no clients")
	ErrUnknownClient       = payload.ErrUnknownClient
	ErrUnknownProvider     = payload.ErrUnknownProvider
	ErrNoRecipient         = errors.New("no recipient email on file")
	ErrRunInProgress       = errors.New("a generation run is already in progress for this case")
	ErrInvalidTransition   = errors.New("invalid job status transition")
)

// IsValidation reports whether err is a precondition failure the caller can
// fix by changing the request or the case data.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrUnknownDocumentType, ErrNoClientSelected, ErrNoClients,
		ErrUnknownClient, ErrUnknownProvider, ErrNoRecipient,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

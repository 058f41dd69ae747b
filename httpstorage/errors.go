package httpstorage

import (
	"errors"
	"fmt"
	"net/http"

	"excalidraw-httpsync/wire"
)

var (
	// ErrTransport covers network failures and unexpected response statuses.
	ErrTransport = errors.New("storage transport error")

	// ErrWriteFailed is returned when the service did not accept a write.
	ErrWriteFailed = errors.New("storage write failed")

	// ErrCallerContract is returned for missing required arguments.
	ErrCallerContract = errors.New("caller contract violated")

	// ErrDecrypt is returned when a fetched scene cannot be decrypted or parsed.
	ErrDecrypt = errors.New("scene decryption failed")

	ErrMalformedPayload = wire.ErrMalformedPayload
)

// StatusError reports a non-success response status. It unwraps to
// ErrTransport.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return ErrTransport
}

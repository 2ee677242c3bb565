package transform

import "fmt"

// ValidationError reports a parameter that failed local validation. It is
// raised before any network call and never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

// RemoteProcessingError reports that the processing engine rejected or failed
// a transform. The engine's own message is preserved for the user; single
// image flows stop and offer a manual retry, batch flows record it per item
// and continue.
type RemoteProcessingError struct {
	StatusCode int
	Message    string
}

func (e *RemoteProcessingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("processing engine failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("processing engine failed: %s", e.Message)
}

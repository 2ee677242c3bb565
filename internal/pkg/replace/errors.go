package replace

import (
	"errors"
	"fmt"
)

// ErrCommitInProgress is returned when a commit for the same
// (gallery, image) pair is still running.
var ErrCommitInProgress = errors.New("a replacement for this image is already in progress")

// ErrCommitLockedOut is returned when a second commit arrives within the
// lockout window after the previous attempt started, guarding against
// duplicate submissions from repeated user input.
var ErrCommitLockedOut = errors.New("replacement attempted too soon after the previous one")

// UploadError reports a failed asset upload after a successful transform.
// The transform result is still held by the caller, so the upload can be
// retried without recomputing the transform.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("asset upload failed: %v", e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// SwapError reports a failed gallery-reference swap after a successful
// upload. Reported distinctly from UploadError because the new asset now
// exists unreferenced and operators may need to reconcile it.
type SwapError struct {
	NewImageID uint
	Err        error
}

func (e *SwapError) Error() string {
	return fmt.Sprintf("gallery swap failed (uploaded asset %d left unreferenced): %v", e.NewImageID, e.Err)
}
func (e *SwapError) Unwrap() error { return e.Err }

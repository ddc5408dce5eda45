package survey

import "errors"

// Every one of these is fatal to a run, nothing is retried.
var (
	ErrInvalidReceiptCode = errors.New("invalid receipt code provided")
	ErrUnsupportedVersion = errors.New("the version of this script has not yet been written")
	ErrEntryFormNotFound  = errors.New("could not find the survey entry form")
	ErrEntryPointMissing  = errors.New("survey entry form has no action")
	ErrRenderTimeout      = errors.New("timed out waiting for the survey entry form to render")
	ErrCodeRejected       = errors.New("the code you tried to enter has expired or is invalid")
	ErrStructureError     = errors.New("survey page structure has changed")
	ErrTimedOut           = errors.New("timed out attempting to get code")
)

package types

import "errors"

// Error kinds a run can terminate with. The pipeline wraps collaborator
// failures in exactly one of these so callers can errors.Is on them.
var (
	ErrDownloadFailed       = errors.New("download failed")
	ErrTranscriptionFailed  = errors.New("transcription failed")
	ErrClassificationFailed = errors.New("classification failed")
	ErrClassificationParse  = errors.New("classification output unparseable")
	ErrPersistenceFailed    = errors.New("persistence failed")
)

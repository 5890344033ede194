package ingest

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMalformedContent  = errors.New("malformed content")
	ErrDecodeFailure     = errors.New("decode failure")
	ErrWorkerStarted     = errors.New("decode worker already started")
)

const (
	MessageUnsupportedFormat = "File is not in a supported format"
	MessageMalformedContent  = "Unable to properly parse contents"
	MessageDecodeFailure     = "Unable to properly decode contents"
)

// failureMessage maps an error onto the short reason shown to the user.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return MessageUnsupportedFormat
	case errors.Is(err, ErrMalformedContent):
		return MessageMalformedContent
	default:
		return MessageDecodeFailure
	}
}

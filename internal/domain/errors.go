package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrNoProviderAccepted = errors.New("no provider accepted the submission")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// ErrorKind is the fixed taxonomy for provider-reported failures. Raw provider
// text never reaches the user except under ErrorKindUnknown.
type ErrorKind string

const (
	ErrorKindNone               ErrorKind = ""
	ErrorKindFileUnavailable    ErrorKind = "FILE_UNAVAILABLE"
	ErrorKindImageTooSmall      ErrorKind = "IMAGE_TOO_SMALL"
	ErrorKindContentModeration  ErrorKind = "CONTENT_MODERATION_REJECTED"
	ErrorKindUnsupportedFormat  ErrorKind = "UNSUPPORTED_FORMAT"
	ErrorKindInvalidAspectRatio ErrorKind = "INVALID_ASPECT_RATIO"
	ErrorKindProviderTimeout    ErrorKind = "PROVIDER_TIMEOUT"
	ErrorKindUnknown            ErrorKind = "UNKNOWN"
)

var userMessages = map[ErrorKind]string{
	ErrorKindFileUnavailable:    "We could not download your photo. Please send it again.",
	ErrorKindImageTooSmall:      "The photo is too small to animate. Please send a larger one.",
	ErrorKindContentModeration:  "The provider rejected this photo for content policy reasons.",
	ErrorKindUnsupportedFormat:  "This file format is not supported. Please send a JPEG or PNG photo.",
	ErrorKindInvalidAspectRatio: "The photo's aspect ratio is not supported. Please crop it closer to square.",
	ErrorKindProviderTimeout:    "Generation took too long and was stopped. Please try again.",
}

// UserMessage resolves the fixed user-facing text for the kind. Unrecognized
// provider text passes through verbatim under ErrorKindUnknown; with no raw
// text available a generic retry message is returned.
func (k ErrorKind) UserMessage(raw string) string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	if raw != "" {
		return raw
	}
	return "Generation failed. Please try again later."
}

// MostSpecificError picks the failure reason surfaced to the user when several
// jobs failed: content moderation wins, then the first non-generic kind in
// submission order, then whatever came first.
func MostSpecificError(kinds []ErrorKind) ErrorKind {
	if len(kinds) == 0 {
		return ErrorKindUnknown
	}
	for _, k := range kinds {
		if k == ErrorKindContentModeration {
			return k
		}
	}
	for _, k := range kinds {
		if k != ErrorKindUnknown && k != ErrorKindNone {
			return k
		}
	}
	return kinds[0]
}

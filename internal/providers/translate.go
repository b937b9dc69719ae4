package providers

import (
	"strings"

	"motionlab/internal/domain"
)

// translation maps substrings of raw provider messages onto taxonomy kinds.
// Order matters: the first match wins.
var translation = []struct {
	needle string
	kind   domain.ErrorKind
}{
	{"safety", domain.ErrorKindContentModeration},
	{"moderation", domain.ErrorKindContentModeration},
	{"policy", domain.ErrorKindContentModeration},
	{"blocked", domain.ErrorKindContentModeration},
	{"too small", domain.ErrorKindImageTooSmall},
	{"resolution", domain.ErrorKindImageTooSmall},
	{"minimum size", domain.ErrorKindImageTooSmall},
	{"aspect ratio", domain.ErrorKindInvalidAspectRatio},
	{"unsupported format", domain.ErrorKindUnsupportedFormat},
	{"mime type", domain.ErrorKindUnsupportedFormat},
	{"invalid image", domain.ErrorKindUnsupportedFormat},
	{"could not download", domain.ErrorKindFileUnavailable},
	{"failed to fetch", domain.ErrorKindFileUnavailable},
	{"file not found", domain.ErrorKindFileUnavailable},
	{"url is not accessible", domain.ErrorKindFileUnavailable},
	{"deadline exceeded", domain.ErrorKindProviderTimeout},
	{"timed out", domain.ErrorKindProviderTimeout},
	{"timeout", domain.ErrorKindProviderTimeout},
}

// TranslateText maps a raw provider message onto the fixed error taxonomy.
// Unrecognized text yields ErrorKindUnknown and passes through to the user
// verbatim.
func TranslateText(raw string) domain.ErrorKind {
	lowered := strings.ToLower(raw)
	for _, t := range translation {
		if strings.Contains(lowered, t.needle) {
			return t.kind
		}
	}
	return domain.ErrorKindUnknown
}

// Package dclierr defines the single error type shared by every dcli command
// and package.
//
// All failures, whatever subsystem they start in, are classified into one of
// a fixed set of kinds. Lower-level errors are converted at the point of first
// contact with the From* adapters and travel upward only as *Error. Callers
// match on Kind when deciding whether to recover and otherwise render the
// value with Error or Render.
package dclierr

import (
	"errors"
	"fmt"
)

// Kind identifies one member of the closed failure taxonomy.
type Kind int

const (
	// KindUnknown covers conditions not otherwise classified. It is the zero Kind.
	KindUnknown Kind = iota
	// KindAPIRequest means the remote call could not be completed.
	KindAPIRequest
	// KindAPIStatus means the call completed but the API reported an error status.
	KindAPIStatus
	// KindAPIParse means the response body could not be decoded.
	KindAPIParse
	// KindParameterParse means caller input was in the wrong shape (an id where a name was expected).
	KindParameterParse
	// KindInvalidParameters means well-formed parameters that do not go together (id and platform mismatch).
	KindInvalidParameters
	// KindMissingAPIKey means the API key was not configured.
	KindMissingAPIKey
	// KindAPIUnavailable means the API is temporarily down.
	KindAPIUnavailable
	// KindPrivacy means the account's privacy settings block the requested data.
	KindPrivacy
	// KindIO means a local file system operation failed.
	KindIO
	// KindDirIsFile means a path expected to be a directory is a regular file.
	KindDirIsFile
	// KindZip means a downloaded archive could not be decompressed.
	KindZip

	numKinds
)

// APIKeyEnv is the configuration key holding the API key.
const APIKeyEnv = "DESTINY_API_KEY"

var kindNames = [numKinds]string{
	KindUnknown:           "unknown",
	KindAPIRequest:        "api_request",
	KindAPIStatus:         "api_status",
	KindAPIParse:          "api_parse",
	KindParameterParse:    "parameter_parse",
	KindInvalidParameters: "invalid_parameters",
	KindMissingAPIKey:     "missing_api_key",
	KindAPIUnavailable:    "api_unavailable",
	KindPrivacy:           "privacy",
	KindIO:                "io",
	KindDirIsFile:         "dir_is_file",
	KindZip:               "zip",
}

// Kinds returns every member of the taxonomy in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds)
	for k := KindUnknown; k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) valid() bool { return k >= KindUnknown && k < numKinds }

func (k Kind) String() string {
	if !k.valid() {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// HasDescription reports whether values of this kind carry diagnostic text.
func (k Kind) HasDescription() bool {
	switch k {
	case KindParameterParse, KindInvalidParameters, KindMissingAPIKey, KindAPIUnavailable, KindPrivacy:
		return false
	default:
		return true
	}
}

// Retryable reports whether an operation that failed with this kind may
// succeed if attempted again later.
func (k Kind) Retryable() bool { return k == KindAPIUnavailable }

// ExitCode is the process exit status the CLI uses for this kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindParameterParse, KindInvalidParameters:
		return 2
	case KindAPIUnavailable:
		return 75 // EX_TEMPFAIL
	default:
		return 1
	}
}

// Error is a classified failure. Values are immutable once built.
type Error struct {
	kind        Kind
	description string
	cause       error
}

// New builds an Error of the given kind. The description is dropped for kinds
// that carry none, and a kind outside the taxonomy becomes KindUnknown.
func New(kind Kind, description string) *Error {
	if !kind.valid() {
		kind = KindUnknown
	}
	if !kind.HasDescription() {
		description = ""
	}
	return &Error{kind: kind, description: description}
}

// APIRequest builds a KindAPIRequest failure.
func APIRequest(description string) *Error { return New(KindAPIRequest, description) }

// APIStatus builds a KindAPIStatus failure.
func APIStatus(description string) *Error { return New(KindAPIStatus, description) }

// APIParse builds a KindAPIParse failure.
func APIParse(description string) *Error { return New(KindAPIParse, description) }

// IO builds a KindIO failure.
func IO(description string) *Error { return New(KindIO, description) }

// DirIsFile builds a KindDirIsFile failure.
func DirIsFile(description string) *Error { return New(KindDirIsFile, description) }

// Zip builds a KindZip failure.
func Zip(description string) *Error { return New(KindZip, description) }

// Unknown builds a KindUnknown failure.
func Unknown(description string) *Error { return New(KindUnknown, description) }

// ParameterParse builds a KindParameterParse failure.
func ParameterParse() *Error { return New(KindParameterParse, "") }

// InvalidParameters builds a KindInvalidParameters failure.
func InvalidParameters() *Error { return New(KindInvalidParameters, "") }

// MissingAPIKey builds a KindMissingAPIKey failure.
func MissingAPIKey() *Error { return New(KindMissingAPIKey, "") }

// APIUnavailable builds a KindAPIUnavailable failure.
func APIUnavailable() *Error { return New(KindAPIUnavailable, "") }

// Privacy builds a KindPrivacy failure.
func Privacy() *Error { return New(KindPrivacy, "") }

// Kind returns the taxonomy member of e.
func (e *Error) Kind() Kind {
	if e == nil {
		return KindUnknown
	}
	return e.kind
}

// Description returns the diagnostic text, empty for kinds without one.
func (e *Error) Description() string {
	if e == nil {
		return ""
	}
	return e.description
}

// Cause returns the lower-level error an adapter classified, if any.
func (e *Error) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Unwrap returns Cause so errors.Is and errors.As reach the classified error.
func (e *Error) Unwrap() error { return e.Cause() }

// Is matches another *Error of the same kind, so errors.Is(err, dclierr.APIUnavailable())
// works. A target with a description must match it too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	if e.Kind() != t.kind {
		return false
	}
	return t.description == "" || t.description == e.Description()
}

// Error renders the user-facing message.
func (e *Error) Error() string {
	kind, desc := e.Kind(), e.Description()
	switch kind {
	case KindAPIRequest:
		return withDescription("Error calling the API.", desc)
	case KindAPIStatus:
		return withDescription("The API call returned an error.", desc)
	case KindAPIParse:
		return withDescription("Error parsing results from the API call.", desc)
	case KindIO:
		return withDescription("Error working with file system.", desc)
	case KindZip:
		return withDescription("Error decompressing manifest.", desc)
	case KindDirIsFile:
		return withDescription("Expected directory but found file.", desc)
	case KindParameterParse:
		return "Could not parse Parameters. (code 7)"
	case KindInvalidParameters:
		return "Invalid input parameters. (code 18)"
	case KindMissingAPIKey:
		return fmt.Sprintf("Missing API Key. Set %s environment variable.", APIKeyEnv)
	case KindAPIUnavailable:
		return "The Destiny API is currently not available. (code 5)"
	case KindPrivacy:
		return "Privacy settings for Bungie account are too restrictive. (code 1665)"
	default:
		return withDescription("An unknown error occurred.", desc)
	}
}

func withDescription(sentence, desc string) string {
	if desc == "" {
		return sentence
	}
	return sentence + " " + desc
}

// Wrap returns err as an *Error. Taxonomy values pass through unchanged and
// anything else is classified as KindUnknown. Wrap(nil) is nil.
//
// When err wraps a taxonomy value (fmt.Errorf("...: %w", e)), Wrap returns
// that innermost value and the outer text is not rendered. Callers return
// taxonomy values bare instead of annotating them.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e
	}
	return &Error{kind: KindUnknown, description: describe(err), cause: err}
}

// KindOf reports the taxonomy member of err; unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind() == kind
}

// Render returns the user-facing message for err, or "" when err is nil.
func Render(err error) string {
	if err == nil {
		return ""
	}
	return Wrap(err).Error()
}

package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the resolver. Match them with errors.Is.
var (
	ErrWrongURLType        = errors.New("wrong URL type")
	ErrGithubInternal      = errors.New("github internal error")
	ErrGithubAPILimit      = errors.New("github API rate limit exceeded")
	ErrGithubAPIEtc        = errors.New("github API error")
	ErrFolderAlreadyExists = errors.New("folder already exists")
)

// RateLimit holds the x-ratelimit-* headers of a GitHub response.
// Missing headers are left empty.
type RateLimit struct {
	Limit     string
	Used      string
	Remaining string
}

// Exhausted reports whether the remaining quota is exactly "0".
func (r RateLimit) Exhausted() bool {
	return r.Remaining == "0"
}

// APIError describes a failed repository metadata lookup.
type APIError struct {
	Kind       error // one of the Err* sentinels
	URL        string
	StatusCode int // 0 when no response was received
	RateLimit  RateLimit
	Err        error // underlying transport or decode error, if any
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " from %s", e.URL)
	}
	if e.Kind == ErrGithubAPILimit {
		fmt.Fprintf(&b, " (used %s of %s, remaining %s)",
			orUnknown(e.RateLimit.Used), orUnknown(e.RateLimit.Limit), orUnknown(e.RateLimit.Remaining))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// wrongURL builds a WrongURLType error for raw with a reason.
func wrongURL(raw, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrWrongURLType, raw, fmt.Sprintf(format, args...))
}

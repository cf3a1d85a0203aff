package config

import (
	"fmt"
	"net/url"
	"strings"
)

// SourceKind identifies what a user-submitted URL points at.
type SourceKind string

const (
	Notebook SourceKind = "notebook"
	GitHub   SourceKind = "github"
	GitLab   SourceKind = "gitlab"
)

// ValidSourceKinds returns all supported source kinds.
func ValidSourceKinds() []SourceKind {
	return []SourceKind{Notebook, GitHub, GitLab}
}

// IsValid checks whether the kind is one of the known kinds.
func (k SourceKind) IsValid() bool {
	switch k {
	case Notebook, GitHub, GitLab:
		return true
	}
	return false
}

// SourceReference is a single import request as typed by the user.
type SourceReference struct {
	Kind    SourceKind
	URL     string // raw URL as submitted
	Branch  string // optional explicit branch or ref
	Subpath string // URL path of the file, for notebooks
}

// ResolvedArchive is the outcome of resolving a SourceReference.
type ResolvedArchive struct {
	ArchiveURL string `json:"archive_url"`
	FolderName string `json:"folder_name"`
	Ref        string `json:"ref"`
}

// Validate checks the archive URL scheme and the folder name.
func (a ResolvedArchive) Validate() error {
	u, err := url.Parse(a.ArchiveURL)
	if err != nil {
		return fmt.Errorf("invalid archive URL %q: %w", a.ArchiveURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("archive URL %q: scheme must be http or https", a.ArchiveURL)
	}
	if u.Host == "" {
		return fmt.Errorf("archive URL %q: missing host", a.ArchiveURL)
	}
	if !IsSafeFolderName(a.FolderName) {
		return fmt.Errorf("folder name %q is not filesystem-safe", a.FolderName)
	}
	return nil
}

// FolderSet is a read-only snapshot of folder names that already exist.
type FolderSet map[string]struct{}

// NewFolderSet builds a FolderSet from a list of names.
func NewFolderSet(names ...string) FolderSet {
	s := make(FolderSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set. A nil set is empty.
func (s FolderSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// SanitizeFolderName maps every rune outside [A-Za-z0-9._-] to '_'.
// Dot-only names collapse to "_".
func SanitizeFolderName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Trim(out, ".") == "" {
		return "_"
	}
	return out
}

// IsSafeFolderName reports whether name is non-empty and already sanitized.
func IsSafeFolderName(name string) bool {
	return name != "" && SanitizeFolderName(name) == name
}

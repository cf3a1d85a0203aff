// Package bootstrap renders the shell script a compute session runs to fetch
// an imported source into its working directory.
package bootstrap

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/MakeNowJust/heredoc"

	"github.com/cbout22/repo-import/internal/config"
)

// DefaultMount is the session working directory.
const DefaultMount = "/home/work"

// Options controls Script.
type Options struct {
	Mount string
}

// Script returns a /bin/sh script that downloads a into <mount>/<folder>.
// Zip archives have their single top-level directory stripped; notebooks
// are saved as one file.
func Script(kind config.SourceKind, a config.ResolvedArchive, folder string, opts Options) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	if !config.IsSafeFolderName(folder) {
		return "", fmt.Errorf("unsafe folder name %q", folder)
	}
	mount := opts.Mount
	if mount == "" {
		mount = DefaultMount
	}

	if kind == config.Notebook {
		return heredoc.Docf(`
			#!/bin/sh
			set -e
			cd %s
			mkdir -p %s
			curl -fsSL -o %s %s
			`,
			quote(mount), quote(folder), quote(folder+"/"+notebookName(a.ArchiveURL)), quote(a.ArchiveURL),
		), nil
	}

	return heredoc.Docf(`
		#!/bin/sh
		set -e
		cd %s
		tmp="$(mktemp -d)"
		trap 'rm -rf "$tmp"' EXIT
		curl -fsSL -o "$tmp/archive.zip" %s
		unzip -q "$tmp/archive.zip" -d "$tmp/x"
		set -- "$tmp/x"/*
		if [ $# -eq 1 ] && [ -d "$1" ]; then src="$1"; else src="$tmp/x"; fi
		mkdir -p %s
		cp -a "$src"/. %s/
		`,
		quote(mount), quote(a.ArchiveURL), quote(folder), quote(folder),
	), nil
}

// quote single-quotes s for POSIX sh.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func notebookName(archiveURL string) string {
	u, err := url.Parse(archiveURL)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "notebook.ipynb"
	}
	return config.SanitizeFolderName(path.Base(u.Path))
}

// Package env captures the afterpkg dotdir layout. Inspect the resolved
// paths with `afterpkg -print-env` (see cmd/afterpkg).
package env

import (
	"os"
	"path/filepath"
)

// Root is the afterpkg dotdir, ~/.afterpkg by default. Every other path in
// this package is derived from it.
var Root = findRoot()

func findRoot() string {
	if v := os.Getenv("AFTERPKG_ROOT"); v != "" {
		return v
	}
	return os.ExpandEnv("$HOME/.afterpkg")
}

// SlackbuildsDir is the default recipe tree, cloned from the Ponce mirror on
// first use if absent (see recipe.EnsureRoot).
func SlackbuildsDir() string { return filepath.Join(Root, "slackbuilds") }

// ScriptsDir is the default Script Index tree (before/after/requires hooks).
func ScriptsDir() string { return filepath.Join(Root, "scripts") }

// DownloadsDir holds cached source tarballs, one subdirectory per recipe
// category and package.
func DownloadsDir() string { return filepath.Join(Root, "downloads") }

// BotsDir holds the per-slot working directories used by workers.
func BotsDir() string { return filepath.Join(Root, "bots") }

// PyPICacheFile is the gzip-compressed snapshot of the PyPI package-name
// universe consulted by the Local-Install Oracle.
func PyPICacheFile() string { return filepath.Join(Root, "pypi.json.gz") }

// ProgressDir holds the pending/built name files written by the Status Sink.
func ProgressDir() string { return filepath.Join(Root, ".prog") }

// InstalledPackagesDir is where the native package manager records
// installed packages, one directory entry per `<stem>-<v>-<a>-<b>`.
const InstalledPackagesDir = "/var/lib/pkgtools/packages"

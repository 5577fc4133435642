package recipe

import "golang.org/x/xerrors"

// UnknownPackageError reports a target or dependency absent from the
// Recipe Index (spec §7).
type UnknownPackageError struct {
	Name string
}

func (e *UnknownPackageError) Error() string {
	return xerrors.Errorf("unknown package %q", e.Name).Error()
}

// MalformedInfoError reports a .info file that could not be parsed.
type MalformedInfoError struct {
	Path string
	Err  error
}

func (e *MalformedInfoError) Error() string {
	return xerrors.Errorf("malformed .info file %s: %w", e.Path, e.Err).Error()
}

func (e *MalformedInfoError) Unwrap() error { return e.Err }

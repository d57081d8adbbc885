// Package apperr holds the sentinel errors shared across the build pipeline.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrMalformedHeader = errors.New("malformed header")
	ErrDuplicateName   = errors.New("duplicate post name")
	ErrRenderFailed    = errors.New("render failed")
	ErrDeployFailed    = errors.New("deploy failed")
)

// Package apperr holds the sentinel errors shared by the UI surfaces.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRule    = errors.New("invalid rule")
	ErrNoTarget       = errors.New("no folder selected")
	ErrBadTarget      = errors.New("folder does not exist or is not a directory")
	ErrAlreadyRunning = errors.New("organizer already running")
	ErrNotRunning     = errors.New("organizer not running")
	ErrLocked         = errors.New("folder is being organized by another process")
	ErrNotConfirmed   = errors.New("removal not confirmed")
)

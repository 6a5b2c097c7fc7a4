// Package apperr holds the sentinel errors of the caller layer. Errors from
// the kernel itself are *siyuan.Error and never pass through here.
package apperr

import "errors"

var (
	ErrUnknownOperation    = errors.New("unknown operation")
	ErrInvalidParams       = errors.New("invalid params")
	ErrStatementNotAllowed = errors.New("statement not allowed")
)

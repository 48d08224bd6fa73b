package types

import "errors"

// Discovery and binding errors. The catalog recovers from all of these
// locally; they surface in logs and in ScanReport, never as a failed frame.
var (
	ErrScanModule      = errors.New("module could not be introspected")
	ErrDuplicateGUID   = errors.New("duplicate stat guid")
	ErrUnbindable      = errors.New("stat descriptor cannot be bound")
	ErrValueConversion = errors.New("field value is not convertible to float32")
	ErrTargetMismatch  = errors.New("target does not hold the declaring type")
	ErrStatNotFound    = errors.New("stat not found")
	ErrInvalidTag      = errors.New("invalid stat tag")
)

// Modifier errors.
var (
	ErrUnknownKind   = errors.New("unknown modifier kind")
	ErrUnknownPolicy = errors.New("unknown stacking policy")
	ErrUnknownCurve  = errors.New("unknown stack curve")
	ErrInvalidRecord = errors.New("invalid modifier record")
)

// Store lifecycle errors.
var (
	ErrStoreDetached    = errors.New("store is detached")
	ErrAlreadyAttached  = errors.New("store is already attached")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Content definition errors.
var (
	ErrDefinitionInvalid   = errors.New("invalid content definition")
	ErrDefinitionNotFound  = errors.New("content definition not found")
	ErrDuplicateDefinition = errors.New("duplicate content definition")
)

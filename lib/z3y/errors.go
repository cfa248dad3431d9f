package z3y

import "fmt"

// ErrorKind is the closed set of categories a resolver-facing error can
// belong to. It mirrors z3y::InstanceError from the original framework,
// including the values used only internally by Query (interface_not_implemented,
// version_major_mismatch, version_minor_too_low, internal) and the ones
// only the resolver produces (alias/clsid not found, not_a_service,
// not_a_component, factory_failed).
type ErrorKind uint32

const (
	// ErrSuccess is never carried by a returned error; it exists so the
	// zero value of ErrorKind has a name.
	ErrSuccess ErrorKind = iota
	ErrAliasNotFound
	ErrClassIDNotFound
	ErrNotAService
	ErrNotAComponent
	ErrFactoryFailed
	ErrInterfaceNotImplemented
	ErrVersionMajorMismatch
	ErrVersionMinorTooLow
	ErrInternal
	// ErrDuplicateClassID and ErrConflictingDefault are registry
	// programming errors (spec §4.4), not resolver errors, but share the
	// same closed enumeration and Error() rendering.
	ErrDuplicateClassID
	ErrConflictingDefault
)

var errorKindNames = map[ErrorKind]string{
	ErrSuccess:                 "success",
	ErrAliasNotFound:           "alias_not_found",
	ErrClassIDNotFound:         "clsid_not_found",
	ErrNotAService:             "not_a_service",
	ErrNotAComponent:           "not_a_component",
	ErrFactoryFailed:           "factory_failed",
	ErrInterfaceNotImplemented: "interface_not_implemented",
	ErrVersionMajorMismatch:    "version_major_mismatch",
	ErrVersionMinorTooLow:      "version_minor_too_low",
	ErrInternal:                "internal",
	ErrDuplicateClassID:        "duplicate_class_id",
	ErrConflictingDefault:      "conflicting_default",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return "unknown_error_kind"
}

// QueryError is the structured error every resolver entry point and every
// Component.Query implementation returns on failure. Its Kind is always
// one of the ErrorKind values above; Message is a human-readable detail
// string, never machine-parsed.
type QueryError struct {
	Kind    ErrorKind
	Message string
}

func (e *QueryError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("z3y: %s", e.Kind)
	}
	return fmt.Sprintf("z3y: %s: %s", e.Kind, e.Message)
}

// Is lets callers write errors.Is(err, z3y.ErrVersionMinorTooLow) — the
// idiomatic Go replacement for the original's throwing-exception-with-a-
// categorised-code pattern (spec §9's second "open question").
func (e *QueryError) Is(target error) bool {
	kindErr, ok := target.(*QueryError)
	if !ok {
		return false
	}
	return e.Kind == kindErr.Kind
}

// sentinel constructs a *QueryError sentinel for use with errors.Is,
// e.g. `errors.Is(err, sentinel(ErrVersionMajorMismatch))`.
func sentinel(kind ErrorKind) *QueryError { return &QueryError{Kind: kind} }

// Sentinels for errors.Is comparisons against the closed error set.
var (
	ErrIsAliasNotFound           = sentinel(ErrAliasNotFound)
	ErrIsClassIDNotFound         = sentinel(ErrClassIDNotFound)
	ErrIsNotAService             = sentinel(ErrNotAService)
	ErrIsNotAComponent           = sentinel(ErrNotAComponent)
	ErrIsFactoryFailed           = sentinel(ErrFactoryFailed)
	ErrIsInterfaceNotImplemented = sentinel(ErrInterfaceNotImplemented)
	ErrIsVersionMajorMismatch    = sentinel(ErrVersionMajorMismatch)
	ErrIsVersionMinorTooLow      = sentinel(ErrVersionMinorTooLow)
	ErrIsInternal                = sentinel(ErrInternal)
	ErrIsDuplicateClassID        = sentinel(ErrDuplicateClassID)
	ErrIsConflictingDefault      = sentinel(ErrConflictingDefault)
)

package z3y

// Typed[T] is a version-checked, boundary-safe view of a component as
// interface T. It shares its underlying ControlBlock with whatever Handle
// it was Cast from, so Release-ing every Typed[T] and Handle derived from
// one component destroys the underlying implementation exactly once
// (Testable Property 5).
type Typed[T any] struct {
	handle Handle
	iface  T
}

// Interface returns the T-typed view.
func (t Typed[T]) Interface() T { return t.iface }

// Handle returns the untyped Handle backing this Typed[T], sharing the
// same control block.
func (t Typed[T]) Handle() Handle { return t.handle }

// Retain returns a new Typed[T] sharing the same control block, with the
// refcount incremented.
func (t Typed[T]) Retain() Typed[T] {
	return Typed[T]{handle: t.handle.Retain(), iface: t.iface}
}

// Release decrements the shared control block's refcount.
func (t Typed[T]) Release() { t.handle.Release() }

// IsEmpty reports whether t holds no component.
func (t Typed[T]) IsEmpty() bool { return t.handle.IsEmpty() }

// Cast performs the version-checked, boundary-safe conversion from a
// Handle to a Typed[T], implementing spec §4.3 exactly:
//
//  1. an empty handle is ErrInternal;
//  2. h.Query(spec.IID, spec.Version.Major, spec.Version.Minor) is called;
//  3. any error from Query is returned verbatim;
//  4. on success, the returned view is type-asserted to T and a Typed[T]
//     is built that *retains* h's control block rather than allocating a
//     fresh one — the single mechanism that keeps reference counts
//     coherent across the cast, per spec §4.3 point 4.
//
// spec is a package-level "witness" value each generated interface
// exports (e.g. simple.Descriptor) standing in for the original's
// T::kIid/T::kVersionMajor/T::kVersionMinor static template members, which
// Go type parameters cannot carry (see SPEC_FULL.md §4.3).
func Cast[T any](h Handle, spec InterfaceDescriptor) (Typed[T], error) {
	if h.IsEmpty() {
		return Typed[T]{}, &QueryError{Kind: ErrInternal, Message: "cast of empty handle"}
	}
	raw, err := h.Query(spec.IID, spec.Version.Major, spec.Version.Minor)
	if err != nil {
		return Typed[T]{}, err
	}
	iface, ok := raw.(T)
	if !ok {
		return Typed[T]{}, &QueryError{
			Kind:    ErrInternal,
			Message: "component's query view did not satisfy the requested Go interface type",
		}
	}
	return Typed[T]{handle: h.Retain(), iface: iface}, nil
}

// Package z3y is a native-code component framework: a runtime that loads
// dynamic libraries discovered on disk, lets each library register typed
// component implementations with a central registry, and lets a host or a
// peer library resolve those implementations back as reference-counted
// handles whose lifetime stays coherent across library boundaries.
package z3y

import "github.com/google/uuid"

// ID is the 64-bit value FNV-1a-64 declarations hash to. It is shared by
// ClassID, InterfaceID and EventID, which are distinct roles over the same
// space, exactly as in the original C++ framework.
type ID uint64

// ClassID identifies a concrete component implementation.
type ClassID = ID

// InterfaceID identifies an interface contract.
type InterfaceID = ID

// EventID identifies an event type.
type EventID = ID

// NoID is the sentinel "none" value; ID zero is never assigned to a real
// declaration.
const NoID ID = 0

const (
	fnvOffsetBasis uint64 = 0xcbf29ce484222325
	fnvPrime       uint64 = 0x100000001b3
)

// Hash computes the FNV-1a-64 hash of s using the offset basis and prime
// from the original framework's class_id.h. It must remain bit-exact:
// the value is part of the cross-library ABI, not an implementation detail.
func Hash(s string) ID {
	if s == "" {
		return NoID
	}
	h := fnvOffsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return ID(h)
}

// MustHash validates that literal parses as a UUID before hashing it, then
// returns Hash(literal). It panics on an invalid literal, which is the
// intended behaviour: MustHash is meant to be called from a package-level
// var initializer, where a malformed UUID literal is a build-time
// programming error, not something a running process should tolerate.
func MustHash(literal string) ID {
	if _, err := uuid.Parse(literal); err != nil {
		panic("z3y: MustHash: " + literal + " is not a valid UUID literal: " + err.Error())
	}
	return Hash(literal)
}

// InterfaceVersion is a (major, minor) pair. Breaking ABI changes bump
// Major; additive, backward-compatible changes bump Minor.
type InterfaceVersion struct {
	Major uint32
	Minor uint32
}

// InterfaceDescriptor describes one interface a component implements.
type InterfaceDescriptor struct {
	IID     InterfaceID
	Name    string
	Version InterfaceVersion
}

// Well-known identifiers. These are part of the public ABI: they cannot be
// renumbered without a major version bump of this module.
var (
	// ComponentInterfaceID identifies the root component interface.
	// Registry.Register never records a default for it. ComponentBase.Query
	// answers for it only when the embedding type lists it through
	// Implements; it is not added to a component's interfaces automatically.
	ComponentInterfaceID = MustHash("2f9b6a2e-2f0a-4b2f-9f9e-3b2f9a2e2f9b")

	// EventBusInterfaceID identifies the event-bus interface the Manager
	// registers itself as the default implementation of.
	EventBusInterfaceID = MustHash("a0000002-a000-4000-8000-000000000002")

	// PluginQueryInterfaceID identifies the introspection/query interface
	// the Manager also registers itself as the default implementation of.
	PluginQueryInterfaceID = MustHash("a0000003-a000-4000-8000-000000000003")

	// ManagerClassID identifies the Manager's own component descriptor.
	ManagerClassID = MustHash("a0000001-a000-4000-8000-000000000001")
)

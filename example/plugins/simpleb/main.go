// Package main builds the Simple.B plugin, registering a non-default
// ISimple implementation (spec §8 scenario A).
package main

import (
	"github.com/z3y-go/z3y/examples/simple"
	"github.com/z3y-go/z3y/lib/z3y"
)

var classID = z3y.MustHash("c1000002-c100-4000-8000-00000000000b")

type simpleImplB struct {
	z3y.ComponentBase
}

func newSimpleImplB() *simpleImplB {
	c := &simpleImplB{}
	c.Implements(simple.Descriptor, func() any { return simple.Simple(c) })
	return c
}

func (c *simpleImplB) GetSimpleString() string { return "Hello from SimpleImplB" }

// Z3yPluginInit is the well-known entry point z3y.Loader resolves.
func Z3yPluginInit(reg z3y.RegistryHandle) error {
	impl := newSimpleImplB()
	return reg.Register(z3y.ComponentDescriptor{
		ClassID:     classID,
		Factory:     func() z3y.Component { return newSimpleImplB() },
		IsSingleton: false,
		Alias:       "Simple.B",
		IsDefault:   false,
		Implemented: impl.ImplementedInterfaces(),
	})
}

func main() {}

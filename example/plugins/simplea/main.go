// Package main builds the Simple.A plugin: a real dynamic library, built
// with `go build -buildmode=plugin`, exporting Z3yPluginInit. It registers
// itself as the default implementation of ISimple (spec §8 scenario A).
package main

import (
	"github.com/z3y-go/z3y/examples/simple"
	"github.com/z3y-go/z3y/lib/z3y"
)

var classID = z3y.MustHash("c1000001-c100-4000-8000-00000000000a")

type simpleImplA struct {
	z3y.ComponentBase
}

func newSimpleImplA() *simpleImplA {
	c := &simpleImplA{}
	c.Implements(simple.Descriptor, func() any { return simple.Simple(c) })
	return c
}

func (c *simpleImplA) GetSimpleString() string { return "Hello from SimpleImplA" }

// Z3yPluginInit is the well-known entry point z3y.Loader resolves.
func Z3yPluginInit(reg z3y.RegistryHandle) error {
	impl := newSimpleImplA()
	return reg.Register(z3y.ComponentDescriptor{
		ClassID:     classID,
		Factory:     func() z3y.Component { return newSimpleImplA() },
		IsSingleton: false,
		Alias:       "Simple.A",
		IsDefault:   true,
		Implemented: impl.ImplementedInterfaces(),
	})
}

func main() {}

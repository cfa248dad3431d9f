// Package main builds the Logger.Default plugin: an ILogger v1.0
// implementation used by spec §8 scenario B to exercise version-mismatch
// rejection (v1.1 -> ErrVersionMinorTooLow, v2.0 -> ErrVersionMajorMismatch).
package main

import (
	"os"

	"github.com/z3y-go/z3y/examples/logger"
	"github.com/z3y-go/z3y/lib/z3y"
)

var classID = z3y.MustHash("c2000001-c200-4000-8000-00000000000c")

type loggerImpl struct {
	z3y.ComponentBase
}

func newLoggerImpl() *loggerImpl {
	c := &loggerImpl{}
	c.Implements(logger.DescriptorV1_0, func() any { return logger.Logger(c) })
	return c
}

func (c *loggerImpl) Log(message string) {
	os.Stderr.WriteString("[Logger.Default] " + message + "\n")
}

// Z3yPluginInit is the well-known entry point z3y.Loader resolves.
func Z3yPluginInit(reg z3y.RegistryHandle) error {
	impl := newLoggerImpl()
	return reg.Register(z3y.ComponentDescriptor{
		ClassID:     classID,
		Factory:     func() z3y.Component { return newLoggerImpl() },
		IsSingleton: false,
		Alias:       "Logger.Default",
		IsDefault:   true,
		Implemented: impl.ImplementedInterfaces(),
	})
}

func main() {}

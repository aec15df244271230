package pkgmanager

import (
	"github.com/go-logr/logr"

	"smoker.run/internal/executor"
)

type WithExecutor struct{ Executor executor.Executor }

func (w WithExecutor) ConfigureBinary(c *BinaryConfig) {
	c.Executor = w.Executor
}

type WithLog struct{ Log logr.Logger }

func (w WithLog) ConfigureBinary(c *BinaryConfig) {
	c.Log = w.Log
}

type WithTempRoot string

func (w WithTempRoot) ConfigureBinary(c *BinaryConfig) {
	c.TempRoot = string(w)
}

type WithLinger bool

func (w WithLinger) ConfigureBinary(c *BinaryConfig) {
	c.Linger = bool(w)
}

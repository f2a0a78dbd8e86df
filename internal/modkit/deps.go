// Package modkit provides module wiring and core deps
package modkit

import (
	"cachetrace/internal/platform/config"
	"cachetrace/internal/platform/logger"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
}

// Module is the small surface a module exposes to main
type Module interface {
	Name() string
	Ports() any
}

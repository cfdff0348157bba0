package logging

import "go.uber.org/zap"

// New creates a named child of the global zap logger. config.New replaces the
// global logger, so components should call this after config is loaded.
func New(component string) *zap.SugaredLogger {
	return zap.S().Named(component)
}

package task

import (
	"errors"
	"fmt"
)

// PluginError is a failure raised by a named pipeline plugin. It halts the
// task that produced it.
type PluginError struct {
	Plugin string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("%s: %v", e.Plugin, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError creates a PluginError from a message.
func NewPluginError(plugin, message string) *PluginError {
	return &PluginError{Plugin: plugin, Err: errors.New(message)}
}

// AsPluginError returns the PluginError in err's chain, if any.
func AsPluginError(err error) (*PluginError, bool) {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Alerter signals a failure to the developer in interactive mode.
type Alerter interface {
	Alert(task string, err error)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(task string, err error)

// Alert calls f.
func (f AlerterFunc) Alert(task string, err error) {
	f(task, err)
}

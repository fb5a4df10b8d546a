package storage

import "fmt"

// Error wraps a backend failure with the operation and key involved
type Error struct {
	Backend string
	Op      string
	Key     string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s storage %s %q: %v", e.Backend, e.Op, e.Key, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ConfigError reports an unusable storage configuration
type ConfigError struct {
	Backend string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("storage backend %q: %s", e.Backend, e.Message)
}

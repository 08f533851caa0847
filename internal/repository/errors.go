package repository

import (
	"errors"
	"fmt"
)

// DependencyError reports a failure of an external store
type DependencyError struct {
	Store string
	Op    string
	// Missing is set when the backing table does not exist
	Missing bool
	Err     error
}

func (e *DependencyError) Error() string {
	if e.Missing {
		return fmt.Sprintf("%s %s: table not found: %v", e.Store, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Store, e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// IsDependencyError reports whether err is or wraps a DependencyError
func IsDependencyError(err error) bool {
	var depErr *DependencyError
	return errors.As(err, &depErr)
}

// IsMissingTable reports whether err is a DependencyError caused by a missing table
func IsMissingTable(err error) bool {
	var depErr *DependencyError
	return errors.As(err, &depErr) && depErr.Missing
}

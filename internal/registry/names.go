package registry

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidName is returned by ValidateName.
var ErrInvalidName = errors.New("invalid store name: must be alphanumeric with hyphens/underscores/dots")

// namePattern allows alphanumeric, hyphens, underscores, and dots, starting
// with an alphanumeric.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

const maxNameLen = 128

// ValidateName checks that name is usable as a store name. Register itself
// accepts any string; callers taking names from outside the process
// validate first.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: name too long (max %d)", ErrInvalidName, maxNameLen)
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

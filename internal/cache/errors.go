package cache

import (
	"fmt"

	"github.com/jmgilman/go/errors"
)

// ErrNotFound is the sentinel every lookup miss unwraps to.
var ErrNotFound = errors.New(errors.CodeNotFound, "key not found")

// NotFoundError reports a missing or expired key.
type NotFoundError[K comparable] struct {
	Key K
}

func (e *NotFoundError[K]) Error() string {
	return fmt.Sprintf("key not found: %v", e.Key)
}

func (e *NotFoundError[K]) Unwrap() error {
	return ErrNotFound
}

func invalidConfig(field string, value any) error {
	err := errors.Newf(errors.CodeInvalidConfig, "%s must not be negative", field)
	return errors.WithContext(err, field, value)
}

// Package iox provides I/O helpers for resource cleanup.
package iox

import (
	"io"
	"reflect"

	"github.com/hashicorp/go-multierror"
)

// DiscardClose closes c and discards the error, for defers where the
// close error is unactionable.
func DiscardClose(c io.Closer) { _ = c.Close() }

// DiscardErr calls fn and discards the returned error, e.g. logger.Sync.
func DiscardErr(fn func() error) { _ = fn() }

// CloseAll closes every non-nil closer, in order, and aggregates the
// failures. A failed close does not stop the rest.
func CloseAll(closers ...io.Closer) error {
	var result *multierror.Error
	for _, c := range closers {
		if isNil(c) {
			continue
		}
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// isNil also catches typed nil pointers stored in the interface.
func isNil(c io.Closer) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

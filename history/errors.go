package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"syscall"

	"github.com/aws/smithy-go"
)

// Failure classes. Match them with errors.Is on any error a Store returns.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrDiskFull         = errors.New("no space left on device")
	ErrTimeout          = errors.New("operation timed out")
	ErrAuth             = errors.New("authentication failed")
	ErrNetwork          = errors.New("network error")

	errOther = errors.New("storage error")
)

// Op names the store operation that failed.
type Op string

const (
	OpInit  Op = "init"
	OpWrite Op = "write"
	OpRead  Op = "read"
)

// StorageError is returned by Store for backend failures.
type StorageError struct {
	Op    Op
	Path  string // dataset-relative location, may be empty
	Class error  // one of the Err* classes
	Err   error
}

func (e *StorageError) Error() string {
	where := string(e.Op)
	if e.Path != "" {
		where += " " + e.Path
	}
	return fmt.Sprintf("history %s: %v: %v", where, e.Class, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is matches the failure class.
func (e *StorageError) Is(target error) bool { return e.Class == target }

func storageErr(op Op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Path: path, Class: classify(err), Err: err}
}

// S3 error codes by class.
var apiCodes = map[string]error{
	"AccessDenied":          ErrPermissionDenied,
	"Forbidden":             ErrPermissionDenied,
	"NoSuchKey":             ErrNotFound,
	"NoSuchBucket":          ErrNotFound,
	"NotFound":              ErrNotFound,
	"InvalidAccessKeyId":    ErrAuth,
	"SignatureDoesNotMatch": ErrAuth,
	"ExpiredToken":          ErrAuth,
	"RequestTimeout":        ErrTimeout,
}

// Message fragments for errors that reach us already flattened to text.
var messageRules = []struct {
	class     error
	fragments []string
}{
	{ErrPermissionDenied, []string{"permission denied", "accessdenied", "forbidden", "403"}},
	{ErrNotFound, []string{"no such file", "does not exist", "not found", "nosuchkey", "nosuchbucket", "404"}},
	{ErrDiskFull, []string{"no space left", "quota exceeded"}},
	{ErrTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrAuth, []string{"nocredentialproviders", "credentials", "invalidaccesskeyid", "expiredtoken", "401", "unauthorized"}},
	{ErrNetwork, []string{"connection refused", "no route to host", "network unreachable", "dial tcp"}},
}

// classify picks a failure class from the error chain, falling back to
// the message text.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if class, ok := apiCodes[apiErr.ErrorCode()]; ok {
			return class
		}
	}
	var timeout interface{ Timeout() bool }
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &timeout) && timeout.Timeout():
		return ErrTimeout
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, syscall.ENOSPC):
		return ErrDiskFull
	case errors.As(err, &opErr):
		return ErrNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, frag := range rule.fragments {
			if strings.Contains(msg, frag) {
				return rule.class
			}
		}
	}
	return errOther
}

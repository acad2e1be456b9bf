package util

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusWrap prepends a string to the message of an existing error.
func StatusWrap(err error, msg string) error {
	p := status.Convert(err).Proto()
	p.Message = fmt.Sprintf("%s: %s", msg, p.Message)
	return status.ErrorProto(p)
}

// StatusWrapf prepends a formatted string to the message of an existing error.
func StatusWrapf(err error, format string, args ...interface{}) error {
	return StatusWrap(err, fmt.Sprintf(format, args...))
}

// StatusWrapWithCode prepends a string to the message of an existing
// error, while replacing the error code.
func StatusWrapWithCode(err error, code codes.Code, msg string) error {
	p := status.Convert(err).Proto()
	p.Code = int32(code)
	p.Message = fmt.Sprintf("%s: %s", msg, p.Message)
	return status.ErrorProto(p)
}

// StatusWrapfWithCode prepends a formatted string to the message of an
// existing error, while replacing the error code.
func StatusWrapfWithCode(err error, code codes.Code, format string, args ...interface{}) error {
	return StatusWrapWithCode(err, code, fmt.Sprintf(format, args...))
}

// StatusFromMultiple creates a single error out of a list of errors,
// as returned by code that releases multiple resources. The code of
// the first error is retained, while the messages are concatenated.
func StatusFromMultiple(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, status.Convert(err).Message())
	}
	return status.Error(status.Code(errs[0]), strings.Join(messages, ", "))
}

// StatusFromErrno converts a system call error to a status, picking a
// code that matches the nature of the failure. Errors that are not
// of type unix.Errno are converted using status.Convert().
func StatusFromErrno(err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return status.Convert(err).Err()
	}
	var code codes.Code
	switch errno {
	case unix.EINVAL, unix.EFAULT:
		code = codes.InvalidArgument
	case unix.ENOENT, unix.ENODEV, unix.ENXIO:
		code = codes.NotFound
	case unix.EACCES, unix.EPERM, unix.EROFS:
		code = codes.PermissionDenied
	case unix.ENOMEM, unix.ENOSPC:
		code = codes.ResourceExhausted
	case unix.EINTR:
		code = codes.Canceled
	case unix.EIO:
		code = codes.Internal
	default:
		code = codes.Unknown
	}
	return status.Error(code, errno.Error())
}

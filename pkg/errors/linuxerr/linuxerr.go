// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package linuxerr contains errno values exported as error interface
// pointers. This allows for fast comparison and return operations comparable
// to unix.Errno constants.
package linuxerr

import (
	"addrspace.dev/addrspace/pkg/errors"
	"golang.org/x/sys/unix"
)

// The following errors are semantically identical to the unix.Errno of the
// same name. However, since the types are distinct (these are
// *errors.Error), they are not directly comparable. The Errno method returns
// an errno such that the error can be compared to unix.Errno (e.g.
// EPERM.Errno() == unix.EPERM is true). Converting unix.Errno to the errors
// should be done via ErrorFromUnix.
var (
	noError   *errors.Error = nil
	EPERM                   = errors.New(unix.EPERM, "operation not permitted")
	ENOENT                  = errors.New(unix.ENOENT, "no such file or directory")
	EINTR                   = errors.New(unix.EINTR, "interrupted system call")
	EIO                     = errors.New(unix.EIO, "I/O error")
	EBADF                   = errors.New(unix.EBADF, "bad file number")
	EAGAIN                  = errors.New(unix.EAGAIN, "try again")
	ENOMEM                  = errors.New(unix.ENOMEM, "out of memory")
	EACCES                  = errors.New(unix.EACCES, "permission denied")
	EFAULT                  = errors.New(unix.EFAULT, "bad address")
	EBUSY                   = errors.New(unix.EBUSY, "device or resource busy")
	EEXIST                  = errors.New(unix.EEXIST, "file exists")
	ENODEV                  = errors.New(unix.ENODEV, "no such device")
	EINVAL                  = errors.New(unix.EINVAL, "invalid argument")
	EFBIG                   = errors.New(unix.EFBIG, "file too large")
	ENOSPC                  = errors.New(unix.ENOSPC, "no space left on device")
	EROFS                   = errors.New(unix.EROFS, "read-only file system")
	ERANGE                  = errors.New(unix.ERANGE, "math result not representable")
	ENOSYS                  = errors.New(unix.ENOSYS, "invalid system call number")
	EOVERFLOW               = errors.New(unix.EOVERFLOW, "value too large for defined data type")
	EOPNOTSUPP              = errors.New(unix.EOPNOTSUPP, "operation not supported on transport endpoint")
)

// errorMap maps the host errnos that data sources may observe to their
// *errors.Error counterparts.
var errorMap = map[unix.Errno]*errors.Error{
	unix.EPERM:      EPERM,
	unix.ENOENT:     ENOENT,
	unix.EINTR:      EINTR,
	unix.EIO:        EIO,
	unix.EBADF:      EBADF,
	unix.EAGAIN:     EAGAIN,
	unix.ENOMEM:     ENOMEM,
	unix.EACCES:     EACCES,
	unix.EFAULT:     EFAULT,
	unix.EBUSY:      EBUSY,
	unix.EEXIST:     EEXIST,
	unix.ENODEV:     ENODEV,
	unix.EINVAL:     EINVAL,
	unix.EFBIG:      EFBIG,
	unix.ENOSPC:     ENOSPC,
	unix.EROFS:      EROFS,
	unix.ERANGE:     ERANGE,
	unix.ENOSYS:     ENOSYS,
	unix.EOVERFLOW:  EOVERFLOW,
	unix.EOPNOTSUPP: EOPNOTSUPP,
}

// ErrorFromUnix returns a linuxerr from a unix.Errno. Errnos without a
// registered counterpart are returned unchanged.
func ErrorFromUnix(err unix.Errno) error {
	if err == unix.Errno(0) {
		return nil
	}
	if e, ok := errorMap[err]; ok {
		return e
	}
	return err
}

// ToError converts a linuxerr to an error type.
func ToError(err *errors.Error) error {
	if err == noError {
		return nil
	}
	return err
}

// ToUnix converts a linuxerr to a unix.Errno.
func ToUnix(e *errors.Error) unix.Errno {
	var unixErr unix.Errno
	if e != noError {
		unixErr = e.Errno()
	}
	return unixErr
}

// Equals compares a linuxerr to a given error. Wrapped errors are unwrapped,
// so an error produced with fmt.Errorf("...: %w", EINVAL) equals EINVAL.
func Equals(e *errors.Error, err error) bool {
	var unixErr unix.Errno
	if e != noError {
		unixErr = e.Errno()
	}
	if err == nil {
		err = noError
	}
	for err != nil {
		if e == err || unixErr == err {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e == noError
}

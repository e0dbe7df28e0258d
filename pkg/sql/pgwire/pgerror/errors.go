// Copyright 2026 The Pgbridge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package pgerror attaches PostgreSQL SQLSTATE codes to Go errors so
// the protocol layer can report them in ErrorResponse messages. Errors
// built elsewhere can be wrapped to pick up a code; Flatten turns any
// error into the wire fields.
package pgerror

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// withCode decorates an error with a SQLSTATE code. The outermost code
// in a chain wins, so wrapping can refine a code on the way out.
type withCode struct {
	cause error
	code  string
}

var _ error = (*withCode)(nil)
var _ fmt.Formatter = (*withCode)(nil)

func (w *withCode) Error() string { return w.cause.Error() }
func (w *withCode) Cause() error  { return w.cause }
func (w *withCode) Unwrap() error { return w.cause }

func (w *withCode) Format(s fmt.State, verb rune) { errors.FormatError(w, s, verb) }

// New creates an error with a code.
func New(code, msg string) error {
	return &withCode{cause: errors.NewWithDepth(1, msg), code: code}
}

// Newf creates a formatted error with a code.
func Newf(code, format string, args ...interface{}) error {
	return &withCode{cause: errors.NewWithDepthf(1, format, args...), code: code}
}

// Wrap decorates err with a code, leaving the message alone.
func Wrap(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCode{cause: err, code: code}
}

// Wrapf wraps err with a message prefix and a code.
func Wrapf(err error, code, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &withCode{cause: errors.WrapWithDepthf(1, err, format, args...), code: code}
}

// GetCode extracts the outermost SQLSTATE code in err's chain, or
// CodeUncategorizedError when none was attached.
func GetCode(err error) string {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if w, ok := e.(*withCode); ok {
			return w.code
		}
	}
	return CodeUncategorizedError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && GetCode(err) == code
}

// Error is the flattened, wire-ready form of an error.
type Error struct {
	Severity string
	Code     string
	Message  string
}

// Flatten turns any error into wire fields. Errors that never received
// a code are reported as uncategorized rather than leaked as internal
// server state.
func Flatten(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Severity: "ERROR",
		Code:     GetCode(err),
		Message:  err.Error(),
	}
}

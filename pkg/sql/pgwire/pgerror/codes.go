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

package pgerror

// SQLSTATE codes used by this server. The five-character values are
// fixed by the PostgreSQL errcodes appendix; clients dispatch on them.
const (
	// Class 08 - Connection Exception.
	CodeConnectionFailureError = "08006"
	CodeProtocolViolationError = "08P01"

	// Class 22 - Data Exception.
	CodeNumericValueOutOfRangeError      = "22003"
	CodeInvalidTextRepresentationError   = "22P02"
	CodeInvalidBinaryRepresentationError = "22P03"

	// Class 26 - Invalid SQL Statement Name.
	CodeInvalidSQLStatementNameError = "26000"

	// Class 34 - Invalid Cursor Name.
	CodeInvalidCursorNameError = "34000"

	// Class 42 - Syntax Error or Access Rule Violation.
	CodeSyntaxError                = "42601"
	CodeUndefinedObjectError       = "42704"
	CodeIndeterminateDatatypeError = "42P18"
	CodeDuplicateCursorError       = "42P03"

	// Class XX - Internal Error.
	CodeInternalError = "XX000"

	// CodeUncategorizedError is assigned to errors that did not get a
	// specific code on their way out.
	CodeUncategorizedError = "XXUUU"
)

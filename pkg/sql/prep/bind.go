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

package prep

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
	"github.com/lib/pq"

	"github.com/pgbridge/pgbridge/pkg/sql/pgtypes"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgerror"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgwirebase"
)

// Bind validates the supplied values against stmt's resolved parameter
// types and produces a portal. formats follows the wire rule: zero
// entries means all-text, one entry applies to every value, otherwise
// there must be exactly one entry per value.
//
// Nothing is coerced. A value that does not fit its parameter's type is
// an error naming the position, the expected type, and what was
// received, so that the server-side contract matches what strict client
// drivers enforce locally.
func Bind(
	name string,
	stmt *PreparedStatement,
	values [][]byte,
	formats []pgwirebase.FormatCode,
	resultFormats []int16,
) (*Portal, error) {
	if len(values) != len(stmt.Params) {
		return nil, pgerror.Newf(pgerror.CodeProtocolViolationError,
			"wrong number of parameters for prepared statement %q: expected %d, got %d",
			stmt.Name, len(stmt.Params), len(values))
	}

	fanned, err := fanOutFormats(formats, len(values))
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		if v == nil {
			// NULL binds to anything.
			continue
		}
		if err := validateValue(stmt.Params[i], v, fanned[i]); err != nil {
			return nil, err
		}
	}

	return &Portal{
		Name:          name,
		Stmt:          stmt,
		Values:        values,
		Formats:       fanned,
		ResultFormats: resultFormats,
	}, nil
}

func fanOutFormats(formats []pgwirebase.FormatCode, n int) ([]pgwirebase.FormatCode, error) {
	fanned := make([]pgwirebase.FormatCode, n)
	switch len(formats) {
	case 0:
		// All text.
	case 1:
		for i := range fanned {
			fanned[i] = formats[0]
		}
	case n:
		copy(fanned, formats)
	default:
		return nil, pgerror.Newf(pgerror.CodeProtocolViolationError,
			"wrong number of format codes: expected 0, 1 or %d, got %d", n, len(formats))
	}
	for _, f := range fanned {
		if f != pgwirebase.FormatText && f != pgwirebase.FormatBinary {
			return nil, pgerror.Newf(pgerror.CodeProtocolViolationError,
				"unknown format code %d", f)
		}
	}
	return fanned, nil
}

// validateValue checks one non-NULL value against its resolved type.
func validateValue(p ResolvedParameter, v []byte, format pgwirebase.FormatCode) error {
	t, ok := pgtypes.ByOid(p.Oid)
	if !ok {
		// Resolution only ever produces catalog OIDs.
		return pgerror.Newf(pgerror.CodeInternalError,
			"parameter $%d resolved to unknown OID %d", p.Idx, p.Oid)
	}

	if format == pgwirebase.FormatText {
		return validateText(p.Idx, t, v)
	}
	return validateBinary(p.Idx, t, v)
}

func validateText(idx int, t pgtypes.TypeEntry, v []byte) error {
	s := string(v)
	switch t.Class {
	case pgtypes.Text:
		return nil

	case pgtypes.Int:
		bits := 8 * t.Size
		if _, err := strconv.ParseInt(s, 10, bits); err != nil {
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				return pgerror.Newf(pgerror.CodeNumericValueOutOfRangeError,
					"parameter $%d: value %q is out of range for type %s", idx, s, t.Name)
			}
			return textRepErr(idx, t, s)
		}
		return nil

	case pgtypes.Float:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return textRepErr(idx, t, s)
		}
		return nil

	case pgtypes.Bool:
		if !isBoolLiteral(s) {
			return textRepErr(idx, t, s)
		}
		return nil

	case pgtypes.Binary:
		// Only the hex form of bytea input is accepted.
		if !bytes.HasPrefix(v, []byte(`\x`)) || !isHex(v[2:]) {
			return textRepErr(idx, t, s)
		}
		return nil

	default:
		return validateTextOther(idx, t, s)
	}
}

// validateTextOther handles the types that are only accepted in their
// text representation: numeric and the date/time family.
func validateTextOther(idx int, t pgtypes.TypeEntry, s string) error {
	switch t.Name {
	case "numeric":
		if _, _, err := apd.NewFromString(strings.TrimSpace(s)); err != nil {
			return textRepErr(idx, t, s)
		}
	case "date", "timestamp", "timestamptz":
		if _, err := pq.ParseTimestamp(nil, s); err != nil {
			return textRepErr(idx, t, s)
		}
	}
	return nil
}

func validateBinary(idx int, t pgtypes.TypeEntry, v []byte) error {
	switch t.Class {
	case pgtypes.Text:
		if !utf8.Valid(v) {
			return pgwirebase.NewInvalidBinaryRepresentationErrorf(
				"parameter $%d: binary value is not valid text for type %s", idx, t.Name)
		}
		return nil

	case pgtypes.Int, pgtypes.Float, pgtypes.Bool:
		if len(v) != t.Size {
			return pgwirebase.NewInvalidBinaryRepresentationErrorf(
				"parameter $%d: binary value has length %d, expected %d for type %s",
				idx, len(v), t.Size, t.Name)
		}
		return nil

	case pgtypes.Binary:
		return nil

	default:
		return pgwirebase.NewInvalidBinaryRepresentationErrorf(
			"parameter $%d: binary format is not supported for type %s", idx, t.Name)
	}
}

func textRepErr(idx int, t pgtypes.TypeEntry, s string) error {
	return pgerror.Newf(pgerror.CodeInvalidTextRepresentationError,
		"parameter $%d: invalid input syntax for type %s: %q", idx, t.Name, s)
}

// isBoolLiteral reports whether s is one of the boolean input literals
// the server accepts.
func isBoolLiteral(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "f", "false", "y", "yes", "n", "no", "on", "off", "1", "0":
		return true
	}
	return false
}

func isHex(b []byte) bool {
	if len(b)%2 != 0 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

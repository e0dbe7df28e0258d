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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgerror"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgwirebase"
)

func mustPrepare(t *testing.T, sql string) *PreparedStatement {
	t.Helper()
	params, err := Resolve(sql, nil)
	require.NoError(t, err)
	return &PreparedStatement{Name: "s", SQL: sql, Params: params}
}

func bindText(stmt *PreparedStatement, values ...string) (*Portal, error) {
	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = []byte(v)
	}
	return Bind("", stmt, raw, nil, nil)
}

func TestBindArity(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::int4, $2")

	_, err := bindText(stmt, "1")
	require.Error(t, err)
	require.Equal(t, pgerror.CodeProtocolViolationError, pgerror.GetCode(err))
	require.Contains(t, err.Error(), "expected 2, got 1")

	_, err = bindText(stmt, "1", "a", "b")
	require.Error(t, err)
	require.Equal(t, pgerror.CodeProtocolViolationError, pgerror.GetCode(err))

	_, err = bindText(stmt, "1", "a")
	require.NoError(t, err)
}

func TestBindZeroParams(t *testing.T) {
	stmt := mustPrepare(t, "SELECT 1")
	p, err := Bind("", stmt, nil, nil, nil)
	require.NoError(t, err)
	require.Empty(t, p.Values)
}

func TestBindNullAlwaysValid(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::int4, $2::bool, $3::bytea")
	p, err := Bind("", stmt, [][]byte{nil, nil, nil}, nil, nil)
	require.NoError(t, err)
	require.Nil(t, p.Values[0])
}

func TestBindTextInt(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::int4")

	_, err := bindText(stmt, "42")
	require.NoError(t, err)
	_, err = bindText(stmt, "-42")
	require.NoError(t, err)

	_, err = bindText(stmt, "forty-two")
	require.Error(t, err)
	require.Equal(t, pgerror.CodeInvalidTextRepresentationError, pgerror.GetCode(err))

	// Malformed, not out of range.
	_, err = bindText(stmt, "4.2")
	require.Equal(t, pgerror.CodeInvalidTextRepresentationError, pgerror.GetCode(err))

	// Fits int8 but not int4.
	_, err = bindText(stmt, "3000000000")
	require.Error(t, err)
	require.Equal(t, pgerror.CodeNumericValueOutOfRangeError, pgerror.GetCode(err))
}

func TestBindTextIntWidths(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::int2")
	_, err := bindText(stmt, "32767")
	require.NoError(t, err)
	_, err = bindText(stmt, "32768")
	require.Equal(t, pgerror.CodeNumericValueOutOfRangeError, pgerror.GetCode(err))

	stmt = mustPrepare(t, "SELECT $1::int8")
	_, err = bindText(stmt, "9223372036854775807")
	require.NoError(t, err)
	_, err = bindText(stmt, "9223372036854775808")
	require.Equal(t, pgerror.CodeNumericValueOutOfRangeError, pgerror.GetCode(err))
}

func TestBindTextFloat(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::float8")
	for _, ok := range []string{"1.5", "-0.25", "1e10", "NaN", "Infinity"} {
		_, err := bindText(stmt, ok)
		require.NoError(t, err, "value %q", ok)
	}
	_, err := bindText(stmt, "one point five")
	require.Equal(t, pgerror.CodeInvalidTextRepresentationError, pgerror.GetCode(err))
}

func TestBindTextBool(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::bool")
	for _, ok := range []string{"t", "true", "TRUE", "f", "false", "yes", "no", "on", "off", "1", "0", " true "} {
		_, err := bindText(stmt, ok)
		require.NoError(t, err, "value %q", ok)
	}
	for _, bad := range []string{"tr", "2", "si", ""} {
		_, err := bindText(stmt, bad)
		require.Equal(t, pgerror.CodeInvalidTextRepresentationError, pgerror.GetCode(err),
			"value %q", bad)
	}
}

func TestBindTextBytea(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::bytea")
	_, err := bindText(stmt, `\xDEADbeef`)
	require.NoError(t, err)
	_, err = bindText(stmt, `\x`)
	require.NoError(t, err)

	for _, bad := range []string{`\xZZ`, `\xabc`, `deadbeef`} {
		_, err = bindText(stmt, bad)
		require.Equal(t, pgerror.CodeInvalidTextRepresentationError, pgerror.GetCode(err),
			"value %q", bad)
	}
}

func TestBindTextNumeric(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::numeric")
	for _, ok := range []string{"1", "-1.5", "3.14159265358979", "1e100"} {
		_, err := bindText(stmt, ok)
		require.NoError(t, err, "value %q", ok)
	}
	_, err := bindText(stmt, "pi")
	require.Equal(t, pgerror.CodeInvalidTextRepresentationError, pgerror.GetCode(err))
}

func TestBindTextTimestamp(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::timestamp")
	_, err := bindText(stmt, "2026-08-29 12:34:56")
	require.NoError(t, err)
	_, err = bindText(stmt, "last tuesday")
	require.Equal(t, pgerror.CodeInvalidTextRepresentationError, pgerror.GetCode(err))
}

func TestBindTextAcceptsAnythingForText(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1")
	_, err := bindText(stmt, "anything at all; 'even quotes'")
	require.NoError(t, err)
}

func TestBindBinaryWidths(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::int8")
	binFmt := []pgwirebase.FormatCode{pgwirebase.FormatBinary}

	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, 42)
	_, err := Bind("", stmt, [][]byte{v}, binFmt, nil)
	require.NoError(t, err)

	_, err = Bind("", stmt, [][]byte{v[:4]}, binFmt, nil)
	require.Error(t, err)
	require.Equal(t, pgerror.CodeInvalidBinaryRepresentationError, pgerror.GetCode(err))

	stmt = mustPrepare(t, "SELECT $1::bool")
	_, err = Bind("", stmt, [][]byte{{1}}, binFmt, nil)
	require.NoError(t, err)
	_, err = Bind("", stmt, [][]byte{{0, 1}}, binFmt, nil)
	require.Equal(t, pgerror.CodeInvalidBinaryRepresentationError, pgerror.GetCode(err))
}

func TestBindBinaryText(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1")
	binFmt := []pgwirebase.FormatCode{pgwirebase.FormatBinary}

	_, err := Bind("", stmt, [][]byte{[]byte("héllo")}, binFmt, nil)
	require.NoError(t, err)

	_, err = Bind("", stmt, [][]byte{{0xff, 0xfe}}, binFmt, nil)
	require.Equal(t, pgerror.CodeInvalidBinaryRepresentationError, pgerror.GetCode(err))
}

func TestBindBinaryUnsupportedClass(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::numeric")
	_, err := Bind("", stmt, [][]byte{{1, 2, 3}},
		[]pgwirebase.FormatCode{pgwirebase.FormatBinary}, nil)
	require.Error(t, err)
	require.Equal(t, pgerror.CodeInvalidBinaryRepresentationError, pgerror.GetCode(err))
}

func TestBindFormatFanOut(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::int4, $2::int4")
	four := make([]byte, 4)

	// No codes: all text.
	p, err := Bind("", stmt, [][]byte{[]byte("1"), []byte("2")}, nil, nil)
	require.NoError(t, err)
	require.Equal(t,
		[]pgwirebase.FormatCode{pgwirebase.FormatText, pgwirebase.FormatText},
		p.Formats)

	// One code applies to every value.
	p, err = Bind("", stmt, [][]byte{four, four},
		[]pgwirebase.FormatCode{pgwirebase.FormatBinary}, nil)
	require.NoError(t, err)
	require.Equal(t,
		[]pgwirebase.FormatCode{pgwirebase.FormatBinary, pgwirebase.FormatBinary},
		p.Formats)

	// One per value.
	p, err = Bind("", stmt, [][]byte{[]byte("1"), four},
		[]pgwirebase.FormatCode{pgwirebase.FormatText, pgwirebase.FormatBinary}, nil)
	require.NoError(t, err)

	// Any other count is a protocol violation.
	_, err = Bind("", stmt, [][]byte{[]byte("1"), []byte("2")},
		[]pgwirebase.FormatCode{pgwirebase.FormatText, pgwirebase.FormatText, pgwirebase.FormatText}, nil)
	require.Equal(t, pgerror.CodeProtocolViolationError, pgerror.GetCode(err))

	// Unknown codes are rejected.
	_, err = Bind("", stmt, [][]byte{[]byte("1"), []byte("2")},
		[]pgwirebase.FormatCode{2}, nil)
	require.Equal(t, pgerror.CodeProtocolViolationError, pgerror.GetCode(err))
}

func TestBindErrorNamesPosition(t *testing.T) {
	stmt := mustPrepare(t, "SELECT $1::int4, $2::bool")
	_, err := bindText(stmt, "1", "not-a-bool")
	require.Error(t, err)
	require.Contains(t, err.Error(), "$2")
	require.Contains(t, err.Error(), "bool")
	require.Contains(t, err.Error(), "not-a-bool")
}

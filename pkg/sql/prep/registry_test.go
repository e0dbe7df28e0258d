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
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/require"

	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgerror"
)

func TestRegistryParseAndGet(t *testing.T) {
	r := NewRegistry(nil)

	stmt, err := r.Parse("s1", "SELECT $1::int4", nil, nil)
	require.NoError(t, err)
	require.Equal(t, []oid.Oid{oid.T_int4}, ParameterOids(stmt.Params))

	got, err := r.Get("s1")
	require.NoError(t, err)
	require.Same(t, stmt, got)

	_, err = r.Get("nope")
	require.Error(t, err)
	require.Equal(t, pgerror.CodeInvalidSQLStatementNameError, pgerror.GetCode(err))
}

func TestRegistryParseErrorLeavesNoStatement(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Parse("s1", "SELECT $1::int4, $1::text", nil, nil)
	require.Error(t, err)
	_, err = r.Get("s1")
	require.Error(t, err)
}

func TestRegistrySilentReplace(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Parse("s1", "SELECT $1::int4", nil, nil)
	require.NoError(t, err)

	// Re-parsing the same name replaces the statement without error.
	replacement, err := r.Parse("s1", "SELECT $1::bool", nil, nil)
	require.NoError(t, err)

	got, err := r.Get("s1")
	require.NoError(t, err)
	require.Same(t, replacement, got)
	require.Equal(t, []oid.Oid{oid.T_bool}, ParameterOids(got.Params))
}

func TestRegistryUnnamedStatement(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Parse("", "SELECT $1", nil, nil)
	require.NoError(t, err)
	_, err = r.Parse("", "SELECT $1::int8", nil, nil)
	require.NoError(t, err)
	got, err := r.Get("")
	require.NoError(t, err)
	require.Equal(t, []oid.Oid{oid.T_int8}, ParameterOids(got.Params))
}

func TestRegistryCloseStatementIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Parse("s1", "SELECT 1", nil, nil)
	require.NoError(t, err)

	r.CloseStatement("s1")
	_, err = r.Get("s1")
	require.Error(t, err)

	// Closing again, or closing a name that never existed, is a no-op.
	r.CloseStatement("s1")
	r.CloseStatement("never")
}

func TestRegistryPortals(t *testing.T) {
	r := NewRegistry(nil)
	stmt, err := r.Parse("s1", "SELECT $1::int4", nil, nil)
	require.NoError(t, err)

	portal, err := Bind("p1", stmt, [][]byte{[]byte("7")}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.PutPortal(portal))

	got, err := r.GetPortal("p1")
	require.NoError(t, err)
	require.Same(t, portal, got)

	_, err = r.GetPortal("nope")
	require.Error(t, err)
	require.Equal(t, pgerror.CodeInvalidCursorNameError, pgerror.GetCode(err))

	// A named portal cannot be re-bound while it exists.
	dup, err := Bind("p1", stmt, [][]byte{[]byte("8")}, nil, nil)
	require.NoError(t, err)
	err = r.PutPortal(dup)
	require.Error(t, err)
	require.Equal(t, pgerror.CodeDuplicateCursorError, pgerror.GetCode(err))

	// After closing it, the name is free again.
	r.ClosePortal("p1")
	require.NoError(t, r.PutPortal(dup))
}

func TestRegistryUnnamedPortalReplaceable(t *testing.T) {
	r := NewRegistry(nil)
	stmt, err := r.Parse("", "SELECT $1", nil, nil)
	require.NoError(t, err)

	first, err := Bind("", stmt, [][]byte{[]byte("a")}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.PutPortal(first))

	second, err := Bind("", stmt, [][]byte{[]byte("b")}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.PutPortal(second))

	got, err := r.GetPortal("")
	require.NoError(t, err)
	require.Same(t, second, got)
}

func TestRegistryPortalSurvivesReplace(t *testing.T) {
	r := NewRegistry(nil)
	stmt, err := r.Parse("s1", "SELECT $1::int4", nil, nil)
	require.NoError(t, err)

	portal, err := Bind("p1", stmt, [][]byte{[]byte("7")}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.PutPortal(portal))

	// Replacing the statement name does not disturb the portal, which
	// keeps its reference to the object it was bound against.
	_, err = r.Parse("s1", "SELECT $1::bool", nil, nil)
	require.NoError(t, err)

	got, err := r.GetPortal("p1")
	require.NoError(t, err)
	require.Same(t, stmt, got.Stmt)
	require.Equal(t, []oid.Oid{oid.T_int4}, ParameterOids(got.Stmt.Params))
}

func TestRegistryCloseStatementDropsPortals(t *testing.T) {
	r := NewRegistry(nil)
	stmt, err := r.Parse("s1", "SELECT $1", nil, nil)
	require.NoError(t, err)
	other, err := r.Parse("s2", "SELECT $1", nil, nil)
	require.NoError(t, err)

	p1, err := Bind("p1", stmt, [][]byte{[]byte("a")}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.PutPortal(p1))
	p2, err := Bind("p2", other, [][]byte{[]byte("b")}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.PutPortal(p2))

	r.CloseStatement("s1")

	_, err = r.GetPortal("p1")
	require.Error(t, err)
	// Portals of other statements are untouched.
	_, err = r.GetPortal("p2")
	require.NoError(t, err)
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry(nil)
	stmt, err := r.Parse("s1", "SELECT $1", nil, nil)
	require.NoError(t, err)
	p, err := Bind("p1", stmt, [][]byte{[]byte("a")}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.PutPortal(p))

	r.Close()
	_, err = r.Get("s1")
	require.Error(t, err)
	_, err = r.GetPortal("p1")
	require.Error(t, err)
}

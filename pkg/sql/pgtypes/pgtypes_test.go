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

package pgtypes

import (
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	testCases := []struct {
		name string
		oid  oid.Oid
	}{
		{"int4", oid.T_int4},
		{"int", oid.T_int4},
		{"integer", oid.T_int4},
		{"INTEGER", oid.T_int4},
		{"Int8", oid.T_int8},
		{"bigint", oid.T_int8},
		{"smallint", oid.T_int2},
		{"bool", oid.T_bool},
		{"BOOLEAN", oid.T_bool},
		{"text", oid.T_text},
		{"varchar", oid.T_varchar},
		{"real", oid.T_float4},
		{"double", oid.T_float8},
		{"decimal", oid.T_numeric},
		{"bytea", oid.T_bytea},
		{"timestamptz", oid.T_timestamptz},
		{"timestamp with time zone", oid.T_timestamptz},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entry, ok := Lookup(tc.name)
			require.True(t, ok)
			require.Equal(t, tc.oid, entry.Oid)
		})
	}

	_, ok := Lookup("tinyint")
	require.False(t, ok)
	_, ok = Lookup("")
	require.False(t, ok)
}

func TestByOid(t *testing.T) {
	entry, ok := ByOid(oid.T_int8)
	require.True(t, ok)
	require.Equal(t, "int8", entry.Name)
	require.Equal(t, Int, entry.Class)
	require.Equal(t, 8, entry.Size)

	_, ok = ByOid(oid.Oid(999999))
	require.False(t, ok)
}

func TestDefaultOidIsText(t *testing.T) {
	require.Equal(t, oid.T_text, oid.Oid(DefaultOid))
	entry, ok := ByOid(DefaultOid)
	require.True(t, ok)
	require.Equal(t, Text, entry.Class)
}

func TestNameForOid(t *testing.T) {
	require.Equal(t, "int4", NameForOid(oid.T_int4))
	// Known to lib/pq but not in the catalog.
	require.Equal(t, "cidr", NameForOid(oid.T_cidr))
	require.Equal(t, "oid(999999)", NameForOid(oid.Oid(999999)))
}

func TestAliasesShareEntry(t *testing.T) {
	a, ok := Lookup("decimal")
	require.True(t, ok)
	b, ok := Lookup("numeric")
	require.True(t, ok)
	require.Equal(t, a.Oid, b.Oid)
	require.Equal(t, a.Class, b.Class)
}

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
)

func TestResolutionCacheMemoizes(t *testing.T) {
	rc, err := NewResolutionCache(8)
	require.NoError(t, err)

	const sql = "SELECT $1::int4, $2"
	a, err := rc.Resolve(sql, nil)
	require.NoError(t, err)
	b, err := rc.Resolve(sql, nil)
	require.NoError(t, err)

	// The hint-free result is the shared cached slice.
	require.Equal(t, a, b)
	require.Same(t, &a[0], &b[0])
}

func TestResolutionCacheHintsDoNotPollute(t *testing.T) {
	rc, err := NewResolutionCache(8)
	require.NoError(t, err)

	const sql = "SELECT $1"
	hinted, err := rc.Resolve(sql, []oid.Oid{oid.T_int8})
	require.NoError(t, err)
	require.Equal(t, []oid.Oid{oid.T_int8}, ParameterOids(hinted))

	// The cached base is untouched by the hinted resolution.
	base, err := rc.Resolve(sql, nil)
	require.NoError(t, err)
	require.Equal(t, []oid.Oid{oid.T_text}, ParameterOids(base))

	// All-zero hints take the cached path too.
	zeros, err := rc.Resolve(sql, []oid.Oid{0})
	require.NoError(t, err)
	require.Equal(t, []oid.Oid{oid.T_text}, ParameterOids(zeros))
}

func TestResolutionCacheErrorsNotCached(t *testing.T) {
	rc, err := NewResolutionCache(8)
	require.NoError(t, err)

	_, err = rc.Resolve("SELECT $1::int4, $1::text", nil)
	require.Error(t, err)
	_, err = rc.Resolve("SELECT $1::int4, $1::text", nil)
	require.Error(t, err)
}

func TestResolutionCacheEviction(t *testing.T) {
	rc, err := NewResolutionCache(2)
	require.NoError(t, err)

	// More distinct statements than the cache holds; results stay
	// correct regardless of eviction.
	stmts := []string{"SELECT $1::int4", "SELECT $1::bool", "SELECT $1::int8"}
	want := []oid.Oid{oid.T_int4, oid.T_bool, oid.T_int8}
	for round := 0; round < 3; round++ {
		for i, sql := range stmts {
			params, err := rc.Resolve(sql, nil)
			require.NoError(t, err)
			require.Equal(t, []oid.Oid{want[i]}, ParameterOids(params))
		}
	}
}

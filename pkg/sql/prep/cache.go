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
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lib/pq/oid"
)

// ResolutionCache memoizes hint-free placeholder resolution by
// statement text. Resolution is a pure function of the text, so one
// cache serves every connection; the LRU is internally synchronized.
// Failed resolutions are not cached.
type ResolutionCache struct {
	c *lru.Cache[string, []ResolvedParameter]
}

// DefaultResolutionCacheSize is the number of distinct statement texts
// remembered process-wide.
const DefaultResolutionCacheSize = 1024

// NewResolutionCache returns a cache holding up to size resolutions.
func NewResolutionCache(size int) (*ResolutionCache, error) {
	c, err := lru.New[string, []ResolvedParameter](size)
	if err != nil {
		return nil, err
	}
	return &ResolutionCache{c: c}, nil
}

// Resolve is Resolve() with memoization of the hint-free result. The
// returned slice is shared when it comes from the cache and must be
// treated as immutable; hinted positions are applied onto a copy.
func (rc *ResolutionCache) Resolve(sql string, typeHints []oid.Oid) ([]ResolvedParameter, error) {
	base, ok := rc.c.Get(sql)
	if !ok {
		var err error
		base, err = Resolve(sql, nil)
		if err != nil {
			return nil, err
		}
		rc.c.Add(sql, base)
	}

	if !hasHint(typeHints, len(base)) {
		return base, nil
	}

	params := make([]ResolvedParameter, len(base))
	copy(params, base)
	if err := applyHints(params, typeHints); err != nil {
		return nil, err
	}
	return params, nil
}

func hasHint(hints []oid.Oid, n int) bool {
	for i, h := range hints {
		if i >= n {
			break
		}
		if h != 0 {
			return true
		}
	}
	return false
}

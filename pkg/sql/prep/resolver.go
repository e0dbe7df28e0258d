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

// Package prep implements the prepared-statement half of the extended
// protocol: resolving a type for every placeholder at Parse time, the
// per-connection statement registry, and Bind-time validation of the
// values a client supplies against those resolved types.
package prep

import (
	"github.com/lib/pq/oid"

	"github.com/pgbridge/pgbridge/pkg/sql/lex"
	"github.com/pgbridge/pgbridge/pkg/sql/pgtypes"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgerror"
)

// TypeSource records how a placeholder got its type.
type TypeSource int

const (
	// DefaultText marks a placeholder with no cast and no client hint.
	// An un-annotated placeholder resolves to text, the behavior strict
	// drivers expect of the real server.
	DefaultText TypeSource = iota
	// ExplicitCast marks a type taken from a cast in the statement
	// text.
	ExplicitCast
	// ClientHint marks a type the client supplied in the Parse message.
	ClientHint
)

func (s TypeSource) String() string {
	switch s {
	case ExplicitCast:
		return "cast"
	case ClientHint:
		return "hint"
	default:
		return "default"
	}
}

// ResolvedParameter is the fixed type of one placeholder index. Every
// index from 1 through the statement's maximum gets exactly one, and it
// never changes for the life of the statement.
type ResolvedParameter struct {
	Idx    int
	Oid    oid.Oid
	Source TypeSource
}

// Resolve assigns a type to every placeholder of sql.
//
// typeHints are the parameter OIDs from the Parse message; a nonzero
// hint fixes the type of its position outright, mirroring the real
// server, which trusts client-declared parameter types over its own
// inference. Hints beyond the referenced placeholder count are ignored.
//
// For unhinted positions: an explicit cast wins, no cast defaults to
// text, and casts to two different types for one index are an error.
// The result is a pure function of (sql, typeHints).
func Resolve(sql string, typeHints []oid.Oid) ([]ResolvedParameter, error) {
	refs, maxIdx, err := lex.ScanPlaceholders(sql)
	if err != nil {
		return nil, pgerror.Wrap(err, pgerror.CodeProtocolViolationError)
	}

	params := make([]ResolvedParameter, maxIdx)
	for i := range params {
		params[i] = ResolvedParameter{
			Idx:    i + 1,
			Oid:    pgtypes.DefaultOid,
			Source: DefaultText,
		}
	}

	// castNames remembers the first cast name seen per index so a
	// conflict can name both spellings.
	castNames := make(map[int]string)
	for _, ref := range refs {
		if ref.CastType == "" {
			continue
		}
		t, ok := pgtypes.Lookup(ref.CastType)
		if !ok {
			return nil, pgerror.Newf(pgerror.CodeUndefinedObjectError,
				"type %q does not exist", ref.CastType)
		}
		p := &params[ref.Idx-1]
		if prev, seen := castNames[ref.Idx]; seen {
			// Two spellings of the same type (int vs integer) are not a
			// conflict; two different types are.
			if p.Oid != t.Oid {
				return nil, pgerror.Newf(pgerror.CodeIndeterminateDatatypeError,
					"inconsistent types for parameter $%d: %s vs %s",
					ref.Idx, prev, ref.CastType)
			}
			continue
		}
		castNames[ref.Idx] = ref.CastType
		p.Oid = t.Oid
		p.Source = ExplicitCast
	}

	if err := applyHints(params, typeHints); err != nil {
		return nil, err
	}
	return params, nil
}

// applyHints overlays nonzero client-supplied parameter OIDs onto
// params in place. Hints past the end of params are ignored.
func applyHints(params []ResolvedParameter, typeHints []oid.Oid) error {
	for i, hint := range typeHints {
		if i >= len(params) || hint == 0 {
			continue
		}
		if _, ok := pgtypes.ByOid(hint); !ok {
			return pgerror.Newf(pgerror.CodeUndefinedObjectError,
				"parameter $%d: type with OID %d does not exist", i+1, hint)
		}
		params[i].Oid = hint
		params[i].Source = ClientHint
	}
	return nil
}

// ParameterOids projects the resolved OIDs in placeholder order, the
// shape ParameterDescription wants.
func ParameterOids(params []ResolvedParameter) []oid.Oid {
	oids := make([]oid.Oid, len(params))
	for i, p := range params {
		oids[i] = p.Oid
	}
	return oids
}

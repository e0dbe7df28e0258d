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

// Package pgtypes holds the catalog of wire types known to the server.
//
// The catalog is a fixed table built at package initialization and never
// mutated afterwards, so it is safe for unsynchronized reads from every
// connection goroutine.
package pgtypes

import (
	"fmt"
	"strings"

	"github.com/lib/pq/oid"
)

// WireClass describes how values of a type travel on the wire and which
// validation rules apply to them at Bind time.
type WireClass int

const (
	// Text covers text and varchar.
	Text WireClass = iota
	// Int covers the fixed-width integer types.
	Int
	// Float covers float4 and float8.
	Float
	// Bool is the boolean type.
	Bool
	// Binary is bytea.
	Binary
	// Other covers types that are only validated in their text
	// representation (numeric, date, timestamps).
	Other
)

func (c WireClass) String() string {
	switch c {
	case Text:
		return "text"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Binary:
		return "binary"
	default:
		return "other"
	}
}

// TypeEntry describes one built-in type. Entries are immutable.
type TypeEntry struct {
	Name    string
	Aliases []string
	Oid     oid.Oid
	Class   WireClass

	// Size is the wire size in bytes for fixed-width binary
	// representations, or -1 for variable-size types. It mirrors
	// pg_type.typlen and bounds binary-format parameter values.
	Size int
}

// DefaultOid is the type assigned to a placeholder that carries no
// explicit cast and no client-supplied hint. Un-annotated placeholders
// resolve to text on a real server, and strict drivers rely on that.
const DefaultOid = oid.T_text

var builtins = []TypeEntry{
	{Name: "bool", Aliases: []string{"boolean"}, Oid: oid.T_bool, Class: Bool, Size: 1},
	{Name: "bytea", Oid: oid.T_bytea, Class: Binary, Size: -1},
	{Name: "int2", Aliases: []string{"smallint"}, Oid: oid.T_int2, Class: Int, Size: 2},
	{Name: "int4", Aliases: []string{"int", "integer"}, Oid: oid.T_int4, Class: Int, Size: 4},
	{Name: "int8", Aliases: []string{"bigint"}, Oid: oid.T_int8, Class: Int, Size: 8},
	{Name: "float4", Aliases: []string{"real"}, Oid: oid.T_float4, Class: Float, Size: 4},
	{Name: "float8", Aliases: []string{"float", "double"}, Oid: oid.T_float8, Class: Float, Size: 8},
	{Name: "numeric", Aliases: []string{"decimal"}, Oid: oid.T_numeric, Class: Other, Size: -1},
	{Name: "text", Oid: oid.T_text, Class: Text, Size: -1},
	{Name: "varchar", Oid: oid.T_varchar, Class: Text, Size: -1},
	{Name: "date", Oid: oid.T_date, Class: Other, Size: 4},
	{Name: "timestamp", Oid: oid.T_timestamp, Class: Other, Size: 8},
	{Name: "timestamptz", Aliases: []string{"timestamp with time zone"}, Oid: oid.T_timestamptz, Class: Other, Size: 8},
}

var byName map[string]TypeEntry
var byOid map[oid.Oid]TypeEntry

func init() {
	byName = make(map[string]TypeEntry, 2*len(builtins))
	byOid = make(map[oid.Oid]TypeEntry, len(builtins))
	for _, t := range builtins {
		byName[t.Name] = t
		for _, a := range t.Aliases {
			byName[a] = t
		}
		byOid[t.Oid] = t
	}
}

// Lookup resolves a type name or alias, case-insensitively.
func Lookup(name string) (TypeEntry, bool) {
	t, ok := byName[strings.ToLower(name)]
	return t, ok
}

// ByOid resolves a type by its OID.
func ByOid(id oid.Oid) (TypeEntry, bool) {
	t, ok := byOid[id]
	return t, ok
}

// NameForOid returns the catalog name for id, or its numeric form when
// the OID is not a known type. Used in error messages.
func NameForOid(id oid.Oid) string {
	if t, ok := byOid[id]; ok {
		return t.Name
	}
	if n, ok := oid.TypeName[id]; ok {
		return strings.ToLower(n)
	}
	return fmt.Sprintf("oid(%d)", id)
}

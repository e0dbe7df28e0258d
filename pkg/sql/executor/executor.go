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

// Package executor defines the contract between the wire front-end and
// the engine that actually runs statements. The front-end types and
// validates placeholders; everything past Execute is the engine's
// business.
package executor

import (
	"context"

	"github.com/lib/pq/oid"
)

// ColumnDescription describes one result column for RowDescription
// messages. The front-end treats these as opaque: it tags columns with
// the OIDs the engine reports and does not second-guess them.
type ColumnDescription struct {
	Name string
	Oid  oid.Oid
	// Size mirrors pg_type.typlen; -1 for variable-size types.
	Size int16
}

// Result is the outcome of executing one statement.
type Result struct {
	Columns []ColumnDescription
	// Rows holds text-format values; a nil cell is SQL NULL.
	Rows [][][]byte
	// Tag is the command tag, e.g. "SELECT 2".
	Tag string
}

// Executor runs statements on behalf of a connection.
type Executor interface {
	// DescribeColumns reports the result columns the statement will
	// produce, or an empty slice for statements that return no rows.
	DescribeColumns(ctx context.Context, sql string) ([]ColumnDescription, error)

	// Execute runs the statement with the given arguments. Arguments
	// arrive in the order of their placeholder indices, already
	// validated against the statement's resolved parameter types; a nil
	// argument is SQL NULL.
	Execute(ctx context.Context, sql string, args [][]byte) (Result, error)
}

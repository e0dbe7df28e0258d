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

// Package fake provides an Executor that echoes its arguments back as a
// single row. It backs the wire-protocol tests and the standalone
// binary, which has no engine of its own.
package fake

import (
	"context"
	"strings"
	"sync"

	"github.com/lib/pq/oid"

	"github.com/pgbridge/pgbridge/pkg/sql/executor"
)

// Executor implements executor.Executor. Safe for concurrent use.
type Executor struct {
	mu struct {
		sync.Mutex
		lastSQL  string
		lastArgs [][]byte
	}
}

var _ executor.Executor = (*Executor)(nil)

// New returns a fake executor.
func New() *Executor {
	return &Executor{}
}

// DescribeColumns reports one text column per placeholder-free
// statement convention: statements that look like queries produce a
// single column named "echo"; everything else produces none.
func (e *Executor) DescribeColumns(
	_ context.Context, sql string,
) ([]executor.ColumnDescription, error) {
	if !isQuery(sql) {
		return nil, nil
	}
	return []executor.ColumnDescription{
		{Name: "echo", Oid: oid.T_text, Size: -1},
	}, nil
}

// Execute echoes the arguments joined by commas as one text row.
func (e *Executor) Execute(
	_ context.Context, sql string, args [][]byte,
) (executor.Result, error) {
	e.mu.Lock()
	e.mu.lastSQL = sql
	e.mu.lastArgs = args
	e.mu.Unlock()

	if !isQuery(sql) {
		return executor.Result{Tag: "OK"}, nil
	}
	parts := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			parts[i] = "NULL"
		} else {
			parts[i] = string(a)
		}
	}
	return executor.Result{
		Columns: []executor.ColumnDescription{
			{Name: "echo", Oid: oid.T_text, Size: -1},
		},
		Rows: [][][]byte{{[]byte(strings.Join(parts, ","))}},
		Tag:  "SELECT 1",
	}, nil
}

// LastCall returns the statement and arguments of the most recent
// Execute, for test assertions.
func (e *Executor) LastCall() (string, [][]byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mu.lastSQL, e.mu.lastArgs
}

func isQuery(sql string) bool {
	trimmed := strings.TrimSpace(sql)
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "SELECT")
}

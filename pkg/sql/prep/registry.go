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
	"github.com/lib/pq/oid"

	"github.com/pgbridge/pgbridge/pkg/sql/executor"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgerror"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgwirebase"
)

// PreparedStatement is the per-connection record of one Parse. It is
// immutable once created: the resolved parameter types never change no
// matter what gets bound later.
type PreparedStatement struct {
	Name   string
	SQL    string
	Params []ResolvedParameter
	// Columns describes the statement's result rows. It is produced by
	// the execution engine and carried here opaquely for Describe.
	Columns []executor.ColumnDescription
}

// Portal is a bound, executable instance of a prepared statement. It
// references the statement object it was bound against, so a later
// re-Parse of the same name does not change what this portal runs.
type Portal struct {
	Name string
	Stmt *PreparedStatement
	// Values holds one entry per parameter; nil is SQL NULL.
	Values [][]byte
	// Formats has been fanned out to one code per value.
	Formats []pgwirebase.FormatCode
	// ResultFormats is the client's requested result encoding; the
	// execution path consults it when serializing rows.
	ResultFormats []int16
}

// Registry is one connection's prepared statements and portals. It is
// owned by a single connection goroutine and needs no locking; the
// process-wide pieces it touches (type catalog, resolution cache) are
// read-only or internally synchronized.
type Registry struct {
	cache   *ResolutionCache
	stmts   map[string]*PreparedStatement
	portals map[string]*Portal
}

// NewRegistry returns an empty registry. cache may be nil, in which
// case every Parse resolves from scratch.
func NewRegistry(cache *ResolutionCache) *Registry {
	return &Registry{
		cache:   cache,
		stmts:   make(map[string]*PreparedStatement),
		portals: make(map[string]*Portal),
	}
}

// Parse resolves sql's placeholders and stores the result under name.
// An existing statement with the same name is silently replaced, per
// extended-protocol semantics; the unnamed statement ("") is always
// implicitly replaceable. Portals bound against a replaced statement
// keep their reference to the old object.
func (r *Registry) Parse(
	name, sql string, typeHints []oid.Oid, columns []executor.ColumnDescription,
) (*PreparedStatement, error) {
	var params []ResolvedParameter
	var err error
	if r.cache != nil {
		params, err = r.cache.Resolve(sql, typeHints)
	} else {
		params, err = Resolve(sql, typeHints)
	}
	if err != nil {
		return nil, err
	}
	if len(params) > pgwirebase.MaxPreparedStatementArgs {
		return nil, pgwirebase.NewProtocolViolationErrorf(
			"more than %d arguments to prepared statement: %d",
			pgwirebase.MaxPreparedStatementArgs, len(params))
	}

	stmt := &PreparedStatement{
		Name:    name,
		SQL:     sql,
		Params:  params,
		Columns: columns,
	}
	r.stmts[name] = stmt
	return stmt, nil
}

// Get returns the named statement or an invalid-statement-name error.
func (r *Registry) Get(name string) (*PreparedStatement, error) {
	stmt, ok := r.stmts[name]
	if !ok {
		return nil, pgerror.Newf(pgerror.CodeInvalidSQLStatementNameError,
			"prepared statement %q does not exist", name)
	}
	return stmt, nil
}

// CloseStatement deallocates the named statement. Closing an unknown
// name is a no-op, not an error. Portals bound against the statement
// are released with it; a portal never outlives its source statement.
func (r *Registry) CloseStatement(name string) {
	stmt, ok := r.stmts[name]
	if !ok {
		return
	}
	delete(r.stmts, name)
	for pname, p := range r.portals {
		if p.Stmt == stmt {
			delete(r.portals, pname)
		}
	}
}

// PutPortal stores a bound portal. The unnamed portal is implicitly
// replaceable; re-binding a named portal that already exists is an
// error, matching the cursor rules of the real server.
func (r *Registry) PutPortal(p *Portal) error {
	if p.Name != "" {
		if _, ok := r.portals[p.Name]; ok {
			return pgerror.Newf(pgerror.CodeDuplicateCursorError,
				"portal %q already exists", p.Name)
		}
	}
	r.portals[p.Name] = p
	return nil
}

// GetPortal returns the named portal or an invalid-cursor-name error.
func (r *Registry) GetPortal(name string) (*Portal, error) {
	p, ok := r.portals[name]
	if !ok {
		return nil, pgerror.Newf(pgerror.CodeInvalidCursorNameError,
			"portal %q does not exist", name)
	}
	return p, nil
}

// ClosePortal destroys the named portal; unknown names are a no-op.
func (r *Registry) ClosePortal(name string) {
	delete(r.portals, name)
}

// Close releases everything the registry owns, portals first. Called
// when the owning connection terminates.
func (r *Registry) Close() {
	r.portals = make(map[string]*Portal)
	r.stmts = make(map[string]*PreparedStatement)
}

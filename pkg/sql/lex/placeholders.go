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

// Package lex locates positional placeholders ($1, $2, ...) in statement
// text without parsing the statement. The walk skips string literals,
// quoted identifiers and comments, so a '$' inside a literal is never
// taken for a placeholder, and records any explicit cast attached to a
// placeholder, either suffix syntax ($1::int) or the function form
// (CAST($1 AS int)).
package lex

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// MaxPlaceholderIdx bounds placeholder indices. The wire protocol
// announces the parameter count in an int16 field, so anything above
// this cannot be described to a client.
const MaxPlaceholderIdx = 1<<16 - 1

// PlaceholderRef is one textual occurrence of a placeholder.
type PlaceholderRef struct {
	// Idx is the 1-based placeholder index.
	Idx int
	// CastType is the type name of an explicit cast attached to this
	// occurrence, or empty when the occurrence is bare.
	CastType string
	// Offset is the byte offset of the '$' in the statement text.
	Offset int
}

// ScanPlaceholders walks sql and returns every placeholder occurrence in
// textual order, along with the maximum index referenced. Indices need
// not be contiguous or in order; callers fill the gaps.
func ScanPlaceholders(sql string) (refs []PlaceholderRef, maxIdx int, err error) {
	s := scanner{in: sql}
	for s.pos < len(s.in) {
		ch := s.in[s.pos]
		switch {
		case ch == '\'':
			s.scanString(false)
		case ch == '"':
			s.scanQuotedIdent()
		case ch == '-' && s.peekAt(1) == '-':
			s.scanLineComment()
		case ch == '/' && s.peekAt(1) == '*':
			s.scanBlockComment()
		case ch == '$':
			ref, ok, scanErr := s.scanDollar()
			if scanErr != nil {
				return nil, 0, scanErr
			}
			if ok {
				refs = append(refs, ref)
				if ref.Idx > maxIdx {
					maxIdx = ref.Idx
				}
			}
		case isIdentStart(ch):
			word := s.scanIdent()
			if strings.EqualFold(word, "e") && s.peek() == '\'' {
				// E'...' string with backslash escapes.
				s.scanString(true)
			} else if strings.EqualFold(word, "cast") {
				if ref, ok := s.scanCastCall(); ok {
					refs = append(refs, ref)
					if ref.Idx > maxIdx {
						maxIdx = ref.Idx
					}
				}
			}
		default:
			s.pos++
		}
	}
	return refs, maxIdx, nil
}

type scanner struct {
	in  string
	pos int
}

func (s *scanner) peek() byte {
	return s.peekAt(0)
}

func (s *scanner) peekAt(n int) byte {
	if s.pos+n >= len(s.in) {
		return 0
	}
	return s.in[s.pos+n]
}

// scanString consumes a single-quoted literal starting at s.pos. A
// doubled quote ('') stays inside the literal; when escapes is set
// (E'...' form) a backslash additionally escapes the next byte.
func (s *scanner) scanString(escapes bool) {
	s.pos++ // opening quote
	for s.pos < len(s.in) {
		switch s.in[s.pos] {
		case '\\':
			if escapes {
				s.pos += 2
				continue
			}
			s.pos++
		case '\'':
			if s.peekAt(1) == '\'' {
				s.pos += 2
				continue
			}
			s.pos++ // closing quote
			return
		default:
			s.pos++
		}
	}
}

// scanQuotedIdent consumes a double-quoted identifier; "" doubling stays
// inside.
func (s *scanner) scanQuotedIdent() {
	s.pos++
	for s.pos < len(s.in) {
		if s.in[s.pos] == '"' {
			if s.peekAt(1) == '"' {
				s.pos += 2
				continue
			}
			s.pos++
			return
		}
		s.pos++
	}
}

func (s *scanner) scanLineComment() {
	for s.pos < len(s.in) && s.in[s.pos] != '\n' {
		s.pos++
	}
}

// scanBlockComment consumes a /* ... */ comment. Block comments nest.
func (s *scanner) scanBlockComment() {
	depth := 0
	for s.pos < len(s.in) {
		if s.in[s.pos] == '/' && s.peekAt(1) == '*' {
			depth++
			s.pos += 2
			continue
		}
		if s.in[s.pos] == '*' && s.peekAt(1) == '/' {
			depth--
			s.pos += 2
			if depth == 0 {
				return
			}
			continue
		}
		s.pos++
	}
}

// scanIdent consumes an identifier. '$' is a valid identifier
// continuation byte, so id$1 is an identifier and not id followed by a
// placeholder, matching the server lexer.
func (s *scanner) scanIdent() string {
	start := s.pos
	s.pos++
	for s.pos < len(s.in) && (isIdentCont(s.in[s.pos]) || s.in[s.pos] == '$') {
		s.pos++
	}
	return s.in[start:s.pos]
}

// scanDollar handles a '$': either a placeholder ($ followed by digits)
// or a dollar-quoted string ($$...$$ or $tag$...$tag$). Anything else is
// a lone '$' and is skipped.
func (s *scanner) scanDollar() (PlaceholderRef, bool, error) {
	start := s.pos
	next := s.peekAt(1)
	if next >= '0' && next <= '9' {
		s.pos++
		idx := 0
		for s.pos < len(s.in) && s.in[s.pos] >= '0' && s.in[s.pos] <= '9' {
			idx = idx*10 + int(s.in[s.pos]-'0')
			if idx > MaxPlaceholderIdx {
				return PlaceholderRef{}, false, errors.Newf(
					"placeholder index must not exceed %d", MaxPlaceholderIdx)
			}
			s.pos++
		}
		if idx == 0 {
			// $0 is not a valid placeholder; leave it for the executor
			// to reject.
			return PlaceholderRef{}, false, nil
		}
		ref := PlaceholderRef{Idx: idx, Offset: start}
		if name, ok := s.scanSuffixCast(); ok {
			ref.CastType = name
		}
		return ref, true, nil
	}
	if next == '$' || isIdentStart(next) {
		if s.scanDollarQuote() {
			return PlaceholderRef{}, false, nil
		}
	}
	s.pos++
	return PlaceholderRef{}, false, nil
}

// scanDollarQuote consumes a $tag$...$tag$ string starting at s.pos and
// reports whether one was actually present. On false the position is
// unchanged.
func (s *scanner) scanDollarQuote() bool {
	end := s.pos + 1
	for end < len(s.in) && isIdentCont(s.in[end]) {
		end++
	}
	if end >= len(s.in) || s.in[end] != '$' {
		return false
	}
	delim := s.in[s.pos : end+1]
	rest := s.in[end+1:]
	closing := strings.Index(rest, delim)
	if closing == -1 {
		// Unterminated: consume to the end, matching how the server
		// lexer treats a runaway string.
		s.pos = len(s.in)
		return true
	}
	s.pos = end + 1 + closing + len(delim)
	return true
}

// scanSuffixCast consumes an immediately following '::typename' (with
// optional whitespace and comments around the '::') and returns the type
// name. On false the position is left where scanning should resume.
func (s *scanner) scanSuffixCast() (string, bool) {
	save := s.pos
	s.skipSpaceAndComments()
	if s.peek() != ':' || s.peekAt(1) != ':' {
		s.pos = save
		return "", false
	}
	s.pos += 2
	s.skipSpaceAndComments()
	name, ok := s.scanTypeName()
	if !ok {
		s.pos = save
		return "", false
	}
	return name, true
}

// scanCastCall is entered after the identifier "cast" has been consumed.
// It matches CAST( $n AS typename ) and returns the reference; when the
// parenthesized expression is anything else, scanning resumes right
// after the opening parenthesis so the contents get walked normally.
func (s *scanner) scanCastCall() (PlaceholderRef, bool) {
	save := s.pos
	s.skipSpaceAndComments()
	if s.peek() != '(' {
		s.pos = save
		return PlaceholderRef{}, false
	}
	s.pos++
	after := s.pos
	s.skipSpaceAndComments()
	if s.peek() != '$' {
		s.pos = after
		return PlaceholderRef{}, false
	}
	next := s.peekAt(1)
	if next < '0' || next > '9' {
		s.pos = after
		return PlaceholderRef{}, false
	}
	offset := s.pos
	s.pos++
	idx := 0
	for s.pos < len(s.in) && s.in[s.pos] >= '0' && s.in[s.pos] <= '9' {
		idx = idx*10 + int(s.in[s.pos]-'0')
		if idx > MaxPlaceholderIdx {
			// Let the main loop rescan and report the overflow.
			s.pos = after
			return PlaceholderRef{}, false
		}
		s.pos++
	}
	if idx == 0 {
		s.pos = after
		return PlaceholderRef{}, false
	}
	s.skipSpaceAndComments()
	word := ""
	if isIdentStart(s.peek()) {
		word = s.scanIdent()
	}
	if !strings.EqualFold(word, "as") {
		s.pos = after
		return PlaceholderRef{}, false
	}
	s.skipSpaceAndComments()
	name, ok := s.scanTypeName()
	if !ok {
		s.pos = after
		return PlaceholderRef{}, false
	}
	s.skipSpaceAndComments()
	if s.peek() != ')' {
		s.pos = after
		return PlaceholderRef{}, false
	}
	s.pos++
	return PlaceholderRef{Idx: idx, CastType: name, Offset: offset}, true
}

// scanTypeName reads a type name: a bare identifier or a double-quoted
// one. Quoting does not matter to the catalog, which folds case either
// way.
func (s *scanner) scanTypeName() (string, bool) {
	if s.peek() == '"' {
		start := s.pos
		s.scanQuotedIdent()
		if s.pos <= start+1 {
			return "", false
		}
		inner := s.in[start+1 : s.pos-1]
		return strings.ReplaceAll(inner, `""`, `"`), true
	}
	if !isIdentStart(s.peek()) {
		return "", false
	}
	return s.scanIdent(), true
}

func (s *scanner) skipSpaceAndComments() {
	for s.pos < len(s.in) {
		switch {
		case isSpace(s.in[s.pos]):
			s.pos++
		case s.in[s.pos] == '-' && s.peekAt(1) == '-':
			s.scanLineComment()
		case s.in[s.pos] == '/' && s.peekAt(1) == '*':
			s.scanBlockComment()
		default:
			return
		}
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentCont(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

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

// Package pgwirebase holds the message-level constants and buffers of
// the v3 wire protocol shared by the server and its tests.
package pgwirebase

// ClientMessageType represents a message type sent by the client.
// https://www.postgresql.org/docs/current/protocol-message-formats.html
type ClientMessageType byte

// ServerMessageType represents a message type sent by the server.
type ServerMessageType byte

const (
	ClientMsgBind        ClientMessageType = 'B'
	ClientMsgClose       ClientMessageType = 'C'
	ClientMsgDescribe    ClientMessageType = 'D'
	ClientMsgExecute     ClientMessageType = 'E'
	ClientMsgFlush       ClientMessageType = 'H'
	ClientMsgParse       ClientMessageType = 'P'
	ClientMsgSimpleQuery ClientMessageType = 'Q'
	ClientMsgSync        ClientMessageType = 'S'
	ClientMsgTerminate   ClientMessageType = 'X'

	ServerMsgAuth                 ServerMessageType = 'R'
	ServerMsgBackendKeyData       ServerMessageType = 'K'
	ServerMsgBindComplete         ServerMessageType = '2'
	ServerMsgCommandComplete      ServerMessageType = 'C'
	ServerMsgCloseComplete        ServerMessageType = '3'
	ServerMsgDataRow              ServerMessageType = 'D'
	ServerMsgEmptyQuery           ServerMessageType = 'I'
	ServerMsgErrorResponse        ServerMessageType = 'E'
	ServerMsgNoData               ServerMessageType = 'n'
	ServerMsgParameterDescription ServerMessageType = 't'
	ServerMsgParameterStatus      ServerMessageType = 'S'
	ServerMsgParseComplete        ServerMessageType = '1'
	ServerMsgReady                ServerMessageType = 'Z'
	ServerMsgRowDescription       ServerMessageType = 'T'
)

// ServerErrFieldType enumerates the fields of an ErrorResponse.
type ServerErrFieldType byte

const (
	ServerErrFieldSeverity   ServerErrFieldType = 'S'
	ServerErrFieldSQLState   ServerErrFieldType = 'C'
	ServerErrFieldMsgPrimary ServerErrFieldType = 'M'
	ServerErrFieldHint       ServerErrFieldType = 'H'
)

// PrepareType enumerates the objects a Describe or Close can target.
type PrepareType byte

const (
	// PrepareStatement targets a prepared statement.
	PrepareStatement PrepareType = 'S'
	// PreparePortal targets a portal.
	PreparePortal PrepareType = 'P'
)

// FormatCode is a parameter or result transfer format.
// https://www.postgresql.org/docs/current/protocol-overview.html#PROTOCOL-FORMAT-CODES
type FormatCode int16

const (
	// FormatText encodes values as strings.
	FormatText FormatCode = 0
	// FormatBinary encodes values in their type-specific binary layout.
	FormatBinary FormatCode = 1
)

func (c FormatCode) String() string {
	switch c {
	case FormatText:
		return "text"
	case FormatBinary:
		return "binary"
	default:
		return "invalid"
	}
}

// MaxPreparedStatementArgs is the maximum number of placeholders a
// prepared statement can carry; the parameter count travels in an int16
// field.
const MaxPreparedStatementArgs = 1<<16 - 1

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

package pgwire

import (
	"bufio"
	"context"
	"math/rand"
	"net"
	"strings"

	"github.com/lib/pq/oid"

	"github.com/pgbridge/pgbridge/pkg/sql/executor"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgerror"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgwirebase"
	"github.com/pgbridge/pgbridge/pkg/sql/prep"
	"github.com/pgbridge/pgbridge/pkg/util/log"
)

const authOK int32 = 0

// statusParams are reported to every client at session start.
var statusParams = [][2]string{
	{"server_version", "13.0"},
	{"server_encoding", "UTF8"},
	{"client_encoding", "UTF8"},
	{"DateStyle", "ISO, MDY"},
	{"integer_datetimes", "on"},
	{"standard_conforming_strings", "on"},
}

// conn handles one client session. All state here is owned by the
// single goroutine running serve; the shared pieces (executor, metrics,
// resolution cache inside the registry) are safe for concurrent use.
type conn struct {
	netConn     net.Conn
	rd          *bufio.Reader
	wr          *bufio.Writer
	sessionArgs map[string]string

	exec    executor.Executor
	reg     *prep.Registry
	metrics *ServerMetrics

	readBuf  pgwirebase.ReadBuffer
	writeBuf *writeBuffer

	// ignoreTillSync is set after an error inside an extended-protocol
	// batch; the protocol requires skipping messages until the next
	// Sync.
	ignoreTillSync bool
}

func newConn(
	netConn net.Conn,
	sessionArgs map[string]string,
	exec executor.Executor,
	cache *prep.ResolutionCache,
	metrics *ServerMetrics,
) *conn {
	return &conn{
		netConn:     netConn,
		rd:          bufio.NewReader(netConn),
		wr:          bufio.NewWriter(netConn),
		sessionArgs: sessionArgs,
		exec:        exec,
		reg:         prep.NewRegistry(cache),
		metrics:     metrics,
		writeBuf:    newWriteBuffer(metrics.BytesOut),
	}
}

// serve runs the session loop until the client terminates or the
// connection fails. Statement-level errors are reported to the client
// and do not end the session; only I/O failures do.
func (c *conn) serve(ctx context.Context) error {
	defer c.reg.Close()

	c.writeBuf.initMsg(pgwirebase.ServerMsgAuth)
	c.writeBuf.putInt32(authOK)
	if err := c.writeBuf.finishMsg(c.wr); err != nil {
		return err
	}
	for _, param := range statusParams {
		c.writeBuf.initMsg(pgwirebase.ServerMsgParameterStatus)
		c.writeBuf.writeTerminatedString(param[0])
		c.writeBuf.writeTerminatedString(param[1])
		if err := c.writeBuf.finishMsg(c.wr); err != nil {
			return err
		}
	}
	c.writeBuf.initMsg(pgwirebase.ServerMsgBackendKeyData)
	c.writeBuf.putInt32(int32(rand.Uint32()))
	c.writeBuf.putInt32(int32(rand.Uint32()))
	if err := c.writeBuf.finishMsg(c.wr); err != nil {
		return err
	}
	if err := c.sendReady(); err != nil {
		return err
	}
	if log.V(1) {
		log.VEventf(ctx, 1, "session options: %v", c.sessionArgs)
	}

	for {
		typ, n, err := c.readBuf.ReadTypedMsg(c.rd)
		if err != nil {
			return err
		}
		c.metrics.BytesIn.Add(float64(n))

		if c.ignoreTillSync &&
			typ != pgwirebase.ClientMsgSync && typ != pgwirebase.ClientMsgTerminate {
			if log.V(2) {
				log.VEventf(ctx, 2, "skipping %c until Sync", byte(typ))
			}
			continue
		}

		switch typ {
		case pgwirebase.ClientMsgSimpleQuery:
			err = c.handleSimpleQuery(ctx, &c.readBuf)

		case pgwirebase.ClientMsgParse:
			err = c.handleParse(ctx, &c.readBuf)

		case pgwirebase.ClientMsgBind:
			err = c.handleBind(ctx, &c.readBuf)

		case pgwirebase.ClientMsgDescribe:
			err = c.handleDescribe(ctx, &c.readBuf)

		case pgwirebase.ClientMsgExecute:
			err = c.handleExecute(ctx, &c.readBuf)

		case pgwirebase.ClientMsgClose:
			err = c.handleClose(ctx, &c.readBuf)

		case pgwirebase.ClientMsgFlush:
			err = c.wr.Flush()
			if err != nil {
				return err
			}

		case pgwirebase.ClientMsgSync:
			c.ignoreTillSync = false
			err = c.sendReady()
			if err != nil {
				return err
			}

		case pgwirebase.ClientMsgTerminate:
			return nil

		default:
			err = pgwirebase.NewProtocolViolationErrorf(
				"unrecognized client message type %c", byte(typ))
		}

		if err != nil {
			// The error is local to the offending statement: report it
			// and keep the session. The registry and every other
			// statement are untouched.
			if sendErr := c.sendError(ctx, err); sendErr != nil {
				return sendErr
			}
			if typ == pgwirebase.ClientMsgSimpleQuery {
				// The simple-query cycle ends in ReadyForQuery even on
				// error; there is no Sync to wait for.
				if err := c.sendReady(); err != nil {
					return err
				}
			} else {
				c.ignoreTillSync = true
			}
		}
	}
}

func (c *conn) handleParse(ctx context.Context, buf *pgwirebase.ReadBuffer) error {
	name, err := buf.GetString()
	if err != nil {
		return err
	}
	query, err := buf.GetString()
	if err != nil {
		return err
	}
	numHints, err := buf.GetUint16()
	if err != nil {
		return err
	}
	hints := make([]oid.Oid, numHints)
	for i := range hints {
		h, err := buf.GetUint32()
		if err != nil {
			return err
		}
		hints[i] = oid.Oid(h)
	}

	// Result-column metadata belongs to the execution engine; it is
	// stored on the statement only so Describe can report it.
	columns, err := c.exec.DescribeColumns(ctx, query)
	if err != nil {
		return err
	}

	stmt, err := c.reg.Parse(name, query, hints, columns)
	if err != nil {
		return err
	}
	c.metrics.ParseCount.Inc()
	if log.V(2) {
		log.VEventf(ctx, 2, "parsed %q with %d parameters", name, len(stmt.Params))
	}

	c.writeBuf.initMsg(pgwirebase.ServerMsgParseComplete)
	return c.writeBuf.finishMsg(c.wr)
}

func (c *conn) handleBind(ctx context.Context, buf *pgwirebase.ReadBuffer) error {
	portalName, err := buf.GetString()
	if err != nil {
		return err
	}
	stmtName, err := buf.GetString()
	if err != nil {
		return err
	}
	numFormats, err := buf.GetUint16()
	if err != nil {
		return err
	}
	formats := make([]pgwirebase.FormatCode, numFormats)
	for i := range formats {
		f, err := buf.GetUint16()
		if err != nil {
			return err
		}
		formats[i] = pgwirebase.FormatCode(f)
	}
	numValues, err := buf.GetUint16()
	if err != nil {
		return err
	}
	values := make([][]byte, numValues)
	for i := range values {
		vlen, err := buf.GetUint32()
		if err != nil {
			return err
		}
		if int32(vlen) == -1 {
			// NULL; values[i] stays nil.
			continue
		}
		v, err := buf.GetBytes(int(int32(vlen)))
		if err != nil {
			return err
		}
		values[i] = v
	}
	numResultFormats, err := buf.GetUint16()
	if err != nil {
		return err
	}
	resultFormats := make([]int16, numResultFormats)
	for i := range resultFormats {
		f, err := buf.GetUint16()
		if err != nil {
			return err
		}
		resultFormats[i] = int16(f)
	}

	stmt, err := c.reg.Get(stmtName)
	if err != nil {
		return err
	}
	portal, err := prep.Bind(portalName, stmt, values, formats, resultFormats)
	if err != nil {
		return err
	}
	if err := c.reg.PutPortal(portal); err != nil {
		return err
	}
	c.metrics.BindCount.Inc()

	c.writeBuf.initMsg(pgwirebase.ServerMsgBindComplete)
	return c.writeBuf.finishMsg(c.wr)
}

func (c *conn) handleDescribe(ctx context.Context, buf *pgwirebase.ReadBuffer) error {
	typ, err := buf.GetPrepareType()
	if err != nil {
		return err
	}
	name, err := buf.GetString()
	if err != nil {
		return err
	}

	switch typ {
	case pgwirebase.PrepareStatement:
		stmt, err := c.reg.Get(name)
		if err != nil {
			return err
		}
		if err := c.sendParameterDescription(stmt.Params); err != nil {
			return err
		}
		return c.sendColumnsOrNoData(stmt.Columns, nil)

	default: // pgwirebase.PreparePortal
		portal, err := c.reg.GetPortal(name)
		if err != nil {
			return err
		}
		// A portal's description reflects the result formats the client
		// asked for at Bind time.
		return c.sendColumnsOrNoData(portal.Stmt.Columns, portal.ResultFormats)
	}
}

func (c *conn) handleExecute(ctx context.Context, buf *pgwirebase.ReadBuffer) error {
	name, err := buf.GetString()
	if err != nil {
		return err
	}
	// The row-count limit enables partial execution with portal
	// suspension; this engine always runs portals to completion.
	if _, err := buf.GetUint32(); err != nil {
		return err
	}

	portal, err := c.reg.GetPortal(name)
	if err != nil {
		return err
	}
	res, err := c.exec.Execute(ctx, portal.Stmt.SQL, portal.Values)
	if err != nil {
		return execErr(err)
	}
	if err := c.sendRows(res.Rows); err != nil {
		return err
	}
	if err := c.sendCommandComplete(res.Tag); err != nil {
		return err
	}
	// A portal is single-shot: once execution completes it is destroyed,
	// and a further Execute of the name reports an unknown portal.
	c.reg.ClosePortal(name)
	return nil
}

func (c *conn) handleClose(ctx context.Context, buf *pgwirebase.ReadBuffer) error {
	typ, err := buf.GetPrepareType()
	if err != nil {
		return err
	}
	name, err := buf.GetString()
	if err != nil {
		return err
	}
	// Close is idempotent: unknown names are not an error.
	switch typ {
	case pgwirebase.PrepareStatement:
		c.reg.CloseStatement(name)
	default:
		c.reg.ClosePortal(name)
	}
	c.writeBuf.initMsg(pgwirebase.ServerMsgCloseComplete)
	return c.writeBuf.finishMsg(c.wr)
}

func (c *conn) handleSimpleQuery(ctx context.Context, buf *pgwirebase.ReadBuffer) error {
	query, err := buf.GetString()
	if err != nil {
		return err
	}
	if strings.TrimSpace(query) == "" {
		c.writeBuf.initMsg(pgwirebase.ServerMsgEmptyQuery)
		if err := c.writeBuf.finishMsg(c.wr); err != nil {
			return err
		}
		return c.sendReady()
	}

	res, queryErr := c.exec.Execute(ctx, query, nil)
	if queryErr != nil {
		if err := c.sendError(ctx, execErr(queryErr)); err != nil {
			return err
		}
		return c.sendReady()
	}
	if len(res.Columns) > 0 {
		if err := c.sendRowDescription(res.Columns, nil); err != nil {
			return err
		}
		if err := c.sendRows(res.Rows); err != nil {
			return err
		}
	}
	if err := c.sendCommandComplete(res.Tag); err != nil {
		return err
	}
	return c.sendReady()
}

func (c *conn) sendParameterDescription(params []prep.ResolvedParameter) error {
	c.writeBuf.initMsg(pgwirebase.ServerMsgParameterDescription)
	c.writeBuf.putInt16(int16(len(params)))
	for _, p := range params {
		c.writeBuf.putInt32(int32(p.Oid))
	}
	return c.writeBuf.finishMsg(c.wr)
}

func (c *conn) sendColumnsOrNoData(
	columns []executor.ColumnDescription, formatCodes []int16,
) error {
	if len(columns) == 0 {
		c.writeBuf.initMsg(pgwirebase.ServerMsgNoData)
		return c.writeBuf.finishMsg(c.wr)
	}
	return c.sendRowDescription(columns, formatCodes)
}

func (c *conn) sendRowDescription(
	columns []executor.ColumnDescription, formatCodes []int16,
) error {
	c.writeBuf.initMsg(pgwirebase.ServerMsgRowDescription)
	c.writeBuf.putInt16(int16(len(columns)))
	for i, col := range columns {
		c.writeBuf.writeTerminatedString(col.Name)
		c.writeBuf.putInt32(0) // table OID
		c.writeBuf.putInt16(0) // column attribute ID
		c.writeBuf.putInt32(int32(col.Oid))
		c.writeBuf.putInt16(col.Size)
		c.writeBuf.putInt32(-1) // type modifier
		// Result format codes follow the wire rule: none means all
		// text, a single code applies to every column.
		format := int16(pgwirebase.FormatText)
		switch {
		case len(formatCodes) == 1:
			format = formatCodes[0]
		case i < len(formatCodes):
			format = formatCodes[i]
		}
		c.writeBuf.putInt16(format)
	}
	return c.writeBuf.finishMsg(c.wr)
}

func (c *conn) sendRows(rows [][][]byte) error {
	for _, row := range rows {
		c.writeBuf.initMsg(pgwirebase.ServerMsgDataRow)
		c.writeBuf.putInt16(int16(len(row)))
		for _, cell := range row {
			c.writeBuf.writeLengthPrefixedBytes(cell)
		}
		if err := c.writeBuf.finishMsg(c.wr); err != nil {
			return err
		}
	}
	return nil
}

func (c *conn) sendCommandComplete(tag string) error {
	if tag == "" {
		tag = "OK"
	}
	c.writeBuf.initMsg(pgwirebase.ServerMsgCommandComplete)
	c.writeBuf.writeTerminatedString(tag)
	return c.writeBuf.finishMsg(c.wr)
}

func (c *conn) sendReady() error {
	c.writeBuf.initMsg(pgwirebase.ServerMsgReady)
	c.writeBuf.writeByte('I') // always idle: no transaction support here
	if err := c.writeBuf.finishMsg(c.wr); err != nil {
		return err
	}
	return c.wr.Flush()
}

// execErr attributes an execution-engine failure as an internal error
// unless the engine already attached a SQLSTATE of its own.
func execErr(err error) error {
	if pgerror.GetCode(err) != pgerror.CodeUncategorizedError {
		return err
	}
	return pgerror.Wrap(err, pgerror.CodeInternalError)
}

func (c *conn) sendError(ctx context.Context, err error) error {
	c.metrics.ErrorCount.Inc()
	pgErr := pgerror.Flatten(err)
	log.VEventf(ctx, 1, "error response: %s %s", pgErr.Code, pgErr.Message)

	c.writeBuf.initMsg(pgwirebase.ServerMsgErrorResponse)
	c.writeBuf.putErrFieldMsg(pgwirebase.ServerErrFieldSeverity)
	c.writeBuf.writeTerminatedString(pgErr.Severity)
	c.writeBuf.putErrFieldMsg(pgwirebase.ServerErrFieldSQLState)
	c.writeBuf.writeTerminatedString(pgErr.Code)
	c.writeBuf.putErrFieldMsg(pgwirebase.ServerErrFieldMsgPrimary)
	c.writeBuf.writeTerminatedString(pgErr.Message)
	c.writeBuf.writeByte(0)
	// Not flushed here: the response reaches the client at the next
	// Sync or Flush, which keeps the server from blocking on a write
	// while the client is still sending the rest of its batch.
	return c.writeBuf.finishMsg(c.wr)
}

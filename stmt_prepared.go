package mysql

import (
	"context"
	"fmt"

	"github.com/flowsql/gomysql/cache"
)

// PreparedStatement is the connection-owned tuple of §3: statement id,
// parameter/column metadata, and the original SQL used as the cache
// key. Callers obtain one from Conn.Prepare and must not use it past
// the owning Conn's lifetime.
type PreparedStatement struct {
	conn       *Conn
	sql        string
	id         uint32
	paramDefs  []*columnDefinition
	columnDefs []*columnDefinition
}

func (s *PreparedStatement) NumParams() int { return len(s.paramDefs) }

// Prepare runs the §4.6 server-prepared statement lifecycle step 1-2:
// a prepared-cache hit reuses the cached statement id outright; a miss
// issues COM_STMT_PREPARE, reads back PREPARED_OK plus its parameter-
// and column-definition streams, and inserts the result into the
// cache, scheduling COM_STMT_CLOSE for whatever statement the insert
// evicts.
func (c *Conn) Prepare(ctx context.Context, sql string) (*PreparedStatement, error) {
	if cached, ok := c.preparedCache().GetIfPresent(sql); ok {
		return cached, nil
	}

	dc := &decodeContext{phase: phasePrepareResponse}
	ex := newExchange(ctx,
		func(pc *packetConn) error { return pc.writePacket((&prepareQueryMessage{sql: sql}).encode()) },
		func(p []byte) (ServerMessage, error) { return decodePrepareMessage(p, c.cc, dc) },
		isTerminalPrepareMessage,
	)
	c.q.submitExchange(ex)

	stmt := &PreparedStatement{conn: c, sql: sql}
	expectParamBundle := false
	var prepErr error
	for msg := range ex.messages {
		switch m := msg.(type) {
		case *preparedOKMessage:
			stmt.id = m.statementID
			expectParamBundle = m.numParams > 0
		case *metadataBundle:
			if expectParamBundle {
				stmt.paramDefs = m.columns
				expectParamBundle = false
			} else {
				stmt.columnDefs = m.columns
			}
		case *errorMessage:
			prepErr = m.toServerError().WithSQL(sql)
		}
	}
	if err := ex.wait(); err != nil {
		return nil, err
	}
	if prepErr != nil {
		return nil, prepErr
	}

	// PutIfAbsent on a disabled cache (capacity 0) evicts its argument
	// immediately, which would close stmt before the caller ever gets to
	// use it; skip the cache entirely in that case and leave the
	// statement's lifetime to the caller's explicit Close.
	if c.cfg.PrepareCacheSize != 0 {
		c.preparedCache().PutIfAbsent(sql, stmt, func(evicted *PreparedStatement) {
			c.closeStatementAsync(evicted.id)
		})
	}
	return stmt, nil
}

// closeStatementAsync issues COM_STMT_CLOSE for a statement id evicted
// from the prepared cache (§4.8); COM_STMT_CLOSE has no response, so
// this does not need to wait for the drain loop.
func (c *Conn) closeStatementAsync(id uint32) {
	ex := newExchange(context.Background(),
		func(pc *packetConn) error { return pc.writePacket((&preparedCloseMessage{statementID: id}).encode()) },
		nil,
		nil,
	)
	ex.writeOnly = true
	c.q.submitExchange(ex)
}

func (c *Conn) preparedCache() *cache.Cache[*PreparedStatement] {
	if c.prepCache == nil {
		c.prepCache = cache.New[*PreparedStatement](c.cfg.PrepareCacheSize)
	}
	return c.prepCache
}

// Exec runs one COM_STMT_EXECUTE expecting no result set (§4.6 step 3).
func (s *PreparedStatement) Exec(ctx context.Context, args []interface{}) (*ExecResult, error) {
	rs, err := s.query(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	for range rs.Rows {
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return &ExecResult{AffectedRows: rs.AffectedRows, LastInsertID: rs.LastInsertID, Warnings: rs.Warnings, Status: rs.Status}, nil
}

// ExecGeneratedKeys runs s expecting no result set and returns its
// LastInsertID wrapped as a single-row, single-column synthetic
// ResultSet named keyColumn (§4.6 "last insert id synthesis").
func (s *PreparedStatement) ExecGeneratedKeys(ctx context.Context, args []interface{}, keyColumn string) (*ResultSet, error) {
	res, err := s.Exec(ctx, args)
	if err != nil {
		return nil, err
	}
	return singleValueResultSet(keyColumn, res.LastInsertID), nil
}

// Query runs one COM_STMT_EXECUTE expecting a result set. fetchSize>0
// opens a READ_ONLY cursor and drives COM_STMT_FETCH until
// LAST_ROW_SENT instead of letting the server stream every row inline
// (§4.6 step 3).
func (s *PreparedStatement) Query(ctx context.Context, args []interface{}, fetchSize int) (*ResultSet, error) {
	return s.query(ctx, args, fetchSize)
}

func (s *PreparedStatement) query(ctx context.Context, args []interface{}, fetchSize int) (*ResultSet, error) {
	c := s.conn
	params, err := s.bindParams(args)
	if err != nil {
		return nil, err
	}
	cursorType := byte(0)
	if fetchSize > 0 && len(s.columnDefs) > 0 {
		cursorType = cursorTypeReadOnly
	}

	dc := newCommandContext()
	dc.binaryRows = true

	exec := &preparedExecuteMessage{statementID: s.id, cursorType: cursorType, params: params}
	ex := newExchange(ctx,
		func(pc *packetConn) error { return pc.writePacket(exec.encode()) },
		func(p []byte) (ServerMessage, error) { return decodeResultMessage(p, c.cc, dc) },
		func(msg ServerMessage) bool { return isTerminalResultMessage(msg, c.cc) },
	)
	c.q.submitExchange(ex)

	rs := &ResultSet{}

	if cursorType == cursorTypeReadOnly {
		// A cursor-opening COM_STMT_EXECUTE carries column metadata but
		// never any rows inline (SERVER_STATUS_CURSOR_EXISTS instead);
		// drain that synchronously before handing off to the fetch loop,
		// so only one goroutine ever assigns rs.Rows.
		var prepErr error
		for msg := range ex.messages {
			switch m := msg.(type) {
			case *metadataBundle:
				rs.Columns = publicColumns(m.columns)
			case *okMessage:
				rs.Status, rs.AffectedRows, rs.LastInsertID, rs.Warnings = m.status, m.affectedRows, m.lastInsertID, m.warnings
			case *eofMessage:
				rs.Status, rs.Warnings = m.status, m.warnings
			case *errorMessage:
				prepErr = m.toServerError().WithSQL(s.sql)
			}
		}
		if err := ex.wait(); err != nil {
			return nil, err
		}
		if prepErr != nil {
			return nil, prepErr
		}
		return s.driveFetch(ctx, rs, fetchSize)
	}

	// The column-count message and the individual column definitions
	// that precede the synthetic metadataBundle are skipped; the first
	// message that remains is either that bundle (rows follow) or a
	// direct terminal OK/ERROR (no result set). rs is
	// fully populated before it is returned, so no field of it is ever
	// written concurrently with a caller's read.
	first, chanOpen := <-ex.messages
	for chanOpen {
		if _, ok := first.(*columnCountMessage); !ok {
			if _, ok := first.(*columnDefinition); !ok {
				break
			}
		}
		first, chanOpen = <-ex.messages
	}
	if !chanOpen {
		if err := ex.wait(); err != nil {
			return nil, err
		}
		empty := make(chan *Row)
		close(empty)
		rs.Rows = empty
		return rs, nil
	}

	switch m := first.(type) {
	case *errorMessage:
		for range ex.messages {
		}
		_ = ex.wait()
		return nil, m.toServerError().WithSQL(s.sql)
	case *okMessage:
		rs.Status, rs.AffectedRows, rs.LastInsertID, rs.Warnings = m.status, m.affectedRows, m.lastInsertID, m.warnings
		empty := make(chan *Row)
		close(empty)
		rs.Rows = empty
		for range ex.messages {
		}
		if err := ex.wait(); err != nil {
			return nil, err
		}
		return rs, nil
	case *metadataBundle:
		rs.Columns = publicColumns(m.columns)
		rowsCh := make(chan *Row, 64)
		rs.Rows = rowsCh
		go s.continueRows(ex, dc, rs, rowsCh)
		return rs, nil
	default:
		return nil, &ProtocolError{Op: "execute prepared statement", Err: fmt.Errorf("unexpected response %T", first)}
	}
}

// continueRows drains the row stream following an already-observed
// metadataBundle and closes rowsCh once the exchange finishes.
func (s *PreparedStatement) continueRows(ex *exchange, dc *decodeContext, rs *ResultSet, rowsCh chan *Row) {
	registry := s.conn.codecRegistry()
	opts := s.conn.codecOptions()
	var lastErr error
	for msg := range ex.messages {
		switch m := msg.(type) {
		case *rowMessage:
			row, err := decodeRow(m, dc.columnDefs, true, registry, opts)
			if err != nil {
				lastErr = err
				continue
			}
			rowsCh <- row
		case *okMessage:
			rs.Status, rs.AffectedRows, rs.LastInsertID, rs.Warnings = m.status, m.affectedRows, m.lastInsertID, m.warnings
		case *eofMessage:
			rs.Status, rs.Warnings = m.status, m.warnings
		case *errorMessage:
			lastErr = m.toServerError().WithSQL(s.sql)
		}
	}
	if err := ex.wait(); err != nil {
		lastErr = err
	}
	close(rowsCh)
	if lastErr != nil {
		rs.rowErr = &lastErr
	}
}

// driveFetch gives rs a rows channel fed by repeated COM_STMT_FETCH
// exchanges, since opening a cursor means the
// initial COM_STMT_EXECUTE response carries no rows of its own.
func (s *PreparedStatement) driveFetch(ctx context.Context, rs *ResultSet, fetchSize int) (*ResultSet, error) {
	c := s.conn
	registry := c.codecRegistry()
	opts := c.codecOptions()
	out := make(chan *Row, 64)
	rs.Rows = out

	go func() {
		defer close(out)
		for {
			dc := &decodeContext{phase: phaseFetchRow, binaryRows: true, columnDefs: s.columnDefs}
			ex := newExchange(ctx,
				func(pc *packetConn) error {
					return pc.writePacket((&fetchMessage{statementID: s.id, rowCount: uint32(fetchSize)}).encode())
				},
				func(p []byte) (ServerMessage, error) { return decodeFetchRow(p, c.cc, dc) },
				isTerminalFetchMessage,
			)
			c.q.submitExchange(ex)

			lastRow := false
			for msg := range ex.messages {
				switch m := msg.(type) {
				case *rowMessage:
					row, err := decodeRow(m, s.columnDefs, true, registry, opts)
					if err == nil {
						out <- row
					}
				case *eofMessage:
					rs.Status, rs.Warnings = m.status, m.warnings
					lastRow = m.status.Has(StatusLastRowSent)
				case *errorMessage:
					rs.rowErr = serverErrPtr(m.toServerError().WithSQL(s.sql))
				}
			}
			if err := ex.wait(); err != nil {
				rs.rowErr = &err
				return
			}
			if lastRow {
				return
			}
		}
	}()
	return rs, nil
}

func serverErrPtr(e *ServerError) *error {
	var err error = e
	return &err
}

func (s *PreparedStatement) bindParams(args []interface{}) ([]boundParam, error) {
	if len(args) != len(s.paramDefs) && len(s.paramDefs) > 0 {
		return nil, fmt.Errorf("mysql: statement expects %d parameters, got %d", len(s.paramDefs), len(args))
	}
	registry := s.conn.codecRegistry()
	opts := s.conn.codecOptions()
	out := make([]boundParam, len(args))
	for i, a := range args {
		if a == nil {
			out[i] = boundParam{isNull: true, typeCode: colTypeNull}
			continue
		}
		c, err := registry.EncoderFor(a)
		if err != nil {
			return nil, err
		}
		typeCode, unsigned, payload, err := c.Encode(a, opts)
		if err != nil {
			return nil, err
		}
		out[i] = boundParam{typeCode: typeCode, unsigned: unsigned, payload: payload}
	}
	return out, nil
}

// Close issues COM_STMT_CLOSE directly, bypassing the prepared cache;
// used when a caller explicitly discards a statement rather than
// letting the cache evict it.
func (s *PreparedStatement) Close() {
	s.conn.preparedCache().Remove(s.sql)
	s.conn.closeStatementAsync(s.id)
}

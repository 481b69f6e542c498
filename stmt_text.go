package mysql

import (
	"context"
	"fmt"

	"github.com/flowsql/gomysql/cache"
	"github.com/flowsql/gomysql/codec"
)

// ExecResult is the non-row-producing counterpart of ResultSet, for
// INSERT/UPDATE/DELETE/DDL statements (§4.6).
type ExecResult struct {
	AffectedRows uint64
	LastInsertID uint64
	Warnings     uint16
	Status       ServerStatus
}

// QueryMulti runs sql as a text (simple) statement and returns a
// channel of ResultSet, one per MORE_RESULTS_EXISTS repeat (§4.6). Most
// callers want the single-result convenience Query instead.
func (c *Conn) QueryMulti(ctx context.Context, sql string) (<-chan *ResultSet, error) {
	dc := newCommandContext()
	ex := newExchange(ctx,
		func(pc *packetConn) error { return pc.writePacket((&textQueryMessage{sql: sql}).encode()) },
		func(p []byte) (ServerMessage, error) { return decodeResultMessage(p, c.cc, dc) },
		func(msg ServerMessage) bool { return isTerminalResultMessage(msg, c.cc) },
	)
	ex.onLocalInfile = func(filename string) ([]byte, error) {
		return newLocalInfileSource(c.cc).resolve(filename)
	}
	ex.localInfileBufSz = c.cc.localInfileBufSz
	c.q.submitExchange(ex)

	out := make(chan *ResultSet)
	go c.streamResultSets(ex, dc, out, sql)
	return out, nil
}

// Query runs sql and returns only its first result set, silently
// draining (not interpreting) any further MORE_RESULTS_EXISTS result
// sets so the exchange's frame boundary is still honored — a stored
// procedure returning several result sets needs QueryMulti instead.
func (c *Conn) Query(ctx context.Context, sql string) (*ResultSet, error) {
	sets, err := c.QueryMulti(ctx, sql)
	if err != nil {
		return nil, err
	}
	first, ok := <-sets
	if !ok {
		return nil, nil
	}
	go func() {
		for range sets {
		}
	}()
	return first, nil
}

// Exec runs sql expecting no result set (§4.6).
func (c *Conn) Exec(ctx context.Context, sql string) (*ExecResult, error) {
	rs, err := c.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	for range rs.Rows {
		// A statement run through Exec should not return rows; drain
		// defensively so the exchange still completes cleanly.
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return &ExecResult{
		AffectedRows: rs.AffectedRows,
		LastInsertID: rs.LastInsertID,
		Warnings:     rs.Warnings,
		Status:       rs.Status,
	}, nil
}

// ExecGeneratedKeys runs sql expecting no result set and returns its
// LastInsertID wrapped as a single-row, single-column synthetic
// ResultSet named keyColumn, for callers that want generated keys back
// in the same shape as an ordinary query result (§4.6 "last insert id
// synthesis").
func (c *Conn) ExecGeneratedKeys(ctx context.Context, sql string, keyColumn string) (*ResultSet, error) {
	res, err := c.Exec(ctx, sql)
	if err != nil {
		return nil, err
	}
	return singleValueResultSet(keyColumn, res.LastInsertID), nil
}

// QueryArgs substitutes args into sql as escaped textual literals and
// runs it as a text statement — the "client-prepared statement" path
// of §4.6.
func (c *Conn) QueryArgs(ctx context.Context, sql string, args []interface{}) (*ResultSet, error) {
	rendered, err := c.renderTextStatement(sql, args)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, rendered)
}

func (c *Conn) renderTextStatement(sql string, args []interface{}) (string, error) {
	if len(args) == 0 {
		return sql, nil
	}
	literals := make([]string, len(args))
	for i, a := range args {
		lit, err := literalFor(a, c.cc.noBackslashEscapes())
		if err != nil {
			return "", err
		}
		literals[i] = lit
	}
	return substitutePositional(sql, c.parsedPlaceholders(sql), literals)
}

// parsedPlaceholders returns sql's placeholder tokenization, consulting
// the query-parse cache first (§4.8 "query-parse cache" — elastic,
// eventual consistency: unlike the prepared-statement cache, a miss just
// costs a rescan, never a server round trip, so there is no eviction
// callback to run). QueryArgs runs the same text repeatedly with varying
// arguments far more often than it runs distinct SQL, which is exactly
// the access pattern this cache is for.
func (c *Conn) parsedPlaceholders(sql string) []placeholder {
	if cached, ok := c.queryCache().GetIfPresent(sql); ok {
		return cached
	}
	placeholders := scanPlaceholders(sql)
	c.queryCache().PutIfAbsent(sql, placeholders, nil)
	return placeholders
}

func (c *Conn) queryCache() *cache.Cache[[]placeholder] {
	if c.qryCache == nil {
		c.qryCache = cache.New[[]placeholder](c.cfg.QueryCacheSize)
	}
	return c.qryCache
}

func literalFor(v interface{}, noBackslashEscapes bool) (string, error) {
	if v == nil {
		return "NULL", nil
	}
	switch t := v.(type) {
	case string:
		return escapeLiteral(t, noBackslashEscapes), nil
	case []byte:
		return escapeLiteral(string(t), noBackslashEscapes), nil
	case bool:
		if t {
			return "1", nil
		}
		return "0", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), nil
	case float32, float64:
		return fmt.Sprintf("%v", t), nil
	default:
		return "", fmt.Errorf("mysql: cannot render %T as a text-protocol literal", v)
	}
}

// streamResultSets pumps ex.messages into a sequence of ResultSet
// values, rebuilding the Rows channel per result set and stopping once
// the exchange itself completes.
func (c *Conn) streamResultSets(ex *exchange, dc *decodeContext, out chan<- *ResultSet, sql string) {
	defer close(out)
	registry := c.codecRegistry()
	opts := c.codecOptions()

	var rs *ResultSet
	var rowsCh chan *Row
	var lastErr error

	finishSet := func(status ServerStatus, affected, lastID uint64, warnings uint16) {
		if rowsCh == nil {
			empty := make(chan *Row)
			close(empty)
			rs = &ResultSet{Status: status, AffectedRows: affected, LastInsertID: lastID, Warnings: warnings, Rows: empty}
			out <- rs
			return
		}
		rs.Status, rs.AffectedRows, rs.LastInsertID, rs.Warnings = status, affected, lastID, warnings
		close(rowsCh)
		rowsCh = nil
		rs = nil
	}

	for msg := range ex.messages {
		switch m := msg.(type) {
		case *metadataBundle:
			rowsCh = make(chan *Row, 64)
			rs = &ResultSet{Columns: publicColumns(m.columns), Rows: rowsCh}
			out <- rs
		case *rowMessage:
			row, err := decodeRow(m, dc.columnDefs, dc.binaryRows, registry, opts)
			if err != nil {
				lastErr = err
				continue
			}
			rowsCh <- row
		case *okMessage:
			finishSet(m.status, m.affectedRows, m.lastInsertID, m.warnings)
			if m.status.Has(StatusMoreResultsExists) {
				reenterCommandPhase(dc)
			}
		case *eofMessage:
			finishSet(m.status, 0, 0, m.warnings)
			if m.status.Has(StatusMoreResultsExists) {
				reenterCommandPhase(dc)
			}
		case *errorMessage:
			lastErr = m.toServerError().WithSQL(sql)
		}
	}
	if err := ex.wait(); err != nil {
		lastErr = err
	}
	if rowsCh != nil {
		close(rowsCh)
	}
	if lastErr != nil {
		// A failure observed before any result set was ever opened (e.g.
		// a rejected LOCAL INFILE request, §4.6 "LOCAL INFILE safety")
		// still needs a ResultSet to carry it, since Query/Exec report
		// errors via ResultSet.Err rather than their own return value.
		if rs == nil {
			empty := make(chan *Row)
			close(empty)
			rs = &ResultSet{Rows: empty}
			out <- rs
		}
		rs.rowErr = &lastErr
	}
}

func (c *Conn) codecRegistry() *codec.Registry {
	if c.registry == nil {
		c.registry = codec.NewRegistry()
	}
	return c.registry
}

func (c *Conn) codecOptions() codec.Options {
	zd := codec.ZeroDateUseNull
	switch c.cc.zeroDatePolicy {
	case ZeroDateUseRound:
		zd = codec.ZeroDateUseRound
	case ZeroDateException:
		zd = codec.ZeroDateException
	}
	return codec.Options{ZeroDate: zd, Location: c.cc.timeZone}
}

package mysql

import (
	"fmt"

	"github.com/flowsql/gomysql/codec"
)

// Column describes one result column, the public counterpart of the
// wire-level columnDefinition (§3).
type Column struct {
	Name     string
	Table    string
	Type     byte
	Unsigned bool
	Nullable bool
	Decimals uint8
}

func publicColumns(defs []*columnDefinition) []Column {
	out := make([]Column, len(defs))
	for i, d := range defs {
		out[i] = Column{
			Name:     d.name,
			Table:    d.table,
			Type:     d.columnType,
			Unsigned: d.unsigned(),
			Nullable: d.flags&colFlagNotNull == 0,
			Decimals: d.decimals,
		}
	}
	return out
}

// FieldValue is one decoded field of a Row; Null reports whether the
// server sent NULL for this field, in which case Value is nil and
// decoding is never attempted (§3 invariant: codecs must not retain
// references past the decoded value's materialization).
type FieldValue struct {
	Null  bool
	Value interface{}
}

// Row is one decoded result row. Values are decoded eagerly by the
// owning ResultSet using the codec registry as each rowMessage arrives,
// rather than lazily per the teacher's driver.Value row.go — the
// row is only alive for the duration of one channel receive, so eager
// decoding is the simpler ownership story under §5's "owned by that row
// and released when the row is released" rule.
type Row struct {
	Values []FieldValue
}

func decodeRow(msg *rowMessage, cols []*columnDefinition, binary bool, registry *codec.Registry, opts codec.Options) (*Row, error) {
	row := &Row{Values: make([]FieldValue, len(cols))}
	for i, col := range cols {
		if msg.null[i] {
			row.Values[i] = FieldValue{Null: true}
			continue
		}
		c, err := registry.DecoderFor(col.columnType)
		if err != nil {
			return nil, err
		}
		v, err := c.Decode(msg.fields[i], col.columnType, col.unsigned(), binary, opts)
		if err != nil {
			return nil, fmt.Errorf("mysql: decoding column %q: %w", col.name, err)
		}
		row.Values[i] = FieldValue{Value: v}
	}
	return row, nil
}

// ResultSet streams Columns followed by Rows; Err reports the terminal
// error, if any, once Rows is closed. LastInsertID/AffectedRows/Warnings
// carry the terminal OK's fields once streaming has finished for
// statements that also produced a result set (rare, but legal for
// stored procedures); for ordinary DML they are the only content.
type ResultSet struct {
	Columns []Column
	Rows    <-chan *Row

	rowErr *error

	AffectedRows uint64
	LastInsertID uint64
	Warnings     uint16
	Status       ServerStatus
}

// Err returns the error that terminated row streaming, if any. It must
// only be called after Rows has been drained (closed).
func (r *ResultSet) Err() error {
	if r.rowErr == nil {
		return nil
	}
	return *r.rowErr
}

// singleValueResultSet builds the §4.6 "last insert id synthesis"
// single-row, single-column synthetic result: one unsigned 64-bit
// column named by the caller, populated from the terminal OK's
// last_insert_id.
func singleValueResultSet(columnName string, value uint64) *ResultSet {
	ch := make(chan *Row, 1)
	ch <- &Row{Values: []FieldValue{{Value: value}}}
	close(ch)
	return &ResultSet{
		Columns: []Column{{Name: columnName, Type: colTypeLongLong, Unsigned: true}},
		Rows:    ch,
	}
}

package mysql

import (
	"fmt"
)

// ServerMessage is the sum type decoded from one assembled payload in
// command/login context (§3 Server message). Implementations are plain
// structs; the decoder returns the concrete type via a type switch at
// call sites instead of an interface method table, matching the
// "tagged variant" design of decodeContext.
type ServerMessage interface {
	serverMessage()
}

type handshakeV10 struct {
	protocolVersion byte
	serverVersion   string
	connectionID    uint32
	authPluginData  []byte
	capability      Capability
	charset         byte
	status          ServerStatus
	authPluginName  string
	isMariaDB       bool
}

func (*handshakeV10) serverMessage() {}

type handshakeV9Rejected struct{}

func (*handshakeV9Rejected) serverMessage() {}

type okMessage struct {
	affectedRows uint64
	lastInsertID uint64
	status       ServerStatus
	warnings     uint16
	info         string
	sessionState []sessionStateChange
}

func (*okMessage) serverMessage() {}

type sessionStateChange struct {
	kind byte
	data string
}

const (
	sessionTrackSystemVariables byte = 0
	sessionTrackSchema          byte = 1
	sessionTrackStateChange     byte = 2
	sessionTrackGTIDs           byte = 3
	sessionTrackTransactionCharacteristics byte = 4
	sessionTrackTransactionState byte = 5
)

type eofMessage struct {
	warnings uint16
	status   ServerStatus
}

func (*eofMessage) serverMessage() {}

type errorMessage struct {
	code     uint16
	sqlState string
	message  string
}

func (*errorMessage) serverMessage() {}

func (e *errorMessage) toServerError() *ServerError {
	return &ServerError{Code: e.code, SQLState: e.sqlState, Message: e.message}
}

type authMoreDataMessage struct {
	data []byte
}

func (*authMoreDataMessage) serverMessage() {}

type changeAuthPluginMessage struct {
	pluginName string
	pluginData []byte
}

func (*changeAuthPluginMessage) serverMessage() {}

type columnCountMessage struct {
	count uint64
}

func (*columnCountMessage) serverMessage() {}

type columnDefinition struct {
	catalog      string
	schema       string
	table        string
	orgTable     string
	name         string
	orgName      string
	charset      uint16
	columnLength uint32
	columnType   byte
	flags        uint16
	decimals     uint8
}

func (*columnDefinition) serverMessage() {}

func (c *columnDefinition) unsigned() bool { return c.flags&(1<<5) != 0 }

// metadataBundle is the synthetic message emitted once the configured
// count of column-definition messages has arrived (§4.2 "Metadata
// streaming").
type metadataBundle struct {
	columns []*columnDefinition

	// final marks, for the COM_STMT_PREPARE meta-stream pair, that no
	// further bundle follows this one (no column stream, or this is the
	// column stream). Unused by the plain result-set decode path.
	final bool
}

func (*metadataBundle) serverMessage() {}

// rowMessage carries one row's raw field bytes, already demarcated but
// not yet decoded to an application value — that happens in the codec
// registry, which knows the target Go type the caller asked for.
type rowMessage struct {
	fields [][]byte
	null   []bool
}

func (*rowMessage) serverMessage() {}

type localInfileRequestMessage struct {
	filename string
}

func (*localInfileRequestMessage) serverMessage() {}

type preparedOKMessage struct {
	statementID uint32
	numColumns  uint16
	numParams   uint16
	warnings    uint16
}

func (*preparedOKMessage) serverMessage() {}

// tlsHandshakeOKMessage is a synthetic marker type, never decoded off
// the wire. The handshake FSM does not emit it: upgradeTLS completes the
// TLS upgrade inline.
type tlsHandshakeOKMessage struct{}

func (*tlsHandshakeOKMessage) serverMessage() {}

// decodeLoginMessage dispatches a login-phase payload per the §4.2
// leading-byte table restricted to the login context.
func decodeLoginMessage(payload []byte) (ServerMessage, error) {
	if len(payload) == 0 {
		return nil, &ProtocolError{Op: "decode login message", Err: fmt.Errorf("empty payload")}
	}
	switch payload[0] {
	case 0x0a:
		return decodeHandshakeV10(payload)
	case 0x09:
		return &handshakeV9Rejected{}, nil
	case 0xff:
		return decodeError(payload, true)
	case 0x01:
		return &authMoreDataMessage{data: payload[1:]}, nil
	case 0xfe:
		return decodeChangeAuthOrOK(payload)
	case 0x00:
		return decodeOK(payload, true)
	default:
		return nil, &ProtocolError{Op: "decode login message", Err: fmt.Errorf("unexpected leading byte %#x", payload[0])}
	}
}

func decodeChangeAuthOrOK(payload []byte) (ServerMessage, error) {
	// A bare 0xFE with no trailing plugin name/data (old-form auth switch
	// with no data) is legal; treat anything we can parse as a
	// null-terminated plugin name as change-auth-plugin.
	r := newReader(payload)
	if _, err := r.byte(); err != nil {
		return nil, err
	}
	name, err := r.nullTerminatedString()
	if err != nil {
		return &changeAuthPluginMessage{pluginName: "", pluginData: payload[1:]}, nil
	}
	return &changeAuthPluginMessage{pluginName: name, pluginData: r.restBytes()}, nil
}

func decodeHandshakeV10(payload []byte) (*handshakeV10, error) {
	r := newReader(payload)
	if _, err := r.byte(); err != nil { // protocol version, already dispatched on
		return nil, err
	}
	hs := &handshakeV10{protocolVersion: 10}
	ver, err := r.nullTerminatedString()
	if err != nil {
		return nil, &ProtocolError{Op: "decode handshake server version", Err: err}
	}
	hs.serverVersion = ver
	hs.isMariaDB = isMariaDBVersionString(ver)

	connID, err := r.uint32()
	if err != nil {
		return nil, &ProtocolError{Op: "decode handshake connection id", Err: err}
	}
	hs.connectionID = connID

	authPart1, err := r.fixed(8)
	if err != nil {
		return nil, &ProtocolError{Op: "decode handshake auth data part 1", Err: err}
	}
	authData := append([]byte{}, authPart1...)

	if _, err := r.byte(); err != nil { // filler
		return nil, err
	}

	capLo, err := r.uint16()
	if err != nil {
		return nil, &ProtocolError{Op: "decode handshake capability lo", Err: err}
	}
	charset, err := r.byte()
	if err != nil {
		return nil, err
	}
	hs.charset = charset
	status, err := r.uint16()
	if err != nil {
		return nil, err
	}
	hs.status = ServerStatus(status)
	capHi, err := r.uint16()
	if err != nil {
		return nil, err
	}
	hs.capability = joinLow32(capLo, capHi)

	authDataLen, err := r.byte()
	if err != nil {
		return nil, err
	}
	if err := r.skip(10); err != nil { // reserved
		return nil, err
	}
	if hs.capability.Has(CapSecureConnection) {
		n := int(authDataLen) - 8
		if n < 13 {
			n = 13
		}
		part2, err := r.fixed(n)
		if err != nil {
			return nil, &ProtocolError{Op: "decode handshake auth data part 2", Err: err}
		}
		// part2 is NUL-terminated; trim the terminator if present.
		if len(part2) > 0 && part2[len(part2)-1] == 0 {
			part2 = part2[:len(part2)-1]
		}
		authData = append(authData, part2...)
	}
	hs.authPluginData = authData

	if hs.capability.Has(CapPluginAuth) {
		name, err := r.nullTerminatedString()
		if err != nil {
			// Some servers omit the trailing NUL on the last field; fall
			// back to whatever remains.
			name = r.restString()
		}
		hs.authPluginName = name
	}

	return hs, nil
}

func isMariaDBVersionString(v string) bool {
	for i := 0; i+7 <= len(v); i++ {
		if v[i:i+7] == "MariaDB" {
			return true
		}
	}
	return false
}

// decodeCommandMessage dispatches a command-phase payload when no row or
// column-metadata streaming is in progress (column count vs. OK vs. ERR
// vs. LOCAL INFILE request).
func decodeCommandMessage(payload []byte, cc *connContext) (ServerMessage, error) {
	if len(payload) == 0 {
		return nil, &ProtocolError{Op: "decode command message", Err: fmt.Errorf("empty payload")}
	}
	switch payload[0] {
	case 0xff:
		return decodeError(payload, cc.capability.Has(CapProtocol41))
	case 0x00:
		if len(payload) >= 7 {
			return decodeOK(payload, cc.capability.Has(CapProtocol41))
		}
		return decodeColumnCount(payload)
	case 0xfe:
		if cc.capability.Has(CapDeprecateEOF) {
			return decodeOK(payload, cc.capability.Has(CapProtocol41))
		}
		if len(payload) < 9 {
			return decodeEOF(payload, cc.capability.Has(CapProtocol41))
		}
		return decodeColumnCount(payload)
	case 0xfb:
		if len(payload) > 1 {
			return &localInfileRequestMessage{filename: string(payload[1:])}, nil
		}
		return decodeColumnCount(payload)
	default:
		return decodeColumnCount(payload)
	}
}

func decodeColumnCount(payload []byte) (ServerMessage, error) {
	r := newReader(payload)
	n, err := r.varint()
	if err != nil {
		return nil, &ProtocolError{Op: "decode column count", Err: err}
	}
	return &columnCountMessage{count: n}, nil
}

func decodeOK(payload []byte, protocol41 bool) (*okMessage, error) {
	r := newReader(payload)
	if _, err := r.byte(); err != nil {
		return nil, err
	}
	msg := &okMessage{}
	var err error
	msg.affectedRows, err = r.varint()
	if err != nil {
		return nil, &ProtocolError{Op: "decode OK affected_rows", Err: err}
	}
	msg.lastInsertID, err = r.varint()
	if err != nil {
		return nil, &ProtocolError{Op: "decode OK last_insert_id", Err: err}
	}
	hasSessionTrack := false
	if protocol41 {
		status, err := r.uint16()
		if err != nil {
			return nil, &ProtocolError{Op: "decode OK status", Err: err}
		}
		msg.status = ServerStatus(status)
		warn, err := r.uint16()
		if err != nil {
			return nil, &ProtocolError{Op: "decode OK warnings", Err: err}
		}
		msg.warnings = warn
		hasSessionTrack = msg.status.Has(StatusSessionStateChanged)
	} else {
		status, err := r.uint16()
		if err == nil {
			msg.status = ServerStatus(status)
		}
	}

	if r.len() == 0 {
		return msg, nil
	}
	if hasSessionTrack {
		info, err := r.lenencString()
		if err != nil {
			return nil, &ProtocolError{Op: "decode OK info", Err: err}
		}
		msg.info = info
		if r.len() > 0 {
			blob, err := r.lenencBytes()
			if err != nil {
				return nil, &ProtocolError{Op: "decode OK session state info", Err: err}
			}
			changes, err := decodeSessionStateChanges(blob)
			if err != nil {
				return nil, err
			}
			msg.sessionState = changes
		}
	} else {
		msg.info = r.restString()
	}
	return msg, nil
}

func decodeSessionStateChanges(buf []byte) ([]sessionStateChange, error) {
	r := newReader(buf)
	var out []sessionStateChange
	for r.len() > 0 {
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		data, err := r.lenencString()
		if err != nil {
			return nil, &ProtocolError{Op: "decode session state change", Err: err}
		}
		out = append(out, sessionStateChange{kind: kind, data: data})
	}
	return out, nil
}

func decodeEOF(payload []byte, protocol41 bool) (*eofMessage, error) {
	r := newReader(payload)
	if _, err := r.byte(); err != nil {
		return nil, err
	}
	msg := &eofMessage{}
	if !protocol41 {
		return msg, nil
	}
	warn, err := r.uint16()
	if err != nil {
		return nil, &ProtocolError{Op: "decode EOF warnings", Err: err}
	}
	msg.warnings = warn
	status, err := r.uint16()
	if err != nil {
		return nil, &ProtocolError{Op: "decode EOF status", Err: err}
	}
	msg.status = ServerStatus(status)
	return msg, nil
}

func decodeError(payload []byte, protocol41 bool) (ServerMessage, error) {
	r := newReader(payload)
	if _, err := r.byte(); err != nil {
		return nil, err
	}
	code, err := r.uint16()
	if err != nil {
		return nil, &ProtocolError{Op: "decode ERR code", Err: err}
	}
	msg := &errorMessage{code: code}
	if protocol41 {
		marker, err := r.byte()
		if err != nil {
			return nil, err
		}
		_ = marker // always '#'
		state, err := r.fixed(5)
		if err != nil {
			return nil, &ProtocolError{Op: "decode ERR sql state", Err: err}
		}
		msg.sqlState = string(state)
	}
	msg.message = r.restString()
	return msg, nil
}

func decodeColumnDefinition(payload []byte) (*columnDefinition, error) {
	r := newReader(payload)
	col := &columnDefinition{}
	var err error
	if col.catalog, err = r.lenencString(); err != nil {
		return nil, err
	}
	if col.schema, err = r.lenencString(); err != nil {
		return nil, err
	}
	if col.table, err = r.lenencString(); err != nil {
		return nil, err
	}
	if col.orgTable, err = r.lenencString(); err != nil {
		return nil, err
	}
	if col.name, err = r.lenencString(); err != nil {
		return nil, err
	}
	if col.orgName, err = r.lenencString(); err != nil {
		return nil, err
	}
	if _, err = r.varint(); err != nil { // length of fixed fields, always 0x0c
		return nil, err
	}
	if col.charset, err = r.uint16(); err != nil {
		return nil, err
	}
	if col.columnLength, err = r.uint32(); err != nil {
		return nil, err
	}
	ctype, err := r.byte()
	if err != nil {
		return nil, err
	}
	col.columnType = ctype
	if col.flags, err = r.uint16(); err != nil {
		return nil, err
	}
	dec, err := r.byte()
	if err != nil {
		return nil, err
	}
	col.decimals = dec
	return col, nil
}

// decodeTextRow decodes a COM_QUERY text-protocol row: each field is a
// length-encoded string, or the single byte 0xFB for NULL.
func decodeTextRow(payload []byte, numCols int) (*rowMessage, error) {
	r := newReader(payload)
	row := &rowMessage{fields: make([][]byte, numCols), null: make([]bool, numCols)}
	for i := 0; i < numCols; i++ {
		b, ok := r.peekByte()
		if ok && b == 0xfb {
			_, _ = r.byte()
			row.null[i] = true
			continue
		}
		v, err := r.lenencBytes()
		if err != nil {
			return nil, &ProtocolError{Op: "decode text row field", Err: err}
		}
		row.fields[i] = v
	}
	return row, nil
}

// decodeBinaryRow decodes a COM_STMT_EXECUTE/COM_STMT_FETCH binary
// protocol row: a packet header byte (0x00), a null-bitmap of
// ceil((numCols+2)/8) bytes (offset by 2 per the protocol), then each
// non-null field in its type's binary encoding.
func decodeBinaryRow(payload []byte, cols []*columnDefinition) (*rowMessage, error) {
	r := newReader(payload)
	if _, err := r.byte(); err != nil {
		return nil, err
	}
	nullBitmapLen := (len(cols) + 7 + 2) / 8
	nullBitmap, err := r.fixed(nullBitmapLen)
	if err != nil {
		return nil, &ProtocolError{Op: "decode binary row null bitmap", Err: err}
	}
	row := &rowMessage{fields: make([][]byte, len(cols)), null: make([]bool, len(cols))}
	for i, col := range cols {
		bit := i + 2
		if nullBitmap[bit/8]&(1<<(uint(bit)%8)) != 0 {
			row.null[i] = true
			continue
		}
		v, err := decodeBinaryFieldRaw(r, col.columnType)
		if err != nil {
			return nil, &ProtocolError{Op: fmt.Sprintf("decode binary field %d", i), Err: err}
		}
		row.fields[i] = v
	}
	return row, nil
}

// decodeBinaryFieldRaw extracts the raw bytes for one binary-protocol
// field without interpreting them as an application value; the codec
// registry (§4.7) does that, keyed on the caller's requested Go type.
func decodeBinaryFieldRaw(r *reader, colType byte) ([]byte, error) {
	switch colType {
	case colTypeLongLong, colTypeDouble:
		return r.fixed(8)
	case colTypeLong, colTypeInt24, colTypeFloat:
		return r.fixed(4)
	case colTypeShort, colTypeYear:
		return r.fixed(2)
	case colTypeTiny:
		return r.fixed(1)
	case colTypeDate, colTypeDateTime, colTypeTimestamp, colTypeTime:
		n, err := r.byte()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		return r.fixed(int(n))
	case colTypeDecimal, colTypeNewDecimal, colTypeVarChar, colTypeVarString,
		colTypeString, colTypeBLOB, colTypeTinyBLOB, colTypeMediumBLOB, colTypeLongBLOB,
		colTypeJSON, colTypeEnum, colTypeSet, colTypeBit, colTypeGeometry:
		return r.lenencBytes()
	default:
		return r.lenencBytes()
	}
}

package mysql

// Command byte values (COM_*), the first byte of most client messages.
const (
	comQuit            byte = 0x01
	comInitDB          byte = 0x02
	comQuery           byte = 0x03
	comPing            byte = 0x0e
	comChangeUser      byte = 0x11
	comStmtPrepare     byte = 0x16
	comStmtExecute     byte = 0x17
	comStmtClose       byte = 0x19
	comStmtReset       byte = 0x1a
	comStmtSendLongData byte = 0x18
	comSetOption       byte = 0x1b
	comStmtFetch       byte = 0x1c
	comResetConnection byte = 0x1f
)

const cursorTypeReadOnly byte = 0x01

// handshakeResponse encodes the §4.4 "Emit handshake-response" step.
// It is written without an envelope sequence reset, continuing the
// login burst's numbering.
type handshakeResponse struct {
	capability   Capability
	maxPacketSize uint32
	collation    byte
	user         string
	authResponse []byte
	database     string
	pluginName   string
	attributes   map[string]string
	zstdLevel    int
}

func (h *handshakeResponse) encode() []byte {
	w := newWriter()
	lo, hi := splitLow32(h.capability)
	w.writeUint16(lo)
	w.writeUint16(hi)
	w.writeUint32(h.maxPacketSize)
	w.writeByte(h.collation)
	w.writeBytes(make([]byte, 23))
	w.writeNullTerminatedString(h.user)

	if h.capability.Has(CapPluginAuthLenencClientData) {
		w.writeLenencBytes(h.authResponse)
	} else if h.capability.Has(CapSecureConnection) {
		w.writeByte(byte(len(h.authResponse)))
		w.writeBytes(h.authResponse)
	} else {
		w.writeBytes(h.authResponse)
		w.writeByte(0)
	}

	if h.capability.Has(CapConnectWithDB) {
		w.writeNullTerminatedString(h.database)
	}
	if h.capability.Has(CapPluginAuth) {
		w.writeNullTerminatedString(h.pluginName)
	}
	if h.capability.Has(CapConnectAttrs) {
		attrs := newWriter()
		for k, v := range h.attributes {
			attrs.writeLenencString(k)
			attrs.writeLenencString(v)
		}
		w.writeLenencBytes(attrs.bytes())
	}
	if h.capability.Has(CapZstdCompressionAlgorithm) {
		w.writeByte(byte(h.zstdLevel))
	}
	return w.bytes()
}

// sslRequest is the truncated HandshakeResponse41 sent to trigger the
// TLS handshake before the real handshake-response follows over the
// encrypted channel (§4.4).
type sslRequest struct {
	capability    Capability
	maxPacketSize uint32
	collation     byte
}

func (s *sslRequest) encode() []byte {
	w := newWriter()
	lo, hi := splitLow32(s.capability)
	w.writeUint16(lo)
	w.writeUint16(hi)
	w.writeUint32(s.maxPacketSize)
	w.writeByte(s.collation)
	w.writeBytes(make([]byte, 23))
	return w.bytes()
}

// authContinuation is the bare blob of auth data sent in reply to
// change-auth-plugin or auth-more-data (§4.4).
type authContinuation struct {
	data []byte
}

func (a *authContinuation) encode() []byte {
	return a.data
}

type quitMessage struct{}

func (*quitMessage) encode() []byte { return []byte{comQuit} }

type pingMessage struct{}

func (*pingMessage) encode() []byte { return []byte{comPing} }

type resetConnectionMessage struct{}

func (*resetConnectionMessage) encode() []byte { return []byte{comResetConnection} }

type textQueryMessage struct {
	sql string
}

func (q *textQueryMessage) encode() []byte {
	w := newWriter()
	w.writeByte(comQuery)
	w.writeString(q.sql)
	return w.bytes()
}

type prepareQueryMessage struct {
	sql string
}

func (p *prepareQueryMessage) encode() []byte {
	w := newWriter()
	w.writeByte(comStmtPrepare)
	w.writeString(p.sql)
	return w.bytes()
}

// preparedExecuteMessage encodes COM_STMT_EXECUTE per §4.3: header byte,
// statement id, cursor flag, iteration count (always 1), null-bitmap,
// new-parameters-bound flag, per-parameter type codes, then
// per-parameter binary payloads.
//
// The parameters arrive already encoded (PreparedStatement.bindParams
// reduces each argument to a boundParam before this message is built),
// so encode itself cannot fail; nothing here retains state across calls.
type preparedExecuteMessage struct {
	statementID uint32
	cursorType  byte
	params      []boundParam
}

// boundParam is one bound value already reduced to its wire type code
// and binary payload by the codec registry (§4.7).
type boundParam struct {
	isNull  bool
	typeCode byte
	unsigned bool
	payload  []byte
}

func (e *preparedExecuteMessage) encode() []byte {
	w := newWriter()
	w.writeByte(comStmtExecute)
	w.writeUint32(e.statementID)
	w.writeByte(e.cursorType)
	w.writeUint32(1)
	if len(e.params) == 0 {
		return w.bytes()
	}
	nullBitmap := make([]byte, (len(e.params)+7)/8)
	for i, p := range e.params {
		if p.isNull {
			nullBitmap[i/8] |= 1 << (uint(i) % 8)
		}
	}
	w.writeBytes(nullBitmap)
	w.writeByte(1) // new-parameters-bound always set, per §4.6 simplification
	for _, p := range e.params {
		flag := byte(0)
		if p.unsigned {
			flag = 0x80
		}
		w.writeByte(p.typeCode)
		w.writeByte(flag)
	}
	for _, p := range e.params {
		if !p.isNull {
			w.writeBytes(p.payload)
		}
	}
	return w.bytes()
}

type preparedCloseMessage struct {
	statementID uint32
}

func (c *preparedCloseMessage) encode() []byte {
	w := newWriter()
	w.writeByte(comStmtClose)
	w.writeUint32(c.statementID)
	return w.bytes()
}

type preparedResetMessage struct {
	statementID uint32
}

func (r *preparedResetMessage) encode() []byte {
	w := newWriter()
	w.writeByte(comStmtReset)
	w.writeUint32(r.statementID)
	return w.bytes()
}

type fetchMessage struct {
	statementID uint32
	rowCount    uint32
}

func (f *fetchMessage) encode() []byte {
	w := newWriter()
	w.writeByte(comStmtFetch)
	w.writeUint32(f.statementID)
	w.writeUint32(f.rowCount)
	return w.bytes()
}

// localInfileChunk is one chunk of a LOCAL INFILE upload; the stream
// always ends with a zero-length chunk (§4.3).
type localInfileChunk struct {
	data []byte
}

func (c *localInfileChunk) encode() []byte {
	return c.data
}

type changeUserMessage struct {
	user         string
	authResponse []byte
	database     string
	collation    byte
	pluginName   string
	attributes   map[string]string
	capability   Capability
}

func (c *changeUserMessage) encode() []byte {
	w := newWriter()
	w.writeByte(comChangeUser)
	w.writeNullTerminatedString(c.user)
	w.writeByte(byte(len(c.authResponse)))
	w.writeBytes(c.authResponse)
	w.writeNullTerminatedString(c.database)
	w.writeUint16(uint16(c.collation))
	if c.capability.Has(CapPluginAuth) {
		w.writeNullTerminatedString(c.pluginName)
	}
	if c.capability.Has(CapConnectAttrs) {
		attrs := newWriter()
		for k, v := range c.attributes {
			attrs.writeLenencString(k)
			attrs.writeLenencString(v)
		}
		w.writeLenencBytes(attrs.bytes())
	}
	return w.bytes()
}

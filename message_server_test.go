package mysql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_decodeCommandMessage_OK(t *testing.T) {
	msg, err := decodeCommandMessage(okPayload(StatusAutocommit), cc41())
	require.NoError(t, err)
	ok, isOK := msg.(*okMessage)
	require.True(t, isOK)
	require.Equal(t, StatusAutocommit, ok.status)
}

func Test_decodeCommandMessage_columnCountWhenShortZeroByte(t *testing.T) {
	// a leading 0x00 with fewer than 7 bytes is the var-int column count
	// 0, not an OK (§4.2 dispatch table).
	msg, err := decodeCommandMessage([]byte{0x00}, cc41())
	require.NoError(t, err)
	cc, ok := msg.(*columnCountMessage)
	require.True(t, ok)
	require.EqualValues(t, 0, cc.count)
}

func Test_decodeCommandMessage_legacyEOF(t *testing.T) {
	// 0xfe with length < 9 and deprecate-EOF not negotiated is the
	// legacy EOF packet.
	cc := &connContext{capability: CapProtocol41}
	w := newWriter()
	w.writeByte(0xfe)
	w.writeUint16(0) // warnings
	w.writeUint16(uint16(StatusInTrans))
	msg, err := decodeCommandMessage(w.bytes(), cc)
	require.NoError(t, err)
	eof, ok := msg.(*eofMessage)
	require.True(t, ok)
	require.Equal(t, StatusInTrans, eof.status)
}

func Test_decodeCommandMessage_deprecateEOFIsOK(t *testing.T) {
	// under CapDeprecateEOF, the terminal-result marker is 0xfe laid out
	// exactly like an OK body, not the legacy 5-byte EOF (§4.2).
	cc := &connContext{capability: CapProtocol41 | CapDeprecateEOF}
	w := newWriter()
	w.writeByte(0xfe)
	w.writeVarint(0)
	w.writeVarint(0)
	w.writeUint16(uint16(StatusAutocommit))
	w.writeUint16(0)

	msg, err := decodeCommandMessage(w.bytes(), cc)
	require.NoError(t, err)
	ok, isOK := msg.(*okMessage)
	require.True(t, isOK)
	require.Equal(t, StatusAutocommit, ok.status)
}

func Test_decodeCommandMessage_columnCountLongForm(t *testing.T) {
	w := newWriter()
	w.writeVarint(3)
	msg, err := decodeCommandMessage(w.bytes(), cc41())
	require.NoError(t, err)
	cc, ok := msg.(*columnCountMessage)
	require.True(t, ok)
	require.EqualValues(t, 3, cc.count)
}

func Test_decodeCommandMessage_localInfileRequest(t *testing.T) {
	payload := append([]byte{0xfb}, []byte("/data/imports/file.csv")...)
	msg, err := decodeCommandMessage(payload, cc41())
	require.NoError(t, err)
	req, ok := msg.(*localInfileRequestMessage)
	require.True(t, ok)
	require.Equal(t, "/data/imports/file.csv", req.filename)
}

func Test_decodeCommandMessage_error(t *testing.T) {
	w := newWriter()
	w.writeByte(0xff)
	w.writeUint16(1045)
	w.writeByte('#')
	w.writeBytes([]byte("28000"))
	w.writeString("Access denied")
	msg, err := decodeCommandMessage(w.bytes(), cc41())
	require.NoError(t, err)
	errMsg, ok := msg.(*errorMessage)
	require.True(t, ok)
	require.EqualValues(t, 1045, errMsg.code)
	require.Equal(t, "28000", errMsg.sqlState)
	require.Equal(t, "Access denied", errMsg.message)

	se := errMsg.toServerError()
	require.EqualValues(t, 1045, se.Code)
	require.Equal(t, "28000", se.SQLState)
}

func Test_decodeCommandMessage_emptyPayloadIsProtocolError(t *testing.T) {
	_, err := decodeCommandMessage(nil, cc41())
	require.Error(t, err)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func Test_decodeOK_withSessionStateChange(t *testing.T) {
	inner := newWriter()
	inner.writeByte(sessionTrackSchema)
	inner.writeLenencString("newdb")

	w := newWriter()
	w.writeByte(0x00)
	w.writeVarint(1)  // affected rows
	w.writeVarint(42) // last insert id
	w.writeUint16(uint16(StatusSessionStateChanged))
	w.writeUint16(0)
	w.writeLenencString("")
	w.writeLenencBytes(inner.bytes())

	msg, err := decodeOK(w.bytes(), true)
	require.NoError(t, err)
	require.EqualValues(t, 1, msg.affectedRows)
	require.EqualValues(t, 42, msg.lastInsertID)
	require.Len(t, msg.sessionState, 1)
	require.Equal(t, sessionTrackSchema, msg.sessionState[0].kind)
	require.Equal(t, "newdb", msg.sessionState[0].data)
}

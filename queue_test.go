package mysql

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// okPayload builds a minimal protocol-41 OK body: header byte, two
// zero varints (affected rows, last insert id), status, warnings.
func okPayload(status ServerStatus) []byte {
	w := newWriter()
	w.writeByte(0x00)
	w.writeVarint(0)
	w.writeVarint(0)
	w.writeUint16(uint16(status))
	w.writeUint16(0)
	return w.bytes()
}

// halfDuplexClientSide is the client-facing end of a fake wire: reads
// come from an io.Pipe fed by the test's fake "server" goroutine; writes
// (the client's outgoing requests) are discarded immediately rather than
// rendezvoused, since these tests only assert on response ordering, not
// on what was sent.
type halfDuplexClientSide struct {
	r *io.PipeReader
}

func (h halfDuplexClientSide) Read(p []byte) (int, error)  { return h.r.Read(p) }
func (h halfDuplexClientSide) Write(p []byte) (int, error) { return len(p), nil }

// newFakeWire returns the client-side io.ReadWriter for a packetConn
// under test, plus a packetConn the test uses to push server responses
// into it. Pushing a response blocks (io.Pipe semantics) until the
// client side actually reads it, giving deterministic ordering without
// a real socket.
func newFakeWire() (clientRW io.ReadWriter, serverPush *packetConn) {
	r, w := io.Pipe()
	return halfDuplexClientSide{r: r}, newPacketConn(struct {
		io.Reader
		io.Writer
	}{Reader: new(bytes.Buffer), Writer: w})
}

func writeServerOK(t *testing.T, serverPush *packetConn, status ServerStatus) {
	t.Helper()
	require.NoError(t, serverPush.writePacket(okPayload(status)))
}

// primeServerReply sets serverPush's envelope sequence counter to what a
// real server's next reply within the current command would carry: each
// independent exchange resets its shared sequence counter to 0 (§3/§4.1),
// so a one-envelope client command (consuming seq 0) is always answered
// starting at seq 1 regardless of how many earlier exchanges ran on this
// connection. serverPush itself never resets automatically since it has
// no notion of exchange boundaries, so tests simulating more than one
// exchange (or more than one server-to-client envelope within one
// exchange) must set this explicitly before each push.
func primeServerReply(serverPush *packetConn, seq uint8) {
	serverPush.seq = seq
}

func cc41() *connContext {
	return &connContext{capability: CapProtocol41}
}

func Test_queue_ordersExchangesBySubmitTime(t *testing.T) {
	clientRW, serverPush := newFakeWire()
	q := newQueue(newPacketConn(clientRW))
	defer q.close()

	var order []int
	done := make(chan struct{}, 3)

	submitSimple := func(n int) {
		ex := newExchange(context.Background(),
			func(pc *packetConn) error { return pc.writePacket([]byte{0x01}) },
			func(p []byte) (ServerMessage, error) { return decodeCommandMessage(p, cc41()) },
			isTerminalSimpleMessage,
		)
		q.submitExchange(ex)
		go func() {
			for range ex.messages {
			}
			order = append(order, n)
			done <- struct{}{}
		}()
	}

	submitSimple(1)
	submitSimple(2)
	submitSimple(3)

	for i := 0; i < 3; i++ {
		primeServerReply(serverPush, 1)
		writeServerOK(t, serverPush, StatusAutocommit)
		<-done
	}

	require.Equal(t, []int{1, 2, 3}, order)
}

func Test_queue_cancellationDrainsBeforeNextExchange(t *testing.T) {
	clientRW, serverPush := newFakeWire()
	q := newQueue(newPacketConn(clientRW))
	defer q.close()

	ctx, cancel := context.WithCancel(context.Background())
	ex1 := newExchange(ctx,
		func(pc *packetConn) error { return pc.writePacket([]byte{0x01}) },
		func(p []byte) (ServerMessage, error) { return decodeCommandMessage(p, cc41()) },
		isTerminalSimpleMessage,
	)
	q.submitExchange(ex1)
	cancel()

	second := make(chan struct{})
	ex2 := newExchange(context.Background(),
		func(pc *packetConn) error { return pc.writePacket([]byte{0x01}) },
		func(p []byte) (ServerMessage, error) { return decodeCommandMessage(p, cc41()) },
		isTerminalSimpleMessage,
	)
	q.submitExchange(ex2)
	go func() {
		for range ex2.messages {
		}
		close(second)
	}()

	// ex1's terminal frame arrives; its messages channel is never read
	// (the caller cancelled), but the drain loop must still see the
	// terminal marker and move on to ex2 without stalling. Both ex1 and
	// ex2 reset the sequence counter independently, so both replies are
	// primed to seq 1.
	primeServerReply(serverPush, 1)
	writeServerOK(t, serverPush, StatusAutocommit)
	primeServerReply(serverPush, 1)
	writeServerOK(t, serverPush, StatusAutocommit)

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("ex2 never completed after ex1's cancellation drain")
	}
}

func Test_queue_disposedFailsImmediately(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	q := newQueue(newPacketConn(client))
	require.NoError(t, q.close())

	ex := newExchange(context.Background(),
		func(pc *packetConn) error { return nil },
		func(p []byte) (ServerMessage, error) { return nil, nil },
		func(ServerMessage) bool { return true },
	)
	q.submitExchange(ex)
	err := ex.wait()
	require.Error(t, err)
	var closedErr *ConnectionClosedError
	require.ErrorAs(t, err, &closedErr)
	require.True(t, closedErr.Expected)
}

func Test_queue_runExchange_surfacesLocalInfileRejection(t *testing.T) {
	clientRW, serverPush := newFakeWire()
	q := newQueue(newPacketConn(clientRW))
	defer q.close()

	denied := &ServerError{Code: 1045, SQLState: "42000", Message: "permission denied"}
	ex := newExchange(context.Background(),
		func(pc *packetConn) error { return pc.writePacket([]byte{0x03}) },
		func(p []byte) (ServerMessage, error) { return decodeCommandMessage(p, cc41()) },
		isTerminalSimpleMessage,
	)
	ex.onLocalInfile = func(filename string) ([]byte, error) { return nil, denied }
	q.submitExchange(ex)

	// The exchange's own command write consumes seq 0, so the LOCAL
	// INFILE request continues the same counter at 1; the drain loop
	// then answers it with a zero-length terminator of its own (seq 2
	// on the client's write side) before the terminal OK at seq 3.
	primeServerReply(serverPush, 1)
	req := append([]byte{0xfb}, []byte("/etc/passwd")...)
	require.NoError(t, serverPush.writePacket(req))
	// The drain loop reads again only after it has resolved
	// onLocalInfile and written the (discarded) empty data stream, so
	// this second write is read in order after that — exactly the
	// terminal OK the server sends for a rejected (empty) LOCAL INFILE
	// upload.
	primeServerReply(serverPush, 3)
	writeServerOK(t, serverPush, StatusAutocommit)

	for range ex.messages {
		t.Fatal("a rejected LOCAL INFILE request must not push the server's terminal OK to callers")
	}
	err := ex.wait()
	require.ErrorIs(t, err, denied)
}

func Test_isDescendant(t *testing.T) {
	require.True(t, isDescendant("/data/imports", "/data/imports/file.csv"))
	require.True(t, isDescendant("/data/imports", "/data/imports/sub/file.csv"))
	require.False(t, isDescendant("/data/imports", "/etc/passwd"))
	require.False(t, isDescendant("/data/imports", "/data/imports-evil/file.csv"))
	require.False(t, isDescendant("/data/imports", "/data/imports/../../etc/passwd"))
}

func Test_envelopeRoundTripThroughBytesBuffer(t *testing.T) {
	// sanity check that okPayload/decodeCommandMessage agree on a
	// directly-assembled payload, independent of the queue machinery
	// above, to isolate failures to framing vs. decode.
	buf := &bytes.Buffer{}
	pc := newPacketConn(buf)
	require.NoError(t, pc.writePacket(okPayload(StatusInTrans)))

	rpc := newPacketConn(buf)
	payload, err := rpc.readPacket()
	require.NoError(t, err)
	msg, err := decodeCommandMessage(payload, cc41())
	require.NoError(t, err)
	ok, isOK := msg.(*okMessage)
	require.True(t, isOK)
	require.Equal(t, StatusInTrans, ok.status)
}

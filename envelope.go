package mysql

import (
	"bufio"
	"fmt"
	"io"
)

// maxPayload is the largest payload a single envelope may carry (2^24-1
// bytes); a logical payload exactly this length or longer is split across
// multiple envelopes (§3 Envelope, §4.1).
const maxPayload = 1<<24 - 1

// packetConn frames a byte stream into MySQL envelopes: 3-byte
// little-endian length, 1-byte sequence number, payload. It is the leaf
// dependency every message encoder/decoder is built on (dependency order,
// §2). It does not interpret payload contents.
//
// A packetConn is single-reader/single-writer: at most one goroutine may
// call readPacket and at most one (possibly the same) may call
// writePacket at a time, matching the §3 invariant that at most one
// client message is being encoded and one server message decoded
// concurrently per connection. The exchange core (queue.go) is
// responsible for upholding that from the outside.
type packetConn struct {
	rw  io.ReadWriter
	br  *bufio.Reader
	bw  *bufio.Writer
	seq uint8
}

func newPacketConn(rw io.ReadWriter) *packetConn {
	return &packetConn{
		rw: rw,
		br: bufio.NewReaderSize(rw, 16*1024),
		bw: bufio.NewWriterSize(rw, 16*1024),
	}
}

// upgrade swaps the underlying transport (TLS handshake completion,
// compression negotiation) and resets the envelope sequence counter, per
// the §3 Envelope sequence-reset rule.
func (p *packetConn) upgrade(rw io.ReadWriter) {
	p.rw = rw
	p.br = bufio.NewReaderSize(rw, 16*1024)
	p.bw = bufio.NewWriterSize(rw, 16*1024)
	p.resetSequence()
}

// resetSequence is invoked on post-login, compression upgrade, and the
// start of an independent exchange.
func (p *packetConn) resetSequence() {
	p.seq = 0
}

// readHeader reads one envelope header without consuming the payload,
// returning the declared length and sequence number.
func (p *packetConn) readHeader() (length int, seq uint8, err error) {
	var hdr [4]byte
	if _, err = io.ReadFull(p.br, hdr[:]); err != nil {
		return 0, 0, &ProtocolError{Op: "read envelope header", Err: err}
	}
	length = int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16
	seq = hdr[3]
	return length, seq, nil
}

// readPacket assembles one logical payload, transparently following the
// continuation rule for payloads that are an exact multiple of
// maxPayload (§3 Envelope, including the zero-length terminator case).
func (p *packetConn) readPacket() ([]byte, error) {
	var assembled []byte
	first := true
	for {
		length, seq, err := p.readHeader()
		if err != nil {
			return nil, err
		}
		if err := p.checkSequence(seq); err != nil {
			return nil, err
		}
		chunk := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(p.br, chunk); err != nil {
				return nil, &ProtocolError{Op: "read envelope payload", Err: err}
			}
		}
		if first && length < maxPayload {
			return chunk, nil
		}
		assembled = append(assembled, chunk...)
		first = false
		if length < maxPayload {
			return assembled, nil
		}
		// length == maxPayload: keep accumulating, including across a
		// following zero-length terminator envelope.
	}
}

func (p *packetConn) checkSequence(got uint8) error {
	want := p.seq
	p.seq++
	if got != want {
		return &ProtocolError{Op: "envelope sequence", Err: fmt.Errorf("expected seq %d, got %d", want, got)}
	}
	return nil
}

// writePacket splits payload across as many envelopes as necessary,
// advancing the sequence counter once per envelope and appending a
// zero-length terminator when len(payload) is an exact multiple of
// maxPayload (§3, §8 outbound framing property).
func (p *packetConn) writePacket(payload []byte) error {
	offset := 0
	for {
		end := offset + maxPayload
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[offset:end]
		if err := p.writeEnvelope(chunk); err != nil {
			return err
		}
		offset = end
		if len(chunk) < maxPayload {
			break
		}
		if offset == len(payload) {
			// exact multiple: emit the zero-length terminator envelope.
			if err := p.writeEnvelope(nil); err != nil {
				return err
			}
			break
		}
	}
	return p.bw.Flush()
}

func (p *packetConn) writeEnvelope(chunk []byte) error {
	var hdr [4]byte
	n := len(chunk)
	hdr[0] = byte(n)
	hdr[1] = byte(n >> 8)
	hdr[2] = byte(n >> 16)
	hdr[3] = p.seq
	p.seq++
	if _, err := p.bw.Write(hdr[:]); err != nil {
		return &ProtocolError{Op: "write envelope header", Err: err}
	}
	if n > 0 {
		if _, err := p.bw.Write(chunk); err != nil {
			return &ProtocolError{Op: "write envelope payload", Err: err}
		}
	}
	return nil
}

// envelopeCount returns the number of envelopes writePacket would emit
// for a payload of length l; used by the §8 outbound-framing property
// test.
func envelopeCount(l int) int {
	var ceil int
	if l > 0 {
		ceil = (l + maxPayload - 1) / maxPayload
	}
	extra := 0
	if l%maxPayload == 0 {
		extra = 1
	}
	return ceil + extra
}

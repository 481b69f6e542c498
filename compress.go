package mysql

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// compressedConn wraps the raw transport in the compression envelope
// (§4.1): a 7-byte header (3-byte compressed length, 1-byte sequence,
// 3-byte uncompressed length) in front of each compressed (or, below
// the worthwhile-compressing threshold, passed-through) frame. It sits
// below packetConn the way CapCompress/CapZstdCompressionAlgorithm
// wrap the plain TCP stream once negotiated during the handshake.
//
// Grounded on the teacher's bufio-based pktReadWriter framing style;
// no teacher file implements the compression envelope itself, so the
// frame layout follows the documented MySQL client/server compression
// protocol and is wired to the standard library's compress/zlib and to
// github.com/klauspost/compress's zstd implementation.
type compressedConn struct {
	rw        io.ReadWriter
	algorithm CompressionAlgorithm
	level     int

	readBuf  bytes.Buffer
	writeSeq uint8

	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder
}

const compressMinLength = 50

func newCompressedConn(rw io.ReadWriter, algo CompressionAlgorithm, zstdLevel int) (*compressedConn, error) {
	c := &compressedConn{rw: rw, algorithm: algo, level: zstdLevel}
	if algo == compressionZstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(zstdLevel)))
		if err != nil {
			return nil, fmt.Errorf("mysql: initializing zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("mysql: initializing zstd decoder: %w", err)
		}
		c.zstdEnc, c.zstdDec = enc, dec
	}
	return c, nil
}

func (c *compressedConn) Read(p []byte) (int, error) {
	for c.readBuf.Len() == 0 {
		if err := c.readFrame(); err != nil {
			return 0, err
		}
	}
	return c.readBuf.Read(p)
}

func (c *compressedConn) readFrame() error {
	var hdr [7]byte
	if _, err := io.ReadFull(c.rw, hdr[:]); err != nil {
		return err
	}
	compLen := int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16
	uncompLen := int(hdr[4]) | int(hdr[5])<<8 | int(hdr[6])<<16

	payload := make([]byte, compLen)
	if _, err := io.ReadFull(c.rw, payload); err != nil {
		return err
	}
	if uncompLen == 0 {
		c.readBuf.Write(payload)
		return nil
	}
	plain, err := c.decompress(payload, uncompLen)
	if err != nil {
		return &ProtocolError{Op: "decompress frame", Err: err}
	}
	c.readBuf.Write(plain)
	return nil
}

func (c *compressedConn) decompress(data []byte, uncompLen int) ([]byte, error) {
	switch c.algorithm {
	case compressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		out := make([]byte, uncompLen)
		if _, err := io.ReadFull(zr, out); err != nil {
			return nil, err
		}
		return out, nil
	case compressionZstd:
		return c.zstdDec.DecodeAll(data, make([]byte, 0, uncompLen))
	default:
		return data, nil
	}
}

func (c *compressedConn) Write(p []byte) (int, error) {
	if len(p) < compressMinLength {
		if err := c.writeFrame(p, 0); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	compressed, err := c.compress(p)
	if err != nil {
		return 0, &ProtocolError{Op: "compress frame", Err: err}
	}
	if err := c.writeFrame(compressed, len(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *compressedConn) compress(p []byte) ([]byte, error) {
	switch c.algorithm {
	case compressionZlib:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(p); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case compressionZstd:
		return c.zstdEnc.EncodeAll(p, nil), nil
	default:
		return p, nil
	}
}

func (c *compressedConn) writeFrame(payload []byte, uncompLen int) error {
	var hdr [7]byte
	n := len(payload)
	hdr[0], hdr[1], hdr[2] = byte(n), byte(n>>8), byte(n>>16)
	hdr[3] = c.writeSeq
	c.writeSeq++
	hdr[4], hdr[5], hdr[6] = byte(uncompLen), byte(uncompLen>>8), byte(uncompLen>>16)
	if _, err := c.rw.Write(hdr[:]); err != nil {
		return err
	}
	if n > 0 {
		if _, err := c.rw.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

package codec

// blobCodec handles []byte values and the BLOB/BIT/GEOMETRY/JSON column
// family, plus acts as the generic Blob/Clob sum-type fallback of
// §4.7's lookup rule 3 when nothing more specific claims a column.
type blobCodec struct{}

func (blobCodec) CanEncode(v interface{}) bool {
	_, ok := v.([]byte)
	return ok
}

func (blobCodec) Encode(v interface{}, _ Options) (byte, bool, []byte, error) {
	b := v.([]byte)
	return colTypeBLOB, false, lenencBytes(b), nil
}

func (blobCodec) CanDecode(colType byte) bool {
	switch colType {
	case colTypeBLOB, colTypeTinyBLOB, colTypeMediumBLOB, colTypeLongBLOB,
		colTypeBit, colTypeGeometry, colTypeJSON:
		return true
	default:
		return false
	}
}

func (blobCodec) Decode(raw []byte, _ byte, _ bool, _ bool, _ Options) (interface{}, error) {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// LOBChunk is one piece of a large field value streamed across
// multiple envelopes (§3 "Row messages carry FieldValues ... a large
// multi-chunk sequence when the field exceeds a single envelope";
// §4.7 "Large field values ... represented as a chunked stream").
// Consumers must drain the channel to avoid leaking the producer
// goroutine.
type LOBChunk struct {
	Data []byte
	Err  error
}

// LOBStream lazily assembles LOBChunks already pulled off the wire by
// the statement flow into one contiguous value, or exposes them for
// streaming consumption without materializing the whole value.
type LOBStream struct {
	chunks <-chan LOBChunk
}

func NewLOBStream(chunks <-chan LOBChunk) *LOBStream {
	return &LOBStream{chunks: chunks}
}

// Bytes drains the stream into one slice; callers that want to avoid
// materializing very large LOBs should range over Chunks() instead.
func (s *LOBStream) Bytes() ([]byte, error) {
	var out []byte
	for c := range s.chunks {
		if c.Err != nil {
			return nil, c.Err
		}
		out = append(out, c.Data...)
	}
	return out, nil
}

func (s *LOBStream) Chunks() <-chan LOBChunk {
	return s.chunks
}

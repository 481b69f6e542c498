package codec

// stringCodec handles Go string values against every MySQL character
// column type. Encoding always uses the length-prefixed binary-protocol
// string form; decoding returns the raw bytes as a string verbatim,
// since charset re-interpretation is left to the application (§1
// Non-goals: no SQL/charset semantics beyond placeholder discovery).
type stringCodec struct{}

func (stringCodec) CanEncode(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func (stringCodec) Encode(v interface{}, _ Options) (byte, bool, []byte, error) {
	s := v.(string)
	return colTypeVarString, false, lenencBytes([]byte(s)), nil
}

func (stringCodec) CanDecode(colType byte) bool {
	switch colType {
	case colTypeVarChar, colTypeVarString, colTypeString:
		return true
	default:
		return false
	}
}

func (stringCodec) Decode(raw []byte, _ byte, _ bool, _ bool, _ Options) (interface{}, error) {
	return string(raw), nil
}

// lenencBytes prefixes b with its MySQL length-encoded integer length,
// duplicated from the root package's writer.writeLenencBytes since this
// package has no access to it.
func lenencBytes(b []byte) []byte {
	n := uint64(len(b))
	var prefix []byte
	switch {
	case n < 0xfb:
		prefix = []byte{byte(n)}
	case n <= 0xffff:
		prefix = []byte{0xfc, byte(n), byte(n >> 8)}
	case n <= 0xffffff:
		prefix = []byte{0xfd, byte(n), byte(n >> 8), byte(n >> 16)}
	default:
		prefix = []byte{0xfe, byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24), byte(n >> 32), byte(n >> 40), byte(n >> 48), byte(n >> 56)}
	}
	return append(prefix, b...)
}

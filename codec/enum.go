package codec

// enumCodec is the generic ENUM/SET fallback of §4.7's lookup rule 3:
// rather than modeling every application enum type individually, it
// decodes to the member name(s) as plain strings and leaves any
// application-level enum mapping to the caller.
type enumCodec struct{}

func (enumCodec) CanEncode(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func (enumCodec) Encode(v interface{}, opts Options) (byte, bool, []byte, error) {
	return colTypeString, false, lenencBytes([]byte(v.(string))), nil
}

func (enumCodec) CanDecode(colType byte) bool {
	return colType == colTypeEnum || colType == colTypeSet
}

func (enumCodec) Decode(raw []byte, _ byte, _ bool, _ bool, _ Options) (interface{}, error) {
	return string(raw), nil
}

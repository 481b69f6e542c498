package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// numericCodec handles every fixed-point and floating-point MySQL
// column type plus Go bool, widening/narrowing freely between them per
// §4.7 ("Numeric decoders accept any numeric MySQL type and
// widen/narrow as requested"). Grounded on the teacher's extractIntN
// family in packet_util.go, generalized from a fixed small type list to
// the full numeric column-type set.
type numericCodec struct{}

func (numericCodec) CanEncode(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, bool:
		return true
	default:
		return false
	}
}

func (numericCodec) Encode(v interface{}, _ Options) (byte, bool, []byte, error) {
	switch n := v.(type) {
	case bool:
		b := byte(0)
		if n {
			b = 1
		}
		return colTypeTiny, false, []byte{b}, nil
	case int:
		return encodeInt64(int64(n))
	case int8:
		return colTypeTiny, false, []byte{byte(n)}, nil
	case int16:
		t, unsigned, b := encodeFixed16(uint16(n))
		return t, unsigned, b, nil
	case int32:
		t, unsigned, b := encodeFixed32(uint32(n))
		return t, unsigned, b, nil
	case int64:
		return encodeInt64(n)
	case uint:
		return encodeUint64(uint64(n))
	case uint8:
		return colTypeTiny, true, []byte{n}, nil
	case uint16:
		t, unsigned, b := encodeFixed16u(n)
		return t, unsigned, b, nil
	case uint32:
		t, unsigned, b := encodeFixed32u(n)
		return t, unsigned, b, nil
	case uint64:
		return encodeUint64(n)
	case float32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(n))
		return colTypeFloat, false, b[:], nil
	case float64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(n))
		return colTypeDouble, false, b[:], nil
	default:
		return 0, false, nil, fmt.Errorf("codec: not a numeric value: %T", v)
	}
}

func encodeInt64(n int64) (byte, bool, []byte, error) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	return colTypeLongLong, false, b[:], nil
}

func encodeUint64(n uint64) (byte, bool, []byte, error) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	return colTypeLongLong, true, b[:], nil
}

func encodeFixed16(v uint16) (byte, bool, []byte) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return colTypeShort, false, b[:]
}

func encodeFixed16u(v uint16) (byte, bool, []byte) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return colTypeShort, true, b[:]
}

func encodeFixed32(v uint32) (byte, bool, []byte) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return colTypeLong, false, b[:]
}

func encodeFixed32u(v uint32) (byte, bool, []byte) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return colTypeLong, true, b[:]
}

func (numericCodec) CanDecode(colType byte) bool {
	switch colType {
	case colTypeTiny, colTypeShort, colTypeLong, colTypeInt24, colTypeLongLong,
		colTypeFloat, colTypeDouble, colTypeDecimal, colTypeNewDecimal, colTypeYear:
		return true
	default:
		return false
	}
}

// Decode returns an int64 for signed columns, a uint64 for unsigned
// columns, or a float64 for FLOAT/DOUBLE/DECIMAL, in both the binary
// and text protocol encodings.
func (numericCodec) Decode(raw []byte, colType byte, unsigned bool, binaryProto bool, _ Options) (interface{}, error) {
	if !binaryProto {
		return decodeNumericText(raw, colType, unsigned)
	}
	switch colType {
	case colTypeTiny:
		if len(raw) < 1 {
			return nil, errShortField
		}
		if unsigned {
			return uint64(raw[0]), nil
		}
		return int64(int8(raw[0])), nil
	case colTypeShort, colTypeYear:
		if len(raw) < 2 {
			return nil, errShortField
		}
		v := binary.LittleEndian.Uint16(raw)
		if unsigned {
			return uint64(v), nil
		}
		return int64(int16(v)), nil
	case colTypeLong, colTypeInt24:
		if len(raw) < 4 {
			return nil, errShortField
		}
		v := binary.LittleEndian.Uint32(raw)
		if unsigned {
			return uint64(v), nil
		}
		return int64(int32(v)), nil
	case colTypeLongLong:
		if len(raw) < 8 {
			return nil, errShortField
		}
		v := binary.LittleEndian.Uint64(raw)
		if unsigned {
			return v, nil
		}
		return int64(v), nil
	case colTypeFloat:
		if len(raw) < 4 {
			return nil, errShortField
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw))), nil
	case colTypeDouble:
		if len(raw) < 8 {
			return nil, errShortField
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
	case colTypeDecimal, colTypeNewDecimal:
		return strconv.ParseFloat(string(raw), 64)
	default:
		return nil, fmt.Errorf("codec: numericCodec cannot decode column type %#x", colType)
	}
}

func decodeNumericText(raw []byte, colType byte, unsigned bool) (interface{}, error) {
	s := string(raw)
	switch colType {
	case colTypeFloat, colTypeDouble, colTypeDecimal, colTypeNewDecimal:
		return strconv.ParseFloat(s, 64)
	default:
		if unsigned {
			return strconv.ParseUint(s, 10, 64)
		}
		return strconv.ParseInt(s, 10, 64)
	}
}

var errShortField = fmt.Errorf("codec: field shorter than its fixed wire width")

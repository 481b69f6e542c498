// Package codec implements the value codec registry of §4.7: encoding
// application values to the wire (binary protocol parameter payloads)
// and decoding wire field bytes (text or binary protocol) back to
// application values. It deliberately does not import the root mysql
// package — callers pass the handful of connection-scoped policies
// (zero-date handling, time zone) explicitly, so this package stays a
// standalone, connection-independent library the way the teacher kept
// packet_util.go's marshal/extract helpers free of *Conn state.
package codec

import (
	"fmt"
	"reflect"
	"time"
)

// ZeroDatePolicy mirrors the root package's policy enum without
// depending on it (§4.7).
type ZeroDatePolicy int

const (
	ZeroDateUseNull ZeroDatePolicy = iota
	ZeroDateUseRound
	ZeroDateException
)

// Options carries the connection-scoped decode parameters a codec may
// need: the zero-date policy and the time zone values should be
// interpreted in.
type Options struct {
	ZeroDate ZeroDatePolicy
	Location *time.Location
}

// Codec is the pair (encode, decode) of §3/§4.7, keyed by application
// type and MySQL column type. CanEncode/CanDecode let the registry
// build its fast-path table and ordered fallback list without every
// caller needing to know which codec handles what.
type Codec interface {
	CanEncode(v interface{}) bool
	Encode(v interface{}, opts Options) (typeCode byte, unsigned bool, payload []byte, err error)
	CanDecode(colType byte) bool
	Decode(raw []byte, colType byte, unsigned bool, binary bool, opts Options) (interface{}, error)
}

// Registry resolves a value or column type to its Codec. Lookup order
// per §4.7: fast-path table keyed by reflect.Kind, then a linear scan
// of the ordered fallback list, with enum/blob-or-clob special
// fallbacks tried last.
type Registry struct {
	fastPath map[reflect.Kind]Codec
	ordered  []Codec
	enumFallback Codec
	blobFallback Codec
}

// NewRegistry builds the default registry: numeric, string, temporal,
// and binary/LOB codecs, in the order a lookup should prefer them.
func NewRegistry() *Registry {
	r := &Registry{fastPath: map[reflect.Kind]Codec{}}
	numeric := &numericCodec{}
	str := &stringCodec{}
	temporal := &temporalCodec{}
	blob := &blobCodec{}
	enum := &enumCodec{}

	r.ordered = []Codec{numeric, str, temporal, blob, enum}
	r.enumFallback = enum
	r.blobFallback = blob

	r.fastPath[reflect.Int] = numeric
	r.fastPath[reflect.Int8] = numeric
	r.fastPath[reflect.Int16] = numeric
	r.fastPath[reflect.Int32] = numeric
	r.fastPath[reflect.Int64] = numeric
	r.fastPath[reflect.Uint] = numeric
	r.fastPath[reflect.Uint8] = numeric
	r.fastPath[reflect.Uint16] = numeric
	r.fastPath[reflect.Uint32] = numeric
	r.fastPath[reflect.Uint64] = numeric
	r.fastPath[reflect.Float32] = numeric
	r.fastPath[reflect.Float64] = numeric
	r.fastPath[reflect.Bool] = numeric
	r.fastPath[reflect.String] = str
	r.fastPath[reflect.Slice] = blob
	return r
}

// EncoderFor resolves the codec that should encode v as a bound
// parameter.
func (r *Registry) EncoderFor(v interface{}) (Codec, error) {
	if v == nil {
		return &nullCodec{}, nil
	}
	if c, ok := r.fastPath[reflect.ValueOf(v).Kind()]; ok && c.CanEncode(v) {
		return c, nil
	}
	for _, c := range r.ordered {
		if c.CanEncode(v) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("mysql: no codec can encode %T", v)
}

// DecoderFor resolves the codec that should decode a field of the given
// MySQL column type.
func (r *Registry) DecoderFor(colType byte) (Codec, error) {
	for _, c := range r.ordered {
		if c.CanDecode(colType) {
			return c, nil
		}
	}
	if r.enumFallback.CanDecode(colType) {
		return r.enumFallback, nil
	}
	if r.blobFallback.CanDecode(colType) {
		return r.blobFallback, nil
	}
	return nil, fmt.Errorf("mysql: no codec can decode column type %#x", colType)
}

// nullCodec handles the nil parameter case; it is never consulted for
// decoding since NULL is signaled out-of-band by the row null-bitmap.
type nullCodec struct{}

func (nullCodec) CanEncode(v interface{}) bool { return v == nil }
func (nullCodec) Encode(interface{}, Options) (byte, bool, []byte, error) {
	return colTypeNull, false, nil, nil
}
func (nullCodec) CanDecode(byte) bool { return false }
func (nullCodec) Decode([]byte, byte, bool, bool, Options) (interface{}, error) {
	return nil, nil
}

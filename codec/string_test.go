package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_stringCodec_encodeDecodeRoundTrip(t *testing.T) {
	sc := stringCodec{}
	require.True(t, sc.CanEncode("hello"))
	require.False(t, sc.CanEncode(42))

	typeCode, unsigned, payload, err := sc.Encode("hello world", Options{})
	require.NoError(t, err)
	require.Equal(t, colTypeVarString, typeCode)
	require.False(t, unsigned)
	require.Equal(t, byte(len("hello world")), payload[0], "short strings use a single-byte length prefix")

	got, err := sc.Decode(payload[1:], colTypeVarString, false, true, Options{})
	require.NoError(t, err)
	require.Equal(t, "hello world", got)
}

func Test_stringCodec_CanDecode(t *testing.T) {
	sc := stringCodec{}
	require.True(t, sc.CanDecode(colTypeVarString))
	require.True(t, sc.CanDecode(colTypeString))
	require.False(t, sc.CanDecode(colTypeLong))
}

func Test_lenencBytes_widthSelection(t *testing.T) {
	short := lenencBytes([]byte("x"))
	require.Equal(t, byte(1), short[0])
	require.Equal(t, []byte("x"), short[1:])

	long := lenencBytes(make([]byte, 0x10000))
	require.Equal(t, byte(0xfd), long[0])
}

package codec

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func Test_numericCodec_encodeDecodeRoundTrip_binary(t *testing.T) {
	convey.Convey("binary-protocol numeric values round-trip through encode/decode", t, func() {
		nc := numericCodec{}
		testCases := []struct {
			in   interface{}
			want interface{}
		}{
			{int64(-42), int64(-42)},
			{uint64(42), uint64(42)},
			{int8(-5), int64(-5)},
			{uint8(5), uint64(5)},
			{float32(1.5), float64(1.5)},
			{float64(-2.25), float64(-2.25)},
			{true, int64(1)},
			{false, int64(0)},
		}

		for _, tc := range testCases {
			convey.So(nc.CanEncode(tc.in), convey.ShouldBeTrue)
			typeCode, unsigned, payload, err := nc.Encode(tc.in, Options{})
			convey.So(err, convey.ShouldBeNil)

			got, err := nc.Decode(payload, typeCode, unsigned, true, Options{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldResemble, tc.want)
		}
	})
}

func Test_numericCodec_int64UsesLongLong(t *testing.T) {
	nc := numericCodec{}
	typeCode, unsigned, payload, err := nc.Encode(int64(-1), Options{})
	require.NoError(t, err)
	require.Equal(t, colTypeLongLong, typeCode)
	require.False(t, unsigned)
	require.Len(t, payload, 8)
}

func Test_numericCodec_Decode_textProtocol(t *testing.T) {
	nc := numericCodec{}
	got, err := nc.Decode([]byte("12345"), colTypeLong, false, false, Options{})
	require.NoError(t, err)
	require.Equal(t, int64(12345), got)

	got, err = nc.Decode([]byte("3.5"), colTypeDouble, false, false, Options{})
	require.NoError(t, err)
	require.Equal(t, 3.5, got)
}

func Test_numericCodec_Decode_shortField(t *testing.T) {
	nc := numericCodec{}
	_, err := nc.Decode([]byte{0x01}, colTypeLong, false, true, Options{})
	require.ErrorIs(t, err, errShortField)
}

func Test_numericCodec_CanDecode(t *testing.T) {
	nc := numericCodec{}
	require.True(t, nc.CanDecode(colTypeTiny))
	require.True(t, nc.CanDecode(colTypeNewDecimal))
	require.False(t, nc.CanDecode(colTypeVarString))
}

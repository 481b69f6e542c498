package mysql

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func Test_reader_varint(t *testing.T) {
	convey.Convey("length-encoded integers round-trip through writeVarint/reader.varint", t, func() {
		testCases := []uint64{0, 1, 250, 251, 0xfb, 0xfc, 0xffff, 0x10000, 0xffffff, 0x1000000, 1 << 40}

		for _, v := range testCases {
			encoded := writeVarint(v)
			r := newReader(encoded)
			got, err := r.varint()
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, v)
			convey.So(r.len(), convey.ShouldEqual, 0)
		}
	})
}

func Test_reader_varint_prefixWidths(t *testing.T) {
	convey.Convey("prefix byte selects the right width class", t, func() {
		convey.So(writeVarint(250), convey.ShouldResemble, []byte{250})
		convey.So(writeVarint(0x10000)[0], convey.ShouldEqual, byte(0xfd))
		convey.So(writeVarint(0xffffff+1)[0], convey.ShouldEqual, byte(0xfe))
	})
}

func Test_reader_fixed_shortBuffer(t *testing.T) {
	r := newReader([]byte{0x01, 0x02})
	_, err := r.fixed(3)
	require.ErrorIs(t, err, errShortBuffer)
}

func Test_reader_nullTerminatedString(t *testing.T) {
	r := newReader([]byte("hello\x00world"))
	s, err := r.nullTerminatedString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
	rest := r.restString()
	require.Equal(t, "world", rest)
}

func Test_reader_lenencString(t *testing.T) {
	w := newWriter()
	w.writeLenencString("abcdef")
	r := newReader(w.bytes())
	s, err := r.lenencString()
	require.NoError(t, err)
	require.Equal(t, "abcdef", s)
}

func Test_writer_fixedWidths(t *testing.T) {
	w := newWriter()
	w.writeUint16(0x0201)
	w.writeUint24(0x030201)
	w.writeUint32(0x04030201)
	w.writeUint64(0x0807060504030201)

	r := newReader(w.bytes())
	u16, err := r.uint16()
	require.NoError(t, err)
	require.EqualValues(t, 0x0201, u16)

	u24, err := r.uint24()
	require.NoError(t, err)
	require.EqualValues(t, 0x030201, u24)

	u32, err := r.uint32()
	require.NoError(t, err)
	require.EqualValues(t, 0x04030201, u32)

	u64, err := r.uint64()
	require.NoError(t, err)
	require.EqualValues(t, 0x0807060504030201, u64)

	require.Equal(t, 0, r.len())
}

func Test_writer_floats(t *testing.T) {
	w := newWriter()
	w.writeFloat32(3.5)
	w.writeFloat64(-2.25)

	r := newReader(w.bytes())
	f32, err := r.float32()
	require.NoError(t, err)
	require.Equal(t, float32(3.5), f32)

	f64, err := r.float64()
	require.NoError(t, err)
	require.Equal(t, float64(-2.25), f64)
}

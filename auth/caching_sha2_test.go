package auth

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func Test_CachingSHA2_Authenticate_emptyPassword(t *testing.T) {
	resp, err := CachingSHA2{}.Authenticate(Context{Password: ""})
	require.NoError(t, err)
	require.Nil(t, resp)
}

func Test_CachingSHA2_Authenticate_isDeterministicAndRightLength(t *testing.T) {
	salt := []byte("0123456789012345678901")
	resp, err := CachingSHA2{}.Authenticate(Context{Password: "hunter2", Salt: salt})
	require.NoError(t, err)
	require.Len(t, resp, 32)

	resp2, err := CachingSHA2{}.Authenticate(Context{Password: "hunter2", Salt: salt})
	require.NoError(t, err)
	require.Equal(t, resp, resp2)
}

func Test_CachingSHA2_Continue_fastAuthSuccessNeedsNoResponse(t *testing.T) {
	convey.Convey("a fast-auth-success continuation byte ends auth with no further data sent", t, func() {
		resp, done, err := CachingSHA2{}.Continue([]byte{cachingSHA2FastAuthSuccess}, Context{})
		convey.So(err, convey.ShouldBeNil)
		convey.So(done, convey.ShouldBeTrue)
		convey.So(resp, convey.ShouldBeNil)
	})
}

func Test_CachingSHA2_Continue_fullAuthOverSecureTransportSendsCleartext(t *testing.T) {
	convey.Convey("over a secure transport, full auth just sends the NUL-terminated cleartext password", t, func() {
		resp, done, err := CachingSHA2{}.Continue([]byte{cachingSHA2FullAuthNeeded}, Context{Password: "hunter2", Secure: true})
		convey.So(err, convey.ShouldBeNil)
		convey.So(done, convey.ShouldBeTrue)
		convey.So(resp, convey.ShouldResemble, []byte("hunter2\x00"))
	})
}

func Test_CachingSHA2_Continue_fullAuthOverInsecureTransportWithoutKeySourceFails(t *testing.T) {
	_, _, err := CachingSHA2{}.Continue([]byte{cachingSHA2FullAuthNeeded}, Context{Password: "hunter2", Secure: false})
	require.Error(t, err)
}

func Test_CachingSHA2_Continue_emptyContinuationIsAnError(t *testing.T) {
	_, _, err := CachingSHA2{}.Continue(nil, Context{})
	require.Error(t, err)
}

func Test_CachingSHA2_Continue_unknownStatusByteIsAnError(t *testing.T) {
	_, _, err := CachingSHA2{}.Continue([]byte{0x99}, Context{})
	require.Error(t, err)
}

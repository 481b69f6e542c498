package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_SHA256_emptyPasswordSendsSingleNulByte(t *testing.T) {
	resp, err := SHA256{}.Authenticate(Context{Password: ""})
	require.NoError(t, err)
	require.Equal(t, []byte{0}, resp)
}

func Test_SHA256_secureTransportSendsCleartext(t *testing.T) {
	resp, err := SHA256{}.Authenticate(Context{Password: "hunter2", Secure: true})
	require.NoError(t, err)
	require.Equal(t, []byte("hunter2\x00"), resp)
}

func Test_SHA256_insecureWithoutKeySourceRequestsPublicKey(t *testing.T) {
	resp, err := SHA256{}.Authenticate(Context{Password: "hunter2", Secure: false})
	require.NoError(t, err)
	require.Equal(t, []byte{requestPublicKey}, resp)
}

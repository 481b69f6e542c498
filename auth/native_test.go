package auth

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Native_Authenticate_emptyPasswordYieldsEmptyResponse(t *testing.T) {
	resp, err := Native{}.Authenticate(Context{Password: "", Salt: []byte("01234567890123456789")})
	require.NoError(t, err)
	require.Nil(t, resp)
}

func Test_Native_Authenticate_matchesReferenceFormula(t *testing.T) {
	password := "s3cr3t"
	salt := []byte("abcdefghijklmnopqrst")

	got, err := Native{}.Authenticate(Context{Password: password, Salt: salt})
	require.NoError(t, err)

	pwHash := sha1.Sum([]byte(password))
	pwHashHash := sha1.Sum(pwHash[:])
	h := sha1.New()
	h.Write(salt)
	h.Write(pwHashHash[:])
	salted := h.Sum(nil)

	want := make([]byte, len(pwHash))
	for i := range want {
		want[i] = pwHash[i] ^ salted[i]
	}

	require.Equal(t, want, got)
	require.Len(t, got, 20)
}

func Test_Native_Authenticate_isDeterministic(t *testing.T) {
	ctx := Context{Password: "hunter2", Salt: []byte("zyxwvutsrqponmlkjihg")}
	a, err := Native{}.Authenticate(ctx)
	require.NoError(t, err)
	b, err := Native{}.Authenticate(ctx)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func Test_Native_RequiresSecureTransport_isFalse(t *testing.T) {
	require.False(t, Native{}.RequiresSecureTransport())
	require.Equal(t, "mysql_native_password", Native{}.Name())
}

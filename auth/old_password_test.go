package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_OldPassword_emptyPassword(t *testing.T) {
	resp, err := OldPassword{}.Authenticate(Context{Password: ""})
	require.NoError(t, err)
	require.Nil(t, resp)
}

func Test_OldPassword_isDeterministicAndNulTerminated(t *testing.T) {
	salt := []byte("abcdefgh")
	a, err := OldPassword{}.Authenticate(Context{Password: "secret", Salt: salt})
	require.NoError(t, err)
	require.Equal(t, byte(0), a[len(a)-1])
	require.Len(t, a, len(salt)+1)

	b, err := OldPassword{}.Authenticate(Context{Password: "secret", Salt: salt})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func Test_OldPassword_differentPasswordsDiffer(t *testing.T) {
	salt := []byte("abcdefgh")
	a, _ := OldPassword{}.Authenticate(Context{Password: "secret1", Salt: salt})
	b, _ := OldPassword{}.Authenticate(Context{Password: "secret2", Salt: salt})
	require.NotEqual(t, a, b)
}

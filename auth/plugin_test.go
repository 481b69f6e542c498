package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Lookup_builtinsAreRegistered(t *testing.T) {
	names := []string{
		"mysql_native_password",
		"caching_sha2_password",
		"sha256_password",
		"mysql_clear_password",
		"mysql_old_password",
	}
	for _, n := range names {
		p, ok := Lookup(n)
		require.True(t, ok, "plugin %q should be registered by init()", n)
		require.Equal(t, n, p.Name())
	}
}

func Test_Lookup_unknownPlugin(t *testing.T) {
	_, ok := Lookup("does_not_exist")
	require.False(t, ok)
}

func Test_NoAuth_emptyResponse(t *testing.T) {
	resp, err := NoAuth{}.Authenticate(Context{Password: "ignored"})
	require.NoError(t, err)
	require.Nil(t, resp)
	require.False(t, NoAuth{}.RequiresSecureTransport())
}

func Test_Register_replacesExistingPlugin(t *testing.T) {
	orig, _ := Lookup("mysql_native_password")
	defer Register(orig)

	Register(fakePlugin{})
	p, ok := Lookup("mysql_native_password")
	require.True(t, ok)
	require.IsType(t, fakePlugin{}, p)
}

type fakePlugin struct{}

func (fakePlugin) Name() string                        { return "mysql_native_password" }
func (fakePlugin) RequiresSecureTransport() bool        { return false }
func (fakePlugin) Authenticate(Context) ([]byte, error) { return []byte("fake"), nil }

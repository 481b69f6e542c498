package collation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ByID_knownAndUnknown(t *testing.T) {
	info, ok := ByID(UTF8mb4General)
	require.True(t, ok)
	require.Equal(t, "utf8mb4_general_ci", info.Name)
	require.Equal(t, "utf8mb4", info.Charset)

	_, ok = ByID(ID(65535))
	require.False(t, ok)
}

func Test_IsMultiByte(t *testing.T) {
	ascii, _ := ByID(ASCIIGeneralCI)
	require.False(t, ascii.IsMultiByte())

	mb4, _ := ByID(UTF8mb4General)
	require.True(t, mb4.IsMultiByte())
}

func Test_Default_isUTF8mb4(t *testing.T) {
	info, ok := ByID(Default)
	require.True(t, ok)
	require.Equal(t, "utf8mb4", info.Charset)
}

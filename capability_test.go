package mysql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Capability_Has(t *testing.T) {
	c := CapProtocol41 | CapSSL | CapPluginAuth

	require.True(t, c.Has(CapProtocol41))
	require.True(t, c.Has(CapProtocol41|CapSSL))
	require.False(t, c.Has(CapCompress))
	require.False(t, c.Has(CapProtocol41|CapCompress))
}

func Test_Capability_splitAndJoinLow32(t *testing.T) {
	c := CapLongPassword | CapProtocol41 | CapPluginAuth

	lo, hi := splitLow32(c)
	got := joinLow32(lo, hi)

	require.Equal(t, c, got)
}

func Test_Capability_mariaDBBitsLiveAboveBit31(t *testing.T) {
	require.Greater(t, uint64(CapMariaDBProgress), uint64(1)<<31)
	require.True(t, Capability(CapMariaDBProgress|CapMariaDBComMulti).Has(CapMariaDBProgress))
}

func Test_clientDesired_optionalFlags(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database = "orders"
	cfg.AllowLocalInfile = true

	c := clientDesired(cfg)

	require.True(t, c.Has(CapConnectWithDB))
	require.True(t, c.Has(CapLocalFiles))
	require.True(t, c.Has(CapProtocol41))
}

func Test_clientDesired_createDatabaseSkipsConnectWithDB(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database = "orders"
	cfg.CreateDatabaseIfNotExist = true

	c := clientDesired(cfg)

	require.False(t, c.Has(CapConnectWithDB), "the database is created post-handshake via USE, not CLIENT_CONNECT_WITH_DB")
}

package mysql

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_writeLocalInfileChunks_splitsAndTerminates(t *testing.T) {
	buf := &bytes.Buffer{}
	pc := newPacketConn(buf)
	data := bytes.Repeat([]byte("a"), 25)
	require.NoError(t, writeLocalInfileChunks(pc, data, 10))

	rpc := newPacketConn(bytes.NewBuffer(buf.Bytes()))
	var got []byte
	for {
		chunk, err := rpc.readPacket()
		require.NoError(t, err)
		if len(chunk) == 0 {
			break
		}
		got = append(got, chunk...)
	}
	require.Equal(t, data, got)
}

func Test_writeLocalInfileChunks_emptyDataStillTerminates(t *testing.T) {
	buf := &bytes.Buffer{}
	pc := newPacketConn(buf)
	require.NoError(t, writeLocalInfileChunks(pc, nil, 10))

	rpc := newPacketConn(bytes.NewBuffer(buf.Bytes()))
	chunk, err := rpc.readPacket()
	require.NoError(t, err)
	require.Len(t, chunk, 0)
}

func Test_localInfileSource_resolve_deniedWhenNoRoot(t *testing.T) {
	s := &localInfileSource{worker: runOnWorkerPool}
	_, err := s.resolve("/etc/passwd")
	require.Error(t, err)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	require.EqualValues(t, 1045, serverErr.Code)
}

func Test_localInfileSource_resolve_deniedWhenOutsideRoot(t *testing.T) {
	dir := t.TempDir()
	s := &localInfileSource{root: dir, bufSz: 8192, worker: runOnWorkerPool}
	_, err := s.resolve("../../etc/passwd")
	require.Error(t, err)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	require.EqualValues(t, 1045, serverErr.Code)
}

func Test_localInfileSource_resolve_allowedWithinRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte("1,2,3\n"), 0o600))

	s := &localInfileSource{root: dir, bufSz: 8192, worker: runOnWorkerPool}
	data, err := s.resolve("data.csv")
	require.NoError(t, err)
	require.Equal(t, []byte("1,2,3\n"), data)
}

func Test_localInfileSource_resolve_nestedAllowedPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "data.csv"), []byte("x"), 0o600))

	s := &localInfileSource{root: dir, bufSz: 8192, worker: runOnWorkerPool}
	data, err := s.resolve("sub/data.csv")
	require.NoError(t, err)
	require.Equal(t, []byte("x"), data)
}

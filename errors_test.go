package mysql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ServerError_Kind_byCode(t *testing.T) {
	testCases := []struct {
		code uint16
		want ErrorKind
	}{
		{1045, KindPermissionDenied}, // access denied
		{1064, KindBadGrammar},       // syntax error
		{1062, KindDataIntegrityViolation},
		{1613, KindRollback},
		{1205, KindTimeout},
		{1213, KindTransientResource}, // deadlock
		{9999, KindNonTransientResource},
	}

	for _, tc := range testCases {
		e := &ServerError{Code: tc.code}
		require.Equal(t, tc.want, e.Kind(), "code %d", tc.code)
	}
}

func Test_ServerError_Kind_fallsBackToSQLStatePrefix(t *testing.T) {
	e := &ServerError{Code: 9999, SQLState: "42S02"}
	require.Equal(t, KindBadGrammar, e.Kind())

	e = &ServerError{Code: 9999, SQLState: "23000"}
	require.Equal(t, KindDataIntegrityViolation, e.Kind())

	e = &ServerError{Code: 9999, SQLState: "40001"}
	require.Equal(t, KindRollback, e.Kind())

	e = &ServerError{Code: 9999, SQLState: "HY000"}
	require.Equal(t, KindNonTransientResource, e.Kind())
}

func Test_ServerError_WithSQL_doesNotMutateOriginal(t *testing.T) {
	base := &ServerError{Code: 1064, Message: "syntax error"}
	withSQL := base.WithSQL("SELECT 1")

	require.Empty(t, base.SQL)
	require.Equal(t, "SELECT 1", withSQL.SQL)
	require.Contains(t, withSQL.Error(), "SELECT 1")
}

func Test_ProtocolError_Unwrap(t *testing.T) {
	inner := errors.New("short buffer")
	pe := &ProtocolError{Op: "decode handshake", Err: inner}

	require.ErrorIs(t, pe, inner)
	require.Equal(t, KindProtocolError, pe.Kind())
}

func Test_ConnectionClosedError_expectedVsUnexpected(t *testing.T) {
	expected := &ConnectionClosedError{Expected: true}
	require.Equal(t, "mysql: connection closed", expected.Error())

	cause := errors.New("broken pipe")
	unexpected := &ConnectionClosedError{Cause: cause}
	require.ErrorIs(t, unexpected, cause)
	require.Contains(t, unexpected.Error(), "broken pipe")
}

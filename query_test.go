package mysql

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func Test_scanPlaceholders_ignoresQuotedAndCommented(t *testing.T) {
	convey.Convey("placeholders inside literals and comments are not markers", t, func() {
		sql := "SELECT * FROM t WHERE a = ? AND b = '?' AND c = \"?\" -- trailing ?\n AND d = /* ? */ :name"
		got := scanPlaceholders(sql)

		convey.So(len(got), convey.ShouldEqual, 2)
		convey.So(got[0].kind, convey.ShouldEqual, placeholderPositional)
		convey.So(got[1].kind, convey.ShouldEqual, placeholderNamed)
		convey.So(got[1].name, convey.ShouldEqual, "name")
	})
}

func Test_scanPlaceholders_backtickIdentifier(t *testing.T) {
	got := scanPlaceholders("SELECT `weird?column` FROM t WHERE id = ?")
	require.Len(t, got, 1)
	require.Equal(t, placeholderPositional, got[0].kind)
}

func Test_substitutePositional(t *testing.T) {
	sql := "SELECT * FROM t WHERE a = ? AND b = ?"
	out, err := substitutePositional(sql, scanPlaceholders(sql), []string{"'x'", "42"})
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t WHERE a = 'x' AND b = 42", out)
}

func Test_substitutePositional_countMismatch(t *testing.T) {
	sql := "SELECT * FROM t WHERE a = ?"
	_, err := substitutePositional(sql, scanPlaceholders(sql), []string{"1", "2"})
	require.Error(t, err)

	sql = "SELECT * FROM t WHERE a = ? AND b = ?"
	_, err = substitutePositional(sql, scanPlaceholders(sql), []string{"1"})
	require.Error(t, err)
}

func Test_substitutePositional_skipsPlaceholdersInLiteralsAndComments(t *testing.T) {
	sql := "SELECT ? /* ? */ FROM t -- ?\n"
	out, err := substitutePositional(sql, scanPlaceholders(sql), []string{"1"})
	require.NoError(t, err)
	require.Equal(t, "SELECT 1 /* ? */ FROM t -- ?\n", out)
}

func Test_Conn_renderTextStatement_usesQueryParseCache(t *testing.T) {
	c := &Conn{cfg: &Config{QueryCacheSize: 8}, cc: &connContext{}}
	sql := "SELECT * FROM t WHERE a = ? AND b = ?"

	out, err := c.renderTextStatement(sql, []interface{}{1, "x"})
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t WHERE a = 1 AND b = 'x'", out)
	require.Equal(t, 1, c.queryCache().Len())

	cached, ok := c.queryCache().GetIfPresent(sql)
	require.True(t, ok)
	require.Len(t, cached, 2)

	out, err = c.renderTextStatement(sql, []interface{}{2, "y"})
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t WHERE a = 2 AND b = 'y'", out)
	require.Equal(t, 1, c.queryCache().Len(), "repeating the same SQL text must not grow the cache")
}

func Test_escapeLiteral_defaultEscaping(t *testing.T) {
	got := escapeLiteral("a'b\\c\nd\re\x1af", false)
	require.Equal(t, `'a''b\\c\nd\re\Zf'`, got)
}

func Test_escapeLiteral_noBackslashEscapes(t *testing.T) {
	got := escapeLiteral("a'b\\c", true)
	require.Equal(t, `'a''b\c'`, got, "backslash must pass through untouched under NO_BACKSLASH_ESCAPES")
}

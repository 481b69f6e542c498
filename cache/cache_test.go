package cache

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func Test_Cache_basicLRU(t *testing.T) {
	convey.Convey("a capacity-2 cache evicts the least-recently-used entry on overflow", t, func() {
		var evicted []string
		c := New[string](2)

		convey.So(c.PutIfAbsent("a", "A", func(v string) { evicted = append(evicted, v) }), convey.ShouldBeTrue)
		convey.So(c.PutIfAbsent("b", "B", func(v string) { evicted = append(evicted, v) }), convey.ShouldBeTrue)

		// touch "a" so "b" becomes the LRU entry
		_, ok := c.GetIfPresent("a")
		convey.So(ok, convey.ShouldBeTrue)

		convey.So(c.PutIfAbsent("c", "C", func(v string) { evicted = append(evicted, v) }), convey.ShouldBeTrue)

		convey.So(evicted, convey.ShouldResemble, []string{"B"})
		convey.So(c.Len(), convey.ShouldEqual, 2)

		_, ok = c.GetIfPresent("b")
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func Test_Cache_putIfAbsent_existingKeyIsNoop(t *testing.T) {
	c := New[int](4)
	require.True(t, c.PutIfAbsent("x", 1, nil))
	require.True(t, c.PutIfAbsent("x", 2, nil))

	v, ok := c.GetIfPresent("x")
	require.True(t, ok)
	require.Equal(t, 1, v, "PutIfAbsent must not overwrite an existing entry")
}

func Test_Cache_capacityZeroDisablesCaching(t *testing.T) {
	c := New[string](0)
	var evicted string
	ok := c.PutIfAbsent("k", "v", func(v string) { evicted = v })

	require.False(t, ok, "capacity 0 must reject every insert")
	require.Equal(t, "v", evicted, "the rejected value must still reach onEvict so the caller can release it")
	require.Equal(t, 0, c.Len())

	_, found := c.GetIfPresent("k")
	require.False(t, found)
}

func Test_Cache_unboundedNegativeCapacity(t *testing.T) {
	c := New[int](-1)
	for i := 0; i < 100; i++ {
		require.True(t, c.PutIfAbsent(string(rune('a'+i%26))+string(rune(i)), i, nil))
	}
	require.Equal(t, 100, c.Len())
}

func Test_Cache_remove(t *testing.T) {
	c := New[int](4)
	c.PutIfAbsent("k", 42, nil)

	v, ok := c.Remove("k")
	require.True(t, ok)
	require.Equal(t, 42, v)

	_, ok = c.Remove("k")
	require.False(t, ok)
}

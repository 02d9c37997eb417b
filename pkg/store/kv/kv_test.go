package kv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engines(t *testing.T) map[string]Engine {
	t.Helper()
	p, err := OpenPebble("mem", PebbleOptions{InMemory: true})
	require.NoError(t, err)
	b, err := OpenBadger("", BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.Close()
		_ = b.Close()
	})
	return map[string]Engine{"pebble": p, "badger": b}
}

func put(t *testing.T, e Engine, kvs ...string) {
	t.Helper()
	b := e.NewBatch()
	defer b.Close()
	for i := 0; i+1 < len(kvs); i += 2 {
		require.NoError(t, b.Set([]byte(kvs[i]), []byte(kvs[i+1])))
	}
	require.NoError(t, b.Commit())
}

func TestGetMissing(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := e.Get([]byte("nope"))
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestBatchIsAtomicUnit(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			put(t, e, "a", "1", "b", "2")

			b := e.NewBatch()
			require.NoError(t, b.Delete([]byte("a")))
			require.NoError(t, b.Set([]byte("c"), []byte("3")))
			// nothing visible before commit
			v, err := e.Get([]byte("a"))
			require.NoError(t, err)
			assert.Equal(t, "1", string(v))
			require.NoError(t, b.Commit())
			require.NoError(t, b.Close())

			_, err = e.Get([]byte("a"))
			assert.True(t, IsNotFound(err))
			v, err = e.Get([]byte("c"))
			require.NoError(t, err)
			assert.Equal(t, "3", string(v))
		})
	}
}

func TestBatchLargerThanOneTransaction(t *testing.T) {
	const n = 250_000
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			key := func(i int) []byte { return []byte(fmt.Sprintf("big/%07d", i)) }

			b := e.NewBatch()
			for i := 0; i < n; i++ {
				require.NoError(t, b.Set(key(i), []byte("x")))
			}
			require.NoError(t, b.Commit())
			require.NoError(t, b.Close())

			for _, i := range []int{0, n / 2, n - 1} {
				v, err := e.Get(key(i))
				require.NoError(t, err)
				assert.Equal(t, "x", string(v))
			}

			b = e.NewBatch()
			for i := 0; i < n; i++ {
				require.NoError(t, b.Delete(key(i)))
			}
			require.NoError(t, b.Commit())
			require.NoError(t, b.Close())

			for _, i := range []int{0, n / 2, n - 1} {
				_, err := e.Get(key(i))
				assert.True(t, IsNotFound(err))
			}
		})
	}
}

func TestScanPrefixAndAfter(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			for i := 1; i <= 5; i++ {
				put(t, e, fmt.Sprintf("p:%02d", i), fmt.Sprint(i))
			}
			put(t, e, "o:99", "x", "q:00", "y")

			var keys []string
			err := e.Scan([]byte("p:"), nil, func(k, v []byte) (bool, error) {
				keys = append(keys, string(k))
				return true, nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"p:01", "p:02", "p:03", "p:04", "p:05"}, keys)

			keys = nil
			err = e.Scan([]byte("p:"), []byte("p:02"), func(k, v []byte) (bool, error) {
				keys = append(keys, string(k))
				return len(keys) < 2, nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"p:03", "p:04"}, keys)
		})
	}
}

func TestLast(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := e.Last([]byte("mid:"))
			assert.True(t, IsNotFound(err))

			put(t, e, "mid:001", "a", "mid:010", "b", "mie:000", "c")
			k, v, err := e.Last([]byte("mid:"))
			require.NoError(t, err)
			assert.Equal(t, "mid:010", string(k))
			assert.Equal(t, "b", string(v))
		})
	}
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("ab;"), prefixEnd([]byte("ab:")))
	assert.Equal(t, []byte("b"), prefixEnd([]byte{'a', 0xff}))
	assert.Nil(t, prefixEnd([]byte{0xff, 0xff}))
}

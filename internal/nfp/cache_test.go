package nfp

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/polynest/internal/geometry"
)

func TestCache_ComputesOncePerKey(t *testing.T) {
	c := NewCache()
	key := Key{StationaryID: "a", OrbitingID: "b"}

	var calls int32
	compute := func() (geometry.Polygon, error) {
		atomic.AddInt32(&calls, 1)
		return rect(10, 10), nil
	}

	first, err := c.Get(key, compute)
	require.NoError(t, err)
	second, err := c.Get(key, compute)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, &first[0], &second[0], "cached polygon is returned by reference")
	assert.Equal(t, 1, c.Len())
}

func TestCache_DistinguishesRotationAndRole(t *testing.T) {
	c := NewCache()

	keys := []Key{
		{StationaryID: "a", OrbitingID: "b"},
		{StationaryID: "b", OrbitingID: "a"},
		{StationaryID: "a", OrbitingID: "b", OrbitingRot: 90},
		{StationaryID: "a", OrbitingID: "b", Inner: true},
	}
	for _, k := range keys {
		_, err := c.Get(k, func() (geometry.Polygon, error) { return rect(1, 1), nil })
		require.NoError(t, err)
	}

	assert.Equal(t, len(keys), c.Len(), "every key is a separate entry")
}

func TestCache_SingleFlightUnderContention(t *testing.T) {
	c := NewCache()
	key := Key{StationaryID: "s", OrbitingID: "o"}

	var calls int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(key, func() (geometry.Polygon, error) {
				atomic.AddInt32(&calls, 1)
				return rect(2, 2), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent misses share one computation")
}

func TestCache_CachesErrors(t *testing.T) {
	c := NewCache()
	key := Key{StationaryID: "s", OrbitingID: "o", Inner: true}

	var calls int32
	for i := 0; i < 3; i++ {
		_, err := c.Get(key, func() (geometry.Polygon, error) {
			atomic.AddInt32(&calls, 1)
			return nil, ErrNoFit
		})
		assert.ErrorIs(t, err, ErrNoFit)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a failed fit is not recomputed")
}

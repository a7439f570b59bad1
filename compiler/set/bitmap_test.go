package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmap(t *testing.T) {
	var s Bitmap

	assert.False(t, s.IsSet(3))
	assert.Equal(t, -1, s.First())
	assert.Equal(t, -1, s.Last())

	s.Set(3)
	s.Set(70)
	s.Set(200)

	assert.True(t, s.IsSet(3))
	assert.True(t, s.IsSet(70))
	assert.False(t, s.IsSet(4))
	assert.False(t, s.IsSet(1000))

	assert.Equal(t, 3, s.Size())
	assert.Equal(t, 3, s.First())
	assert.Equal(t, 200, s.Last())

	var got []int

	s.Range(func(i int) bool {
		got = append(got, i)
		return true
	})

	assert.Equal(t, []int{3, 70, 200}, got)
}

func TestBitmapTestAndSet(t *testing.T) {
	var s Bitmap

	assert.False(t, s.TestAndSet(7))
	assert.True(t, s.TestAndSet(7))
	assert.True(t, s.IsSet(7))
}

func TestBitmapOr(t *testing.T) {
	var a, b Bitmap

	a.Set(1)
	b.Set(2)
	b.Set(129)

	a.Or(b)

	assert.Equal(t, 3, a.Size())
	assert.True(t, a.IsSet(129))

	var empty Bitmap

	a.Or(empty)
	assert.Equal(t, 3, a.Size())
}

func TestBitmapRangeStop(t *testing.T) {
	var s Bitmap

	for _, i := range []int{1, 2, 3} {
		s.Set(i)
	}

	n := 0

	s.Range(func(i int) bool {
		n++
		return i < 2
	})

	assert.Equal(t, 2, n)
}

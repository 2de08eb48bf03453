package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(5)

	n, err := b.Write([]byte("abc"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = b.Write([]byte("defgh"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n, "short writes would stall the child")

	_, _ = b.Write([]byte("more"))
	assert.Equal(t, "abcde"+truncatedNote, b.String())
}

func TestCappedBuffer_UnderLimit(t *testing.T) {
	b := newCappedBuffer(0)
	_, _ = b.Write([]byte(strings.Repeat("x", 10)))
	assert.Equal(t, strings.Repeat("x", 10), b.String())
	assert.Equal(t, MaxOutputBytes, b.limit)
}

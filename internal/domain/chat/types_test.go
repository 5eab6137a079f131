package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedPair(t *testing.T) {
	a, b := OrderedPair(9, 3)
	assert.Equal(t, int64(3), a)
	assert.Equal(t, int64(9), b)

	a, b = OrderedPair(3, 9)
	assert.Equal(t, int64(3), a)
	assert.Equal(t, int64(9), b)
}

func TestMessageTypeValid(t *testing.T) {
	assert.True(t, MessageVoice.Valid())
	assert.False(t, MessageType("video").Valid())
}

package pushtokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidToken(t *testing.T) {
	assert.True(t, ValidToken("ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"))
	assert.True(t, ValidToken("ExpoPushToken[abc]"))
	assert.False(t, ValidToken("fcm:abc"))
	assert.False(t, ValidToken("ExponentPushToken[abc"))
}

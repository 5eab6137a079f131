package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPublicIDFromURL(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v1712345678/cars/42_1.jpg": "cars/42_1",
		"https://res.cloudinary.com/demo/image/upload/avatars/7.png":             "avatars/7",
		"https://res.cloudinary.com/demo/video/upload/v9/chat/voice/abc.m4a":     "chat/voice/abc",
		"https://res.cloudinary.com/demo/image/upload/v12.jpg":                   "v12",
	}

	for in, want := range cases {
		got, err := extractPublicIDFromURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestExtractPublicIDFromURLErrors(t *testing.T) {
	_, err := extractPublicIDFromURL("https://example.com/images/a.jpg")
	assert.Error(t, err)

	_, err = extractPublicIDFromURL("https://res.cloudinary.com/demo/image/upload")
	assert.Error(t, err)

	_, err = extractPublicIDFromURL("://bad")
	assert.Error(t, err)
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1712345678"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("cars"))
	assert.False(t, isVersionSegment("v12a"))
}

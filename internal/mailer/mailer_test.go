package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderInvitation(t *testing.T) {
	subject, body, err := render(UserWelcomeTemplate, struct {
		Username      string
		ActivationURL string
	}{"alice", "https://carrent.app/confirm/abc"})
	require.NoError(t, err)

	assert.Equal(t, "Finish registration with CarRent", subject)
	assert.Contains(t, body, "Hi alice,")
	assert.Contains(t, body, `href="https://carrent.app/confirm/abc"`)
}

func TestRenderMissingTemplate(t *testing.T) {
	_, _, err := render("nope.tmpl", nil)
	assert.Error(t, err)
}

func TestNewSMTPClientRequiresHost(t *testing.T) {
	_, err := NewSMTPClient("", 587, "", "", "noreply@carrent.app")
	assert.Error(t, err)

	c, err := NewSMTPClient("smtp.example.com", 587, "u", "p", "noreply@carrent.app")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvRequiresCredentials(t *testing.T) {
	t.Setenv("EMAIL_HOST", "")
	t.Setenv("EMAIL_PORT", "")
	t.Setenv("EMAIL_USER", "")
	t.Setenv("EMAIL_PASSWORD", "")

	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFromEnvDefaultsSender(t *testing.T) {
	t.Setenv("EMAIL_HOST", "smtp.example.com")
	t.Setenv("EMAIL_PORT", "587")
	t.Setenv("EMAIL_USER", "postmaster")
	t.Setenv("EMAIL_PASSWORD", "secret")
	t.Setenv("EMAIL_FROM", "")

	m, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "no-reply@pensioncrm.test", m.from)
}

func TestBuildMultipartMessage(t *testing.T) {
	m := &Mailer{from: "danisman@example.com"}
	raw := string(m.build(Message{
		To:      []string{"ayse@example.com"},
		Subject: "Tasarruf özeti",
		Text:    "Merhaba",
		HTML:    "<p>Merhaba</p>",
	}))

	assert.Contains(t, raw, "From: danisman@example.com\r\n")
	assert.Contains(t, raw, "To: ayse@example.com\r\n")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, raw, "Content-Type: text/html; charset=utf-8")
	assert.Contains(t, raw, "<p>Merhaba</p>")
	// non-ASCII subject is encoded
	assert.NotContains(t, raw, "Subject: Tasarruf özeti")
}

package storage

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func parseSigned(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func TestSignedURLSignerSignAndVerify(t *testing.T) {
	signer := NewSignedURLSigner("https://files.example/", "secret", time.Hour)
	link, expiresAt, err := signer.Sign("letter-1", "/excuses/stu-1/note.pdf")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://files.example/excuses/stu-1/note.pdf?"))
	require.False(t, expiresAt.IsZero())

	q := parseSigned(t, link)
	require.Equal(t, "letter-1", q.Get("owner"))
	require.NoError(t, signer.Verify("letter-1", "excuses/stu-1/note.pdf", q.Get("expires"), q.Get("signature")))
	require.Error(t, signer.Verify("letter-2", "excuses/stu-1/note.pdf", q.Get("expires"), q.Get("signature")))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("https://files.example", "secret", time.Minute)
	issued := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }
	link, _, err := signer.Sign("letter-1", "note.pdf")
	require.NoError(t, err)
	q := parseSigned(t, link)

	signer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	require.EqualError(t, signer.Verify("letter-1", "note.pdf", q.Get("expires"), q.Get("signature")), "link expired")
}

func TestSignedURLSignerRequiresSecret(t *testing.T) {
	signer := NewSignedURLSigner("https://files.example", "", time.Minute)
	_, _, err := signer.Sign("letter-1", "note.pdf")
	require.Error(t, err)
}

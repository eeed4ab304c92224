package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner issues expiring download links for stored attachments.
type SignedURLSigner struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewSignedURLSigner constructs a signer rooted at baseURL.
func NewSignedURLSigner(baseURL, secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Sign returns a download URL for ref scoped to the owning resource id.
func (s *SignedURLSigner) Sign(ownerID, ref string) (string, time.Time, error) {
	if ownerID == "" || ref == "" {
		return "", time.Time{}, fmt.Errorf("owner id and reference required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC()
	expires := strconv.FormatInt(expiresAt.Unix(), 10)

	q := url.Values{}
	q.Set("owner", ownerID)
	q.Set("expires", expires)
	q.Set("signature", s.signature(ownerID, ref, expires))

	path := strings.TrimLeft(ref, "/")
	return fmt.Sprintf("%s/%s?%s", s.baseURL, (&url.URL{Path: path}).EscapedPath(), q.Encode()), expiresAt, nil
}

// Verify checks a signature previously produced by Sign. The attachment host
// serving baseURL calls it with the same secret before releasing a file.
func (s *SignedURLSigner) Verify(ownerID, ref, expires, signature string) error {
	expUnix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expiry")
	}
	expected := s.signature(ownerID, ref, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("invalid signature")
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return fmt.Errorf("link expired")
	}
	return nil
}

func (s *SignedURLSigner) signature(ownerID, ref, expires string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(ownerID + "|" + strings.TrimLeft(ref, "/") + "|" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mockmate/mockmate/internal/domain"
)

// SessionCookieName is the browser cookie carrying the signed identity.
const SessionCookieName = "mockmate_session"

var (
	ErrBadCookie     = errors.New("auth: malformed session cookie")
	ErrCookieExpired = errors.New("auth: session cookie expired")
)

type browserSession struct {
	Identity domain.Identity `json:"identity"`
	Expires  time.Time       `json:"expires"`
}

// encodeSession signs an identity into a cookie value: base64(json)|hex(hmac).
func encodeSession(secret []byte, identity domain.Identity, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(browserSession{
		Identity: identity,
		Expires:  time.Now().Add(ttl),
	})
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "|" + sign(secret, encoded), nil
}

// decodeSession verifies a cookie value and returns the identity.
func decodeSession(secret []byte, value string) (domain.Identity, error) {
	encoded, sig, ok := strings.Cut(value, "|")
	if !ok {
		return domain.Identity{}, ErrBadCookie
	}
	// Constant-time comparison to avoid leaking the MAC.
	if !hmac.Equal([]byte(sig), []byte(sign(secret, encoded))) {
		return domain.Identity{}, ErrBadCookie
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Identity{}, ErrBadCookie
	}
	var sess browserSession
	if err := json.Unmarshal(payload, &sess); err != nil {
		return domain.Identity{}, ErrBadCookie
	}
	if time.Now().After(sess.Expires) {
		return domain.Identity{}, ErrCookieExpired
	}
	return sess.Identity, nil
}

func sign(secret []byte, data string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

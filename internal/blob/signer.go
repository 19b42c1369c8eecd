package blob

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

// signer issues and checks HMAC tokens for blob read URLs. A token is
// "{expiryUnix}.{hexSig}" where the signature covers path and expiry,
// so a token for one artifact cannot be replayed against another.
type signer struct {
	key []byte
}

func newSigner(key string) *signer {
	return &signer{key: []byte(key)}
}

func (s *signer) sign(path string, expiry int64) string {
	mac := hmac.New(sha256.New, s.key)
	fmt.Fprintf(mac, "%s|%d", path, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}

// token returns a signed token valid until now+ttl.
func (s *signer) token(path string, ttl time.Duration) string {
	expiry := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%d.%s", expiry, s.sign(path, expiry))
}

// verify checks the token signature and expiry for the path.
func (s *signer) verify(path, token string) bool {
	expStr, sig, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	expiry, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || time.Now().Unix() > expiry {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.sign(path, expiry)))
}

// SignedURL returns a time-limited read URL for the path, served by the
// artifacts endpoint.
func (s *Store) SignedURL(path string, ttl time.Duration) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty blob path")
	}
	token := s.signer.token(path, ttl)
	return fmt.Sprintf("%s/api/artifacts/%s?token=%s", s.base, path, url.QueryEscape(token)), nil
}

// VerifyToken checks a signed-URL token for the path.
func (s *Store) VerifyToken(path, token string) bool {
	return s.signer.verify(path, token)
}

package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// SignerService produces time-boxed download URLs for assets that have
// already been validated and authorized. It signs path and expiry with
// HMAC-SHA256; it does not serve the assets themselves.
type SignerService struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewSignerService(secret string, ttl time.Duration) *SignerService {
	return &SignerService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// SignURL appends an expiry and signature to the asset path.
func (s *SignerService) SignURL(path string) string {
	expires := s.now().Add(s.ttl).Unix()
	sig := s.sign(path, expires)
	return fmt.Sprintf("%s?expires=%d&sig=%s", path, expires, sig)
}

// Verify checks a signature produced by SignURL. Comparison is constant
// time, and expired signatures never verify.
func (s *SignerService) Verify(path string, expires int64, sig string) bool {
	if s.now().Unix() > expires {
		return false
	}
	expected := s.sign(path, expires)
	return hmac.Equal([]byte(sig), []byte(expected))
}

func (s *SignerService) sign(path string, expires int64) string {
	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write([]byte(path))
	h.Write([]byte(":"))
	h.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

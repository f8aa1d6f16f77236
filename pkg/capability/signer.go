package capability

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformed is returned when a token cannot be decoded.
	ErrMalformed = errors.New("malformed edit token")

	// ErrSignature is returned when the token was not issued by this signer or names another reservation.
	ErrSignature = errors.New("invalid edit token signature")

	// ErrExpired is returned once the token's lifetime has elapsed.
	ErrExpired = errors.New("edit token expired")
)

const scope = "reservation-edit"

// Signer issues and verifies edit capability tokens for reservations.
// Tokens are never persisted; possession of a valid token is the credential.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a token authorising edits of reservationID until the returned expiry.
func (s *Signer) Issue(reservationID string) (string, time.Time, error) {
	if reservationID == "" {
		return "", time.Time{}, fmt.Errorf("reservation id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{exp, s.sign(reservationID, exp)}, ".")
	return token, expiresAt, nil
}

// Verify checks that token authorises edits of reservationID.
func (s *Signer) Verify(token, reservationID string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ErrMalformed
	}
	expUnix, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrMalformed
	}
	expected := s.sign(reservationID, parts[0])
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return ErrSignature
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return ErrExpired
	}
	return nil
}

func (s *Signer) sign(reservationID, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(scope + "|" + reservationID + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}

// Package auth issues and checks the short-lived, session-scoped tokens that
// guard every calendar endpoint.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	SessionCookie   = "eventcal_session"
	DefaultLifetime = 24 * time.Hour

	nonceLength = 20
)

var ErrInvalidNonce = errors.New("invalid nonce")

// Nonces signs action|session pairs per time tick. A nonce stays valid for
// the tick it was issued in and the one after, so its lifetime is between
// half and the full configured duration.
type Nonces struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

type NonceOption func(*Nonces)

func WithNow(now func() time.Time) NonceOption {
	return func(n *Nonces) {
		n.now = now
	}
}

// NewNonces builds a signer. An empty secret is replaced by a random one,
// which invalidates outstanding nonces on every restart.
func NewNonces(secret string, lifetime time.Duration, opts ...NonceOption) *Nonces {
	if lifetime < 2*time.Second {
		lifetime = DefaultLifetime
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("auth: read random secret: %v", err))
		}
		slog.Warn("auth secret not configured; using a random secret for this process")
	}

	n := &Nonces{secret: key, lifetime: lifetime, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Issue returns the nonce for action in session at the current tick.
func (n *Nonces) Issue(action, session string) string {
	return n.sign(n.tick(), action, session)
}

// Verify accepts nonces from the current or previous tick.
func (n *Nonces) Verify(nonce, action, session string) error {
	if nonce == "" || session == "" {
		return ErrInvalidNonce
	}
	tick := n.tick()
	for _, t := range []int64{tick, tick - 1} {
		if hmac.Equal([]byte(nonce), []byte(n.sign(t, action, session))) {
			return nil
		}
	}
	return ErrInvalidNonce
}

func (n *Nonces) tick() int64 {
	half := int64(n.lifetime/time.Second) / 2
	now := n.now().Unix()
	return (now + half - 1) / half
}

func (n *Nonces) sign(tick int64, action, session string) string {
	mac := hmac.New(sha256.New, n.secret)
	fmt.Fprintf(mac, "%d|%s|%s", tick, action, session)
	return hex.EncodeToString(mac.Sum(nil))[:nonceLength]
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Package credentials verifies the bearer credentials presented to the API.
//
// The API is gated by a single shared secret. Store keeps that check behind
// one capability so per-client credentials (SignedToken) can sit next to it
// without the HTTP layer knowing the difference.
package credentials

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNoStores          = errors.New("no credential store configured")
)

// SharedClientID identifies callers that presented the shared secret.
const SharedClientID = "shared"

// Store verifies a presented credential and returns the client it belongs to.
type Store interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// StaticToken accepts exactly one configured secret.
type StaticToken struct {
	token []byte
}

func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: []byte(token)}
}

func (s *StaticToken) Verify(_ context.Context, credential string) (string, error) {
	if len(s.token) == 0 || credential == "" {
		return "", ErrInvalidCredential
	}
	if subtle.ConstantTimeCompare(s.token, []byte(credential)) != 1 {
		return "", ErrInvalidCredential
	}
	return SharedClientID, nil
}

// BcryptToken accepts the shared secret when only its bcrypt hash is
// configured.
type BcryptToken struct {
	hash []byte
}

func NewBcryptToken(hash string) (*BcryptToken, error) {
	hash = strings.TrimSpace(hash)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, err
	}
	return &BcryptToken{hash: []byte(hash)}, nil
}

func (s *BcryptToken) Verify(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(credential)); err != nil {
		return "", ErrInvalidCredential
	}
	return SharedClientID, nil
}

// HashToken returns the bcrypt hash to put in API_TOKEN_BCRYPT.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("token is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Chain tries each store in order and returns the first success.
type Chain []Store

func (c Chain) Verify(ctx context.Context, credential string) (string, error) {
	if len(c) == 0 {
		return "", ErrNoStores
	}
	for _, store := range c {
		clientID, err := store.Verify(ctx, credential)
		if err == nil {
			return clientID, nil
		}
	}
	return "", ErrInvalidCredential
}

// Options selects which stores NewStore chains together.
type Options struct {
	Token       string
	TokenBcrypt string
	JWTSecret   string
	JWTIssuer   string
}

// NewStore builds the store for the configured credentials. The shared secret
// (plain or hashed) is checked first, signed client tokens second.
func NewStore(opts Options) (Store, error) {
	var chain Chain
	if opts.Token != "" {
		chain = append(chain, NewStaticToken(opts.Token))
	}
	if opts.TokenBcrypt != "" {
		hashed, err := NewBcryptToken(opts.TokenBcrypt)
		if err != nil {
			return nil, err
		}
		chain = append(chain, hashed)
	}
	if opts.JWTSecret != "" {
		signed, err := NewSignedToken(opts.JWTSecret, opts.JWTIssuer)
		if err != nil {
			return nil, err
		}
		chain = append(chain, signed)
	}
	if len(chain) == 0 {
		return nil, ErrNoStores
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

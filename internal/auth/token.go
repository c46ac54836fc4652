// Package auth issues and reads the tokens players use to play a game.
package auth

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for tokens that are malformed, expired,
// signed with another key or issued for another game.
var ErrInvalidToken = errors.New("auth: invalid token")

type (
	// TokenizerConfig describes a Tokenizer.
	TokenizerConfig struct {
		// KeyReader supplies the random signing key.
		KeyReader io.Reader
		// Now returns the current time. Defaults to time.Now.
		Now func() time.Time
		// Validity is how long a token stays valid after it is issued.
		Validity time.Duration
	}

	// Tokenizer creates and reads player tokens.
	Tokenizer struct {
		method   jwt.SigningMethod
		key      []byte
		now      func() time.Time
		validity time.Duration
	}

	playerClaims struct {
		Color string `json:"color,omitempty"`
		jwt.RegisteredClaims // pseudo in Subject, game id in Audience
	}
)

// NewTokenizer reads a 64 byte signing key from the config's KeyReader.
func (cfg TokenizerConfig) NewTokenizer() (*Tokenizer, error) {
	if cfg.KeyReader == nil {
		return nil, fmt.Errorf("auth: key reader required")
	}
	if cfg.Validity <= 0 {
		return nil, fmt.Errorf("auth: token validity must be positive")
	}
	key := make([]byte, 64)
	if _, err := io.ReadFull(cfg.KeyReader, key); err != nil {
		return nil, fmt.Errorf("auth: generating key: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Tokenizer{
		method:   jwt.SigningMethodHS256,
		key:      key,
		now:      now,
		validity: cfg.Validity,
	}, nil
}

// Create signs a token for a player of a game.
func (t *Tokenizer) Create(gameID, pseudo, color string) (string, error) {
	now := t.now()
	claims := playerClaims{
		Color: color,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pseudo,
			Audience:  jwt.ClaimStrings{gameID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.validity)),
		},
	}
	return jwt.NewWithClaims(t.method, claims).SignedString(t.key)
}

// ReadPseudo returns the player pseudo of a token issued for gameID.
func (t *Tokenizer) ReadPseudo(gameID, tokenString string) (string, error) {
	var claims playerClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(tokenString, &claims, t.keyFunc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	now := t.now()
	switch {
	case !claims.VerifyExpiresAt(now, true):
		return "", fmt.Errorf("%w: expired", ErrInvalidToken)
	case !claims.VerifyNotBefore(now, true):
		return "", fmt.Errorf("%w: not valid yet", ErrInvalidToken)
	case !claims.VerifyAudience(gameID, true):
		return "", fmt.Errorf("%w: issued for another game", ErrInvalidToken)
	case claims.Subject == "":
		return "", fmt.Errorf("%w: no player", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// keyFunc checks the signing method before handing out the key.
func (t *Tokenizer) keyFunc(token *jwt.Token) (any, error) {
	if token.Method != t.method {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return t.key, nil
}

package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

// Config holds authenticator settings, injected by the caller.
type Config struct {
	Enabled   bool
	Username  string
	Password  string // plaintext or a bcrypt hash
	JWTSecret string
	JWTExpiry time.Duration
}

// Authenticator verifies operator credentials and issues tokens for the
// observer surface. When disabled it accepts everything.
type Authenticator struct {
	enabled      bool
	username     string
	passwordHash []byte
	jwtManager   *JWTManager
}

// NewAuthenticator creates an authenticator from injected configuration.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	a := &Authenticator{
		enabled:    cfg.Enabled,
		username:   cfg.Username,
		jwtManager: NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry),
	}

	if cfg.Enabled {
		if cfg.Password == "" {
			return nil, errors.New("auth enabled but no password configured")
		}
		// Accept a pre-hashed bcrypt password as-is.
		if len(cfg.Password) == 60 && cfg.Password[0] == '$' {
			a.passwordHash = []byte(cfg.Password)
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			a.passwordHash = hash
		}
	}

	return a, nil
}

// Enabled reports whether authentication is required.
func (a *Authenticator) Enabled() bool {
	return a.enabled
}

// Login verifies credentials and returns a signed token.
func (a *Authenticator) Login(username, password string) (string, error) {
	if !a.enabled {
		return "", ErrAuthDisabled
	}
	if username != a.username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.jwtManager.Generate(username)
}

// VerifyToken validates a bearer token.
func (a *Authenticator) VerifyToken(token string) (*Claims, error) {
	return a.jwtManager.Verify(token)
}

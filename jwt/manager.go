package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Class distinguishes access tokens from refresh tokens.
type Class string

const (
	// ClassAccess marks a short-lived token presented on every request.
	ClassAccess Class = "access"
	// ClassRefresh marks a long-lived token exchanged for new access tokens.
	ClassRefresh Class = "refresh"
)

// MinKeyLength is the smallest accepted HMAC signing key, in bytes.
const MinKeyLength = 32

var (
	// ErrMalformed is returned for any token that cannot be trusted: bad
	// encoding, bad signature, wrong algorithm, wrong class or invalid claims.
	ErrMalformed = errors.New("jwt: malformed token")
	// ErrExpired is returned for a correctly signed token past its expiry.
	ErrExpired = errors.New("jwt: token expired")
)

// Config defines the signing key and token lifetimes used by a Manager.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SigningKey []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	KeyID      string
}

// Manager issues and verifies tokens. It holds no mutable state and is safe
// for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// Claims is the verified content of a token.
type Claims struct {
	Class Class `json:"cls"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.AccessTTL > cfg.RefreshTTL {
		return nil, errors.New("access TTL must not exceed refresh TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("hs256 requires signing key")
	}
	if len(cfg.SigningKey) < MinKeyLength {
		return nil, fmt.Errorf("hs256 signing key must be at least %d bytes", MinKeyLength)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	cfg.SigningKey = append([]byte(nil), cfg.SigningKey...)

	return &Manager{config: cfg, now: time.Now}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// IssueAccess signs an access token for subject with the configured access TTL.
func (j *Manager) IssueAccess(subject string) (string, error) {
	return j.Issue(subject, ClassAccess, j.config.AccessTTL)
}

// IssueRefresh signs a refresh token for subject with the configured refresh TTL.
func (j *Manager) IssueRefresh(subject string) (string, error) {
	return j.Issue(subject, ClassRefresh, j.config.RefreshTTL)
}

// Issue signs a token of the given class for subject, expiring after ttl.
// Every token carries a fresh jti, so two tokens issued within the same
// second for the same subject still differ.
func (j *Manager) Issue(subject string, class Class, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("jwt: empty subject")
	}
	if class != ClassAccess && class != ClassRefresh {
		return "", fmt.Errorf("jwt: unknown token class %q", class)
	}
	if ttl <= 0 {
		return "", errors.New("jwt: non-positive ttl")
	}

	now := j.now()
	claims := Claims{
		Class: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    j.config.Issuer,
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}
	return token.SignedString(j.config.SigningKey)
}

// Verify checks the signature and claims of token and returns its claims.
// The signature is checked before expiry, so ErrExpired implies the token
// was genuinely issued by this key.
func (j *Manager) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return j.config.SigningKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

// VerifyClass is Verify plus a check that the token is of the wanted class.
func (j *Manager) VerifyClass(tokenStr string, class Class) (*Claims, error) {
	claims, err := j.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Class != class {
		return nil, fmt.Errorf("%w: expected %s token", ErrMalformed, class)
	}
	return claims, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membercrm/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token revoked")
)

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Revocations remembers logged-out token ids until the token would have expired.
type Revocations interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Sessions struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoked Revocations
	now     func() time.Time
}

func NewSessions(secret []byte, ttl time.Duration, issuer string, revoked Revocations) *Sessions {
	return &Sessions{secret: secret, ttl: ttl, issuer: issuer, revoked: revoked, now: time.Now}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs an HS256 token carrying the user's id and role.
func (s *Sessions) Issue(user models.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   NormalizeRole(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, claims, nil
}

// Parse validates signature, expiry and revocation.
func (s *Sessions) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}
	return claims, nil
}

// Revoke blocks the token until its natural expiry.
func (s *Sessions) Revoke(ctx context.Context, claims *Claims) error {
	if s.revoked == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(s.now()); remaining > 0 {
			ttl = remaining
		}
	}
	return s.revoked.Revoke(ctx, claims.ID, ttl)
}

type RedisRevocations struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client, keyPrefix: "crm:revoked:"}
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// MemoryRevocations is the single-instance fallback when Redis is not configured.
type MemoryRevocations struct {
	c *gocache.Cache
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{c: gocache.New(time.Hour, 10*time.Minute)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.c.Set(jti, struct{}{}, ttl)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, found := m.c.Get(jti)
	return found, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "fittrack-session||"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrSessionExpired = errors.New("session expired")
)

// Claims carried by every issued bearer token.
type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies JWTs. Besides the signature/exp check done by
// the jwt library, every token is registered in redis with the same TTL, so a
// logout (or a redis flush) invalidates tokens server-side before they expire.
type Service struct {
	secret      []byte
	ttl         time.Duration
	redisClient *redis.Client
	// ability to inject time for unit testing
	NowFunc func() time.Time
}

func NewService(secret []byte, ttl time.Duration, redisClient *redis.Client) *Service {
	return &Service{
		secret:      secret,
		ttl:         ttl,
		redisClient: redisClient,
		NowFunc:     time.Now,
	}
}

func (s *Service) IssueToken(ctx context.Context, userID int64, role string) (string, error) {
	now := s.NowFunc()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	sessionKey := sessionKeyPrefix + token
	if err := s.redisClient.Set(ctx, sessionKey, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return token, nil
}

func (s *Service) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(
		token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	// the token itself is fine, now check the server-side session
	sessionKey := sessionKeyPrefix + token
	if err := s.redisClient.Get(ctx, sessionKey).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return claims, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	sessionKey := sessionKeyPrefix + token
	removed, err := s.redisClient.Del(ctx, sessionKey).Result()
	if err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	if removed == 0 {
		return ErrSessionExpired
	}
	return nil
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dchest/captcha"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/roster-backend/internal/config"
)

const captchaLength = 4

// CaptchaChallenge is an issued captcha: the token to echo back and the PNG to show.
type CaptchaChallenge struct {
	Token string
	PNG   []byte
}

// CaptchaService issues single-use image captchas backed by Redis.
type CaptchaService struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCaptchaService creates a new CaptchaService.
func NewCaptchaService(rdb *redis.Client, ttl time.Duration) *CaptchaService {
	return &CaptchaService{rdb: rdb, ttl: ttl}
}

// Issue generates a fresh code, stores it under a new token and renders it.
func (s *CaptchaService) Issue(ctx context.Context) (*CaptchaChallenge, error) {
	digits := captcha.RandomDigits(captchaLength)
	code := make([]byte, len(digits))
	for i, d := range digits {
		code[i] = '0' + d
	}

	token := uuid.New().String()
	if err := s.rdb.Set(ctx, config.CacheKey.CaptchaKey(token), string(code), s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store captcha: %w", err)
	}

	var buf bytes.Buffer
	if _, err := captcha.NewImage(token, digits, captcha.StdWidth, captcha.StdHeight).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render captcha: %w", err)
	}
	return &CaptchaChallenge{Token: token, PNG: buf.Bytes()}, nil
}

// Verify consumes the token and compares the code. A token can be checked only once.
func (s *CaptchaService) Verify(ctx context.Context, token, code string) error {
	if token == "" {
		return ErrCaptchaInvalid
	}
	expected, err := s.rdb.GetDel(ctx, config.CacheKey.CaptchaKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCaptchaInvalid
	}
	if err != nil {
		return storeFailure("consume captcha", err)
	}
	if strings.TrimSpace(code) != expected {
		return ErrCaptchaInvalid
	}
	return nil
}

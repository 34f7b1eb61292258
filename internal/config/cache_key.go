package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CaptchaKey returns the key holding the expected digits for a captcha token
func (r *CacheKeyStruct) CaptchaKey(token string) string {
	return fmt.Sprintf("captcha:%s", token)
}

// SessionKey returns the key mapping a token's jti to an identity id
func (r *CacheKeyStruct) SessionKey(jti string) string {
	return fmt.Sprintf("session:%s", jti)
}

// RateLimitKey returns the fixed-window counter key for a scope and client
func (r *CacheKeyStruct) RateLimitKey(scope, client string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, client, window)
}

// AuditChannel returns the Redis PubSub channel carrying committed audit entries
func (r *CacheKeyStruct) AuditChannel() string {
	return "audit:events"
}

var CacheKey = NewCacheKeyStruct()

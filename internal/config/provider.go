package config

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// Provider serves fraud thresholds and feature toggles. Values are read fresh
// on every evaluation so operators can retune a live incident without a
// deploy; callers pass the hardcoded fallback used when a key is absent or
// the backend is unreachable.
type Provider interface {
	Int(ctx context.Context, key string, fallback int) int
	FeatureEnabled(ctx context.Context, name string, fallback bool) bool
}

const (
	settingKeyPrefix = "fraudwatch:setting:"
	featureKeyPrefix = "fraudwatch:feature:"

	redisOpTimeout = 5 * time.Second
)

type RedisProvider struct {
	client *redis.Client
}

func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

func (p *RedisProvider) Int(ctx context.Context, key string, fallback int) int {
	raw, ok := p.get(ctx, settingKeyPrefix+key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Warn("Ignoring non-numeric fraud setting", "key", key, "value", raw)
		return fallback
	}
	return parsed
}

func (p *RedisProvider) FeatureEnabled(ctx context.Context, name string, fallback bool) bool {
	raw, ok := p.get(ctx, featureKeyPrefix+name)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "enabled":
		return true
	case "0", "false", "off", "disabled":
		return false
	default:
		log.Warn("Ignoring unrecognised feature toggle value", "feature", name, "value", raw)
		return fallback
	}
}

func (p *RedisProvider) get(ctx context.Context, key string) (string, bool) {
	if p == nil || p.client == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	raw, err := p.client.Get(opCtx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn("Fraud setting lookup failed, using fallback", "key", key, "error", err)
		}
		return "", false
	}
	return raw, true
}

// StaticProvider serves fixed values; used in tests and as a no-backend
// fallback where every lookup resolves to the hardcoded defaults.
type StaticProvider struct {
	Settings map[string]int
	Features map[string]bool
}

func (p *StaticProvider) Int(_ context.Context, key string, fallback int) int {
	if p != nil {
		if value, ok := p.Settings[key]; ok {
			return value
		}
	}
	return fallback
}

func (p *StaticProvider) FeatureEnabled(_ context.Context, name string, fallback bool) bool {
	if p != nil {
		if value, ok := p.Features[name]; ok {
			return value
		}
	}
	return fallback
}

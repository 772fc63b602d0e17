package service

import (
	"context"
	"crypto/sha1"
	"elearn_backend/internal/config"
	"elearn_backend/internal/util"
	"elearn_backend/pkg/logger"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const translationCachePrefix = "translation:"

type gradioRequest struct {
	Data []string `json:"data"`
}

type gradioResponse struct {
	Data []interface{} `json:"data"`
}

// TranslationService 调用 Gradio 翻译接口，结果可缓存到 Redis
type TranslationService struct {
	Redis *redis.Client

	mu       sync.RWMutex
	client   *resty.Client
	endpoint string
	ttl      time.Duration
}

func NewTranslationService(cfg config.TranslationConfig, rdb *redis.Client) *TranslationService {
	s := &TranslationService{Redis: rdb}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig 配置热更新
func (s *TranslationService) UpdateConfig(cfg config.TranslationConfig) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	s.mu.Lock()
	s.client = client
	s.endpoint = cfg.Endpoint
	s.ttl = ttl
	s.mu.Unlock()
}

func cacheKey(text string) string {
	sum := sha1.Sum([]byte(text))
	return translationCachePrefix + hex.EncodeToString(sum[:])
}

func (s *TranslationService) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", util.ErrEmptyText
	}

	s.mu.RLock()
	client, endpoint, ttl := s.client, s.endpoint, s.ttl
	s.mu.RUnlock()

	key := cacheKey(text)
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
			return cached, nil
		} else if err != redis.Nil {
			logger.Log.Warn("Translation cache read failed", zap.Error(err))
		}
	}

	var result gradioResponse
	resp, err := client.R().
		SetContext(ctx).
		SetBody(gradioRequest{Data: []string{text}}).
		SetResult(&result).
		Post(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranslationFailed, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: upstream status %d", util.ErrTranslationFailed, resp.StatusCode())
	}

	translated := ""
	if len(result.Data) > 0 {
		if str, ok := result.Data[0].(string); ok {
			translated = str
		} else if result.Data[0] != nil {
			translated = fmt.Sprint(result.Data[0])
		}
	}

	if s.Redis != nil && translated != "" {
		if err := s.Redis.Set(ctx, key, translated, ttl).Err(); err != nil {
			logger.Log.Warn("Translation cache write failed", zap.Error(err))
		}
	}
	return translated, nil
}

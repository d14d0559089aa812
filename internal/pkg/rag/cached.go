package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/pkg/cache"
	"github.com/weizhangcs/vss-cloud/internal/pkg/narration"
)

// CachedRetriever 带缓存的检索器
// 同一查询在 TTL 内命中缓存，降低检索服务压力
// 缓存故障只记日志，退化为直连检索
type CachedRetriever struct {
	inner narration.Retriever
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewCachedRetriever 包装检索器加缓存；ttl <= 0 或 cache 为 nil 时原样透传
func NewCachedRetriever(inner narration.Retriever, redisCache *cache.RedisCache, ttl time.Duration) narration.Retriever {
	if redisCache == nil || ttl <= 0 {
		return inner
	}
	return &CachedRetriever{
		inner: inner,
		cache: redisCache,
		ttl:   ttl,
	}
}

// Retrieve 先查缓存，未命中再走检索服务
func (r *CachedRetriever) Retrieve(ctx context.Context, query string, topK int) ([]narration.RetrievalChunk, error) {
	key := cache.RetrievalCacheKey(queryHash(query, topK))

	var cached []narration.RetrievalChunk
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		log.Debug().Str("key", key).Msg("检索缓存命中")
		return cached, nil
	}

	chunks, err := r.inner.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, chunks, r.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("写入检索缓存失败")
	}
	return chunks, nil
}

func queryHash(query string, topK int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", topK, query)))
	return hex.EncodeToString(sum[:])
}

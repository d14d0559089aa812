package dubbing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/config"
	"github.com/weizhangcs/vss-cloud/internal/pkg/cache"
	"github.com/weizhangcs/vss-cloud/internal/pkg/cosyvoice"
)

// 语音复刻 provider 的单次合成默认字符上限
const cosyVoiceDefaultMaxChars = 90

// CosyVoiceStrategy CosyVoice 语音复刻策略
// 单次合成有字符上限，需要切分后的分段；首次使用某模版前上传参考音频，
// 换取的 reference_audio_id 记录在 redis，后续请求直接复用
type CosyVoiceStrategy struct {
	client *cosyvoice.Client
	cache  *cache.RedisCache
}

// NewCosyVoiceStrategy 创建 CosyVoice 复刻策略
func NewCosyVoiceStrategy(client *cosyvoice.Client, redisCache *cache.RedisCache) *CosyVoiceStrategy {
	return &CosyVoiceStrategy{
		client: client,
		cache:  redisCache,
	}
}

func (s *CosyVoiceStrategy) Name() string {
	return "cosyvoice"
}

func (s *CosyVoiceStrategy) Capability() Capability {
	return CapabilityChunked
}

func (s *CosyVoiceStrategy) DefaultMaxChars() int {
	return cosyVoiceDefaultMaxChars
}

// EnsureReferenceAudio 确保模版的参考音频已注册
// 注册记录按模版名缓存，缓存不可用或未命中时重新上传
func (s *CosyVoiceStrategy) EnsureReferenceAudio(ctx context.Context, templateName string, ref *config.ReferenceAudio) (string, error) {
	if ref == nil || ref.AudioPath == "" {
		return "", fmt.Errorf("voice replication template %s has no reference audio", templateName)
	}

	key := cache.ReferenceAudioKey(templateName)
	if s.cache != nil {
		var cached string
		err := s.cache.Get(ctx, key, &cached)
		if err == nil && cached != "" {
			log.Debug().Str("template", templateName).Str("reference_audio_id", cached).Msg("参考音频注册记录命中")
			return cached, nil
		}
		if err != nil && err != redis.Nil {
			log.Warn().Err(err).Str("template", templateName).Msg("读取参考音频注册记录失败")
		}
	}

	audioID, err := s.client.UploadReferenceAudio(ctx, ref.AudioPath, ref.Text)
	if err != nil {
		return "", fmt.Errorf("upload reference audio for template %s: %w", templateName, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, audioID, cache.ReferenceAudioTTL); err != nil {
			log.Warn().Err(err).Str("template", templateName).Msg("写入参考音频注册记录失败")
		}
	}

	return audioID, nil
}

// Synthesize 以参考音色合成一段文本
func (s *CosyVoiceStrategy) Synthesize(ctx context.Context, text string, params *SynthesisParams) (*AudioResult, error) {
	if s.client == nil {
		return nil, fmt.Errorf("cosyvoice client is not configured")
	}
	if params.ReferenceAudioID == "" {
		return nil, fmt.Errorf("reference audio id is required for voice replication")
	}

	req := &cosyvoice.SynthesizeRequest{
		Text:             text,
		ReferenceAudioID: params.ReferenceAudioID,
		Instruct:         params.Instruct,
		Speed:            params.Speed,
	}
	if mode, ok := params.Extra["mode"]; ok {
		req.Mode = mode
	}
	if speedStr, ok := params.Extra["speed"]; ok && params.Speed <= 0 {
		if speed, err := strconv.ParseFloat(speedStr, 64); err == nil {
			req.Speed = speed
		}
	}

	result, err := s.client.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Float64("duration", result.Duration).
		Int("bytes", len(result.AudioData)).
		Msg("CosyVoice 合成完成")

	// CosyVoice 固定返回 WAV 编码
	return &AudioResult{
		Data:     result.AudioData,
		Duration: result.Duration,
		Format:   "wav",
	}, nil
}

package dubbing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/pkg/tts"
)

// VolcengineStrategy 火山引擎长文本合成策略
// 支持整段长文本，无需切分
type VolcengineStrategy struct {
	client *tts.Client
}

// NewVolcengineStrategy 创建火山引擎合成策略
func NewVolcengineStrategy(client *tts.Client) *VolcengineStrategy {
	return &VolcengineStrategy{client: client}
}

func (s *VolcengineStrategy) Name() string {
	return "volcengine"
}

func (s *VolcengineStrategy) Capability() Capability {
	return CapabilityLongForm
}

func (s *VolcengineStrategy) DefaultMaxChars() int {
	return 0
}

// Synthesize 合成一段文本
// 导演指令通过 style 参数下发，provider 不识别的参数原样透传
func (s *VolcengineStrategy) Synthesize(ctx context.Context, text string, params *SynthesisParams) (*AudioResult, error) {
	if s.client == nil {
		return nil, fmt.Errorf("volcengine tts client is not configured")
	}

	extraParams := make(map[string]interface{}, len(params.Extra)+1)
	for k, v := range params.Extra {
		extraParams[k] = v
	}
	if params.Instruct != "" {
		extraParams["style"] = params.Instruct
	}

	result, err := s.client.Synthesize(ctx, &tts.SynthesizeRequest{
		Text:       text,
		VoiceType:  params.VoiceType,
		Encoding:   params.AudioFormat,
		SpeedRatio: params.Speed,
		Params:     extraParams,
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Float64("duration", result.Duration).
		Int("bytes", len(result.AudioData)).
		Msg("火山引擎合成完成")

	format := params.AudioFormat
	if format == "" {
		format = "mp3"
	}

	return &AudioResult{
		Data:     result.AudioData,
		Duration: result.Duration,
		Format:   format,
	}, nil
}

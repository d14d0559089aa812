package dubbing

import (
	"context"

	"github.com/weizhangcs/vss-cloud/internal/config"
)

// Capability 策略能力标签
// 调度按能力而非 provider 名称分支
type Capability string

const (
	// CapabilityLongForm 支持长文本整段合成，接受导演指令
	CapabilityLongForm Capability = "long_form"
	// CapabilityChunked 单次合成有字符上限，需要切分后的分段列表
	CapabilityChunked Capability = "chunked"
)

// SynthesisParams 单次合成参数，由模版与请求覆盖合并而来
type SynthesisParams struct {
	VoiceType        string
	AudioFormat      string // mp3 / wav
	Speed            float64
	Instruct         string // 导演指令，不支持的策略忽略
	ReferenceAudioID string // 语音复刻专用
	Extra            map[string]string
}

// AudioResult 单次合成产物
type AudioResult struct {
	Data     []byte
	Duration float64
	Format   string
}

// Strategy 语音合成策略
// 每个 provider 一个实现，调度方不直接感知 provider 名称
type Strategy interface {
	// Name 策略标识，与 VoiceProfile.Provider 对应
	Name() string
	// Capability 能力标签，决定是否需要文本切分
	Capability() Capability
	// DefaultMaxChars 模版未指定时的单次合成字符上限（0 表示不限）
	DefaultMaxChars() int
	// Synthesize 合成一段文本
	Synthesize(ctx context.Context, text string, params *SynthesisParams) (*AudioResult, error)
}

// ReplicationStrategy 语音复刻策略扩展
// 首次使用某模版前需上传参考音频换取 reference_audio_id
type ReplicationStrategy interface {
	Strategy
	EnsureReferenceAudio(ctx context.Context, templateName string, ref *config.ReferenceAudio) (string, error)
}

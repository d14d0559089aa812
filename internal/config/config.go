package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server    ServerConfig            `mapstructure:"server"`
	AI        AIConfig                `mapstructure:"ai"`
	TTS       TTSConfig               `mapstructure:"tts"`
	CosyVoice CosyVoiceConfig         `mapstructure:"cosyvoice"`
	RAG       RAGConfig               `mapstructure:"rag"`
	Narration NarrationConfig         `mapstructure:"narration"`
	Dubbing   DubbingConfig           `mapstructure:"dubbing"`
	Templates map[string]VoiceProfile `mapstructure:"voice_templates"`
	Log       LogConfig               `mapstructure:"log"`
	Mongo     MongoConfig             `mapstructure:"mongo"`
	Redis     RedisConfig             `mapstructure:"redis"`
	Storage   StorageConfig           `mapstructure:"storage"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig 文本生成服务配置（解说词生成 / 缩写）
type AIConfig struct {
	Provider string          `mapstructure:"provider"` // openai / azure / ark
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// TTSConfig 火山引擎长文本 TTS 配置
type TTSConfig struct {
	APIURL      string `mapstructure:"api_url"`
	AccessToken string `mapstructure:"access_token"`
	AppID       string `mapstructure:"app_id"`
	Cluster     string `mapstructure:"cluster"`
	VoiceType   string `mapstructure:"voice_type"`
	SampleRate  int    `mapstructure:"sample_rate"`
}

// CosyVoiceConfig PAI-EAS 部署的 CosyVoice 语音复刻服务配置
type CosyVoiceConfig struct {
	ServiceURL string        `mapstructure:"service_url"`
	Token      string        `mapstructure:"token"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RAGConfig 检索服务配置
type RAGConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Corpus   string        `mapstructure:"corpus"` // 语料库标识，随检索请求透传
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // 检索结果缓存时间（0 表示不缓存）
}

// NarrationConfig 解说生成策略默认值（请求可覆盖）
type NarrationConfig struct {
	SpeakingRate      float64 `mapstructure:"speaking_rate"`      // 语速：字符/秒
	OverflowTolerance float64 `mapstructure:"overflow_tolerance"` // 时长容忍度比例（负数更严格）
	MaxRefineRetries  int     `mapstructure:"max_refine_retries"` // 缩写重试上限
	RAGTopK           int     `mapstructure:"rag_top_k"`          // 检索片段数
	RefineConcurrency int     `mapstructure:"refine_concurrency"` // 并发缩写的片段数上限
	MetadataDir       string  `mapstructure:"metadata_dir"`       // 模版目录（query/prompt/instruct JSON）
	Lang              string  `mapstructure:"lang"`               // 默认语言
}

// DubbingConfig 配音渲染配置
type DubbingConfig struct {
	WorkDir          string `mapstructure:"work_dir"`          // 音频分片工作目录
	SynthConcurrency int    `mapstructure:"synth_concurrency"` // 分片合成并发上限
}

// VoiceProfile 语音合成模版（按名字在请求中引用）
type VoiceProfile struct {
	Provider    string            `mapstructure:"provider"`     // volcengine / cosyvoice
	Method      string            `mapstructure:"method"`       // direct / voice_replication
	AudioFormat string            `mapstructure:"audio_format"` // mp3 / wav
	MaxChars    int               `mapstructure:"max_chars"`    // 单次合成字符上限（0 表示不限）
	Params      map[string]string `mapstructure:"params"`       // 透传给提供商的参数
	Reference   *ReferenceAudio   `mapstructure:"reference"`    // 语音复刻的参考音频
}

// ReferenceAudio 语音复刻参考音频
type ReferenceAudio struct {
	AudioPath string `mapstructure:"audio_path"` // 本地参考音频路径
	Text      string `mapstructure:"text"`       // 参考音频对应文本
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Narration.SpeakingRate <= 0 {
		return errors.New("narration.speaking_rate must be positive")
	}
	if c.Narration.MaxRefineRetries < 0 {
		return errors.New("narration.max_refine_retries must be >= 0")
	}

	for name, tpl := range c.Templates {
		switch tpl.Method {
		case "", "direct":
		case "voice_replication":
			if tpl.Reference == nil || tpl.Reference.AudioPath == "" {
				return fmt.Errorf("voice template %q: voice_replication requires reference audio", name)
			}
		default:
			return fmt.Errorf("voice template %q: unknown method %q", name, tpl.Method)
		}
	}

	return nil
}

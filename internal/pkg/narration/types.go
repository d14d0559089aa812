package narration

import (
	"fmt"
)

// 叙事范围类型
const (
	ScopeFull         = "full"
	ScopeEpisodeRange = "episode_range"
)

// 叙事视角
const (
	PerspectiveThirdPerson = "third_person"
	PerspectiveFirstPerson = "first_person"
)

// ScopeParams 剧情范围约束
type ScopeParams struct {
	Type  string `json:"type"`            // full / episode_range
	Value []int  `json:"value,omitempty"` // episode_range 时为 [start, end]
}

// CharacterFocus 角色聚焦
type CharacterFocus struct {
	Mode       string   `json:"mode"` // all / specific
	Characters []string `json:"characters,omitempty"`
}

// CustomPrompts 自定义提示词片段
// 当标准 key 无法满足需求时，通过此对象传入自定义文案，支持 {asset_name} 占位符
type CustomPrompts struct {
	NarrativeFocus string `json:"narrative_focus,omitempty"`
	Style          string `json:"style,omitempty"`
}

// ControlParams 控制生成风格和内容的参数
type ControlParams struct {
	NarrativeFocus        string          `json:"narrative_focus"` // general/... 或 custom
	Scope                 ScopeParams     `json:"scope"`
	CharacterFocus        CharacterFocus  `json:"character_focus"`
	Style                 string          `json:"style"` // objective/... 或 custom
	Perspective           string          `json:"perspective"`
	PerspectiveCharacter  string          `json:"perspective_character,omitempty"`
	TargetDurationMinutes int             `json:"target_duration_minutes,omitempty"`
	CustomPrompts         *CustomPrompts  `json:"custom_prompts,omitempty"`
}

// Options 服务级参数（带默认值，请求可覆盖）
type Options struct {
	Lang              string  `json:"lang"`
	SpeakingRate      float64 `json:"speaking_rate"`      // 字符/秒
	OverflowTolerance float64 `json:"overflow_tolerance"` // 正数允许溢出，负数强制留白
	RAGTopK           int     `json:"rag_top_k"`
	MaxRefineRetries  int     `json:"max_refine_retries"`
}

// Validate 校验控制参数，结构性错误在任何外部调用之前拒绝
func (p *ControlParams) Validate() error {
	if p.Perspective == PerspectiveFirstPerson && p.PerspectiveCharacter == "" {
		return &ValidationError{Field: "perspective_character", Reason: "required when perspective is first_person"}
	}
	if p.Perspective != "" && p.Perspective != PerspectiveThirdPerson && p.Perspective != PerspectiveFirstPerson {
		return &ValidationError{Field: "perspective", Reason: fmt.Sprintf("unknown perspective %q", p.Perspective)}
	}
	if p.NarrativeFocus == "custom" && (p.CustomPrompts == nil || p.CustomPrompts.NarrativeFocus == "") {
		return &ValidationError{Field: "custom_prompts.narrative_focus", Reason: "required when narrative_focus is custom"}
	}
	if p.Style == "custom" && (p.CustomPrompts == nil || p.CustomPrompts.Style == "") {
		return &ValidationError{Field: "custom_prompts.style", Reason: "required when style is custom"}
	}
	if p.Scope.Type == ScopeEpisodeRange {
		if len(p.Scope.Value) != 2 || p.Scope.Value[0] > p.Scope.Value[1] {
			return &ValidationError{Field: "scope.value", Reason: "episode_range requires [start, end] with start <= end"}
		}
	}
	return nil
}

// SegmentState 片段校验状态机
type SegmentState string

const (
	StatePending   SegmentState = "pending"
	StateValidated SegmentState = "validated"
	StateRefining  SegmentState = "refining"
	StateExhausted SegmentState = "exhausted" // 重试耗尽，保留末次文本并上报溢出
)

// SegmentMetadata 片段的时长账目
type SegmentMetadata struct {
	TextLen            int     `json:"text_len" bson:"text_len"`
	PredAudioDuration  float64 `json:"pred_audio_duration" bson:"pred_audio_duration"`
	RealVisualDuration float64 `json:"real_visual_duration" bson:"real_visual_duration"`
	DurationLimit      float64 `json:"duration_limit" bson:"duration_limit"`
	OverflowSec        float64 `json:"overflow_sec" bson:"overflow_sec"`
	RefineCount        int     `json:"refine_count" bson:"refine_count"`
	Refined            bool    `json:"refined" bson:"refined"`
}

// Segment 单段解说词
// 由生成环节创建，仅缩写环节可改写文本，定稿后只读
type Segment struct {
	Narration      string          `json:"narration" bson:"narration"`
	SourceSceneIDs []int           `json:"source_scene_ids" bson:"source_scene_ids"`
	State          SegmentState    `json:"state" bson:"state"`
	Metadata       SegmentMetadata `json:"metadata" bson:"metadata"`
}

// Usage 生成服务的用量账目
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens" bson:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens" bson:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens" bson:"total_tokens"`
	Cost             float64 `json:"cost" bson:"cost"`
}

// Add 累加用量
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.Cost += other.Cost
}

// Result 解说词生成结果
type Result struct {
	AssetName string     `json:"asset_name"`
	Query     string     `json:"query"`
	Script    []*Segment `json:"narration_script"`
	Usage     Usage      `json:"usage"`
}

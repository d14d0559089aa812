package narration

import (
	"math"
	"unicode/utf8"

	"github.com/weizhangcs/vss-cloud/internal/pkg/blueprint"
)

// DurationValidator 时长校验器
//
// 核心账目：
//   - predicted = len(text) / speaking_rate （字符数/语速的粗粒度估计，常数可调）
//   - visual    = 关联场景的物理总时长
//   - limit     = visual * (1 + overflow_tolerance)
//
// tolerance 符号约定：负数更严格（强制留白），正数允许溢出
type DurationValidator struct {
	bp           *blueprint.Blueprint
	speakingRate float64
	tolerance    float64
}

// NewDurationValidator 创建时长校验器
func NewDurationValidator(bp *blueprint.Blueprint, speakingRate, tolerance float64) *DurationValidator {
	return &DurationValidator{bp: bp, speakingRate: speakingRate, tolerance: tolerance}
}

// SpeakingRate 当前语速（字符/秒）
func (v *DurationValidator) SpeakingRate() float64 {
	return v.speakingRate
}

// PredictAudioDuration 基于字符数和语速预测音频时长
func (v *DurationValidator) PredictAudioDuration(text string) float64 {
	return round2(float64(utf8.RuneCountInString(text)) / v.speakingRate)
}

// Limit 允许的解说时长上限
func (v *DurationValidator) Limit(visualDuration float64) float64 {
	return round2(visualDuration * (1 + v.tolerance))
}

// MaxChars 时长上限折算的最大字符数，用于缩写指令
func (v *DurationValidator) MaxChars(visualDuration float64) int {
	return int(v.Limit(visualDuration) * v.speakingRate)
}

// Check 校验单个片段并回填时长账目
// 返回 true 表示预测时长未超过上限
func (v *DurationValidator) Check(seg *Segment) bool {
	visual := round2(v.bp.VisualDuration(seg.SourceSceneIDs))
	predicted := v.PredictAudioDuration(seg.Narration)
	limit := v.Limit(visual)

	seg.Metadata.TextLen = utf8.RuneCountInString(seg.Narration)
	seg.Metadata.PredAudioDuration = predicted
	seg.Metadata.RealVisualDuration = visual
	seg.Metadata.DurationLimit = limit
	seg.Metadata.OverflowSec = round2(predicted - limit)
	if seg.Metadata.OverflowSec < 0 {
		seg.Metadata.OverflowSec = 0
	}

	return predicted <= limit
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

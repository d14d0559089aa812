package narration

import (
	"fmt"
	"strings"
)

// PromptBuilder 提示词组装器
// 四段式结构：视角 / 风格 / 焦点+时长约束 / 剧情上下文
type PromptBuilder struct {
	metadata *Metadata
}

// NewPromptBuilder 创建提示词组装器
func NewPromptBuilder(metadata *Metadata) *PromptBuilder {
	return &PromptBuilder{metadata: metadata}
}

// PerspectiveText 视角指令文本
func (pb *PromptBuilder) PerspectiveText(lang string, control *ControlParams) string {
	pack := pb.metadata.Pack(lang)
	key := control.Perspective
	if key == "" {
		key = PerspectiveThirdPerson
	}
	text, ok := pack.Perspectives[key]
	if !ok {
		text = pack.Perspectives[PerspectiveThirdPerson]
	}
	if key == PerspectiveFirstPerson {
		text = strings.ReplaceAll(text, "{character}", control.PerspectiveCharacter)
	}
	return text
}

// StyleText 风格指令文本，custom 风格直接使用调用方传入的文案
func (pb *PromptBuilder) StyleText(lang string, control *ControlParams) string {
	if control.Style == "custom" && control.CustomPrompts != nil {
		return control.CustomPrompts.Style
	}
	pack := pb.metadata.Pack(lang)
	text, ok := pack.Styles[control.Style]
	if !ok {
		text = pack.Styles["objective"]
	}
	return text
}

// FocusText 焦点描述 + 时长约束
// 目标时长折算为具体字数（minutes * 60 * speaking_rate），
// 生成服务收到的是语言无关的长度指令而非模糊的时间概念
func (pb *PromptBuilder) FocusText(lang, assetName string, control *ControlParams, speakingRate float64) string {
	pack := pb.metadata.Pack(lang)

	var focus string
	if control.NarrativeFocus == "custom" && control.CustomPrompts != nil {
		focus = control.CustomPrompts.NarrativeFocus
	} else {
		tpl, ok := pack.Focus[control.NarrativeFocus]
		if !ok {
			tpl = pack.Focus["general"]
		}
		focus = tpl
	}
	focus = strings.ReplaceAll(focus, "{asset_name}", assetName)

	if control.TargetDurationMinutes <= 0 {
		return focus
	}

	var b strings.Builder
	b.WriteString(focus)
	if tpl, ok := pack.Constraints["duration_guideline"]; ok {
		b.WriteString("\n")
		b.WriteString(strings.ReplaceAll(tpl, "{minutes}", fmt.Sprintf("%d", control.TargetDurationMinutes)))
	}
	if tpl, ok := pack.Constraints["char_limit_instruction"]; ok {
		targetChars := int(float64(control.TargetDurationMinutes) * 60 * speakingRate)
		b.WriteString(strings.ReplaceAll(tpl, "{target_chars}", fmt.Sprintf("%d", targetChars)))
	}
	return b.String()
}

// BuildGeneratePrompt 组装生成解说词的完整提示词
// 要求生成服务输出结构化 JSON：narration_script 数组，每段带 source_scene_ids
func (pb *PromptBuilder) BuildGeneratePrompt(lang, assetName string, control *ControlParams, speakingRate float64, context string) string {
	var b strings.Builder

	if lang == "zh" {
		b.WriteString("你是一名专业的影视剧解说词撰写者。\n\n")
		b.WriteString("【视角】\n")
		b.WriteString(pb.PerspectiveText(lang, control))
		b.WriteString("\n\n【风格】\n")
		b.WriteString(pb.StyleText(lang, control))
		b.WriteString("\n\n【本次任务】\n")
		b.WriteString(pb.FocusText(lang, assetName, control, speakingRate))
		b.WriteString("\n\n【输出格式】\n")
		b.WriteString("只输出一个 JSON 对象，不要 markdown 代码块标记，不要任何解释：\n")
		b.WriteString(`{"narration_script":[{"narration":"第一段解说词","source_scene_ids":[1,2]}]}` + "\n")
		b.WriteString("要求：\n")
		b.WriteString("1. 每段解说词对应连续的一个或多个场景，source_scene_ids 按时间线升序\n")
		b.WriteString("2. 同一个场景 id 不得出现在多段中\n")
		b.WriteString("3. 解说词只包含口播文本，禁止任何括号内的舞台指示或音效标记\n")
		b.WriteString("\n【剧情上下文】\n")
	} else {
		b.WriteString("You are a professional narration writer for film and television.\n\n")
		b.WriteString("[Perspective]\n")
		b.WriteString(pb.PerspectiveText(lang, control))
		b.WriteString("\n\n[Style]\n")
		b.WriteString(pb.StyleText(lang, control))
		b.WriteString("\n\n[Task]\n")
		b.WriteString(pb.FocusText(lang, assetName, control, speakingRate))
		b.WriteString("\n\n[Output format]\n")
		b.WriteString("Output a single JSON object, no markdown fences, no commentary:\n")
		b.WriteString(`{"narration_script":[{"narration":"first segment","source_scene_ids":[1,2]}]}` + "\n")
		b.WriteString("Rules:\n")
		b.WriteString("1. Each segment covers one or more consecutive scenes; source_scene_ids ascend along the timeline\n")
		b.WriteString("2. A scene id must never appear in more than one segment\n")
		b.WriteString("3. Narration is spoken text only; no stage directions or sound-effect tags in brackets\n")
		b.WriteString("\n[Story context]\n")
	}

	b.WriteString(context)
	return b.String()
}

// BuildRefinePrompt 组装缩写提示词：压缩到 maxChars 字以内，保持风格
func (pb *PromptBuilder) BuildRefinePrompt(lang string, control *ControlParams, originalText string, maxSeconds float64, maxChars int) string {
	pack := pb.metadata.Pack(lang)
	prompt := pack.Refine
	prompt = strings.ReplaceAll(prompt, "{style}", pb.StyleText(lang, control))
	prompt = strings.ReplaceAll(prompt, "{max_chars}", fmt.Sprintf("%d", maxChars))
	prompt = strings.ReplaceAll(prompt, "{max_seconds}", fmt.Sprintf("%.0f", maxSeconds))
	prompt = strings.ReplaceAll(prompt, "{original_text}", originalText)
	return prompt
}

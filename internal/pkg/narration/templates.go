package narration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// TemplatePack 单一语言的模版集合
// 风格/视角/焦点到指令文本的映射是声明式数据：新增风格只改 JSON，不改代码
type TemplatePack struct {
	Focus        map[string]string `json:"focus"`        // narrative_focus -> 检索意图模版
	Scope        map[string]string `json:"scope"`        // 范围限定子句
	Character    map[string]string `json:"character"`    // 角色聚焦子句
	Perspectives map[string]string `json:"perspectives"` // 视角指令
	Styles       map[string]string `json:"styles"`       // 风格指令
	Constraints  map[string]string `json:"constraints"`  // 时长/字数约束模版
	Refine       string            `json:"refine"`       // 缩写指令模版
}

// Metadata 多语言模版表，支持运行中重载
type Metadata struct {
	mu    sync.RWMutex
	dir   string
	packs map[string]*TemplatePack
}

// LoadMetadata 从目录加载模版表（narration_templates.json），文件缺失时使用内置默认值
func LoadMetadata(dir string) *Metadata {
	m := &Metadata{dir: dir, packs: defaultPacks()}
	if dir != "" {
		if err := m.Reload(); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("使用内置模版，外部模版加载失败")
		}
	}
	return m
}

// Reload 重新读取模版文件，合并覆盖内置默认值
func (m *Metadata) Reload() error {
	path := filepath.Join(m.dir, "narration_templates.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	loaded := map[string]*TemplatePack{}
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	merged := defaultPacks()
	for lang, pack := range loaded {
		base, ok := merged[lang]
		if !ok {
			merged[lang] = pack
			continue
		}
		mergeStringMap(base.Focus, pack.Focus)
		mergeStringMap(base.Scope, pack.Scope)
		mergeStringMap(base.Character, pack.Character)
		mergeStringMap(base.Perspectives, pack.Perspectives)
		mergeStringMap(base.Styles, pack.Styles)
		mergeStringMap(base.Constraints, pack.Constraints)
		if pack.Refine != "" {
			base.Refine = pack.Refine
		}
	}

	m.mu.Lock()
	m.packs = merged
	m.mu.Unlock()

	log.Info().Str("path", path).Msg("解说模版已重载")
	return nil
}

// Pack 获取指定语言的模版包，回退策略：指定语言 -> en -> zh
func (m *Metadata) Pack(lang string) *TemplatePack {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if pack, ok := m.packs[lang]; ok {
		return pack
	}
	if pack, ok := m.packs["en"]; ok {
		return pack
	}
	return m.packs["zh"]
}

func mergeStringMap(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

func defaultPacks() map[string]*TemplatePack {
	return map[string]*TemplatePack{
		"zh": {
			Focus: map[string]string{
				"general":        "{asset_name} 的主线剧情与关键转折",
				"romance":        "{asset_name} 中的感情线发展与重要情感场景",
				"suspense":       "{asset_name} 中的悬念铺设、伏笔与真相揭露",
				"character_arc":  "{asset_name} 中主要角色的成长与转变",
				"conflict":       "{asset_name} 中的核心冲突与对抗场景",
			},
			Scope: map[string]string{
				"episode_range": "重点关注第 {start} 集到第 {end} 集的内容。",
			},
			Character: map[string]string{
				"specific": "重点关注以下角色的戏份：{chars}。",
			},
			Perspectives: map[string]string{
				"third_person": "你是一名全知视角的旁白解说者，以第三人称讲述故事。",
				"first_person": "你以「{character}」的第一人称视角讲述亲身经历，只能叙述该角色知晓的信息。",
			},
			Styles: map[string]string{
				"objective":  "客观陈述，语言克制准确，不加主观评价。",
				"humorous":   "幽默吐槽，节奏轻快，适当调侃但不恶俗。",
				"suspenseful": "悬疑紧张，善用设问和留白，层层递进。",
				"emotional":  "情感充沛，注重人物内心描写，语言有感染力。",
			},
			Constraints: map[string]string{
				"duration_guideline":     "整体解说时长控制在约 {minutes} 分钟。",
				"char_limit_instruction": "全文总字数不超过 {target_chars} 字。",
			},
			Refine: "请在完全保留叙事风格（{style}）和关键信息的前提下，将下面这段解说词压缩到 {max_chars} 字以内（对应约 {max_seconds} 秒的播讲时长）。只输出压缩后的文本，不要任何解释。\n\n原文：\n{original_text}",
		},
		"en": {
			Focus: map[string]string{
				"general":       "the main storyline and key turning points of {asset_name}",
				"romance":       "the romantic arcs and emotionally pivotal scenes in {asset_name}",
				"suspense":      "the suspense setups, foreshadowing and reveals in {asset_name}",
				"character_arc": "the growth and transformation of main characters in {asset_name}",
				"conflict":      "the core conflicts and confrontations in {asset_name}",
			},
			Scope: map[string]string{
				"episode_range": "Focus on episodes {start} through {end}.",
			},
			Character: map[string]string{
				"specific": "Pay special attention to scenes featuring: {chars}.",
			},
			Perspectives: map[string]string{
				"third_person": "You are an omniscient narrator telling the story in third person.",
				"first_person": "You narrate as \"{character}\" in first person, limited to what that character knows.",
			},
			Styles: map[string]string{
				"objective":   "Objective and restrained, no editorializing.",
				"humorous":    "Witty and fast-paced, playful but never crude.",
				"suspenseful": "Tense and suspenseful, building through questions and withheld information.",
				"emotional":   "Emotionally rich, focused on inner lives, evocative language.",
			},
			Constraints: map[string]string{
				"duration_guideline":     "Keep the total narration around {minutes} minutes.",
				"char_limit_instruction": "Keep the full text under {target_chars} characters.",
			},
			Refine: "Compress the narration below to at most {max_chars} characters (about {max_seconds} seconds of speech) while fully preserving the style ({style}) and key information. Output only the compressed text.\n\nOriginal:\n{original_text}",
		},
	}
}

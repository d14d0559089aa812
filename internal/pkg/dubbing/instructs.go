package dubbing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// InstructTable 风格到导演指令的映射表（lang -> style -> instruct）
// 声明式数据，加风格只改数据不改代码；文件缺失时使用内置默认表
type InstructTable struct {
	mu        sync.RWMutex
	path      string
	instructs map[string]map[string]string
}

// LoadInstructTable 从元数据目录加载 tts_instructs.json
func LoadInstructTable(metadataDir string) *InstructTable {
	t := &InstructTable{
		path:      filepath.Join(metadataDir, "tts_instructs.json"),
		instructs: defaultInstructs(),
	}
	if err := t.Reload(); err != nil {
		log.Warn().Err(err).Str("path", t.path).Msg("加载 TTS 指令表失败，使用内置默认表")
	}
	return t
}

// Reload 重新加载指令表，文件不存在时保留当前内容
func (t *InstructTable) Reload() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var loaded map[string]map[string]string
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	t.mu.Lock()
	t.instructs = loaded
	t.mu.Unlock()

	log.Info().Str("path", t.path).Msg("TTS 指令表已加载")
	return nil
}

// Lookup 查找指令，未登记的语言或风格返回空串
func (t *InstructTable) Lookup(lang, style string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	styles, ok := t.instructs[lang]
	if !ok {
		return ""
	}
	return styles[style]
}

func defaultInstructs() map[string]map[string]string {
	return map[string]map[string]string{
		"zh": {
			"objective":  "用讲故事的语气，声音自然清晰",
			"humorous":   "用轻松诙谐的语气，语调活泼",
			"suspenseful": "用低沉悬疑的语气，节奏稍缓",
			"emotional":  "用富有感情的语气，抑扬顿挫",
		},
		"en": {
			"objective":  "Narrate in a natural, clear storytelling voice",
			"humorous":   "Narrate in a light, playful tone",
			"suspenseful": "Narrate in a low, suspenseful tone with measured pacing",
			"emotional":  "Narrate with warmth and emotional expression",
		},
	}
}

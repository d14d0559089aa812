package dubbing

import "fmt"

// Chunk 单个合成分段
// 由文本切分器产出，经策略合成后携带音频产物，最终折叠进装配清单
type Chunk struct {
	Index     int     // 在切分序列中的位置，装配时按此恢复顺序
	Text      string  // 分段文本
	Oversized bool    // 单句超过 max_chars 时为 true，不截断只标记
	AudioPath string  // 合成音频落盘路径
	Duration  float64 // 音频时长（秒）
	Err       error   // 合成失败原因，失败分段保留在清单中
}

// ManifestEntry 装配清单条目
// 覆盖所有分段，含失败分段（标记而非丢弃），顺序与切分顺序一致
type ManifestEntry struct {
	Narration       string  `json:"narration"`
	AudioFilePath   string  `json:"audio_file_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Oversized       bool    `json:"oversized,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Track 装配结果：合并后的音轨加完整清单
type Track struct {
	OutputPath    string          `json:"output_path"`
	TotalDuration float64         `json:"total_duration"`
	Manifest      []ManifestEntry `json:"manifest"`
}

// SynthesisError 单分段合成失败
// 只影响所属分段，不中止兄弟分段
type SynthesisError struct {
	Chunk int
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("chunk %d synthesis failed: %v", e.Chunk, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// AssemblyError 音轨装配失败，对配音请求是致命的（不完整的音轨不可用）
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("audio assembly failed: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

package dubbing

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/config"
	"github.com/weizhangcs/vss-cloud/internal/pkg/id"
)

// ScriptEntry 配音脚本条目，与解说脚本条目一一对应
// 失败条目保留错误原因，不从脚本中丢弃
type ScriptEntry struct {
	Narration       string  `json:"narration"`
	AudioFilePath   string  `json:"audio_file_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
}

// RenderRequest 配音渲染请求
type RenderRequest struct {
	Narrations   []string          // 逐条解说文本，顺序即时间线顺序
	TemplateName string            // 合成模版名
	Style        string            // 风格（查指令表），默认 objective
	Lang         string            // 语言，默认 zh
	Overrides    map[string]string // 请求级参数覆盖
}

// RenderResult 配音渲染结果
type RenderResult struct {
	DubbingScript []ScriptEntry `json:"dubbing_script"`
	Track         *Track        `json:"track,omitempty"`
}

// Engine 配音渲染引擎
// 按模版解析策略，逐条合成解说音频，最终装配整轨
type Engine struct {
	strategies map[string]Strategy
	templates  map[string]config.VoiceProfile
	instructs  *InstructTable
	segmenter  *Segmenter
	dispatcher *Dispatcher
	assembler  *Assembler
	workDir    string
}

// NewEngine 创建配音渲染引擎
func NewEngine(
	strategies map[string]Strategy,
	templates map[string]config.VoiceProfile,
	instructs *InstructTable,
	assembler *Assembler,
	cfg config.DubbingConfig,
) *Engine {
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = "./data/dubbing"
	}
	return &Engine{
		strategies: strategies,
		templates:  templates,
		instructs:  instructs,
		segmenter:  NewSegmenter(),
		dispatcher: NewDispatcher(cfg.SynthConcurrency),
		assembler:  assembler,
		workDir:    workDir,
	}
}

// Render 渲染配音
// 逐条失败只记录在对应条目上；所有条目都失败或整轨装配失败才返回错误
func (e *Engine) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	if len(req.Narrations) == 0 {
		return nil, fmt.Errorf("no narrations to render")
	}

	profile, ok := e.templates[req.TemplateName]
	if !ok {
		return nil, fmt.Errorf("unknown synthesis template: %s", req.TemplateName)
	}

	strategy, ok := e.strategies[profile.Provider]
	if !ok {
		return nil, fmt.Errorf("no strategy registered for provider: %s", profile.Provider)
	}

	params, err := e.buildParams(ctx, req, &profile, strategy)
	if err != nil {
		return nil, err
	}

	maxChars := 0
	if strategy.Capability() == CapabilityChunked {
		maxChars = profile.MaxChars
		if maxChars <= 0 {
			maxChars = strategy.DefaultMaxChars()
		}
	}

	jobDir := filepath.Join(e.workDir, id.New())
	audioFormat := profile.AudioFormat
	if audioFormat == "" {
		audioFormat = "mp3"
	}

	log.Info().
		Str("template", req.TemplateName).
		Str("provider", profile.Provider).
		Int("entries", len(req.Narrations)).
		Int("max_chars", maxChars).
		Msg("开始配音渲染")

	script := make([]ScriptEntry, 0, len(req.Narrations))
	var trackChunks []*Chunk

	for idx, narration := range req.Narrations {
		entry := ScriptEntry{Narration: narration}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		audioPath, duration, err := e.renderEntry(ctx, idx, narration, strategy, params, maxChars, jobDir, audioFormat)
		if err != nil {
			log.Error().Err(err).Int("entry", idx).Msg("条目配音失败")
			entry.Error = err.Error()
		} else {
			entry.AudioFilePath = audioPath
			entry.DurationSeconds = duration
		}
		script = append(script, entry)

		trackChunks = append(trackChunks, &Chunk{
			Index:     idx,
			Text:      narration,
			AudioPath: audioPath,
			Duration:  duration,
			Err:       err,
		})
	}

	trackPath := filepath.Join(jobDir, "track."+audioFormat)
	track, err := e.assembler.Assemble(ctx, trackChunks, trackPath)
	if err != nil {
		return nil, err
	}

	return &RenderResult{
		DubbingScript: script,
		Track:         track,
	}, nil
}

// renderEntry 渲染单条解说：切分、并发合成、分段装配
func (e *Engine) renderEntry(
	ctx context.Context,
	idx int,
	narration string,
	strategy Strategy,
	params *SynthesisParams,
	maxChars int,
	jobDir, audioFormat string,
) (string, float64, error) {
	chunks := e.segmenter.Segment(narration, maxChars)
	if len(chunks) == 0 {
		return "", 0, fmt.Errorf("empty narration text")
	}

	entryDir := filepath.Join(jobDir, fmt.Sprintf("entry_%03d", idx))
	if err := e.dispatcher.Dispatch(ctx, chunks, strategy, params, entryDir); err != nil {
		return "", 0, err
	}

	// provider 返回格式与交付格式不一致时逐段转码
	for _, chunk := range chunks {
		if err := e.assembler.NormalizeChunk(ctx, chunk, audioFormat); err != nil {
			chunk.Err = err
		}
	}

	// 单分段直接使用分段音频，多分段先装配成条目音频
	if len(chunks) == 1 {
		if chunks[0].Err != nil {
			return "", 0, chunks[0].Err
		}
		return chunks[0].AudioPath, chunks[0].Duration, nil
	}

	entryPath := filepath.Join(jobDir, fmt.Sprintf("narration_%03d.%s", idx, audioFormat))
	track, err := e.assembler.Assemble(ctx, chunks, entryPath)
	if err != nil {
		return "", 0, err
	}
	for _, chunk := range chunks {
		if chunk.Err != nil {
			// 分段缺失意味着条目音频不完整，按条目失败处理
			return "", 0, chunk.Err
		}
	}
	return track.OutputPath, track.TotalDuration, nil
}

// buildParams 合并模版参数与请求覆盖，解析复刻参考音频
func (e *Engine) buildParams(ctx context.Context, req *RenderRequest, profile *config.VoiceProfile, strategy Strategy) (*SynthesisParams, error) {
	merged := make(map[string]string, len(profile.Params)+len(req.Overrides))
	for k, v := range profile.Params {
		merged[k] = v
	}
	for k, v := range req.Overrides {
		merged[k] = v
	}

	params := &SynthesisParams{
		AudioFormat: profile.AudioFormat,
		Extra:       merged,
	}
	if voiceType, ok := merged["voice_type"]; ok {
		params.VoiceType = voiceType
		delete(merged, "voice_type")
	}
	if speedStr, ok := merged["speed"]; ok {
		if speed, err := strconv.ParseFloat(speedStr, 64); err == nil {
			params.Speed = speed
		}
		delete(merged, "speed")
	}

	lang := req.Lang
	if lang == "" {
		lang = "zh"
	}
	style := req.Style
	if style == "" {
		style = "objective"
	}
	params.Instruct = e.instructs.Lookup(lang, style)

	if profile.Method == "voice_replication" {
		rs, ok := strategy.(ReplicationStrategy)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support voice replication", profile.Provider)
		}
		refID, err := rs.EnsureReferenceAudio(ctx, req.TemplateName, profile.Reference)
		if err != nil {
			return nil, err
		}
		params.ReferenceAudioID = refID
	}

	return params, nil
}

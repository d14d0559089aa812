package dubbing

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/pkg/ffmpeg"
)

// Assembler 音轨装配器
// 将按序排列的分段音频无损拼接为单一音轨，并产出覆盖所有分段
// （含失败分段）的有序清单
type Assembler struct {
	ffmpeg *ffmpeg.Client
}

// NewAssembler 创建音轨装配器
func NewAssembler(ffmpegClient *ffmpeg.Client) *Assembler {
	return &Assembler{ffmpeg: ffmpegClient}
}

// Assemble 装配音轨
// 拼接先写临时文件再原子改名，取消或失败不会留下半写的产物
// 所有分段成功与否都进清单；没有任何成功分段或拼接失败返回 AssemblyError
func (a *Assembler) Assemble(ctx context.Context, chunks []*Chunk, outputPath string) (*Track, error) {
	if len(chunks) == 0 {
		return nil, &AssemblyError{Err: fmt.Errorf("no chunks to assemble")}
	}

	ordered := make([]*Chunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	manifest := make([]ManifestEntry, 0, len(ordered))
	var audioPaths []string
	var expectedDuration float64

	for _, chunk := range ordered {
		entry := ManifestEntry{
			Narration:       chunk.Text,
			DurationSeconds: chunk.Duration,
			Oversized:       chunk.Oversized,
		}
		if chunk.Err != nil {
			entry.Error = chunk.Err.Error()
		} else {
			entry.AudioFilePath = chunk.AudioPath
			audioPaths = append(audioPaths, chunk.AudioPath)
			expectedDuration += chunk.Duration
		}
		manifest = append(manifest, entry)
	}

	if len(audioPaths) == 0 {
		return nil, &AssemblyError{Err: fmt.Errorf("all %d chunks failed synthesis", len(ordered))}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 临时文件与产物同扩展名，ffmpeg 按扩展名推断封装格式
	ext := filepath.Ext(outputPath)
	tempPath := outputPath[:len(outputPath)-len(ext)] + ".tmp" + ext
	defer os.Remove(tempPath)

	if err := a.ffmpeg.ConcatAudio(ctx, audioPaths, tempPath); err != nil {
		return nil, &AssemblyError{Err: err}
	}

	totalDuration := expectedDuration
	if info, err := a.ffmpeg.GetAudioInfo(ctx, tempPath); err == nil && info.Duration > 0 {
		totalDuration = info.Duration
		// 每个拼接点允许 10ms 误差
		tolerance := 0.01 * float64(len(audioPaths))
		if diff := math.Abs(totalDuration - expectedDuration); diff > tolerance {
			log.Warn().
				Float64("expected", expectedDuration).
				Float64("actual", totalDuration).
				Float64("diff", diff).
				Msg("装配音轨时长与分段时长之和偏差超出容差")
		}
	}

	if err := os.Rename(tempPath, outputPath); err != nil {
		return nil, &AssemblyError{Err: fmt.Errorf("finalize output: %w", err)}
	}

	log.Info().
		Str("output", outputPath).
		Int("chunks", len(ordered)).
		Int("failed", len(ordered)-len(audioPaths)).
		Float64("duration", totalDuration).
		Msg("音轨装配完成")

	return &Track{
		OutputPath:    outputPath,
		TotalDuration: totalDuration,
		Manifest:      manifest,
	}, nil
}

// NormalizeChunk 将分段音频统一为交付格式
// concat 分离器按 -c copy 拼接，各分段封装格式必须一致
func (a *Assembler) NormalizeChunk(ctx context.Context, chunk *Chunk, format string) error {
	if chunk.Err != nil || chunk.AudioPath == "" || format == "" {
		return nil
	}
	ext := filepath.Ext(chunk.AudioPath)
	if ext == "."+format {
		return nil
	}
	converted := chunk.AudioPath[:len(chunk.AudioPath)-len(ext)] + "." + format
	if err := a.ffmpeg.ConvertAudio(ctx, chunk.AudioPath, converted); err != nil {
		return &AssemblyError{Err: fmt.Errorf("normalize chunk %d: %w", chunk.Index, err)}
	}
	chunk.AudioPath = converted
	return nil
}

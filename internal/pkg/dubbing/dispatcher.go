package dubbing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Dispatcher 合成调度器
// 将分段按并发上限扇出到策略，顺序在装配时按分段序号恢复
// 失败只记录在对应分段上，不中止兄弟分段
type Dispatcher struct {
	concurrency int
}

// NewDispatcher 创建合成调度器
func NewDispatcher(concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Dispatcher{concurrency: concurrency}
}

// Dispatch 并发合成所有分段，音频落盘到 workDir
// 返回时所有分段都已有结果（成功或失败），满足装配屏障的要求
func (d *Dispatcher) Dispatch(ctx context.Context, chunks []*Chunk, strategy Strategy, params *SynthesisParams, workDir string) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to synthesize")
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.concurrency)

	for _, chunk := range chunks {
		wg.Add(1)
		go func(chunk *Chunk) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				chunk.Err = err
				return
			}

			d.synthesizeChunk(ctx, chunk, strategy, params, workDir)
		}(chunk)
	}

	wg.Wait()
	return nil
}

func (d *Dispatcher) synthesizeChunk(ctx context.Context, chunk *Chunk, strategy Strategy, params *SynthesisParams, workDir string) {
	result, err := strategy.Synthesize(ctx, chunk.Text, params)
	if err != nil {
		chunk.Err = &SynthesisError{Chunk: chunk.Index, Err: err}
		log.Error().Err(err).Int("chunk", chunk.Index).Msg("分段合成失败")
		return
	}

	audioPath := filepath.Join(workDir, fmt.Sprintf("chunk_%04d.%s", chunk.Index, result.Format))
	if err := os.WriteFile(audioPath, result.Data, 0o644); err != nil {
		chunk.Err = &SynthesisError{Chunk: chunk.Index, Err: fmt.Errorf("write audio file: %w", err)}
		return
	}

	chunk.AudioPath = audioPath
	chunk.Duration = result.Duration

	log.Debug().
		Int("chunk", chunk.Index).
		Float64("duration", result.Duration).
		Str("path", audioPath).
		Msg("分段合成完成")
}

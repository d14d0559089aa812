package narration

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/pkg/blueprint"
)

// Generator 文本生成服务接口（prompt -> text），由上层注入，便于单测和替换实现
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, Usage, error)
}

// Retriever 检索服务接口（query, topK -> 排序片段）
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]RetrievalChunk, error)
}

// Engine 解说词合成引擎
// 串联：查询构建 -> 检索 -> 上下文增强 -> 生成 -> 时长校验/缩写
type Engine struct {
	generator         Generator
	retriever         Retriever
	queryBuilder      *QueryBuilder
	promptBuilder     *PromptBuilder
	refineConcurrency int
}

// NewEngine 创建解说词合成引擎
func NewEngine(generator Generator, retriever Retriever, metadata *Metadata, refineConcurrency int) *Engine {
	if refineConcurrency <= 0 {
		refineConcurrency = 4
	}
	return &Engine{
		generator:         generator,
		retriever:         retriever,
		queryBuilder:      NewQueryBuilder(metadata),
		promptBuilder:     NewPromptBuilder(metadata),
		refineConcurrency: refineConcurrency,
	}
}

// Request 单次解说生成请求
// 每个请求持有自己的蓝图快照和参数，无共享可变状态
type Request struct {
	AssetName string
	Blueprint *blueprint.Blueprint
	Control   *ControlParams
	Opts      Options
}

// GenerateScript 执行完整的解说词合成流程
func (e *Engine) GenerateScript(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Control.Validate(); err != nil {
		return nil, err
	}

	// Top-K 不超过蓝图场景总数
	topK := req.Opts.RAGTopK
	if total := req.Blueprint.SceneCount(); topK > total {
		log.Debug().Int("requested", topK).Int("clamped", total).Msg("Top-K 超过场景总数，已收紧")
		topK = total
	}

	query := e.queryBuilder.Build(req.AssetName, req.Opts.Lang, req.Control)

	chunks, err := e.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval service failed: %w", err)
	}

	enhancer := NewContextEnhancer(req.Blueprint)
	scenes, err := enhancer.Enhance(chunks, req.Control.Scope)
	if err != nil {
		return nil, err
	}

	result := &Result{AssetName: req.AssetName, Query: query}

	prompt := e.promptBuilder.BuildGeneratePrompt(
		req.Opts.Lang, req.AssetName, req.Control, req.Opts.SpeakingRate, RenderContext(scenes))

	raw, usage, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, &GenerationError{Stage: "generate", Segment: -1, Err: err}
	}
	result.Usage.Add(usage)

	segments, err := parseScript(raw, scenes)
	if err != nil {
		return nil, &GenerationError{Stage: "generate", Segment: -1, Err: err}
	}

	validator := NewDurationValidator(req.Blueprint, req.Opts.SpeakingRate, req.Opts.OverflowTolerance)
	refineUsage := e.validateAndRefine(ctx, segments, validator, req)
	result.Usage.Add(refineUsage)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Script = segments
	return result, nil
}

// validateAndRefine 对所有片段执行校验与缩写
// 单个片段的缩写是串行的（每次重试依赖上一次的生成结果），
// 片段之间相互独立，可在并发上限内并行
func (e *Engine) validateAndRefine(ctx context.Context, segments []*Segment, validator *DurationValidator, req *Request) Usage {
	var (
		mu    sync.Mutex
		total Usage
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, e.refineConcurrency)

	for i, seg := range segments {
		wg.Add(1)
		go func(index int, seg *Segment) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			usage := e.refineSegment(ctx, index, seg, validator, req)

			mu.Lock()
			total.Add(usage)
			mu.Unlock()
		}(i, seg)
	}

	wg.Wait()
	return total
}

// refineSegment 单片段的校验-缩写状态机
//
//	Pending -> Validated                      首次校验通过
//	Pending -> Refining -> Validated          缩写后通过
//	Pending -> Refining -> Exhausted          重试耗尽，保留末次文本并上报 overflow_sec
//
// Exhausted 是上报状态而非失败：片段仍然交付
func (e *Engine) refineSegment(ctx context.Context, index int, seg *Segment, validator *DurationValidator, req *Request) Usage {
	var total Usage

	seg.State = StatePending
	if validator.Check(seg) {
		seg.State = StateValidated
		return total
	}

	seg.State = StateRefining
	log.Warn().
		Int("segment", index).
		Float64("predicted", seg.Metadata.PredAudioDuration).
		Float64("limit", seg.Metadata.DurationLimit).
		Msg("片段超出时长预算，进入缩写")

	for seg.Metadata.RefineCount < req.Opts.MaxRefineRetries {
		if ctx.Err() != nil {
			break
		}

		maxChars := validator.MaxChars(seg.Metadata.RealVisualDuration)
		prompt := e.promptBuilder.BuildRefinePrompt(
			req.Opts.Lang, req.Control, seg.Narration, seg.Metadata.DurationLimit, maxChars)

		text, usage, err := e.generator.Generate(ctx, prompt)
		total.Add(usage)
		seg.Metadata.RefineCount++
		seg.Metadata.Refined = true

		if err != nil {
			log.Warn().Err(err).Int("segment", index).Int("attempt", seg.Metadata.RefineCount).Msg("缩写调用失败")
			continue
		}

		text = SanitizeText(stripJSONFence(text))
		if text == "" {
			continue
		}

		seg.Narration = text
		if validator.Check(seg) {
			seg.State = StateValidated
			log.Info().Int("segment", index).Int("refine_count", seg.Metadata.RefineCount).Msg("缩写后通过校验")
			return total
		}
	}

	// 重试耗尽仍超预算：保留末次文本，溢出量留在 metadata 供调用方决策
	seg.State = StateExhausted
	log.Warn().
		Int("segment", index).
		Float64("overflow_sec", seg.Metadata.OverflowSec).
		Msg("缩写重试耗尽，按溢出上报")
	return total
}

// rawScript 生成服务返回的结构化脚本
type rawScript struct {
	NarrationScript []struct {
		Narration      string `json:"narration"`
		SourceSceneIDs []int  `json:"source_scene_ids"`
	} `json:"narration_script"`
}

// parseScript 解析生成服务输出并强制执行脚本不变式：
// 场景 id 必须来自增强上下文、全局不重复、片段按时间线升序
func parseScript(raw string, scenes []*blueprint.Scene) ([]*Segment, error) {
	cleaned := stripJSONFence(raw)

	var script rawScript
	if err := json.Unmarshal([]byte(cleaned), &script); err != nil {
		return nil, fmt.Errorf("failed to parse script JSON: %w", err)
	}
	if len(script.NarrationScript) == 0 {
		return nil, fmt.Errorf("generation service returned empty script")
	}

	// 增强上下文中的场景 id 及其时间线序号
	rank := make(map[int]int, len(scenes))
	for pos, scene := range scenes {
		rank[scene.ID] = pos
	}

	used := make(map[int]bool)
	var segments []*Segment
	for _, item := range script.NarrationScript {
		text := SanitizeText(item.Narration)
		if text == "" {
			continue
		}

		var ids []int
		for _, id := range item.SourceSceneIDs {
			if _, ok := rank[id]; !ok {
				log.Debug().Int("scene_id", id).Msg("丢弃上下文之外的场景引用")
				continue
			}
			if used[id] {
				log.Debug().Int("scene_id", id).Msg("丢弃跨片段重复的场景引用")
				continue
			}
			used[id] = true
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}

		segments = append(segments, &Segment{
			Narration:      text,
			SourceSceneIDs: ids,
			State:          StatePending,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no usable segments in generated script")
	}

	// 片段排序以首个场景的时间线位置为准
	sortSegmentsByRank(segments, rank)
	return segments, nil
}

func sortSegmentsByRank(segments []*Segment, rank map[int]int) {
	for _, seg := range segments {
		ids := seg.SourceSceneIDs
		for i := 1; i < len(ids); i++ {
			for j := i; j > 0 && rank[ids[j-1]] > rank[ids[j]]; j-- {
				ids[j-1], ids[j] = ids[j], ids[j-1]
			}
		}
	}
	for i := 1; i < len(segments); i++ {
		for j := i; j > 0 && rank[segments[j-1].SourceSceneIDs[0]] > rank[segments[j].SourceSceneIDs[0]]; j-- {
			segments[j-1], segments[j] = segments[j], segments[j-1]
		}
	}
}

var fencePattern = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*\\n(.*?)\\n\\s*```\\s*$")

// stripJSONFence 移除生成服务偶发的 markdown 代码块包裹
func stripJSONFence(content string) string {
	content = strings.TrimSpace(content)
	if m := fencePattern.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

package narration

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/pkg/blueprint"
)

// RetrievalChunk 检索服务命中的单个片段
// RawText 只用于日志定位，提取出场景 id 后即被丢弃，绝不进入生成上下文
type RetrievalChunk struct {
	SourceRef string  `json:"source_ref"`
	RawText   string  `json:"raw_text,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// 溯源文件名规范：{asset_id}_scene_{id}_enhanced.txt
// 只依赖文件名不依赖内容，对检索的截断分块免疫
var sceneRefPattern = regexp.MustCompile(`_scene_(\d+)_enhanced\.txt`)

// ContextEnhancer 上下文增强器
// 解决检索结果碎片化和乱序问题：溯源场景 id，回查本地蓝图，
// 重组出有序、完整、无幻觉的剧情上下文
type ContextEnhancer struct {
	bp *blueprint.Blueprint
}

// NewContextEnhancer 创建上下文增强器
func NewContextEnhancer(bp *blueprint.Blueprint) *ContextEnhancer {
	return &ContextEnhancer{bp: bp}
}

// ExtractSceneID 从溯源路径中提取场景 id
func ExtractSceneID(sourceRef string) (int, bool) {
	m := sceneRefPattern.FindStringSubmatch(sourceRef)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// Enhance 执行上下文增强的标准流程
//
// Pipeline:
//  1. Trace: 从 chunk 溯源路径提取场景 id，解析失败的 chunk 丢弃
//  2. Filter: 剔除范围外的场景
//  3. Deduplicate: 去除重复命中
//  4. Sort: 按蓝图叙事时间线排序，检索相似度顺序被抛弃
//  5. Reconstruct: 用蓝图的全量场景数据替换检索文本
//
// 过滤后场景为空时返回 ErrEmptyContext
func (e *ContextEnhancer) Enhance(chunks []RetrievalChunk, scope ScopeParams) ([]*blueprint.Scene, error) {
	// 1+3. 提取 id 并去重
	seen := make(map[int]bool)
	var hitIDs []int
	for _, chunk := range chunks {
		id, ok := ExtractSceneID(chunk.SourceRef)
		if !ok {
			log.Debug().Str("source_ref", chunk.SourceRef).Msg("跳过无法溯源的检索片段")
			continue
		}
		if !seen[id] {
			seen[id] = true
			hitIDs = append(hitIDs, id)
		}
	}

	// 2. 范围过滤
	var validIDs []int
	for _, id := range hitIDs {
		scene, ok := e.bp.Scene(id)
		if !ok {
			log.Debug().Int("scene_id", id).Msg("跳过蓝图中不存在的场景")
			continue
		}
		if scope.Type == ScopeEpisodeRange && len(scope.Value) == 2 {
			if scene.Episode < scope.Value[0] || scene.Episode > scope.Value[1] {
				continue
			}
		}
		validIDs = append(validIDs, id)
	}

	if len(validIDs) == 0 {
		return nil, ErrEmptyContext
	}

	// 4. 时序排序
	e.bp.SortByTimeline(validIDs)

	// 5. 内容重组
	scenes := make([]*blueprint.Scene, 0, len(validIDs))
	for _, id := range validIDs {
		scene, _ := e.bp.Scene(id)
		scenes = append(scenes, scene)
	}

	log.Info().Ints("scene_ids", validIDs).Msg("上下文增强完成")
	return scenes, nil
}

// RenderContext 将重组后的场景渲染为生成服务的上下文文本
func RenderContext(scenes []*blueprint.Scene) string {
	parts := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		parts = append(parts, scene.ContextText())
	}
	sep := "\n" + strings.Repeat("=", 30) + "\n"
	return strings.Join(parts, sep)
}

package narration

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// QueryBuilder 将结构化的控制参数翻译为检索服务可理解的自然语言 Query
type QueryBuilder struct {
	metadata *Metadata
}

// NewQueryBuilder 创建查询构建器
func NewQueryBuilder(metadata *Metadata) *QueryBuilder {
	return &QueryBuilder{metadata: metadata}
}

// Build 构建最终的检索查询字符串
// 纯函数，无 I/O；模版缺失时回退到 general 模版，再缺失时用剧集名兜底
func (qb *QueryBuilder) Build(assetName, lang string, control *ControlParams) string {
	pack := qb.metadata.Pack(lang)

	// 1. 核心叙事焦点：Query 的主干，决定检索的主题方向
	var base string
	if control.NarrativeFocus == "custom" && control.CustomPrompts != nil {
		base = control.CustomPrompts.NarrativeFocus
	} else {
		tpl, ok := pack.Focus[control.NarrativeFocus]
		if !ok {
			tpl, ok = pack.Focus["general"]
			if !ok {
				tpl = "{asset_name}"
			}
		}
		base = tpl
	}
	base = strings.ReplaceAll(base, "{asset_name}", assetName)

	parts := []string{base}

	// 2. 剧情范围约束：语义检索之外，显式范围有助于模型理解上下文
	if control.Scope.Type == ScopeEpisodeRange && len(control.Scope.Value) == 2 {
		if tpl, ok := pack.Scope["episode_range"]; ok {
			clause := strings.ReplaceAll(tpl, "{start}", fmt.Sprintf("%d", control.Scope.Value[0]))
			clause = strings.ReplaceAll(clause, "{end}", fmt.Sprintf("%d", control.Scope.Value[1]))
			parts = append(parts, clause)
		}
	}

	// 3. 角色聚焦
	if control.CharacterFocus.Mode == "specific" && len(control.CharacterFocus.Characters) > 0 {
		if tpl, ok := pack.Character["specific"]; ok {
			sep := ", "
			if lang == "zh" {
				sep = "、"
			}
			chars := strings.Join(control.CharacterFocus.Characters, sep)
			parts = append(parts, strings.ReplaceAll(tpl, "{chars}", chars))
		}
	}

	query := strings.Join(parts, " ")
	log.Debug().Str("query", query).Msg("检索 Query 构建完成")
	return query
}

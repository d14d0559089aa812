package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/config"
	modelnarration "github.com/weizhangcs/vss-cloud/internal/model/narration"
	"github.com/weizhangcs/vss-cloud/internal/pkg/blueprint"
	"github.com/weizhangcs/vss-cloud/internal/pkg/id"
	"github.com/weizhangcs/vss-cloud/internal/pkg/narration"
	narrationrepo "github.com/weizhangcs/vss-cloud/internal/repository/narration"
)

// GenerateNarrationRequest 解说生成请求
type GenerateNarrationRequest struct {
	AssetName     string                    `json:"asset_name" binding:"required"`
	AssetID       string                    `json:"asset_id" binding:"required"`
	BlueprintRef  string                    `json:"blueprint_ref" binding:"required"` // 蓝图 JSON 文件路径
	ControlParams *narration.ControlParams  `json:"control_params" binding:"required"`
	Lang          string                    `json:"lang,omitempty"`
	SpeakingRate  float64                   `json:"speaking_rate,omitempty"`
	OverflowTol   *float64                  `json:"overflow_tolerance,omitempty"`
	RAGTopK       int                       `json:"rag_top_k,omitempty"`
}

// GenerateNarrationResponse 解说生成响应
type GenerateNarrationResponse struct {
	NarrationID     string                `json:"narration_id"`
	NarrationScript []*narration.Segment  `json:"narration_script"`
	Usage           narration.Usage       `json:"usage"`
}

// NarrationService 解说生成服务
// 组装请求级参数，驱动合成引擎，并持久化结果
type NarrationService struct {
	engine     *narration.Engine
	scriptRepo narrationrepo.ScriptRepository
	defaults   config.NarrationConfig
}

// NewNarrationService 创建解说生成服务
func NewNarrationService(engine *narration.Engine, scriptRepo narrationrepo.ScriptRepository, defaults config.NarrationConfig) *NarrationService {
	return &NarrationService{
		engine:     engine,
		scriptRepo: scriptRepo,
		defaults:   defaults,
	}
}

// Generate 执行解说生成并持久化
func (s *NarrationService) Generate(ctx context.Context, req *GenerateNarrationRequest) (*GenerateNarrationResponse, error) {
	if req.ControlParams == nil {
		return nil, &narration.ValidationError{Field: "control_params", Reason: "required"}
	}

	bp, err := blueprint.Load(req.BlueprintRef)
	if err != nil {
		return nil, fmt.Errorf("load blueprint %s: %w", req.BlueprintRef, err)
	}

	opts := s.buildOptions(req)

	// 先落 pending 记录，生成失败也留下审计痕迹
	script := &modelnarration.Script{
		ID:            id.New(),
		AssetName:     req.AssetName,
		AssetID:       req.AssetID,
		ControlParams: req.ControlParams,
		Status:        modelnarration.ScriptStatusPending,
	}
	if err := s.scriptRepo.Create(ctx, script); err != nil {
		return nil, fmt.Errorf("persist narration script: %w", err)
	}

	result, err := s.engine.GenerateScript(ctx, &narration.Request{
		AssetName: req.AssetName,
		Blueprint: bp,
		Control:   req.ControlParams,
		Opts:      opts,
	})
	if err != nil {
		if uerr := s.scriptRepo.UpdateStatus(ctx, script.ID, modelnarration.ScriptStatusFailed, err.Error()); uerr != nil {
			log.Warn().Err(uerr).Str("narration_id", script.ID).Msg("标记脚本失败状态出错")
		}
		return nil, err
	}

	script.Query = result.Query
	script.Segments = result.Script
	script.Usage = &result.Usage
	script.Status = modelnarration.ScriptStatusCompleted
	if err := s.scriptRepo.Update(ctx, script); err != nil {
		return nil, fmt.Errorf("persist narration script: %w", err)
	}

	log.Info().
		Str("narration_id", script.ID).
		Str("asset_id", req.AssetID).
		Int("segments", len(result.Script)).
		Int("total_tokens", result.Usage.TotalTokens).
		Msg("解说生成完成")

	return &GenerateNarrationResponse{
		NarrationID:     script.ID,
		NarrationScript: result.Script,
		Usage:           result.Usage,
	}, nil
}

// Get 查询已持久化的解说脚本
func (s *NarrationService) Get(ctx context.Context, narrationID string) (*modelnarration.Script, error) {
	return s.scriptRepo.FindByID(ctx, narrationID)
}

// GetLatestByAsset 查询作品最新的解说脚本
func (s *NarrationService) GetLatestByAsset(ctx context.Context, assetID string) (*modelnarration.Script, error) {
	return s.scriptRepo.FindLatestByAsset(ctx, assetID)
}

// buildOptions 配置默认值加请求覆盖
func (s *NarrationService) buildOptions(req *GenerateNarrationRequest) narration.Options {
	opts := narration.Options{
		Lang:              s.defaults.Lang,
		SpeakingRate:      s.defaults.SpeakingRate,
		OverflowTolerance: s.defaults.OverflowTolerance,
		RAGTopK:           s.defaults.RAGTopK,
		MaxRefineRetries:  s.defaults.MaxRefineRetries,
	}
	if opts.Lang == "" {
		opts.Lang = "zh"
	}
	if opts.SpeakingRate <= 0 {
		opts.SpeakingRate = 4.2
	}
	if opts.RAGTopK <= 0 {
		opts.RAGTopK = 50
	}

	if req.Lang != "" {
		opts.Lang = req.Lang
	}
	if req.SpeakingRate > 0 {
		opts.SpeakingRate = req.SpeakingRate
	}
	if req.OverflowTol != nil {
		opts.OverflowTolerance = *req.OverflowTol
	}
	if req.RAGTopK > 0 {
		opts.RAGTopK = req.RAGTopK
	}
	return opts
}

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	modeldubbing "github.com/weizhangcs/vss-cloud/internal/model/dubbing"
	"github.com/weizhangcs/vss-cloud/internal/pkg/dubbing"
	"github.com/weizhangcs/vss-cloud/internal/pkg/id"
	"github.com/weizhangcs/vss-cloud/internal/pkg/storage"
	dubbingrepo "github.com/weizhangcs/vss-cloud/internal/repository/dubbing"
	narrationrepo "github.com/weizhangcs/vss-cloud/internal/repository/narration"
)

// GenerateDubbingRequest 配音渲染请求
type GenerateDubbingRequest struct {
	InputNarrationRef string            `json:"input_narration_ref" binding:"required"` // 解说脚本ID
	SynthesisTemplate string            `json:"synthesis_template" binding:"required"`  // 合成模版名
	Style             string            `json:"style,omitempty"`
	Lang              string            `json:"lang,omitempty"`
	ProviderOverrides map[string]string `json:"provider_overrides,omitempty"`
}

// GenerateDubbingResponse 配音渲染响应
type GenerateDubbingResponse struct {
	DubbingID     string                 `json:"dubbing_id"`
	DubbingScript []dubbing.ScriptEntry  `json:"dubbing_script"`
	TrackKey      string                 `json:"track_key,omitempty"`
	TotalDuration float64                `json:"total_duration"`
}

// DubbingService 配音渲染服务
// 解析解说脚本引用，驱动渲染引擎，上传整轨产物并持久化
type DubbingService struct {
	engine     *dubbing.Engine
	scriptRepo narrationrepo.ScriptRepository
	trackRepo  dubbingrepo.TrackRepository
	storage    storage.Storage
}

// NewDubbingService 创建配音渲染服务
func NewDubbingService(
	engine *dubbing.Engine,
	scriptRepo narrationrepo.ScriptRepository,
	trackRepo dubbingrepo.TrackRepository,
	store storage.Storage,
) *DubbingService {
	return &DubbingService{
		engine:     engine,
		scriptRepo: scriptRepo,
		trackRepo:  trackRepo,
		storage:    store,
	}
}

// Generate 执行配音渲染并持久化
func (s *DubbingService) Generate(ctx context.Context, req *GenerateDubbingRequest) (*GenerateDubbingResponse, error) {
	script, err := s.scriptRepo.FindByID(ctx, req.InputNarrationRef)
	if err != nil {
		return nil, fmt.Errorf("resolve narration %s: %w", req.InputNarrationRef, err)
	}

	narrations := make([]string, 0, len(script.Segments))
	for _, seg := range script.Segments {
		narrations = append(narrations, seg.Narration)
	}

	style := req.Style
	if style == "" && script.ControlParams != nil {
		style = script.ControlParams.Style
	}

	result, err := s.engine.Render(ctx, &dubbing.RenderRequest{
		Narrations:   narrations,
		TemplateName: req.SynthesisTemplate,
		Style:        style,
		Lang:         req.Lang,
		Overrides:    req.ProviderOverrides,
	})
	if err != nil {
		return nil, err
	}

	trackKey := ""
	if result.Track != nil {
		trackKey, err = s.uploadTrack(ctx, script.ID, result.Track.OutputPath)
		if err != nil {
			// 上传失败不丢弃渲染结果，本地产物路径仍在脚本里
			log.Warn().Err(err).Str("narration_id", script.ID).Msg("整轨上传失败")
		}
	}

	track := &modeldubbing.Track{
		ID:            id.New(),
		NarrationID:   script.ID,
		Template:      req.SynthesisTemplate,
		DubbingScript: result.DubbingScript,
		TrackKey:      trackKey,
		Status:        modeldubbing.TrackStatusCompleted,
	}
	if result.Track != nil {
		track.TotalDuration = result.Track.TotalDuration
	}
	if err := s.trackRepo.Create(ctx, track); err != nil {
		return nil, fmt.Errorf("persist dubbing track: %w", err)
	}

	log.Info().
		Str("dubbing_id", track.ID).
		Str("narration_id", script.ID).
		Float64("duration", track.TotalDuration).
		Msg("配音渲染完成")

	return &GenerateDubbingResponse{
		DubbingID:     track.ID,
		DubbingScript: result.DubbingScript,
		TrackKey:      trackKey,
		TotalDuration: track.TotalDuration,
	}, nil
}

// Get 查询已持久化的配音音轨
func (s *DubbingService) Get(ctx context.Context, dubbingID string) (*modeldubbing.Track, error) {
	return s.trackRepo.FindByID(ctx, dubbingID)
}

// uploadTrack 上传整轨产物，返回存储 key
func (s *DubbingService) uploadTrack(ctx context.Context, narrationID, trackPath string) (string, error) {
	if s.storage == nil {
		return "", nil
	}

	file, err := os.Open(trackPath)
	if err != nil {
		return "", fmt.Errorf("open track: %w", err)
	}
	defer file.Close()

	key := fmt.Sprintf("dubbing/%s/%s", narrationID, filepath.Base(trackPath))
	contentType := "audio/mpeg"
	if filepath.Ext(trackPath) == ".wav" {
		contentType = "audio/wav"
	}

	if _, err := s.storage.Upload(ctx, key, file, contentType); err != nil {
		return "", err
	}
	return key, nil
}

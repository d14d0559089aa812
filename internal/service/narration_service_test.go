package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/weizhangcs/vss-cloud/internal/config"
	modelnarration "github.com/weizhangcs/vss-cloud/internal/model/narration"
	"github.com/weizhangcs/vss-cloud/internal/pkg/narration"
)

const serviceBlueprint = `{
	"project_metadata": {"project_name": "时长测试"},
	"scenes": {
		"1": {"chapter_id": 1, "start_time": "00:00:00.000", "end_time": "00:01:00.000"},
		"2": {"chapter_id": 1, "start_time": "00:01:00.000", "end_time": "00:01:30.000"}
	},
	"narrative_timeline": {"sequence": {"1": {"narrative_index": 0}, "2": {"narrative_index": 1}}}
}`

type stubGenerator struct {
	response string
	err      error
}

func (g *stubGenerator) Generate(_ context.Context, _ string) (string, narration.Usage, error) {
	usage := narration.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	if g.err != nil {
		return "", usage, g.err
	}
	return g.response, usage, nil
}

type stubRetriever struct {
	chunks []narration.RetrievalChunk
	err    error
}

func (r *stubRetriever) Retrieve(_ context.Context, _ string, _ int) ([]narration.RetrievalChunk, error) {
	return r.chunks, r.err
}

// fakeScriptRepo 记录仓库调用轨迹的内存实现
type fakeScriptRepo struct {
	createdStatus modelnarration.ScriptStatus
	created       *modelnarration.Script
	updated       *modelnarration.Script
	statusID      string
	status        modelnarration.ScriptStatus
	statusMsg     string
	latest        *modelnarration.Script
}

func (r *fakeScriptRepo) Create(_ context.Context, s *modelnarration.Script) error {
	r.created = s
	r.createdStatus = s.Status
	return nil
}

func (r *fakeScriptRepo) FindByID(_ context.Context, _ string) (*modelnarration.Script, error) {
	return r.created, nil
}

func (r *fakeScriptRepo) FindLatestByAsset(_ context.Context, _ string) (*modelnarration.Script, error) {
	if r.latest == nil {
		return nil, errors.New("not found")
	}
	return r.latest, nil
}

func (r *fakeScriptRepo) Update(_ context.Context, s *modelnarration.Script) error {
	r.updated = s
	return nil
}

func (r *fakeScriptRepo) UpdateStatus(_ context.Context, id string, status modelnarration.ScriptStatus, errMsg string) error {
	r.statusID = id
	r.status = status
	r.statusMsg = errMsg
	return nil
}

func (r *fakeScriptRepo) Delete(_ context.Context, _ string) error {
	return nil
}

func writeBlueprintFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blueprint.json")
	if err := os.WriteFile(path, []byte(serviceBlueprint), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newNarrationService(gen narration.Generator, ret narration.Retriever, repo *fakeScriptRepo) *NarrationService {
	engine := narration.NewEngine(gen, ret, narration.LoadMetadata(""), 2)
	return NewNarrationService(engine, repo, config.NarrationConfig{})
}

func TestNarrationServiceGenerate(t *testing.T) {
	Convey("解说生成服务的持久化生命周期", t, func() {
		blueprintPath := writeBlueprintFile(t)
		chunks := []narration.RetrievalChunk{
			{SourceRef: "时长测试_scene_1_enhanced.txt"},
			{SourceRef: "时长测试_scene_2_enhanced.txt"},
		}
		req := &GenerateNarrationRequest{
			AssetName:     "时长测试",
			AssetID:       "asset-001",
			BlueprintRef:  blueprintPath,
			ControlParams: &narration.ControlParams{NarrativeFocus: "general", Style: "objective"},
		}

		Convey("成功时记录从 pending 转为 completed", func() {
			gen := &stubGenerator{response: `{"narration_script":[{"narration":"` +
				strings.Repeat("甲", 100) + `","source_scene_ids":[1]}]}`}
			repo := &fakeScriptRepo{}
			svc := newNarrationService(gen, &stubRetriever{chunks: chunks}, repo)

			resp, err := svc.Generate(context.Background(), req)
			So(err, ShouldBeNil)
			So(resp.NarrationID, ShouldNotBeEmpty)
			So(resp.NarrationScript, ShouldHaveLength, 1)
			So(resp.Usage.TotalTokens, ShouldEqual, 15)

			Convey("先落 pending 记录", func() {
				So(repo.createdStatus, ShouldEqual, modelnarration.ScriptStatusPending)
				So(repo.created.AssetID, ShouldEqual, "asset-001")
			})

			Convey("结果回写后状态为 completed", func() {
				So(repo.updated, ShouldNotBeNil)
				So(repo.updated.ID, ShouldEqual, resp.NarrationID)
				So(repo.updated.Status, ShouldEqual, modelnarration.ScriptStatusCompleted)
				So(repo.updated.Segments, ShouldHaveLength, 1)
				So(repo.updated.Usage.TotalTokens, ShouldEqual, 15)
			})
		})

		Convey("引擎失败时记录标记为 failed", func() {
			repo := &fakeScriptRepo{}
			svc := newNarrationService(
				&stubGenerator{response: "{}"},
				&stubRetriever{err: errors.New("rag unavailable")},
				repo,
			)

			_, err := svc.Generate(context.Background(), req)
			So(err, ShouldNotBeNil)
			So(repo.createdStatus, ShouldEqual, modelnarration.ScriptStatusPending)
			So(repo.statusID, ShouldEqual, repo.created.ID)
			So(repo.status, ShouldEqual, modelnarration.ScriptStatusFailed)
			So(repo.statusMsg, ShouldNotBeEmpty)
		})

		Convey("缺少控制参数直接拒绝", func() {
			repo := &fakeScriptRepo{}
			svc := newNarrationService(&stubGenerator{}, &stubRetriever{}, repo)

			_, err := svc.Generate(context.Background(), &GenerateNarrationRequest{
				AssetName:    "时长测试",
				AssetID:      "asset-001",
				BlueprintRef: blueprintPath,
			})
			var verr *narration.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(repo.created, ShouldBeNil)
		})
	})
}

func TestNarrationServiceGetLatestByAsset(t *testing.T) {
	Convey("按作品查询最新脚本", t, func() {
		repo := &fakeScriptRepo{latest: &modelnarration.Script{ID: "n-001", AssetID: "asset-001"}}
		svc := newNarrationService(&stubGenerator{}, &stubRetriever{}, repo)

		script, err := svc.GetLatestByAsset(context.Background(), "asset-001")
		So(err, ShouldBeNil)
		So(script.ID, ShouldEqual, "n-001")
	})
}

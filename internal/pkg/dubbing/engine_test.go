package dubbing

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/weizhangcs/vss-cloud/internal/config"
)

// 非复刻策略：不实现 EnsureReferenceAudio
type plainStrategy struct{}

func (plainStrategy) Name() string           { return "plain" }
func (plainStrategy) Capability() Capability { return CapabilityLongForm }
func (plainStrategy) DefaultMaxChars() int   { return 0 }
func (plainStrategy) Synthesize(_ context.Context, text string, _ *SynthesisParams) (*AudioResult, error) {
	return &AudioResult{Data: []byte(text), Format: "mp3"}, nil
}

func newTestEngine(strategy Strategy, templates map[string]config.VoiceProfile) *Engine {
	return NewEngine(
		map[string]Strategy{strategy.Name(): strategy},
		templates,
		LoadInstructTable(""),
		NewAssembler(nil),
		config.DubbingConfig{WorkDir: "./testdata", SynthConcurrency: 2},
	)
}

func TestBuildParams(t *testing.T) {
	Convey("buildParams 合并模版与请求参数", t, func() {
		strategy := &fakeStrategy{name: "fake", capability: CapabilityLongForm}

		Convey("模版参数被请求覆盖", func() {
			engine := newTestEngine(strategy, map[string]config.VoiceProfile{
				"标准男声": {
					Provider:    "fake",
					AudioFormat: "mp3",
					Params:      map[string]string{"voice_type": "male_01", "speed": "1.0", "pitch": "2"},
				},
			})
			profile := engine.templates["标准男声"]

			params, err := engine.buildParams(context.Background(), &RenderRequest{
				TemplateName: "标准男声",
				Overrides:    map[string]string{"speed": "1.2"},
			}, &profile, strategy)

			So(err, ShouldBeNil)
			So(params.VoiceType, ShouldEqual, "male_01")
			So(params.Speed, ShouldAlmostEqual, 1.2, 0.001)
			So(params.AudioFormat, ShouldEqual, "mp3")
			// voice_type/speed 提取后不留在 Extra 中
			So(params.Extra, ShouldNotContainKey, "voice_type")
			So(params.Extra, ShouldNotContainKey, "speed")
			So(params.Extra["pitch"], ShouldEqual, "2")
		})

		Convey("风格查指令表，缺省为 objective", func() {
			engine := newTestEngine(strategy, map[string]config.VoiceProfile{
				"标准男声": {Provider: "fake"},
			})
			profile := engine.templates["标准男声"]

			params, err := engine.buildParams(context.Background(), &RenderRequest{
				TemplateName: "标准男声",
				Style:        "suspenseful",
				Lang:         "zh",
			}, &profile, strategy)
			So(err, ShouldBeNil)
			So(params.Instruct, ShouldEqual, "用低沉悬疑的语气，节奏稍缓")

			params, err = engine.buildParams(context.Background(), &RenderRequest{
				TemplateName: "标准男声",
			}, &profile, strategy)
			So(err, ShouldBeNil)
			So(params.Instruct, ShouldEqual, "用讲故事的语气，声音自然清晰")
		})

		Convey("复刻模版解析参考音频", func() {
			replicating := &fakeStrategy{name: "fake", capability: CapabilityChunked, refID: "ref-123"}
			engine := newTestEngine(replicating, map[string]config.VoiceProfile{
				"复刻音色": {
					Provider: "fake",
					Method:   "voice_replication",
					Reference: &config.ReferenceAudio{
						AudioPath: "/data/ref.wav",
						Text:      "参考音频的原文",
					},
				},
			})
			profile := engine.templates["复刻音色"]

			params, err := engine.buildParams(context.Background(), &RenderRequest{
				TemplateName: "复刻音色",
			}, &profile, replicating)
			So(err, ShouldBeNil)
			So(params.ReferenceAudioID, ShouldEqual, "ref-123")
		})

		Convey("不支持复刻的策略配复刻模版时报错", func() {
			plain := plainStrategy{}
			engine := newTestEngine(plain, map[string]config.VoiceProfile{
				"复刻音色": {Provider: "plain", Method: "voice_replication"},
			})
			profile := engine.templates["复刻音色"]

			_, err := engine.buildParams(context.Background(), &RenderRequest{
				TemplateName: "复刻音色",
			}, &profile, plain)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "voice replication")
		})

		Convey("参考音频上传失败向上传递", func() {
			failing := &fakeStrategy{name: "fake", refErr: errors.New("upload failed")}
			engine := newTestEngine(failing, map[string]config.VoiceProfile{
				"复刻音色": {Provider: "fake", Method: "voice_replication"},
			})
			profile := engine.templates["复刻音色"]

			_, err := engine.buildParams(context.Background(), &RenderRequest{
				TemplateName: "复刻音色",
			}, &profile, failing)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRenderLookupFailures(t *testing.T) {
	Convey("Render 的模版与策略解析", t, func() {
		strategy := &fakeStrategy{name: "fake", capability: CapabilityLongForm}
		engine := newTestEngine(strategy, map[string]config.VoiceProfile{
			"标准男声": {Provider: "fake"},
			"孤儿模版": {Provider: "nonexistent"},
		})

		Convey("空解说列表拒绝", func() {
			_, err := engine.Render(context.Background(), &RenderRequest{TemplateName: "标准男声"})
			So(err, ShouldNotBeNil)
		})

		Convey("未知模版拒绝", func() {
			_, err := engine.Render(context.Background(), &RenderRequest{
				Narrations: []string{"解说"}, TemplateName: "无此模版",
			})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown synthesis template")
		})

		Convey("模版指向未注册的 provider 时拒绝", func() {
			_, err := engine.Render(context.Background(), &RenderRequest{
				Narrations: []string{"解说"}, TemplateName: "孤儿模版",
			})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no strategy registered")
		})
	})
}

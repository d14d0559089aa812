package dubbing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/weizhangcs/vss-cloud/internal/config"
)

// fakeStrategy 可编程的合成策略
type fakeStrategy struct {
	name       string
	capability Capability
	maxChars   int
	failTexts  map[string]bool
	refID      string
	refErr     error
	calls      int32
	lastParams *SynthesisParams
}

func (s *fakeStrategy) Name() string           { return s.name }
func (s *fakeStrategy) Capability() Capability { return s.capability }
func (s *fakeStrategy) DefaultMaxChars() int   { return s.maxChars }

func (s *fakeStrategy) Synthesize(_ context.Context, text string, params *SynthesisParams) (*AudioResult, error) {
	atomic.AddInt32(&s.calls, 1)
	s.lastParams = params
	if s.failTexts[text] {
		return nil, errors.New("provider rejected text")
	}
	return &AudioResult{
		Data:     []byte("RIFF" + text),
		Duration: float64(len([]rune(text))) / 4.2,
		Format:   "mp3",
	}, nil
}

func (s *fakeStrategy) EnsureReferenceAudio(_ context.Context, _ string, _ *config.ReferenceAudio) (string, error) {
	if s.refErr != nil {
		return "", s.refErr
	}
	return s.refID, nil
}

func makeChunks(texts ...string) []*Chunk {
	chunks := make([]*Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &Chunk{Index: i, Text: text}
	}
	return chunks
}

func TestDispatch(t *testing.T) {
	Convey("Dispatcher.Dispatch 并发合成分段", t, func() {
		dispatcher := NewDispatcher(2)
		strategy := &fakeStrategy{name: "fake", capability: CapabilityChunked, maxChars: 90}
		params := &SynthesisParams{VoiceType: "test_voice"}

		Convey("全部成功时每个分段落盘并回填时长", func() {
			dir := t.TempDir()
			chunks := makeChunks("第一段。", "第二段。", "第三段。")

			err := dispatcher.Dispatch(context.Background(), chunks, strategy, params, dir)
			So(err, ShouldBeNil)

			for _, chunk := range chunks {
				So(chunk.Err, ShouldBeNil)
				So(chunk.AudioPath, ShouldNotBeEmpty)
				So(chunk.Duration, ShouldBeGreaterThan, 0)

				data, readErr := os.ReadFile(chunk.AudioPath)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldEqual, "RIFF"+chunk.Text)
			}
		})

		Convey("文件名带分段序号，顺序可恢复", func() {
			dir := t.TempDir()
			chunks := makeChunks("甲。", "乙。")

			So(dispatcher.Dispatch(context.Background(), chunks, strategy, params, dir), ShouldBeNil)
			So(chunks[0].AudioPath, ShouldContainSubstring, "chunk_0000")
			So(chunks[1].AudioPath, ShouldContainSubstring, "chunk_0001")
		})

		Convey("单个分段失败不影响兄弟分段", func() {
			dir := t.TempDir()
			failing := &fakeStrategy{
				name: "fake", capability: CapabilityChunked,
				failTexts: map[string]bool{"坏分段。": true},
			}
			chunks := makeChunks("好分段。", "坏分段。", "另一个好分段。")

			So(dispatcher.Dispatch(context.Background(), chunks, failing, params, dir), ShouldBeNil)
			So(chunks[0].Err, ShouldBeNil)
			So(chunks[2].Err, ShouldBeNil)

			var synthErr *SynthesisError
			So(errors.As(chunks[1].Err, &synthErr), ShouldBeTrue)
			So(synthErr.Chunk, ShouldEqual, 1)
		})

		Convey("空分段列表报错", func() {
			So(dispatcher.Dispatch(context.Background(), nil, strategy, params, t.TempDir()), ShouldNotBeNil)
		})

		Convey("已取消的上下文把取消记录到分段", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			chunks := makeChunks("分段。")
			So(dispatcher.Dispatch(ctx, chunks, strategy, params, t.TempDir()), ShouldBeNil)
			So(chunks[0].Err, ShouldNotBeNil)
		})
	})
}

func TestAssembleFailures(t *testing.T) {
	Convey("Assembler.Assemble 的失败路径", t, func() {
		assembler := NewAssembler(nil)

		Convey("空分段列表返回 AssemblyError", func() {
			_, err := assembler.Assemble(context.Background(), nil, "/tmp/out.mp3")
			var aerr *AssemblyError
			So(errors.As(err, &aerr), ShouldBeTrue)
		})

		Convey("所有分段都失败时返回 AssemblyError", func() {
			chunks := makeChunks("甲。", "乙。")
			for _, chunk := range chunks {
				chunk.Err = fmt.Errorf("synthesis failed")
			}
			_, err := assembler.Assemble(context.Background(), chunks, "/tmp/out.mp3")
			var aerr *AssemblyError
			So(errors.As(err, &aerr), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "all 2 chunks failed")
		})
	})
}

func TestNormalizeChunk(t *testing.T) {
	Convey("分段格式归一化", t, func() {
		assembler := NewAssembler(nil)

		Convey("格式一致时不转码", func() {
			chunk := &Chunk{Index: 0, AudioPath: "/tmp/chunk_0000.mp3"}
			So(assembler.NormalizeChunk(context.Background(), chunk, "mp3"), ShouldBeNil)
			So(chunk.AudioPath, ShouldEqual, "/tmp/chunk_0000.mp3")
		})

		Convey("失败分段跳过", func() {
			chunk := &Chunk{Index: 1, Err: fmt.Errorf("synthesis failed")}
			So(assembler.NormalizeChunk(context.Background(), chunk, "mp3"), ShouldBeNil)
			So(chunk.AudioPath, ShouldEqual, "")
		})

		Convey("交付格式未指定时不转码", func() {
			chunk := &Chunk{Index: 2, AudioPath: "/tmp/chunk_0002.wav"}
			So(assembler.NormalizeChunk(context.Background(), chunk, ""), ShouldBeNil)
			So(chunk.AudioPath, ShouldEqual, "/tmp/chunk_0002.wav")
		})
	})
}

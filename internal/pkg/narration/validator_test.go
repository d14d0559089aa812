package narration

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/weizhangcs/vss-cloud/internal/pkg/blueprint"
)

// 两个场景：1 号 60 秒，2 号 30 秒
func testBlueprint() *blueprint.Blueprint {
	bp, err := blueprint.Parse([]byte(`{
		"project_metadata": {"project_name": "时长测试"},
		"scenes": {
			"1": {"chapter_id": 1, "start_time": "00:00:00.000", "end_time": "00:01:00.000"},
			"2": {"chapter_id": 1, "start_time": "00:01:00.000", "end_time": "00:01:30.000"}
		},
		"narrative_timeline": {"sequence": {"1": {"narrative_index": 0}, "2": {"narrative_index": 1}}}
	}`))
	if err != nil {
		panic(err)
	}
	return bp
}

func TestDurationValidator(t *testing.T) {
	Convey("DurationValidator 的时长账目", t, func() {
		bp := testBlueprint()

		Convey("PredictAudioDuration 按字符数/语速估算", func() {
			v := NewDurationValidator(bp, 4.2, 0)
			text := strings.Repeat("字", 400)
			So(v.PredictAudioDuration(text), ShouldAlmostEqual, 95.24, 0.001)
		})

		Convey("负容忍度收紧上限：60 秒画面、-0.15 容忍度只允许 51 秒", func() {
			v := NewDurationValidator(bp, 4.2, -0.15)
			So(v.Limit(60), ShouldAlmostEqual, 51, 0.001)
		})

		Convey("零容忍度上限等于画面时长", func() {
			v := NewDurationValidator(bp, 4.2, 0)
			So(v.Limit(60), ShouldAlmostEqual, 60, 0.001)
		})

		Convey("正容忍度允许溢出", func() {
			v := NewDurationValidator(bp, 4.2, 0.20)
			So(v.Limit(60), ShouldAlmostEqual, 72, 0.001)
		})

		Convey("MaxChars 把时长上限折算回字符数", func() {
			v := NewDurationValidator(bp, 4.2, -0.15)
			// 51 秒 * 4.2 字/秒 = 214 字
			So(v.MaxChars(60), ShouldEqual, 214)
		})

		Convey("Check 回填片段账目", func() {
			v := NewDurationValidator(bp, 4.2, -0.15)

			Convey("未超限的片段通过", func() {
				seg := &Segment{Narration: strings.Repeat("字", 100), SourceSceneIDs: []int{1}}
				So(v.Check(seg), ShouldBeTrue)
				So(seg.Metadata.TextLen, ShouldEqual, 100)
				So(seg.Metadata.RealVisualDuration, ShouldAlmostEqual, 60, 0.001)
				So(seg.Metadata.DurationLimit, ShouldAlmostEqual, 51, 0.001)
				So(seg.Metadata.OverflowSec, ShouldEqual, 0)
			})

			Convey("超限的片段记录溢出量", func() {
				seg := &Segment{Narration: strings.Repeat("字", 400), SourceSceneIDs: []int{1}}
				So(v.Check(seg), ShouldBeFalse)
				So(seg.Metadata.PredAudioDuration, ShouldAlmostEqual, 95.24, 0.001)
				So(seg.Metadata.OverflowSec, ShouldAlmostEqual, 44.24, 0.001)
			})

			Convey("多场景片段累加画面时长", func() {
				seg := &Segment{Narration: "短", SourceSceneIDs: []int{1, 2}}
				So(v.Check(seg), ShouldBeTrue)
				So(seg.Metadata.RealVisualDuration, ShouldAlmostEqual, 90, 0.001)
			})
		})
	})
}

package blueprint

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const sampleBlueprint = `{
	"project_metadata": {"project_name": "测试剧集"},
	"scenes": {
		"1": {"chapter_id": 1, "start_time": "00:00:00.000", "end_time": "00:00:30.000", "location": "废弃工厂", "mood": "紧张",
			"characters": ["林岚", "陈默"],
			"dialogue": [{"speaker": "林岚", "text": "你到底瞒了我什么？"}, {"speaker": "", "text": "……"}]},
		"2": {"chapter_id": 1, "start_time": "00:00:30.000", "end_time": "00:01:00.000"},
		"3": {"chapter_id": 2, "start_time": "00:00:00.000", "end_time": "00:00:14.330"}
	},
	"narrative_timeline": {
		"sequence": {
			"2": {"narrative_index": 0},
			"1": {"narrative_index": 1},
			"3": {"narrative_index": 2}
		}
	}
}`

func TestParse(t *testing.T) {
	Convey("Parse 能正确解析叙事蓝图", t, func() {
		bp, err := Parse([]byte(sampleBlueprint))
		So(err, ShouldBeNil)
		So(bp.AssetName, ShouldEqual, "测试剧集")
		So(bp.SceneCount(), ShouldEqual, 3)

		Convey("场景按字符串 key 转为 int id", func() {
			s, ok := bp.Scene(1)
			So(ok, ShouldBeTrue)
			So(s.ID, ShouldEqual, 1)
			So(s.Episode, ShouldEqual, 1)
			So(s.Location, ShouldEqual, "废弃工厂")
		})

		Convey("不存在的场景返回 false", func() {
			_, ok := bp.Scene(99)
			So(ok, ShouldBeFalse)
		})

		Convey("场景时长由时间戳差值计算", func() {
			s, _ := bp.Scene(3)
			So(s.Duration(), ShouldAlmostEqual, 14.33, 0.001)
		})

		Convey("end_time 不晚于 start_time 时拒绝解析", func() {
			broken := `{"scenes": {"1": {"start_time": "00:01:00.000", "end_time": "00:01:00.000"}}}`
			_, err := Parse([]byte(broken))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not after")
		})

		Convey("空蓝图拒绝解析", func() {
			_, err := Parse([]byte(`{"scenes": {}}`))
			So(err, ShouldNotBeNil)
		})

		Convey("非法 JSON 拒绝解析", func() {
			_, err := Parse([]byte(`not json`))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseTimecode(t *testing.T) {
	Convey("ParseTimecode 能解析时间戳", t, func() {
		Convey("带毫秒", func() {
			sec, err := ParseTimecode("00:00:14.330")
			So(err, ShouldBeNil)
			So(sec, ShouldAlmostEqual, 14.33, 0.001)
		})

		Convey("小时分钟累加", func() {
			sec, err := ParseTimecode("01:02:03.500")
			So(err, ShouldBeNil)
			So(sec, ShouldAlmostEqual, 3723.5, 0.001)
		})

		Convey("无毫秒写法兼容", func() {
			sec, err := ParseTimecode("00:01:30")
			So(err, ShouldBeNil)
			So(sec, ShouldAlmostEqual, 90, 0.001)
		})

		Convey("非法格式返回错误", func() {
			_, err := ParseTimecode("1分30秒")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestTimeline(t *testing.T) {
	Convey("时间线排序与时长统计", t, func() {
		bp, err := Parse([]byte(sampleBlueprint))
		So(err, ShouldBeNil)

		Convey("SortByTimeline 按叙事序号排序而非 id", func() {
			ids := []int{1, 3, 2}
			bp.SortByTimeline(ids)
			So(ids, ShouldResemble, []int{2, 1, 3})
		})

		Convey("未收录时间线的场景排在最后", func() {
			bp2, err := Parse([]byte(`{
				"scenes": {
					"1": {"start_time": "00:00:00.000", "end_time": "00:00:10.000"},
					"2": {"start_time": "00:00:10.000", "end_time": "00:00:20.000"}
				},
				"narrative_timeline": {"sequence": {"2": {"narrative_index": 0}}}
			}`))
			So(err, ShouldBeNil)
			ids := []int{1, 2}
			bp2.SortByTimeline(ids)
			So(ids, ShouldResemble, []int{2, 1})
		})

		Convey("VisualDuration 累加物理时长", func() {
			So(bp.VisualDuration([]int{1, 2}), ShouldAlmostEqual, 60, 0.001)
			So(bp.VisualDuration([]int{1, 99}), ShouldAlmostEqual, 30, 0.001)
		})
	})
}

func TestContextText(t *testing.T) {
	Convey("ContextText 重组完整的场景文本块", t, func() {
		bp, err := Parse([]byte(sampleBlueprint))
		So(err, ShouldBeNil)

		s, _ := bp.Scene(1)
		text := s.ContextText()

		So(text, ShouldContainSubstring, "[场景 1 | 第 1 集")
		So(text, ShouldContainSubstring, "地点：废弃工厂")
		So(text, ShouldContainSubstring, "氛围：紧张")
		So(text, ShouldContainSubstring, "出场角色：林岚、陈默")
		So(text, ShouldContainSubstring, "林岚：你到底瞒了我什么？")

		Convey("无说话人的台词标记为 Unknown", func() {
			So(text, ShouldContainSubstring, "Unknown：……")
		})

		Convey("缺省字段不输出空行", func() {
			s2, _ := bp.Scene(2)
			text2 := s2.ContextText()
			So(text2, ShouldNotContainSubstring, "地点")
			So(text2, ShouldNotContainSubstring, "氛围")
		})
	})
}

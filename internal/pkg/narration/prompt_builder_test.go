package narration

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPromptBuilder(t *testing.T) {
	Convey("PromptBuilder 组装提示词", t, func() {
		pb := NewPromptBuilder(LoadMetadata(""))

		Convey("视角指令", func() {
			Convey("默认第三人称", func() {
				text := pb.PerspectiveText("zh", &ControlParams{})
				So(text, ShouldContainSubstring, "第三人称")
			})

			Convey("第一人称替换角色名", func() {
				text := pb.PerspectiveText("zh", &ControlParams{
					Perspective:          PerspectiveFirstPerson,
					PerspectiveCharacter: "林岚",
				})
				So(text, ShouldContainSubstring, "林岚")
				So(text, ShouldNotContainSubstring, "{character}")
			})
		})

		Convey("风格指令", func() {
			Convey("未知风格回退到 objective", func() {
				So(pb.StyleText("zh", &ControlParams{Style: "无此风格"}),
					ShouldEqual, pb.StyleText("zh", &ControlParams{Style: "objective"}))
			})

			Convey("custom 风格使用调用方文案", func() {
				text := pb.StyleText("zh", &ControlParams{
					Style:         "custom",
					CustomPrompts: &CustomPrompts{Style: "模仿老式评书的腔调"},
				})
				So(text, ShouldEqual, "模仿老式评书的腔调")
			})
		})

		Convey("目标时长折算为字数指令", func() {
			text := pb.FocusText("zh", "星落之城", &ControlParams{
				NarrativeFocus:        "general",
				TargetDurationMinutes: 5,
			}, 4.2)
			// 5 分钟 * 60 秒 * 4.2 字/秒 = 1260 字
			So(text, ShouldContainSubstring, "5 分钟")
			So(text, ShouldContainSubstring, "1260")
		})

		Convey("未设目标时长时不输出约束", func() {
			text := pb.FocusText("zh", "星落之城", &ControlParams{NarrativeFocus: "general"}, 4.2)
			So(text, ShouldNotContainSubstring, "分钟")
			So(text, ShouldNotContainSubstring, "字数")
		})

		Convey("生成提示词包含四段结构和输出格式要求", func() {
			prompt := pb.BuildGeneratePrompt("zh", "星落之城",
				&ControlParams{NarrativeFocus: "general", Style: "suspenseful"}, 4.2, "【剧情】……")
			So(prompt, ShouldContainSubstring, "【视角】")
			So(prompt, ShouldContainSubstring, "【风格】")
			So(prompt, ShouldContainSubstring, "narration_script")
			So(prompt, ShouldContainSubstring, "source_scene_ids")
			So(prompt, ShouldContainSubstring, "【剧情】……")
		})

		Convey("缩写提示词替换全部占位符", func() {
			prompt := pb.BuildRefinePrompt("zh",
				&ControlParams{Style: "objective"}, "原始解说词", 51, 214)
			So(prompt, ShouldContainSubstring, "214")
			So(prompt, ShouldContainSubstring, "51")
			So(prompt, ShouldContainSubstring, "原始解说词")
			So(prompt, ShouldNotContainSubstring, "{max_chars}")
			So(prompt, ShouldNotContainSubstring, "{original_text}")
		})
	})
}

package dubbing

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func joinChunks(chunks []*Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

func TestSegment(t *testing.T) {
	Convey("Segmenter.Segment 切分合成分段", t, func() {
		seg := NewSegmenter()

		Convey("maxChars <= 0 时整段原样输出", func() {
			text := strings.Repeat("这是一段很长的解说。", 100)
			chunks := seg.Segment(text, 0)
			So(chunks, ShouldHaveLength, 1)
			So(chunks[0].Text, ShouldEqual, text)
			So(chunks[0].Oversized, ShouldBeFalse)
		})

		Convey("空文本返回空", func() {
			So(seg.Segment("", 90), ShouldBeEmpty)
		})

		Convey("短句贪婪合并为单个分段", func() {
			chunks := seg.Segment("第一句。第二句！第三句？", 90)
			So(chunks, ShouldHaveLength, 1)
			So(chunks[0].Text, ShouldEqual, "第一句。第二句！第三句？")
		})

		Convey("超过上限时按句末标点断开", func() {
			a := strings.Repeat("甲", 50) + "。"
			b := strings.Repeat("乙", 50) + "！"
			chunks := seg.Segment(a+b, 90)
			So(chunks, ShouldHaveLength, 2)
			So(chunks[0].Text, ShouldEqual, a)
			So(chunks[1].Text, ShouldEqual, b)
			So(chunks[0].Oversized, ShouldBeFalse)
			So(chunks[1].Oversized, ShouldBeFalse)
		})

		Convey("分段按序拼接无损还原原文", func() {
			texts := []string{
				"他知道真相了。可是已经太晚！一切都结束了吗？不，远没有；故事才刚刚开始。",
				"Short one. " + strings.Repeat("And a much longer sentence here to push over the limit! ", 3),
				strings.Repeat("很长很长的句子", 30) + "。结尾短句。",
			}
			for _, text := range texts {
				chunks := seg.Segment(text, 40)
				So(joinChunks(chunks), ShouldEqual, text)
			}
		})

		Convey("拉丁标点后的空格归入前句", func() {
			text := "First. Second. " + strings.Repeat("x", 35) + "."
			chunks := seg.Segment(text, 20)
			So(joinChunks(chunks), ShouldEqual, text)
			So(chunks[0].Text, ShouldEqual, "First. Second. ")
		})

		Convey("英文称谓缩写的句点不视为句末", func() {
			text := "Mr. Smith met Dr. Lee. Mrs. Jones waited outside."
			clauses := splitClauses(text)
			So(clauses, ShouldHaveLength, 2)
			So(clauses[0], ShouldEqual, "Mr. Smith met Dr. Lee. ")
			So(clauses[1], ShouldEqual, "Mrs. Jones waited outside.")

			Convey("缩写词出现在普通词尾时照常切分", func() {
				other := splitClauses("He walked on Blvd. Then stopped.")
				So(other, ShouldHaveLength, 2)
			})

			Convey("分段边界不落在缩写中间", func() {
				chunks := seg.Segment("A tale. Mr. Smith left. "+strings.Repeat("y", 30)+".", 16)
				So(joinChunks(chunks), ShouldEqual, "A tale. Mr. Smith left. "+strings.Repeat("y", 30)+".")
				So(chunks[1].Text, ShouldEqual, "Mr. Smith left. ")
			})
		})

		Convey("无标点超长单句按词边界细分且无损", func() {
			text := strings.Repeat("今天天气真好我们一起去公园散步", 10)
			chunks := seg.Segment(text, 30)
			So(len(chunks), ShouldBeGreaterThan, 1)
			So(joinChunks(chunks), ShouldEqual, text)
		})

		Convey("Index 连续递增", func() {
			chunks := seg.Segment(strings.Repeat("一句话。", 40), 20)
			for i, c := range chunks {
				So(c.Index, ShouldEqual, i)
			}
		})
	})
}

func TestInstructTable(t *testing.T) {
	Convey("InstructTable 风格指令表", t, func() {
		Convey("内置默认表覆盖四种风格", func() {
			table := LoadInstructTable(t.TempDir())
			So(table.Lookup("zh", "objective"), ShouldNotBeEmpty)
			So(table.Lookup("zh", "suspenseful"), ShouldNotBeEmpty)
			So(table.Lookup("en", "humorous"), ShouldNotBeEmpty)
			So(table.Lookup("en", "emotional"), ShouldNotBeEmpty)
		})

		Convey("未登记的语言或风格返回空串", func() {
			table := LoadInstructTable(t.TempDir())
			So(table.Lookup("fr", "objective"), ShouldBeEmpty)
			So(table.Lookup("zh", "无此风格"), ShouldBeEmpty)
		})
	})
}

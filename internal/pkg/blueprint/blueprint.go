package blueprint

import (
	"fmt"
	"sort"
	"strings"
)

// DialogueLine 场景内的单句台词
type DialogueLine struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start,omitempty"`
	End     float64 `json:"end,omitempty"`
}

// Scene 蓝图中的单个场景
// 从蓝图加载后不可变，作为解说生成的唯一事实来源
type Scene struct {
	ID         int            `json:"id"`
	Episode    int            `json:"chapter_id"` // 所属集数（蓝图中的历史字段名为 chapter_id）
	StartTime  string         `json:"start_time"` // "HH:MM:SS.mmm"
	EndTime    string         `json:"end_time"`
	Location   string         `json:"location,omitempty"`
	Mood       string         `json:"mood,omitempty"`
	Dialogue   []DialogueLine `json:"dialogue,omitempty"`
	Characters []string       `json:"characters,omitempty"`
}

// Duration 场景的物理时长（秒）
func (s *Scene) Duration() float64 {
	start, err1 := ParseTimecode(s.StartTime)
	end, err2 := ParseTimecode(s.EndTime)
	if err1 != nil || err2 != nil {
		return 0
	}
	d := end - start
	if d < 0 {
		return 0
	}
	return d
}

// ContextText 将场景重组为提供给生成服务的标准化文本块
// 检索返回的碎片文本全部丢弃，统一使用蓝图的全量数据
func (s *Scene) ContextText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[场景 %d | 第 %d 集 | %s - %s]\n", s.ID, s.Episode, s.StartTime, s.EndTime)
	if s.Location != "" {
		fmt.Fprintf(&b, "地点：%s\n", s.Location)
	}
	if s.Mood != "" {
		fmt.Fprintf(&b, "氛围：%s\n", s.Mood)
	}
	if len(s.Characters) > 0 {
		fmt.Fprintf(&b, "出场角色：%s\n", strings.Join(s.Characters, "、"))
	}
	for _, line := range s.Dialogue {
		speaker := line.Speaker
		if speaker == "" {
			speaker = "Unknown"
		}
		fmt.Fprintf(&b, "%s：%s\n", speaker, line.Text)
	}
	return b.String()
}

// Blueprint 剧集叙事蓝图：有序场景时间线 + 衍生索引
type Blueprint struct {
	AssetName string
	scenes    map[int]*Scene
	timeline  map[int]int // scene id -> 叙事序号
}

// 未收录场景排在时间线最后
const unrankedPosition = 99999

// Scene 按 id 查找场景
func (b *Blueprint) Scene(id int) (*Scene, bool) {
	s, ok := b.scenes[id]
	return s, ok
}

// SceneCount 蓝图中的场景总数
func (b *Blueprint) SceneCount() int {
	return len(b.scenes)
}

// TimelineRank 场景在叙事时间线中的序号
func (b *Blueprint) TimelineRank(id int) int {
	if rank, ok := b.timeline[id]; ok {
		return rank
	}
	return unrankedPosition
}

// SortByTimeline 按叙事时间线排序场景 id（原地排序）
// 检索相似度顺序在这里被彻底抛弃
func (b *Blueprint) SortByTimeline(ids []int) {
	sort.Slice(ids, func(i, j int) bool {
		return b.TimelineRank(ids[i]) < b.TimelineRank(ids[j])
	})
}

// VisualDuration 一组场景的物理总时长（秒）
func (b *Blueprint) VisualDuration(ids []int) float64 {
	var total float64
	for _, id := range ids {
		if s, ok := b.scenes[id]; ok {
			total += s.Duration()
		}
	}
	return total
}

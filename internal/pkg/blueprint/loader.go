package blueprint

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 蓝图 JSON 的原始结构（历史格式，key 为字符串形式的场景 id）
type rawBlueprint struct {
	ProjectMetadata struct {
		ProjectName string `json:"project_name"`
	} `json:"project_metadata"`
	Scenes            map[string]*Scene `json:"scenes"`
	NarrativeTimeline struct {
		Sequence map[string]struct {
			NarrativeIndex int `json:"narrative_index"`
		} `json:"sequence"`
	} `json:"narrative_timeline"`
}

// Load 从文件加载叙事蓝图
func Load(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprint: %w", err)
	}
	return Parse(data)
}

// Parse 解析叙事蓝图 JSON
// 场景时间必须满足 end > start，否则视为蓝图损坏
func Parse(data []byte) (*Blueprint, error) {
	var raw rawBlueprint
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse blueprint: %w", err)
	}

	bp := &Blueprint{
		AssetName: raw.ProjectMetadata.ProjectName,
		scenes:    make(map[int]*Scene, len(raw.Scenes)),
		timeline:  make(map[int]int, len(raw.NarrativeTimeline.Sequence)),
	}

	for key, scene := range raw.Scenes {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		scene.ID = id

		start, err := ParseTimecode(scene.StartTime)
		if err != nil {
			return nil, fmt.Errorf("scene %d: bad start_time %q: %w", id, scene.StartTime, err)
		}
		end, err := ParseTimecode(scene.EndTime)
		if err != nil {
			return nil, fmt.Errorf("scene %d: bad end_time %q: %w", id, scene.EndTime, err)
		}
		if end <= start {
			return nil, fmt.Errorf("scene %d: end_time %q not after start_time %q", id, scene.EndTime, scene.StartTime)
		}

		bp.scenes[id] = scene
	}

	if len(bp.scenes) == 0 {
		return nil, fmt.Errorf("blueprint contains no scenes")
	}

	for key, val := range raw.NarrativeTimeline.Sequence {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		bp.timeline[id] = val.NarrativeIndex
	}

	return bp, nil
}

// ParseTimecode 解析 "HH:MM:SS.mmm" 格式的时间戳为秒数
// 示例: "00:00:14.330" -> 14.33
func ParseTimecode(tc string) (float64, error) {
	tc = strings.TrimSpace(tc)
	t, err := time.Parse("15:04:05.000", tc)
	if err != nil {
		// 兼容无毫秒的写法
		t, err = time.Parse("15:04:05", tc)
		if err != nil {
			return 0, err
		}
	}
	seconds := float64(t.Hour())*3600 + float64(t.Minute())*60 + float64(t.Second()) +
		float64(t.Nanosecond())/1e9
	return seconds, nil
}

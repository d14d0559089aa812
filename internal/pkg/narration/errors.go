package narration

import (
	"errors"
	"fmt"
)

// ErrEmptyContext 检索命中的场景经过范围过滤后为空，请求级致命错误，不重试
var ErrEmptyContext = errors.New("no scenes survived context filtering")

// ValidationError 控制参数结构性错误，在任何外部调用之前返回
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid control params: %s: %s", e.Field, e.Reason)
}

// GenerationError 生成服务调用失败
// 携带片段定位信息，调用方可按片段粒度重试
type GenerationError struct {
	Stage   string // generate / refine
	Segment int    // 片段下标，-1 表示整体调用
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Segment >= 0 {
		return fmt.Sprintf("generation service failed at %s (segment %d): %v", e.Stage, e.Segment, e.Err)
	}
	return fmt.Sprintf("generation service failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

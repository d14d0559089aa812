package narration

import (
	"regexp"
	"strings"
)

// 舞台指示和音效标记：（音乐起）、(Laughs)、[sigh]、【画外音】 等
var (
	parenPattern   = regexp.MustCompile(`（[^）]*）|\([^)]*\)`)
	bracketPattern = regexp.MustCompile(`\[[^\]]*\]|【[^】]*】`)
	spacePattern   = regexp.MustCompile(`[ \t]+`)
)

// SanitizeText 清洗解说文本，移除括号内的舞台指示和非口播标注
// 生成和缩写的输出都必须经过这里，防止标记泄露到下游语音合成
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	text = parenPattern.ReplaceAllString(text, "")
	text = bracketPattern.ReplaceAllString(text, "")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

package dubbing

import (
	"strings"

	"github.com/go-ego/gse"
	"github.com/rs/zerolog/log"
)

// 句末终止符：中日韩全角标点加拉丁半角标点
var sentenceEndings = map[rune]bool{
	'。': true, '！': true, '？': true, '；': true,
	'.': true, '!': true, '?': true, ';': true,
}

// Segmenter 文本切分器
// 将解说文本切分为不超过 max_chars 的合成分段：
// 先按句末标点打散为原子短句，再贪婪合并以减少 provider 调用次数。
// 所有分段按序拼接必须无损还原原文。
type Segmenter struct {
	segmenter *gse.Segmenter
}

// NewSegmenter 创建文本切分器
func NewSegmenter() *Segmenter {
	seg, err := gse.New()
	if err != nil {
		// 分词器初始化失败时超长单句只标记不再细分
		log.Warn().Err(err).Msg("gse 分词器初始化失败，超长单句将整段标记")
		return &Segmenter{}
	}
	return &Segmenter{segmenter: &seg}
}

// Segment 切分文本
// maxChars <= 0 表示 provider 支持长文本，整段原样输出（no-op）
func (s *Segmenter) Segment(text string, maxChars int) []*Chunk {
	if text == "" {
		return nil
	}

	if maxChars <= 0 {
		return []*Chunk{{Index: 0, Text: text}}
	}

	clauses := splitClauses(text)

	var merged []string
	var buffer strings.Builder
	flush := func() {
		if buffer.Len() > 0 {
			merged = append(merged, buffer.String())
			buffer.Reset()
		}
	}

	for _, clause := range clauses {
		if runeLen(buffer.String())+runeLen(clause) <= maxChars {
			buffer.WriteString(clause)
			continue
		}
		flush()

		if runeLen(clause) > maxChars {
			// 无标点长句：先按词边界细分，细分仍超限的词整块输出并标记
			merged = append(merged, s.splitOversized(clause, maxChars)...)
			continue
		}
		buffer.WriteString(clause)
	}
	flush()

	chunks := make([]*Chunk, 0, len(merged))
	for i, part := range merged {
		chunks = append(chunks, &Chunk{
			Index:     i,
			Text:      part,
			Oversized: runeLen(part) > maxChars,
		})
	}
	return chunks
}

// 半角句点跟在这些缩写后面时不视为句末
var latinAbbreviations = []string{"Mr", "Mrs", "Ms", "Dr", "St"}

// splitClauses 按句末标点切分为原子短句，标点保留在前句末尾
// 拉丁标点后的空格一并归入前句，保证拼接无损
func splitClauses(text string) []string {
	var clauses []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if !sentenceEndings[r] {
			continue
		}
		if r == '.' && endsWithAbbreviation(runes[:i]) {
			continue
		}
		// 吸收标点后的连续空白
		for i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t') {
			i++
			current.WriteRune(runes[i])
		}
		clauses = append(clauses, current.String())
		current.Reset()
	}
	if current.Len() > 0 {
		clauses = append(clauses, current.String())
	}
	return clauses
}

// endsWithAbbreviation 判断句点前的文本是否以缩写词结尾
// 缩写前必须是非字母（或文本开头），避免把 "Blvd" 这种词尾误判
func endsWithAbbreviation(before []rune) bool {
	for _, abbr := range latinAbbreviations {
		ar := []rune(abbr)
		if len(before) < len(ar) {
			continue
		}
		match := true
		for j := range ar {
			if before[len(before)-len(ar)+j] != ar[j] {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		if len(before) == len(ar) {
			return true
		}
		prev := before[len(before)-len(ar)-1]
		if !isLatinLetter(prev) {
			return true
		}
	}
	return false
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// splitOversized 按词边界细分超长短句
// 无分词器可用时整句输出，由调用方通过 Oversized 标记感知
func (s *Segmenter) splitOversized(clause string, maxChars int) []string {
	if s.segmenter == nil {
		return []string{clause}
	}

	words := s.segmenter.Cut(clause, false)
	if strings.Join(words, "") != clause {
		// 分词结果无法无损还原原文时放弃细分
		return []string{clause}
	}

	var parts []string
	var buffer strings.Builder
	for _, word := range words {
		if runeLen(buffer.String())+runeLen(word) > maxChars && buffer.Len() > 0 {
			parts = append(parts, buffer.String())
			buffer.Reset()
		}
		buffer.WriteString(word)
	}
	if buffer.Len() > 0 {
		parts = append(parts, buffer.String())
	}
	return parts
}

func runeLen(s string) int {
	return len([]rune(s))
}

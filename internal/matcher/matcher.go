package matcher

import (
	"strings"
	"unicode"

	"github.com/allanpk716/csv_word_merge/internal/domain"
)

// DefaultDelimiter 占位符默认的分隔符，占位符格式为 _key_
const DefaultDelimiter = "_"

// keywordMatcher 关键词匹配器实现
type keywordMatcher struct {
	delimiter string
}

// NewKeywordMatcher 创建新的关键词匹配器，delimiter 为空时使用默认分隔符
func NewKeywordMatcher(delimiter string) domain.KeywordMatcher {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &keywordMatcher{delimiter: delimiter}
}

// Token 将字段名格式化为占位符，字段名先去掉首尾空白
func (km *keywordMatcher) Token(field string) string {
	return FormatKeyword(strings.TrimSpace(field), km.delimiter)
}

// Contains 判断段落文本中是否包含占位符。
// 被拆分到多个 run 的占位符在拼接后的段落文本中仍然是连续的。
func (km *keywordMatcher) Contains(content, token string) bool {
	return token != "" && strings.Contains(content, token)
}

// GetMatchStats 获取每个字段对应占位符的出现次数
func (km *keywordMatcher) GetMatchStats(content string, fields []string) map[string]int {
	stats := make(map[string]int, len(fields))
	for _, field := range fields {
		token := km.Token(field)
		if token == "" {
			continue
		}
		stats[field] += strings.Count(content, token)
	}
	return stats
}

// FindKeywords 从左到右找出文本中 _key_ 形式的占位符，返回其中的名称。
// 名称不能为空也不能包含空白；名称中含有分隔符的占位符无法与相邻文本区分，
// 调用方应先去掉已知的占位符再查找。
func (km *keywordMatcher) FindKeywords(content string) []string {
	d := km.delimiter
	var names []string
	for i := 0; i < len(content); {
		start := strings.Index(content[i:], d)
		if start < 0 {
			break
		}
		start += i
		end := strings.Index(content[start+len(d):], d)
		if end < 0 {
			break
		}
		end += start + len(d)

		keyword := content[start : end+len(d)]
		name := content[start+len(d) : end]
		if strings.IndexFunc(name, unicode.IsSpace) >= 0 || !ValidateKeywordFormat(keyword, d) {
			// 结束分隔符可能是下一个占位符的开头
			i = end
			continue
		}
		names = append(names, ExtractKeywordName(keyword, d))
		i = end + len(d)
	}
	return names
}

// ValidateKeywordFormat 验证关键词格式是否正确 (_key_ 格式)
func ValidateKeywordFormat(keyword, delimiter string) bool {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if len(keyword) <= 2*len(delimiter) {
		return false
	}
	return strings.HasPrefix(keyword, delimiter) && strings.HasSuffix(keyword, delimiter)
}

// ExtractKeywordName 从 _key_ 格式中提取关键词名称
func ExtractKeywordName(keyword, delimiter string) string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if !ValidateKeywordFormat(keyword, delimiter) {
		return keyword
	}
	return keyword[len(delimiter) : len(keyword)-len(delimiter)]
}

// FormatKeyword 将关键词名称格式化为 _key_ 格式。
// 名称本身可能以分隔符开头（如 CSV 列名 _id），这里总是加上分隔符。
func FormatKeyword(keywordName, delimiter string) string {
	if keywordName == "" {
		return ""
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return delimiter + keywordName + delimiter
}

package domain

import (
	"context"
	"encoding/json"
	"strings"
)

// MergeProcessor 合并处理器接口
type MergeProcessor interface {
	ProcessRecord(ctx context.Context, record Record) RecordResult
	ProcessAll(ctx context.Context, records []Record) *ProcessResult
}

// KeywordMatcher 关键词匹配器接口
type KeywordMatcher interface {
	Token(field string) string
	Contains(content, token string) bool
	GetMatchStats(content string, fields []string) map[string]int
	FindKeywords(content string) []string
}

// RecordSource 表格数据源接口
type RecordSource interface {
	Records(ctx context.Context) ([]Record, error)
	Columns() []string
}

// Converter 格式转换接口，返回转换后的文件路径
type Converter interface {
	Convert(ctx context.Context, inputPath string) (string, error)
}

// Field 记录中的一个字段
type Field struct {
	Name  string
	Value string
}

// Record 表格中的一行，字段保持表头顺序
type Record struct {
	Index  int // 从 1 开始的数据行号
	Fields []Field
}

// Get 按字段名取值，字段名比较前去掉首尾空白
func (r Record) Get(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, f := range r.Fields {
		if strings.TrimSpace(f.Name) == name {
			return f.Value, true
		}
	}
	return "", false
}

// Map 转换为 map，便于日志输出
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// RecordStatus 单条记录的处理状态
type RecordStatus string

const (
	StatusMerged    RecordStatus = "merged"
	StatusSkipped   RecordStatus = "skipped"
	StatusNoChanges RecordStatus = "no_changes"
	StatusFailed    RecordStatus = "failed"
)

// RecordResult 单条记录的处理结果
type RecordResult struct {
	Index     int          `json:"index"`
	Name      string       `json:"name"`
	Status    RecordStatus `json:"status"`
	Changes   int          `json:"changes"`
	Output    string       `json:"output,omitempty"`
	Converted string       `json:"converted,omitempty"`
	Err       error        `json:"-"`
}

// MarshalJSON 输出时附带错误信息
func (r RecordResult) MarshalJSON() ([]byte, error) {
	type alias RecordResult
	out := struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(r)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// ProcessResult 处理结果
type ProcessResult struct {
	Success      bool           `json:"success"`
	Merged       int            `json:"merged"`
	Skipped      int            `json:"skipped"`
	NoChanges    int            `json:"no_changes"`
	Failed       int            `json:"failed"`
	Replacements int            `json:"replacements"`
	Records      []RecordResult `json:"records"`
	Errors       []error        `json:"-"`
}

// Add 汇总一条记录的结果
func (r *ProcessResult) Add(rr RecordResult) {
	r.Records = append(r.Records, rr)
	r.Replacements += rr.Changes
	switch rr.Status {
	case StatusMerged:
		r.Merged++
	case StatusSkipped:
		r.Skipped++
	case StatusNoChanges:
		r.NoChanges++
	case StatusFailed:
		r.Failed++
		if rr.Err != nil {
			r.Errors = append(r.Errors, rr.Err)
		}
	}
	r.Success = r.Failed == 0
}

// ReplacementStats 模板中某个字段占位符的统计信息
type ReplacementStats struct {
	Field        string `json:"field"`
	Token        string `json:"token"`
	Occurrences  int    `json:"occurrences"`
	InTables     int    `json:"in_tables"`
	InParagraphs int    `json:"in_paragraphs"`
	// NoField 模板中有这个占位符，但没有同名的字段，Field 为占位符中的名称
	NoField bool `json:"no_field,omitempty"`
}

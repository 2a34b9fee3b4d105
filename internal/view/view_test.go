package view

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/csv_word_merge/internal/domain"
)

func sampleResult() *domain.ProcessResult {
	result := &domain.ProcessResult{}
	result.Add(domain.RecordResult{Index: 1, Name: "Alice", Status: domain.StatusMerged, Changes: 3, Output: "out/Alice.docx", Converted: "out/Alice.pdf"})
	result.Add(domain.RecordResult{Index: 2, Status: domain.StatusSkipped})
	result.Add(domain.RecordResult{Index: 3, Name: "Bob", Status: domain.StatusFailed, Changes: 2, Output: "out/Bob.docx", Err: errors.New("记录 3 (Bob): 格式转换失败")})
	return result
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"empty (default)", "", false},
		{"table", "table", false},
		{"json", "json", false},
		{"plain", "plain", true},
		{"TABLE uppercase", "TABLE", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormat(tt.format)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "无效的输出格式")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRenderer_RenderTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, true)
	r.SetWriter(&buf)

	r.RenderTable([]string{"ID", "NAME"}, [][]string{{"1", "First"}, {"22", "Second"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID  NAME", lines[0])
	assert.Equal(t, "1   First", lines[1])
	assert.Equal(t, "22  Second", lines[2])
}

func TestRenderer_RenderResult_Table(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, true)
	r.SetWriter(&buf)

	require.NoError(t, r.RenderResult(sampleResult()))

	output := buf.String()
	assert.Contains(t, output, "ROW")
	assert.Contains(t, output, "out/Alice.pdf")
	assert.Contains(t, output, "skipped")
	assert.Contains(t, output, "✗ 生成 1 个，跳过 1 个，无变化 0 个，失败 1 个，共替换 5 处")
	assert.Contains(t, output, "✗ 记录 3 (Bob): 格式转换失败")
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestRenderer_RenderResult_AlignedWithColor(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = noColor })

	var buf bytes.Buffer
	r := NewRenderer(FormatTable, false)
	r.SetWriter(&buf)

	result := &domain.ProcessResult{}
	result.Add(domain.RecordResult{Index: 1, Name: "张三", Status: domain.StatusMerged, Changes: 3, Output: "a.docx"})
	result.Add(domain.RecordResult{Index: 2, Status: domain.StatusSkipped})
	require.NoError(t, r.RenderResult(result))

	require.Contains(t, buf.String(), "\x1b[")
	lines := strings.Split(ansiEscape.ReplaceAllString(buf.String(), ""), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "ROW  NAME  STATUS   CHANGES  OUTPUT", lines[0])
	assert.Equal(t, "1    张三  merged   3        a.docx", lines[1])
	assert.Equal(t, "2    "+"      "+"skipped  "+"0        ", lines[2])
}

func TestRenderer_RenderResult_Success(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, true)
	r.SetWriter(&buf)

	result := &domain.ProcessResult{}
	result.Add(domain.RecordResult{Index: 1, Name: "Alice", Status: domain.StatusNoChanges})
	require.NoError(t, r.RenderResult(result))

	assert.Contains(t, buf.String(), "✓ ")
	assert.Contains(t, buf.String(), "no_changes")
}

func TestRenderer_RenderResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatJSON, true)
	r.SetWriter(&buf)

	require.NoError(t, r.RenderResult(sampleResult()))

	var decoded struct {
		Success bool     `json:"success"`
		Failed  int      `json:"failed"`
		Errors  []string `json:"errors"`
		Records []struct {
			Index  int    `json:"index"`
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.False(t, decoded.Success)
	assert.Equal(t, 1, decoded.Failed)
	assert.Equal(t, []string{"记录 3 (Bob): 格式转换失败"}, decoded.Errors)
	require.Len(t, decoded.Records, 3)
	assert.Equal(t, "skipped", decoded.Records[1].Status)
	assert.Empty(t, decoded.Records[0].Error)
	assert.Equal(t, "记录 3 (Bob): 格式转换失败", decoded.Records[2].Error)
}

func TestRenderer_RenderStats(t *testing.T) {
	stats := []domain.ReplacementStats{
		{Field: "name", Token: "_name_", Occurrences: 2, InParagraphs: 1, InTables: 1},
		{Field: "email", Token: "_email_"},
	}

	var buf bytes.Buffer
	r := NewRenderer(FormatTable, true)
	r.SetWriter(&buf)
	require.NoError(t, r.RenderStats(stats))

	output := buf.String()
	assert.Contains(t, output, "_name_")
	assert.Contains(t, output, "! 1 个字段在模板中没有对应的占位符")
	assert.NotContains(t, output, "占位符没有对应的字段")

	buf.Reset()
	withUnknown := append(stats, domain.ReplacementStats{Field: "zip", Token: "_zip_", Occurrences: 1, InParagraphs: 1, NoField: true})
	require.NoError(t, r.RenderStats(withUnknown))
	assert.Contains(t, buf.String(), "! 1 个占位符没有对应的字段: _zip_")

	buf.Reset()
	r = NewRenderer(FormatJSON, true)
	r.SetWriter(&buf)
	require.NoError(t, r.RenderStats(stats))

	var decoded []domain.ReplacementStats
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, stats, decoded)
}

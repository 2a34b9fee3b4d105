// Package view 负责把处理结果输出为表格或JSON。
package view

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/allanpk716/csv_word_merge/internal/domain"
)

// Format 输出格式
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ValidFormats 返回支持的输出格式
func ValidFormats() []string {
	return []string{string(FormatTable), string(FormatJSON)}
}

// ValidateFormat 检查输出格式，空字符串表示默认的表格格式
func ValidateFormat(format string) error {
	switch Format(format) {
	case "", FormatTable, FormatJSON:
		return nil
	}
	return fmt.Errorf("无效的输出格式 %q，可选: %v", format, ValidFormats())
}

// Renderer 按指定格式输出
type Renderer struct {
	format Format
	writer io.Writer
}

// NewRenderer 创建输出器
func NewRenderer(format Format, noColor bool) *Renderer {
	if noColor {
		color.NoColor = true
	}
	if format == "" {
		format = FormatTable
	}
	return &Renderer{
		format: format,
		writer: os.Stdout,
	}
}

// SetWriter 设置输出目标
func (r *Renderer) SetWriter(w io.Writer) {
	r.writer = w
}

// columnGap 列之间的空格
const columnGap = "  "

// cell 表格单元格。paint 只作用于文字本身，用于对齐的空格不着色，
// 这样列宽按显示宽度计算，不受颜色转义序列影响
type cell struct {
	text  string
	paint func(a ...interface{}) string
}

// RenderTable 输出对齐的表格
func (r *Renderer) RenderTable(headers []string, rows [][]string) {
	cells := make([][]cell, len(rows))
	for i, row := range rows {
		for _, val := range row {
			cells[i] = append(cells[i], cell{text: val})
		}
	}
	r.renderCells(headers, cells)
}

func (r *Renderer) renderCells(headers []string, rows [][]cell) {
	bold := color.New(color.Bold).SprintFunc()
	head := make([]cell, len(headers))
	for i, h := range headers {
		head[i] = cell{text: h, paint: bold}
	}

	var widths []int
	measure := func(row []cell) {
		for i, c := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(c.text))
		}
	}
	measure(head)
	for _, row := range rows {
		measure(row)
	}

	r.writeRow(head, widths)
	for _, row := range rows {
		r.writeRow(row, widths)
	}
}

func (r *Renderer) writeRow(row []cell, widths []int) {
	var b strings.Builder
	for i, c := range row {
		if i > 0 {
			b.WriteString(columnGap)
		}
		if c.paint != nil {
			b.WriteString(c.paint(c.text))
		} else {
			b.WriteString(c.text)
		}
		if i < len(row)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(c.text)))
		}
	}
	fmt.Fprintln(r.writer, b.String())
}

// RenderJSON 输出JSON
func (r *Renderer) RenderJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(r.writer, string(data))
	return nil
}

// resultJSON 在JSON输出中带上错误信息
type resultJSON struct {
	*domain.ProcessResult
	Errors []string `json:"errors,omitempty"`
}

// RenderResult 输出合并结果
func (r *Renderer) RenderResult(result *domain.ProcessResult) error {
	if r.format == FormatJSON {
		out := resultJSON{ProcessResult: result}
		for _, err := range result.Errors {
			out.Errors = append(out.Errors, err.Error())
		}
		return r.RenderJSON(out)
	}

	rows := make([][]cell, 0, len(result.Records))
	for _, rr := range result.Records {
		output := rr.Output
		if rr.Converted != "" {
			output = rr.Converted
		}
		rows = append(rows, []cell{
			{text: strconv.Itoa(rr.Index)},
			{text: rr.Name},
			statusCell(rr.Status),
			{text: strconv.Itoa(rr.Changes)},
			{text: output},
		})
	}
	r.renderCells([]string{"ROW", "NAME", "STATUS", "CHANGES", "OUTPUT"}, rows)

	fmt.Fprintln(r.writer)
	summary := fmt.Sprintf("生成 %d 个，跳过 %d 个，无变化 %d 个，失败 %d 个，共替换 %d 处",
		result.Merged, result.Skipped, result.NoChanges, result.Failed, result.Replacements)
	if result.Success {
		r.Success(summary)
		return nil
	}
	r.Error(summary)
	for _, err := range result.Errors {
		r.Error(err.Error())
	}
	return nil
}

// RenderStats 输出模板占位符统计。
// 模板中不存在的字段，以及模板中有占位符却没有对应字段的行，以警告颜色显示。
func (r *Renderer) RenderStats(stats []domain.ReplacementStats) error {
	if r.format == FormatJSON {
		return r.RenderJSON(stats)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	rows := make([][]cell, 0, len(stats))
	missing := 0
	var unmatched []string
	for _, s := range stats {
		field := cell{text: s.Field}
		total := cell{text: strconv.Itoa(s.Occurrences)}
		switch {
		case s.NoField:
			field.paint = yellow
			unmatched = append(unmatched, s.Token)
		case s.Occurrences == 0:
			total.paint = yellow
			missing++
		}
		rows = append(rows, []cell{
			field,
			{text: s.Token},
			total,
			{text: strconv.Itoa(s.InParagraphs)},
			{text: strconv.Itoa(s.InTables)},
		})
	}
	r.renderCells([]string{"FIELD", "TOKEN", "TOTAL", "PARAGRAPHS", "TABLES"}, rows)

	if missing > 0 || len(unmatched) > 0 {
		fmt.Fprintln(r.writer)
	}
	if missing > 0 {
		r.Warning(fmt.Sprintf("%d 个字段在模板中没有对应的占位符", missing))
	}
	if len(unmatched) > 0 {
		r.Warning(fmt.Sprintf("%d 个占位符没有对应的字段: %s", len(unmatched), strings.Join(unmatched, ", ")))
	}
	return nil
}

func statusCell(status domain.RecordStatus) cell {
	c := cell{text: string(status)}
	switch status {
	case domain.StatusMerged:
		c.paint = color.New(color.FgGreen).SprintFunc()
	case domain.StatusSkipped, domain.StatusNoChanges:
		c.paint = color.New(color.FgYellow).SprintFunc()
	case domain.StatusFailed:
		c.paint = color.New(color.FgRed).SprintFunc()
	}
	return c
}

// Success 输出成功信息
func (r *Renderer) Success(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintln(r.writer, "✓ "+msg)
}

// Warning 输出警告信息
func (r *Renderer) Warning(msg string) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintln(r.writer, "! "+msg)
}

// Error 输出错误信息
func (r *Renderer) Error(msg string) {
	red := color.New(color.FgRed)
	red.Fprintln(r.writer, "✗ "+msg)
}

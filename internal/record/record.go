// Package record 读取用于合并的表格数据，每一行是一条有序的字段记录。
package record

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/allanpk716/csv_word_merge/internal/domain"
)

var (
	// ErrEmptySource 数据文件中没有表头
	ErrEmptySource = errors.New("数据文件为空")
	// ErrUnsupportedFormat 无法识别的数据文件格式
	ErrUnsupportedFormat = errors.New("不支持的数据文件格式")
)

// Options 读取数据文件的选项
type Options struct {
	// Sheet XLSX 工作表名称，为空时使用第一个工作表
	Sheet string
}

// Open 根据扩展名打开数据文件：.csv、.json、.xlsx
func Open(path string, opts Options) (domain.RecordSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return NewCSVSource(path)
	case ".json":
		return NewJSONSource(path)
	case ".xlsx", ".xlsm":
		return NewXLSXSource(path, opts.Sheet)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// table 所有数据源共用的内存表
type table struct {
	columns []string
	records []domain.Record
}

func (t *table) Records(ctx context.Context) ([]domain.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := make([]domain.Record, len(t.records))
	copy(out, t.records)
	return out, nil
}

func (t *table) Columns() []string {
	return t.columns
}

// newTable 由表头和数据行构造记录。
// 行比表头短时缺失的字段为空字符串，多出的字段被丢弃；
// 表头重复时保留第一次出现的位置、最后一次出现的值；
// 所有单元格都为空的行被跳过。
func newTable(header []string, rows [][]string) *table {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &table{columns: header}
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		if len(row) > len(header) {
			logrus.Warnf("第 %d 行有 %d 个字段，表头只有 %d 个，多余的字段被忽略", i+2, len(row), len(header))
		}

		rec := domain.Record{Index: i + 1}
		positions := make(map[string]int, len(header))
		for j, name := range header {
			value := ""
			if j < len(row) {
				value = row[j]
			}
			setField(&rec, positions, name, value)
		}
		t.records = append(t.records, rec)
	}
	return t
}

// setField 追加字段，同名字段只保留第一次出现的位置
func setField(rec *domain.Record, positions map[string]int, name, value string) {
	if pos, ok := positions[name]; ok {
		rec.Fields[pos].Value = value
		return
	}
	positions[name] = len(rec.Fields)
	rec.Fields = append(rec.Fields, domain.Field{Name: name, Value: value})
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

package record

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXSource 从Excel工作表读取记录，第一行为表头
type XLSXSource struct {
	*table
	sheet string
}

// NewXLSXSource 读取XLSX文件，sheet 为空时使用第一个工作表
func NewXLSXSource(path, sheet string) (*XLSXSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开XLSX文件失败: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptySource, path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表 %s 失败: %w", sheet, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s (%s)", ErrEmptySource, path, sheet)
	}

	return &XLSXSource{table: newTable(rows[0], rows[1:]), sheet: sheet}, nil
}

// Sheet 返回实际读取的工作表名称
func (s *XLSXSource) Sheet() string {
	return s.sheet
}

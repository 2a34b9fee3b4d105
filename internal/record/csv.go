package record

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVSource 从CSV文件读取记录，第一行为表头
type CSVSource struct {
	*table
}

// NewCSVSource 读取CSV文件
func NewCSVSource(path string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开CSV文件失败: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("读取CSV失败: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}

	return &CSVSource{table: newTable(rows[0], rows[1:])}, nil
}

package record

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/allanpk716/csv_word_merge/internal/domain"
)

// JSONSource 从JSON文件读取记录，文件内容必须是对象数组，字段顺序与对象中键的顺序一致
type JSONSource struct {
	*table
}

// NewJSONSource 读取JSON文件
func NewJSONSource(path string) (*JSONSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开JSON文件失败: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("解析JSON失败: %s 不是有效的JSON", path)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("JSON文件必须是对象数组: %s", path)
	}

	t := &table{}
	columns := make(map[string]bool)
	root.ForEach(func(_, item gjson.Result) bool {
		index := len(t.records) + 1
		if !item.IsObject() {
			err = fmt.Errorf("解析第 %d 条记录失败: 期望对象，实际为 %s", index, item.Type)
			return false
		}

		rec := decodeObject(item, index)
		for _, f := range rec.Fields {
			if !columns[f.Name] {
				columns[f.Name] = true
				t.columns = append(t.columns, f.Name)
			}
		}
		t.records = append(t.records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}

	if len(t.records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}

	return &JSONSource{table: t}, nil
}

// decodeObject 按键的原始顺序读取一个对象
func decodeObject(obj gjson.Result, index int) domain.Record {
	rec := domain.Record{Index: index}
	positions := make(map[string]int)
	obj.ForEach(func(key, value gjson.Result) bool {
		setField(&rec, positions, key.String(), valueString(value))
		return true
	})
	return rec
}

// valueString 字符串取原值，null 为空字符串，其他类型保留JSON文本
func valueString(value gjson.Result) string {
	switch value.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return value.Str
	default:
		return value.Raw
	}
}

package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/allanpk716/csv_word_merge/internal/domain"
	"github.com/allanpk716/csv_word_merge/internal/matcher"
	"github.com/allanpk716/csv_word_merge/internal/replacer"
	"github.com/allanpk716/csv_word_merge/pkg/docx"
)

// ErrNameFieldMissing 表头中没有用于命名输出文件的列
var ErrNameFieldMissing = errors.New("命名字段不存在")

// DefaultWorkers 默认并行处理的记录数
const DefaultWorkers = 1

// Options 合并处理选项
type Options struct {
	Template  string         // Word 模板路径
	Column    string         // 用于命名输出文件的列
	Dest      string         // 输出目录
	Delimiter string         // 占位符分隔符
	Workers   int            // 并行处理的记录数
	Defaults  []domain.Field // 记录中缺少对应字段时使用的默认值
}

// mergeProcessor 合并处理器实现
type mergeProcessor struct {
	opts           Options
	template       []byte
	keywordMatcher domain.KeywordMatcher
	converter      domain.Converter
}

// NewMergeProcessor 创建新的合并处理器。
// 模板只读取一次，每条记录基于内存中的副本打开。converter 为 nil 时不做格式转换。
func NewMergeProcessor(opts Options, converter domain.Converter) (domain.MergeProcessor, error) {
	if opts.Template == "" {
		return nil, fmt.Errorf("模板路径不能为空")
	}
	if strings.TrimSpace(opts.Column) == "" {
		return nil, fmt.Errorf("命名列不能为空")
	}
	if opts.Dest == "" {
		opts.Dest = "."
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	data, err := os.ReadFile(opts.Template)
	if err != nil {
		return nil, fmt.Errorf("读取模板失败: %w", err)
	}

	// 先确认模板能被解析，避免每条记录重复报同一个错误
	doc, err := docx.OpenBytes(data)
	if err != nil {
		return nil, fmt.Errorf("无法打开模板 %s: %w", opts.Template, err)
	}
	doc.Close()

	if err := os.MkdirAll(opts.Dest, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	return &mergeProcessor{
		opts:           opts,
		template:       data,
		keywordMatcher: matcher.NewKeywordMatcher(opts.Delimiter),
		converter:      converter,
	}, nil
}

// ValidateColumns 检查命名列是否在表头中
func ValidateColumns(columns []string, column string) error {
	column = strings.TrimSpace(column)
	for _, c := range columns {
		if strings.TrimSpace(c) == column {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (可用列: %s)", ErrNameFieldMissing, column, strings.Join(columns, ", "))
}

// ProcessRecord 处理单条记录
func (mp *mergeProcessor) ProcessRecord(ctx context.Context, record domain.Record) domain.RecordResult {
	name := mp.recordName(record)
	if name == "" {
		return mp.skip(record)
	}
	return mp.process(ctx, record, name, OutputFileName(name))
}

// ProcessAll 处理全部记录。单条记录失败不会中止其余记录，结果顺序与输入一致。
func (mp *mergeProcessor) ProcessAll(ctx context.Context, records []domain.Record) *domain.ProcessResult {
	logrus.Infof("开始处理 %d 条记录 (并行数: %d)", len(records), mp.opts.Workers)

	fileNames := mp.planFileNames(records)
	results := make([]domain.RecordResult, len(records))

	var g errgroup.Group
	g.SetLimit(mp.opts.Workers)
	for i, record := range records {
		g.Go(func() error {
			name := mp.recordName(record)
			if name == "" {
				results[i] = mp.skip(record)
				return nil
			}
			results[i] = mp.process(ctx, record, name, fileNames[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.ProcessResult{Success: true}
	for _, rr := range results {
		result.Add(rr)
	}

	logrus.Infof("处理完成: 生成 %d 个，跳过 %d 个，无变化 %d 个，失败 %d 个，共替换 %d 处",
		result.Merged, result.Skipped, result.NoChanges, result.Failed, result.Replacements)
	return result
}

// planFileNames 为每条记录分配输出文件名，重名的记录依次加上 " (2)"、" (3)" 后缀，
// 加上后缀的名称也不会与其他记录的文件名相同（不区分大小写）
func (mp *mergeProcessor) planFileNames(records []domain.Record) []string {
	names := make([]string, len(records))
	used := make(map[string]bool)
	for i, record := range records {
		name := mp.recordName(record)
		if name == "" {
			continue
		}
		original := OutputFileName(name)
		base := strings.TrimSuffix(original, ".docx")
		fileName := original
		for n := 2; used[strings.ToLower(fileName)]; n++ {
			fileName = fmt.Sprintf("%s (%d).docx", base, n)
		}
		if fileName != original {
			logrus.Warnf("第 %d 条记录的输出文件名重复，改为: %s", record.Index, fileName)
		}
		used[strings.ToLower(fileName)] = true
		names[i] = fileName
	}
	return names
}

func (mp *mergeProcessor) recordName(record domain.Record) string {
	name, _ := record.Get(mp.opts.Column)
	return strings.TrimSpace(name)
}

func (mp *mergeProcessor) skip(record domain.Record) domain.RecordResult {
	logrus.Warnf("第 %d 条记录的 %s 字段为空，跳过", record.Index, mp.opts.Column)
	return domain.RecordResult{Index: record.Index, Status: domain.StatusSkipped}
}

func (mp *mergeProcessor) process(ctx context.Context, record domain.Record, name, fileName string) domain.RecordResult {
	rr := domain.RecordResult{Index: record.Index, Name: name}
	fail := func(err error) domain.RecordResult {
		rr.Status = domain.StatusFailed
		rr.Err = fmt.Errorf("记录 %d (%s): %w", record.Index, name, err)
		logrus.Errorf("处理失败: %v", rr.Err)
		return rr
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	logrus.Debugf("处理第 %d 条记录: %v", record.Index, record.Map())

	doc, err := docx.OpenBytes(mp.template)
	if err != nil {
		return fail(fmt.Errorf("打开模板失败: %w", err))
	}
	defer doc.Close()

	rr.Changes = mp.applyFields(doc, mp.fields(record))
	logrus.Infof("%s: 共 %d 处替换", name, rr.Changes)

	if rr.Changes == 0 {
		logrus.Warnf("%s: 没有找到可替换的内容，不生成文件", name)
		rr.Status = domain.StatusNoChanges
		return rr
	}

	output := filepath.Join(mp.opts.Dest, fileName)
	if err := doc.SaveAs(output); err != nil {
		return fail(fmt.Errorf("保存文档失败: %w", err))
	}
	rr.Output = output
	logrus.Debugf("文档已保存到: %s", output)

	if mp.converter != nil {
		converted, err := mp.converter.Convert(ctx, output)
		if err != nil {
			return fail(fmt.Errorf("格式转换失败: %w", err))
		}
		rr.Converted = converted
		logrus.Debugf("已转换为: %s", converted)
	}

	rr.Status = domain.StatusMerged
	return rr
}

// fields 返回记录字段加上记录中没有的默认字段，名称与值都去掉首尾空白
func (mp *mergeProcessor) fields(record domain.Record) []domain.Field {
	fields := make([]domain.Field, 0, len(record.Fields)+len(mp.opts.Defaults))
	for _, f := range record.Fields {
		fields = append(fields, domain.Field{Name: strings.TrimSpace(f.Name), Value: strings.TrimSpace(f.Value)})
	}
	for _, d := range mp.opts.Defaults {
		if _, ok := record.Get(d.Name); ok {
			continue
		}
		fields = append(fields, domain.Field{Name: strings.TrimSpace(d.Name), Value: strings.TrimSpace(d.Value)})
	}
	return fields
}

// applyFields 按字段顺序把每个占位符应用到每个段落，返回替换次数
func (mp *mergeProcessor) applyFields(doc *docx.Document, fields []domain.Field) int {
	changes := 0
	for _, paragraph := range doc.Paragraphs() {
		text := paragraph.PlainText()
		for _, f := range fields {
			token := mp.keywordMatcher.Token(f.Name)
			if !mp.keywordMatcher.Contains(text, token) {
				continue
			}
			if n := replacer.Replace(paragraph, token, f.Value); n > 0 {
				changes += n
				text = paragraph.PlainText()
			}
		}
	}
	return changes
}

// GetTemplateStats 统计模板中每个字段占位符的出现位置，不修改模板。
// 模板中出现但 fields 里没有的占位符追加在结果末尾，NoField 为 true。
func GetTemplateStats(templatePath, delimiter string, fields []string) ([]domain.ReplacementStats, error) {
	doc, err := docx.Open(templatePath)
	if err != nil {
		return nil, fmt.Errorf("打开文档失败: %w", err)
	}
	defer doc.Close()

	km := matcher.NewKeywordMatcher(delimiter)
	stats := make([]domain.ReplacementStats, len(fields))
	for i, field := range fields {
		stats[i] = domain.ReplacementStats{Field: field, Token: km.Token(field)}
	}

	// 先去掉已知占位符再查找，长的优先，避免 _first_ 截断 _first_name_
	known := make([]string, 0, len(stats))
	for _, st := range stats {
		if st.Token != "" {
			known = append(known, st.Token)
		}
	}
	sort.SliceStable(known, func(i, j int) bool { return len(known[i]) > len(known[j]) })

	unknown := make(map[string]int)
	for _, paragraph := range doc.Paragraphs() {
		text := paragraph.PlainText()
		counts := km.GetMatchStats(text, fields)
		for i := range stats {
			n := counts[stats[i].Field]
			if n == 0 {
				continue
			}
			stats[i].Occurrences += n
			if paragraph.InTable() {
				stats[i].InTables += n
			} else {
				stats[i].InParagraphs += n
			}
		}

		for _, token := range known {
			text = strings.ReplaceAll(text, token, " ")
		}
		for _, name := range km.FindKeywords(text) {
			pos, ok := unknown[name]
			if !ok {
				pos = len(stats)
				unknown[name] = pos
				stats = append(stats, domain.ReplacementStats{Field: name, Token: km.Token(name), NoField: true})
				logrus.Warnf("模板中的占位符 %s 没有对应的字段", stats[pos].Token)
			}
			stats[pos].Occurrences++
			if paragraph.InTable() {
				stats[pos].InTables++
			} else {
				stats[pos].InParagraphs++
			}
		}
	}

	return stats, nil
}

// OutputFileName 根据记录名称生成输出文件名，路径分隔符和文件名中不允许的字符替换为 _
func OutputFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	// Windows 不允许文件名以点或空格结尾
	name = strings.TrimRight(name, ". ")
	if name == "" {
		name = "_"
	}
	return name + ".docx"
}

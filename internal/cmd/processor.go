package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/allanpk716/csv_word_merge/internal/config"
	"github.com/allanpk716/csv_word_merge/internal/convert"
	"github.com/allanpk716/csv_word_merge/internal/domain"
	"github.com/allanpk716/csv_word_merge/internal/processor"
	"github.com/allanpk716/csv_word_merge/internal/record"
	"github.com/allanpk716/csv_word_merge/internal/version"
	"github.com/allanpk716/csv_word_merge/internal/view"
)

// ErrRecordsFailed 至少有一条记录处理失败
var ErrRecordsFailed = errors.New("部分记录处理失败")

func runMerge(cmd *cobra.Command, args *CommandLineArgs) error {
	if err := ValidateArgs(args); err != nil {
		return fmt.Errorf("参数验证失败: %w", err)
	}

	cfg, err := config.Load(args.ConfigFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if args.NoConvert {
		cfg.Convert.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	logrus.Infof("启动 %s v%s", version.AppName, version.Version)

	renderer := view.NewRenderer(view.Format(args.Output), args.NoColor)
	renderer.SetWriter(cmd.OutOrStdout())

	return ExecuteProcessing(cmd.Context(), cfg, args, renderer)
}

// ExecuteProcessing 执行处理逻辑：读取数据、逐条合并、输出结果
func ExecuteProcessing(ctx context.Context, cfg *config.Config, args *CommandLineArgs, renderer *view.Renderer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	source, err := record.Open(args.CSVFile, record.Options{Sheet: cfg.Record.Sheet})
	if err != nil {
		return fmt.Errorf("读取数据文件失败: %w", err)
	}

	if err := processor.ValidateColumns(source.Columns(), cfg.Column); err != nil {
		return err
	}

	records, err := source.Records(ctx)
	if err != nil {
		return fmt.Errorf("读取记录失败: %w", err)
	}

	logrus.Infof("成功读取数据文件: %s (记录数量: %d, 列: %s)",
		args.CSVFile, len(records), strings.Join(source.Columns(), ", "))

	converter, err := newConverter(cfg)
	if err != nil {
		return err
	}

	mp, err := processor.NewMergeProcessor(processor.Options{
		Template:  args.WordFile,
		Column:    cfg.Column,
		Dest:      cfg.Dest,
		Delimiter: cfg.Delimiter,
		Workers:   cfg.Workers,
		Defaults:  cfg.DefaultFields(),
	}, converter)
	if err != nil {
		return err
	}

	result := mp.ProcessAll(ctx, records)
	if err := renderer.RenderResult(result); err != nil {
		return fmt.Errorf("输出结果失败: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("%w: %d 条", ErrRecordsFailed, result.Failed)
	}
	return nil
}

// newConverter 转换关闭时返回 nil；转换程序不存在时直接报错，不再逐条失败
func newConverter(cfg *config.Config) (domain.Converter, error) {
	if !cfg.Convert.Enabled {
		logrus.Infof("已关闭格式转换，只生成 DOCX")
		return nil, nil
	}

	opts, err := cfg.ConvertOptions()
	if err != nil {
		return nil, err
	}

	c := convert.New(opts)
	if err := c.Available(); err != nil {
		return nil, fmt.Errorf("%w (可使用 --no-convert 跳过转换)", err)
	}
	return c, nil
}

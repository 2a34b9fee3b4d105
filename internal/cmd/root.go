// Package cmd 提供 csv-word-merge 的命令行入口。
package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/allanpk716/csv_word_merge/internal/processor"
	"github.com/allanpk716/csv_word_merge/internal/version"
)

// NewCmdRoot 创建根命令：用数据文件中的每条记录填充 Word 模板
func NewCmdRoot() *cobra.Command {
	args := &CommandLineArgs{}

	cmd := &cobra.Command{
		Use:   version.AppName + " [flags] wordfile",
		Short: "用表格数据批量填充 Word 模板",
		Long: `csv-word-merge 读取 CSV、JSON 或 XLSX 数据文件，为每一行生成一份 Word 文档。

模板中的 _列名_ 占位符会被替换为该行对应列的值，占位符被 Word
拆分到多个格式不同的片段时同样可以替换，原有格式保持不变。
生成的文档默认再用 LibreOffice 转换为 PDF。`,
		Example: `  csv-word-merge -c people.csv -C name -d out letter.docx
  csv-word-merge -c people.xlsx --sheet 2024 -C name -d out --no-convert letter.docx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd.ErrOrStderr(), args.Verbose, args.Quiet)
		},
		RunE: func(cmd *cobra.Command, positional []string) error {
			args.WordFile = positional[0]
			return runMerge(cmd, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&args.ConfigFile, "config", "", "配置文件路径 (YAML/JSON/TOML)")
	pf.StringVarP(&args.Output, "output", "o", "table", "输出格式: table, json")
	pf.BoolVar(&args.NoColor, "no-color", false, "禁用彩色输出")
	pf.BoolVar(&args.Verbose, "verbose", false, "详细输出")
	pf.BoolVarP(&args.Quiet, "quiet", "q", false, "不输出处理日志")
	pf.StringVarP(&args.CSVFile, "csv", "c", "", "数据文件 (CSV/JSON/XLSX)")
	pf.String("delimiter", "_", "占位符分隔符")
	pf.String("sheet", "", "XLSX 工作表名称，默认第一个")

	f := cmd.Flags()
	f.StringP("col", "C", "", "用于命名输出文件的列")
	f.StringP("dest", "d", "", "输出目录")
	f.Int("workers", processor.DefaultWorkers, "并行处理的记录数")
	f.BoolVar(&args.NoConvert, "no-convert", false, "只生成 DOCX，不转换格式")
	f.String("converter", "", "格式转换程序，默认 soffice")
	f.String("convert-timeout", "", "单个文档的转换超时时间，例如 90s")

	cmd.SetVersionTemplate(version.AppName + " version {{.Version}} (commit: " + version.Commit + ", built: " + version.Date + ")\n")

	cmd.AddCommand(newCmdInspect(args))
	cmd.AddCommand(newCmdInitConfig())

	return cmd
}

// setupLogging 设置日志输出和级别：--verbose 输出调试日志和调用位置，--quiet 只输出错误
func setupLogging(w io.Writer, verbose, quiet bool) {
	logrus.SetOutput(w)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006/01/02 15:04:05"})
	logrus.SetReportCaller(false)
	switch {
	case quiet:
		logrus.SetLevel(logrus.ErrorLevel)
	case verbose:
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetReportCaller(true)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/allanpk716/csv_word_merge/internal/config"
	"github.com/allanpk716/csv_word_merge/internal/processor"
	"github.com/allanpk716/csv_word_merge/internal/record"
	"github.com/allanpk716/csv_word_merge/internal/view"
)

func newCmdInspect(args *CommandLineArgs) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "inspect [flags] wordfile",
		Short: "检查模板中各列对应的占位符",
		Long: `统计模板中每个字段占位符出现的次数，并指出数据文件中
在模板里找不到占位符的列。模板不会被修改。`,
		Example: `  csv-word-merge inspect -c people.csv letter.docx
  csv-word-merge inspect --fields name,city -o json letter.docx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			wordFile := positional[0]
			if err := validateWordFile(wordFile); err != nil {
				return err
			}
			if err := view.ValidateFormat(args.Output); err != nil {
				return err
			}

			cfg, err := config.Load(args.ConfigFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}

			if len(fields) == 0 {
				if args.CSVFile == "" {
					return fmt.Errorf("必须指定数据文件 (--csv) 或字段列表 (--fields)")
				}
				source, err := record.Open(args.CSVFile, record.Options{Sheet: cfg.Record.Sheet})
				if err != nil {
					return fmt.Errorf("读取数据文件失败: %w", err)
				}
				fields = source.Columns()
			}

			stats, err := processor.GetTemplateStats(wordFile, cfg.Delimiter, fields)
			if err != nil {
				return err
			}
			logrus.Infof("检查模板: %s (字段数量: %d)", wordFile, len(fields))

			renderer := view.NewRenderer(view.Format(args.Output), args.NoColor)
			renderer.SetWriter(cmd.OutOrStdout())
			return renderer.RenderStats(stats)
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "要检查的字段，逗号分隔，默认使用数据文件的表头")

	return cmd
}

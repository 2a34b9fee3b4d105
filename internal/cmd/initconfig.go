package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allanpk716/csv_word_merge/internal/config"
	"github.com/allanpk716/csv_word_merge/internal/view"
)

// DefaultConfigFile init-config 默认写入的文件
const DefaultConfigFile = "csv-word-merge.yaml"

func newCmdInitConfig() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "生成一份带默认值的配置文件",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			path := DefaultConfigFile
			if len(positional) == 1 {
				path = positional[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("配置文件已存在: %s (使用 --force 覆盖)", path)
			}

			if err := config.Default().Save(path); err != nil {
				return err
			}

			renderer := view.NewRenderer(view.FormatTable, false)
			renderer.SetWriter(cmd.OutOrStdout())
			renderer.Success("已生成配置文件: " + path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "覆盖已存在的配置文件")

	return cmd
}

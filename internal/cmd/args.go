package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/allanpk716/csv_word_merge/internal/view"
)

// CommandLineArgs 命令行参数结构。
// 命名列、输出目录等可以写进配置文件的选项由 config.Load 通过参数绑定读取。
type CommandLineArgs struct {
	CSVFile    string
	WordFile   string
	ConfigFile string
	Output     string
	NoConvert  bool
	NoColor    bool
	Verbose    bool
	Quiet      bool
}

// ValidateArgs 验证命令行参数
func ValidateArgs(args *CommandLineArgs) error {
	if args.CSVFile == "" {
		return fmt.Errorf("必须指定数据文件 (--csv)")
	}
	if _, err := os.Stat(args.CSVFile); err != nil {
		return fmt.Errorf("数据文件不存在: %s", args.CSVFile)
	}

	if err := validateWordFile(args.WordFile); err != nil {
		return err
	}

	if err := view.ValidateFormat(args.Output); err != nil {
		return err
	}

	if args.Verbose && args.Quiet {
		return fmt.Errorf("不能同时指定 --verbose 和 --quiet")
	}

	return nil
}

func validateWordFile(path string) error {
	if path == "" {
		return fmt.Errorf("必须指定 Word 模板文件")
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".docx" {
		return fmt.Errorf("模板必须是 DOCX 格式，当前文件: %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("模板文件不存在: %s", path)
	}
	return nil
}

// Package convert 调用外部程序把保存好的文档转换为最终格式（默认 PDF）。
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrCommandNotFound 转换程序不在 PATH 中
var ErrCommandNotFound = errors.New("未找到转换程序")

const (
	DefaultCommand = "soffice"
	DefaultFormat  = "pdf"
	DefaultTimeout = 2 * time.Minute
)

// DefaultArgs LibreOffice 无界面转换参数。
// 可用的占位符：{input} {outdir} {output} {format}
var DefaultArgs = []string{"--headless", "--convert-to", "{format}", "--outdir", "{outdir}", "{input}"}

// Options 转换配置
type Options struct {
	Command string
	Args    []string
	Format  string
	Timeout time.Duration
}

// CommandConverter 通过外部命令转换文档。
// 同一时间只运行一个转换进程，LibreOffice 的用户配置目录不允许并发使用。
type CommandConverter struct {
	opts Options
	mu   sync.Mutex
}

// New 创建转换器，未设置的字段使用默认值
func New(opts Options) *CommandConverter {
	if opts.Command == "" {
		opts.Command = DefaultCommand
	}
	if len(opts.Args) == 0 {
		opts.Args = DefaultArgs
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &CommandConverter{opts: opts}
}

// Available 检查转换程序是否可用
func (c *CommandConverter) Available() error {
	if _, err := exec.LookPath(c.opts.Command); err != nil {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, c.opts.Command)
	}
	return nil
}

// Convert 转换 inputPath，返回生成的文件路径
func (c *CommandConverter) Convert(ctx context.Context, inputPath string) (string, error) {
	command, err := exec.LookPath(c.opts.Command)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrCommandNotFound, c.opts.Command)
	}

	outDir := filepath.Dir(inputPath)
	output := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))+"."+c.opts.Format)
	args := c.expandArgs(inputPath, outDir, output)

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return "", fmt.Errorf("转换 %s 失败: %w: %s", inputPath, err, strings.TrimSpace(string(out)))
	}

	if _, err := os.Stat(output); err != nil {
		return "", fmt.Errorf("转换程序没有生成 %s: %w", output, err)
	}
	return output, nil
}

func (c *CommandConverter) expandArgs(input, outDir, output string) []string {
	r := strings.NewReplacer(
		"{input}", input,
		"{outdir}", outDir,
		"{output}", output,
		"{format}", c.opts.Format,
	)
	args := make([]string, len(c.opts.Args))
	for i, arg := range c.opts.Args {
		args[i] = r.Replace(arg)
	}
	return args
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"

	"github.com/allanpk716/csv_word_merge/internal/cmd"
)

func main() {
	// Ctrl+C 取消尚未开始的记录和正在运行的转换
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.NewCmdRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("错误: %v", err))
		stop()
		os.Exit(1)
	}
}

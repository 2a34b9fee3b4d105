// Package version 构建时注入的版本信息
package version

// 通过 ldflags 在构建时设置
var (
	Version = "1.0.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// AppName 程序名称
const AppName = "csv-word-merge"

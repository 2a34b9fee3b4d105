// Package config 加载合并任务的配置：配置文件、CSVMERGE_* 环境变量和命令行参数。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/allanpk716/csv_word_merge/internal/convert"
	"github.com/allanpk716/csv_word_merge/internal/domain"
	"github.com/allanpk716/csv_word_merge/internal/matcher"
)

// EnvPrefix 环境变量前缀，例如 CSVMERGE_DEST、CSVMERGE_CONVERT_ENABLED
const EnvPrefix = "CSVMERGE"

// Keyword 表示一个默认值配置项，记录中没有该字段时使用
type Keyword struct {
	Key   string `mapstructure:"key" yaml:"key"`
	Value string `mapstructure:"value" yaml:"value"`
}

// RecordConfig 数据源配置
type RecordConfig struct {
	Sheet string `mapstructure:"sheet" yaml:"sheet,omitempty"`
}

// ConvertConfig 格式转换配置
type ConvertConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args,omitempty"`
	Format  string   `mapstructure:"format" yaml:"format"`
	Timeout string   `mapstructure:"timeout" yaml:"timeout"`
}

// Config 表示完整的配置结构
type Config struct {
	Column    string        `mapstructure:"column" yaml:"column,omitempty"`
	Dest      string        `mapstructure:"dest" yaml:"dest,omitempty"`
	Delimiter string        `mapstructure:"delimiter" yaml:"delimiter"`
	Workers   int           `mapstructure:"workers" yaml:"workers"`
	Record    RecordConfig  `mapstructure:"record" yaml:"record"`
	Convert   ConvertConfig `mapstructure:"convert" yaml:"convert"`
	Defaults  []Keyword     `mapstructure:"defaults" yaml:"defaults,omitempty"`
}

// FlagKeys 命令行参数名到配置键的映射，Load 会用已设置的参数覆盖配置
var FlagKeys = map[string]string{
	"col":             "column",
	"dest":            "dest",
	"delimiter":       "delimiter",
	"workers":         "workers",
	"sheet":           "record.sheet",
	"converter":       "convert.command",
	"convert-timeout": "convert.timeout",
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Delimiter: matcher.DefaultDelimiter,
		Workers:   1,
		Convert: ConvertConfig{
			Enabled: true,
			Command: convert.DefaultCommand,
			Format:  convert.DefaultFormat,
			Timeout: convert.DefaultTimeout.String(),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("column", d.Column)
	v.SetDefault("dest", d.Dest)
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("record.sheet", d.Record.Sheet)
	v.SetDefault("convert.enabled", d.Convert.Enabled)
	v.SetDefault("convert.command", d.Convert.Command)
	v.SetDefault("convert.args", d.Convert.Args)
	v.SetDefault("convert.format", d.Convert.Format)
	v.SetDefault("convert.timeout", d.Convert.Timeout)
}

// Load 按 默认值 < 配置文件 < 环境变量 < 命令行参数 的优先级加载配置。
// path 为空时不读取配置文件；flags 可以为 nil。
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("配置文件不存在: %s", path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("绑定参数 %s 失败: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.Column = strings.TrimSpace(cfg.Column)
	cfg.Dest = strings.TrimSpace(cfg.Dest)
	return cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("配置不能为空")
	}

	if c.Column == "" {
		return fmt.Errorf("命名列不能为空")
	}

	if c.Dest == "" {
		return fmt.Errorf("输出目录不能为空")
	}

	if c.Delimiter == "" {
		return fmt.Errorf("分隔符不能为空")
	}

	if c.Workers < 1 {
		return fmt.Errorf("并行数必须大于 0，当前为 %d", c.Workers)
	}

	if c.Convert.Enabled {
		if strings.TrimSpace(c.Convert.Command) == "" {
			return fmt.Errorf("转换程序不能为空")
		}
		if _, err := c.ConvertTimeout(); err != nil {
			return err
		}
	}

	// 检查默认值重复
	keySet := make(map[string]bool)
	for i, keyword := range c.Defaults {
		key := strings.TrimSpace(keyword.Key)
		if key == "" {
			return fmt.Errorf("第 %d 个默认值的 key 不能为空", i+1)
		}
		if keySet[key] {
			return fmt.Errorf("默认值重复: %s", key)
		}
		keySet[key] = true
	}

	return nil
}

// ConvertTimeout 解析转换超时时间
func (c *Config) ConvertTimeout() (time.Duration, error) {
	if c.Convert.Timeout == "" {
		return convert.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Convert.Timeout)
	if err != nil {
		return 0, fmt.Errorf("无效的转换超时时间 %q: %w", c.Convert.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("转换超时时间必须大于 0: %s", c.Convert.Timeout)
	}
	return d, nil
}

// ConvertOptions 转换为 convert 包的选项
func (c *Config) ConvertOptions() (convert.Options, error) {
	timeout, err := c.ConvertTimeout()
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		Command: c.Convert.Command,
		Args:    c.Convert.Args,
		Format:  c.Convert.Format,
		Timeout: timeout,
	}, nil
}

// DefaultFields 将默认值列表转换为字段列表
func (c *Config) DefaultFields() []domain.Field {
	fields := make([]domain.Field, 0, len(c.Defaults))
	for _, keyword := range c.Defaults {
		fields = append(fields, domain.Field{Name: keyword.Key, Value: keyword.Value})
	}
	return fields
}

// Save 以YAML格式写入配置文件
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

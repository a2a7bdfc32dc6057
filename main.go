package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ByLCY/storyflow/config"
	"github.com/ByLCY/storyflow/dsl"
)

var rootCmd = &cobra.Command{
	Use:           "storyflow",
	Short:         "把 .story 描述排版为 PDF",
	Long:          "storyflow 将 .story 文档描述与 HTML 风格内容排版为 PDF：分页、多栏、自适应页面尺寸、目录与页码引用。",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		mode, err := cmd.Flags().GetString("color")
		if err != nil {
			return err
		}
		return setupColor(mode)
	},
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
	headColor = color.New(color.FgCyan, color.Bold)
)

func main() {
	rootCmd.AddCommand(buildCmd, positionsCmd, fitCmd)

	rootCmd.PersistentFlags().String("config", "", "storyflow.toml 路径（默认从当前目录向上查找）")
	rootCmd.PersistentFlags().String("color", "auto", "彩色输出 (auto|on|off)")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别 (debug|info|warn|error)，覆盖配置文件")
	rootCmd.PersistentFlags().String("data", "", "绑定到内容的 JSON 数据")

	if err := rootCmd.Execute(); err != nil {
		errColor.Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupColor(mode string) error {
	switch mode {
	case "auto", "":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("--color 只能是 auto、on 或 off，得到 %q", mode)
	}
	return nil
}

// isTerminal 判断 f 是否连接到终端
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// loadConfig reads --config, or looks storyflow.toml up from the working
// directory.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		return config.Load(path)
	}
	return config.Find(".")
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func readData(cmd *cobra.Command) (any, error) {
	raw, err := cmd.Flags().GetString("data")
	if err != nil || raw == "" {
		return nil, err
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("解析 data JSON 失败: %w", err)
	}
	return data, nil
}

func parseStoryFile(path string) (*dsl.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开描述文件 %s: %w", path, err)
	}
	defer f.Close()
	doc, err := dsl.Parse(filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return doc, nil
}

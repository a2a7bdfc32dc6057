package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/storyflow/binding"
	canvasrenderer "github.com/ByLCY/storyflow/renderer/canvas"
	"github.com/ByLCY/storyflow/story"
)

var fitCmd = &cobra.Command{
	Use:   "fit [flags] file.story",
	Short: "Search the smallest page height, width or scale that fits the content",
	Args:  cobra.ExactArgs(1),
	RunE:  fitExecution,
}

func init() {
	fitCmd.Flags().String("mode", story.FitHeight, "搜索的参数 (height|width|scale)")
	fitCmd.Flags().Float64("delta", 0, "搜索精度（默认取配置 engine.search_delta）")
	fitCmd.Flags().Bool("json", false, "以 JSON 输出结果")
}

func fitExecution(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	mode, _ := cmd.Flags().GetString("mode")
	switch mode {
	case story.FitHeight, story.FitWidth, story.FitScale:
	default:
		return fmt.Errorf("--mode 只能是 height、width 或 scale，得到 %q", mode)
	}
	if delta, _ := cmd.Flags().GetFloat64("delta"); delta > 0 {
		cfg.Engine.SearchDelta = delta
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	data, err := readData(cmd)
	if err != nil {
		return err
	}

	doc, err := parseStoryFile(args[0])
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(args[0])
	d, err := story.Resolve(doc, baseDir)
	if err != nil {
		return err
	}
	if data != nil {
		d.Body = binding.Interpolate(d.Body, data)
	}
	res, err := story.FitPage(d, canvasrenderer.NewRenderer(baseDir), mode, cfg.Engine, log)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	unit := "mm"
	if mode == story.FitScale {
		unit = "×"
	}
	okColor.Fprint(os.Stdout, "✓ ")
	fmt.Fprintf(os.Stdout, "%s %s: %.3f%s ", d.Name, mode, res.Parameter, unit)
	dimColor.Fprintf(os.Stdout, "(%d calls, rect %.2f×%.2fmm)\n", res.NumCalls, res.Rect.Width(), res.Rect.Height())
	return nil
}

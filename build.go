package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/storyflow/config"
	"github.com/ByLCY/storyflow/layout"
	"github.com/ByLCY/storyflow/links"
	canvasrenderer "github.com/ByLCY/storyflow/renderer/canvas"
	"github.com/ByLCY/storyflow/story"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] file.story...",
	Short: "Render .story files to PDF",
	Args:  cobra.MinimumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().StringP("out", "o", "", "输出目录；单个输入时也可以是 .pdf 文件路径")
	buildCmd.Flags().String("positions", "", "同时输出位置记录 (json|msgpack|none)")
	buildCmd.Flags().Bool("links", false, "同时输出链接清单 <name>.links.json")
	buildCmd.Flags().Int("max-iterations", 0, "内容稳定化的最大迭代次数")
	buildCmd.Flags().IntP("jobs", "j", runtime.GOMAXPROCS(0), "并行构建的文件数")
}

// buildSettings is the configuration of one build command after flags
// have been applied.
type buildSettings struct {
	cfg  config.Config
	out  string // explicit .pdf path, single input only
	data any
	log  *slog.Logger
}

func buildExecution(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s := buildSettings{cfg: cfg}

	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(out), ".pdf") {
		if len(args) > 1 {
			return fmt.Errorf("--out 为文件路径时只能构建一个输入")
		}
		s.out = out
	} else if out != "" {
		s.cfg.Output.Dir = out
	}
	if cmd.Flags().Changed("positions") {
		s.cfg.Output.Positions, _ = cmd.Flags().GetString("positions")
	}
	if cmd.Flags().Changed("links") {
		s.cfg.Output.Links, _ = cmd.Flags().GetBool("links")
	}
	if cmd.Flags().Changed("max-iterations") {
		s.cfg.Engine.MaxIterations, _ = cmd.Flags().GetInt("max-iterations")
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if s.log, err = newLogger(cmd, s.cfg); err != nil {
		return err
	}
	if s.data, err = readData(cmd); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(args))))
	for _, path := range args {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			written, res, err := buildFile(gctx, path, s)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errColor.Fprint(os.Stdout, "✗ ")
				fmt.Fprintf(os.Stdout, "%s\n", path)
				return fmt.Errorf("%s: %w", path, err)
			}
			okColor.Fprint(os.Stdout, "✓ ")
			fmt.Fprintf(os.Stdout, "%s ", written[0])
			dimColor.Fprintf(os.Stdout, "(%d pages, %d iterations, %d links)\n", res.Pages, res.Iterations, len(res.Links))
			for _, extra := range written[1:] {
				dimColor.Fprintf(os.Stdout, "  + %s\n", extra)
			}
			return nil
		})
	}
	return g.Wait()
}

// buildFile renders one description and writes its outputs. It returns
// the written paths, PDF first.
func buildFile(ctx context.Context, path string, s buildSettings) ([]string, *story.Result, error) {
	doc, err := parseStoryFile(path)
	if err != nil {
		return nil, nil, err
	}
	baseDir := filepath.Dir(path)
	res, err := story.Build(doc, story.BuildOptions{
		Renderer: canvasrenderer.NewRenderer(baseDir),
		BaseDir:  baseDir,
		Data:     s.data,
		Engine:   s.cfg.Engine,
		Logger:   s.log.With("file", path),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	pdfPath := s.out
	if pdfPath == "" {
		pdfPath = outputPath(s.cfg.Output.Dir, path, ".pdf")
	}
	if err := os.MkdirAll(filepath.Dir(pdfPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(pdfPath, res.PDF, 0o644); err != nil {
		return nil, nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	written := []string{pdfPath}

	stem := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath))
	switch s.cfg.Output.Positions {
	case "json":
		p := stem + ".positions.json"
		if err := layout.WriteDebugJSON(res.Positions, p); err != nil {
			return nil, nil, fmt.Errorf("写入位置记录失败: %w", err)
		}
		written = append(written, p)
	case "msgpack":
		p := stem + ".positions.msgpack"
		if err := writeFileWith(p, func(f *os.File) error { return layout.WritePositionsMsgpack(f, res.Positions) }); err != nil {
			return nil, nil, fmt.Errorf("写入位置记录失败: %w", err)
		}
		written = append(written, p)
	}
	if s.cfg.Output.Links {
		p := stem + ".links.json"
		if err := writeFileWith(p, func(f *os.File) error { return links.WriteManifest(f, res.Links, res.PageHeights) }); err != nil {
			return nil, nil, fmt.Errorf("写入链接清单失败: %w", err)
		}
		written = append(written, p)
	}
	return written, res, nil
}

// outputPath maps input to <dir>/<stem><ext>.
func outputPath(dir, input, ext string) string {
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+ext)
}

func writeFileWith(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

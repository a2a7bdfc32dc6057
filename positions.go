package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/ByLCY/storyflow/layout"
	canvasrenderer "github.com/ByLCY/storyflow/renderer/canvas"
	"github.com/ByLCY/storyflow/story"
)

var positionsCmd = &cobra.Command{
	Use:   "positions [flags] file.story",
	Short: "Print the final position stream of a .story file",
	Args:  cobra.ExactArgs(1),
	RunE:  positionsExecution,
}

func init() {
	positionsCmd.Flags().Int("max-text", 32, "文本列的最大显示宽度")
}

func positionsExecution(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	data, err := readData(cmd)
	if err != nil {
		return err
	}
	maxText, err := cmd.Flags().GetInt("max-text")
	if err != nil {
		return err
	}
	doc, err := parseStoryFile(args[0])
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(args[0])
	res, err := story.Build(doc, story.BuildOptions{
		Renderer: canvasrenderer.NewRenderer(baseDir),
		BaseDir:  baseDir,
		Data:     data,
		Engine:   cfg.Engine,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	writePositionTable(os.Stdout, res.Positions, maxText)
	return nil
}

var positionColumns = []string{"PAGE", "RECT", "DEPTH", "OC", "H", "ID", "X0", "Y0", "X1", "Y1", "TEXT"}

// writePositionTable prints positions as an aligned table. Widths are
// measured in terminal cells so CJK text lines up.
func writePositionTable(w io.Writer, positions []layout.Position, maxText int) {
	rows := make([][]string, 0, len(positions))
	for _, p := range positions {
		text := p.Text
		if p.Href != "" {
			text = strings.TrimSpace(text + " → " + p.Href)
		}
		if maxText > 0 {
			text = runewidth.Truncate(text, maxText, "…")
		}
		heading := ""
		if p.Heading > 0 {
			heading = fmt.Sprint(p.Heading)
		}
		rows = append(rows, []string{
			fmt.Sprint(p.PageNum),
			fmt.Sprint(p.RectNum),
			fmt.Sprint(p.Depth),
			p.OpenClose.String(),
			heading,
			p.ID,
			fmt.Sprintf("%.2f", p.Rect.X0),
			fmt.Sprintf("%.2f", p.Rect.Y0),
			fmt.Sprintf("%.2f", p.Rect.X1),
			fmt.Sprintf("%.2f", p.Rect.Y1),
			text,
		})
	}

	widths := make([]int, len(positionColumns))
	for i, h := range positionColumns {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	writeRow := func(cells []string, header bool) {
		var b strings.Builder
		for i, cell := range cells {
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		line := strings.TrimRight(b.String(), " ")
		if header {
			headColor.Fprintln(w, line)
			return
		}
		fmt.Fprintln(w, line)
	}
	writeRow(positionColumns, true)
	for _, row := range rows {
		writeRow(row, false)
	}
}

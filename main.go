package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ByLCY/compresstext/binding"
	"github.com/ByLCY/compresstext/config"
	"github.com/ByLCY/compresstext/layout"
	"github.com/ByLCY/compresstext/renderer"
	canvasrenderer "github.com/ByLCY/compresstext/renderer/canvas"
)

func main() {
	input := flag.String("in", "", "文本框配置文件（.json/.yaml）")
	text := flag.String("text", "", "覆盖配置中的文本")
	output := flag.String("out", "output/text.pdf", "PDF 输出路径")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到文本 ${path} 的 JSON 数据")
	verbose := flag.Bool("v", false, "输出排版过程日志")
	flag.Parse()

	if *verbose {
		layout.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	file := &config.File{}
	baseDir := "."
	if *input != "" {
		f, err := config.Load(*input)
		if err != nil {
			log.Fatalf("读取配置失败: %v", err)
		}
		file = f
		baseDir = filepath.Dir(*input)
	}
	if *text != "" {
		file.Text = *text
	}

	var data any
	if file.Data != nil {
		data = file.Data
	}
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &data); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		BaseDir: baseDir,
		Title:   filepath.Base(*output),
		Fonts:   fontSources(file.Fonts),
	})
	if err := run(context.Background(), file.Config(), data, *output, *debug, r); err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)
}

// run 串联数据绑定、等待字体、排版与渲染。
func run(ctx context.Context, cfg layout.Config, data any, outputPath, debugPath string, r renderer.Backend) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	cfg.Text = binding.Interpolate(cfg.Text, data)

	txt, err := layout.NewText(ctx, cfg, layout.TextOptions{
		Build:  layout.BuildOptions{Measurer: r, Debug: layout.DebugOptions{Trace: debugPath != ""}},
		Loader: r,
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	txt.Wait()
	result := txt.Result()

	if debugPath != "" {
		if err := layout.WriteDebugJSON(result, debugPath); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

func fontSources(files map[string]config.FontFile) map[string]canvasrenderer.FontSource {
	out := make(map[string]canvasrenderer.FontSource, len(files))
	for name, f := range files {
		out[name] = canvasrenderer.FontSource{
			Regular: canvasrenderer.Resource{Path: f.Regular},
			Bold:    canvasrenderer.Resource{Path: f.Bold},
		}
	}
	return out
}

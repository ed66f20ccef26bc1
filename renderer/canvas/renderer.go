package canvasrenderer

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"golang.org/x/image/colornames"

	"github.com/ByLCY/compresstext/fonts"
	"github.com/ByLCY/compresstext/layout"
	"github.com/ByLCY/compresstext/renderer"
)

const defaultMargin = 4.0 // mm

// Renderer measures and draws layout results via github.com/tdewolff/canvas.
// 所有长度均为 mm；只有创建字体面时换算为 pt。
type Renderer struct {
	baseDir string
	margin  float64
	title   string

	sources map[string]FontSource // 按字体族名注册

	fontMu         sync.Mutex
	families       map[string]*familyEntry // 已就绪的字体族
	fallbackFamily *familyEntry

	measureMu sync.Mutex
	measured  map[measureKey]layout.Size
	fontGen   uint64 // 每次有字体就绪时递增，旧代次的测量不写入缓存
}

var (
	_ renderer.Backend = (*Renderer)(nil)
)

type familyEntry struct {
	family *canvas.FontFamily
	bold   bool // 是否加载了粗体字形
}

type measureKey struct {
	text  string
	style layout.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Margin  float64               // 页面四周留白，默认 4mm
	Title   string                // 写入 PDF 信息字典
	Fonts   map[string]FontSource // 字体族名 → 字体文件
}

// FontSource 描述一个字体族的常规与粗体字形。
type FontSource struct {
	Regular Resource
	Bold    Resource
}

// Resource can be provided either by Bytes or by Path. Path 以 "embed:" 开头时读取内置字体。
type Resource struct {
	Bytes []byte
	Path  string
}

func (r Resource) empty() bool { return len(r.Bytes) == 0 && r.Path == "" }

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving font paths.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with registered font families.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:  opts.BaseDir,
		margin:   opts.Margin,
		title:    opts.Title,
		sources:  map[string]FontSource{},
		families: map[string]*familyEntry{},
		measured: map[measureKey]layout.Size{},
	}
	if r.margin <= 0 {
		r.margin = defaultMargin
	}
	for name, src := range opts.Fonts {
		name = strings.TrimSpace(name)
		if name == "" || src.Regular.empty() {
			continue
		}
		r.sources[name] = src
	}
	return r
}

// Load 实现 layout.FontLoader：读取已注册的字体族，成功后该族参与测量与绘制。
// serif、sans-serif 等通用族名直接对应内置的 Go 字体。
func (r *Renderer) Load(ctx context.Context, family string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if isGeneric(family) {
		_, err := r.fallback()
		return err
	}
	src, ok := r.sources[family]
	if !ok {
		return fmt.Errorf("未注册字体 %s", family)
	}

	r.fontMu.Lock()
	_, loaded := r.families[family]
	r.fontMu.Unlock()
	if loaded {
		return nil
	}

	entry, err := r.loadFamily(family, src)
	if err != nil {
		return err
	}
	r.fontMu.Lock()
	r.families[family] = entry
	r.fontMu.Unlock()
	// 新字体就绪后旧的测量结果失效
	r.measureMu.Lock()
	r.fontGen++
	clear(r.measured)
	r.measureMu.Unlock()
	return nil
}

func (r *Renderer) loadFamily(name string, src FontSource) (*familyEntry, error) {
	family := canvas.NewFontFamily(name)
	data, err := r.loadFontBytes(src.Regular)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", name, err)
	}
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", name, err)
	}
	entry := &familyEntry{family: family}
	if !src.Bold.empty() {
		data, err := r.loadFontBytes(src.Bold)
		if err != nil {
			return nil, fmt.Errorf("读取字体 %s 粗体失败: %w", name, err)
		}
		if err := family.LoadFont(data, 0, canvas.FontBold); err != nil {
			return nil, fmt.Errorf("加载字体 %s 粗体失败: %w", name, err)
		}
		entry.bold = true
	}
	return entry, nil
}

func (r *Renderer) loadFontBytes(res Resource) ([]byte, error) {
	if len(res.Bytes) > 0 {
		return res.Bytes, nil
	}
	if strings.HasPrefix(res.Path, "embed:") {
		return fonts.Load(res.Path)
	}
	path := res.Path
	if !filepath.IsAbs(path) {
		if r.baseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 embed:）", res.Path)
		}
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

func (r *Renderer) fallback() (*familyEntry, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	family := canvas.NewFontFamily("compresstext-fallback")
	for _, f := range []struct {
		name  string
		style canvas.FontStyle
	}{{fonts.Regular, canvas.FontRegular}, {fonts.Bold, canvas.FontBold}} {
		data, err := fonts.Load(f.name)
		if err != nil {
			return nil, err
		}
		if err := family.LoadFont(data, 0, f.style); err != nil {
			return nil, fmt.Errorf("加载内置字体 %s 失败: %w", f.name, err)
		}
	}
	r.fallbackFamily = &familyEntry{family: family, bold: true}
	return r.fallbackFamily, nil
}

// face 按字体族列表的顺序选第一个已就绪的族，都未就绪时使用内置字体。
func (r *Renderer) face(style layout.FontStyle, col color.Color) (*canvas.FontFace, error) {
	var entry *familyEntry
	r.fontMu.Lock()
	for _, name := range layout.FontFamilies(style.Family) {
		if e, ok := r.families[name]; ok {
			entry = e
			break
		}
	}
	r.fontMu.Unlock()
	if entry == nil {
		fb, err := r.fallback()
		if err != nil {
			return nil, err
		}
		entry = fb
	}
	fs := canvas.FontRegular
	if style.Bold() && entry.bold {
		fs = canvas.FontBold
	}
	return entry.family.Face(toPt(style.Size), col, fs, canvas.FontNormal), nil
}

// Measure 实现 layout.Measurer。与 CSS 一致，字距追加在每个字符之后；
// 高度取样式行高，未给出时取字体行高。
func (r *Renderer) Measure(text string, style layout.FontStyle) (layout.Size, error) {
	key := measureKey{text: text, style: style}
	r.measureMu.Lock()
	if size, ok := r.measured[key]; ok {
		r.measureMu.Unlock()
		return size, nil
	}
	gen := r.fontGen
	r.measureMu.Unlock()

	face, err := r.face(style, canvas.Black)
	if err != nil {
		return layout.Size{}, err
	}
	size := layout.Size{
		Width:  face.TextWidth(text) + style.LetterSpacing*float64(utf8.RuneCountInString(text)),
		Height: style.LineHeight,
	}
	if size.Height <= 0 {
		size.Height = face.Metrics().LineHeight
	}

	r.measureMu.Lock()
	if gen == r.fontGen {
		r.measured[key] = size
	}
	r.measureMu.Unlock()
	return size, nil
}

// Render renders the result into a single-page PDF byte slice.
// 未限定的宽高取内容尺寸，注音超出顶部时页面向上扩展。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	width, height := result.Width, result.Height
	if width <= 0 {
		width = result.ContentWidth
	}
	if height <= 0 {
		height = result.ContentHeight
	}
	top := 0.0
	for _, a := range result.Annotations {
		if a.Y < top {
			top = a.Y
		}
	}
	offsetX, offsetY := r.margin, r.margin-top
	pageW := width + 2*r.margin
	pageH := height - top + 2*r.margin

	var buf bytes.Buffer
	writer := pdf.New(&buf, pageW, pageH, nil)
	writer.SetInfo(r.title, "", "", "", "compresstext")

	c := canvas.New(pageW, pageH)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	sink := &pageSink{r: r, ctx: ctx, dx: offsetX, dy: offsetY}
	if err := result.Emit(sink); err != nil {
		return nil, err
	}
	c.RenderTo(writer)

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// pageSink 把字形与注音画到 canvas 上，实现 layout.Sink。
type pageSink struct {
	r      *Renderer
	ctx    *canvas.Context
	dx, dy float64
}

var _ layout.Sink = (*pageSink)(nil)

func (s *pageSink) DrawGlyph(g layout.Glyph) error {
	fill := g.Style.Fill
	if g.Style.Gradient {
		// canvas 的文字不支持渐变填充，取首个渐变色
		fill = g.Style.GradientColor1
	}
	face, err := s.r.face(g.Style.Font, parseColor(fill))
	if err != nil {
		return err
	}
	s.draw(face, g.Text, s.dx+g.X, s.dy+g.Y+face.Metrics().Ascent, g.ScaleX)
	return nil
}

func (s *pageSink) DrawAnnotation(a layout.AnnotationBox) error {
	face, err := s.r.face(a.Style.Font, parseColor(a.Style.Fill))
	if err != nil {
		return err
	}
	baseline := s.dy + a.Y + face.Metrics().Ascent
	for i, off := range annotationOffsets(face, a) {
		s.draw(face, a.Units[i], s.dx+a.X+off*a.ScaleX, baseline, a.ScaleX)
	}
	return nil
}

// annotationOffsets 返回每个注音单元相对注音框左端、压缩前的横向偏移。
// 基础字距与 Measure 一致按字符累加，拉伸得到的额外字距按单元累加。
func annotationOffsets(face *canvas.FontFace, a layout.AnnotationBox) []float64 {
	base := a.Style.Font.LetterSpacing
	extra := a.LetterSpacing - base
	offsets := make([]float64, len(a.Units))
	x := 0.0
	for i, unit := range a.Units {
		offsets[i] = x
		x += face.TextWidth(unit) + base*float64(utf8.RuneCountInString(unit)) + extra
	}
	return offsets
}

func (s *pageSink) draw(face *canvas.FontFace, text string, x, baseline, scaleX float64) {
	line := canvas.NewTextLine(face, text, canvas.Left)
	if scaleX == 1 || scaleX <= 0 {
		s.ctx.DrawText(x, baseline, line)
		return
	}
	s.ctx.Push()
	s.ctx.ComposeView(canvas.Identity.Translate(x, baseline).Scale(scaleX, 1))
	s.ctx.DrawText(0, 0, line)
	s.ctx.Pop()
}

// parseColor 支持 #rgb/#rrggbb 与 CSS 颜色名，无法识别时为黑色。
func parseColor(v string) color.Color {
	v = strings.ToLower(strings.TrimSpace(v))
	if strings.HasPrefix(v, "#") {
		return canvas.Hex(v)
	}
	if c, ok := colornames.Map[v]; ok {
		return c
	}
	return canvas.Black
}

func isGeneric(family string) bool {
	switch strings.ToLower(family) {
	case "serif", "sans-serif", "monospace", "system-ui", "cursive", "fantasy":
		return true
	}
	return false
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

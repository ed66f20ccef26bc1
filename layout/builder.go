package layout

import (
	"fmt"

	"github.com/ByLCY/compresstext/markup"
)

// Build 解析 cfg.Text 并完成一次完整排版：压缩、对齐、注音定位，必要时追加一轮修正。
// 测量失败时返回 *InputError 且没有任何结果。
func Build(cfg Config, opts BuildOptions) (*Result, error) {
	if opts.Measurer == nil {
		return nil, ErrNoMeasurer
	}
	cfg = cfg.normalized()
	sp := opts.Splitter
	if sp == nil {
		sp = markup.NewGraphemeSplitter(cfg.NoCompress)
	}
	segments, err := markup.Parse(cfg.Text, sp)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	e, err := newEngine(cfg, segments, sp, opts)
	if err != nil {
		return nil, err
	}
	e.run()
	return e.result(), nil
}

func (e *engine) run() {
	e.pass(false)
	if e.state.NeedsSecondPass {
		e.log.Debug("layout: 注音加宽正文，执行第二轮排版")
		if e.trace != nil {
			e.trace.SecondPass = true
		}
		e.pass(true)
	}
}

// pass 执行一轮 压缩→排布→对齐→注音。比例与补白沿用上一轮的值。
func (e *engine) pass(corrective bool) {
	e.passes++
	e.state.NeedsSecondPass = false
	e.compress()
	e.align()
	e.annotate(corrective)
}

func (e *engine) result() *Result {
	s := e.state
	res := &Result{
		Width:          e.cfg.Width,
		Height:         e.cfg.Height,
		Scale:          s.UniformScale,
		FirstLineScale: s.FirstLineScale,
		SmallSize:      s.SmallFontTier,
		FontSize:       e.fontSize(),
		Passes:         e.passes,
		Glyphs:         []Glyph{},
		Annotations:    []AnnotationBox{},
		Debug:          e.trace,
	}
	if len(e.units) > 0 {
		res.Lines = s.CurrentLine + 1
		res.ContentHeight = e.bottom()
	}

	plain := e.glyphStyle(false)
	bold := e.glyphStyle(true)
	rt := GlyphStyle{
		Font:        e.annotationStyle(),
		Fill:        e.cfg.RtColor,
		StrokeWidth: e.cfg.RtStrokeWidth,
	}
	for i, seg := range e.segments {
		style := plain
		if seg.bold {
			style = bold
		}
		for _, u := range seg.units {
			if r := u.right(); r > res.ContentWidth {
				res.ContentWidth = r
			}
			res.Glyphs = append(res.Glyphs, Glyph{
				Text:         u.text,
				X:            u.x,
				Y:            u.y,
				Width:        u.width,
				Height:       u.naturalHeight,
				NaturalWidth: u.naturalWidth,
				ScaleX:       u.scaleX,
				Line:         u.line,
				PaddingLeft:  u.paddingLeft,
				PaddingRight: u.paddingRight,
				Segment:      i,
				Protected:    u.protected,
				Style:        style,
			})
		}
		if a := seg.annotation; a != nil {
			res.Annotations = append(res.Annotations, AnnotationBox{
				Text:          a.text,
				Units:         a.units,
				X:             a.x,
				Y:             a.y,
				Width:         a.width,
				NaturalWidth:  a.naturalWidth,
				ScaleX:        a.scaleX,
				LetterSpacing: a.letterSpacing,
				Segment:       i,
				Style:         rt,
			})
		}
	}
	return res
}

func (e *engine) glyphStyle(bold bool) GlyphStyle {
	return GlyphStyle{
		Font:           e.unitStyle(bold),
		Fill:           e.cfg.Color,
		StrokeWidth:    e.cfg.StrokeWidth,
		Gradient:       e.cfg.Gradient,
		GradientColor1: e.cfg.GradientColor1,
		GradientColor2: e.cfg.GradientColor2,
	}
}

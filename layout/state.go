package layout

import (
	"log/slog"
	"strings"

	"github.com/ByLCY/compresstext/markup"
)

// LayoutState 是一次排版调用内的可变状态，每次调用重新创建。
type LayoutState struct {
	CursorX         float64
	CursorY         float64
	CurrentLine     int
	UniformScale    float64
	FirstLineScale  float64
	SmallFontTier   bool
	NeedsSecondPass bool
}

func newLayoutState() LayoutState {
	return LayoutState{UniformScale: 1, FirstLineScale: 1}
}

type displayUnit struct {
	text          string
	naturalWidth  float64
	naturalHeight float64
	width         float64
	scaleX        float64
	paddingLeft   float64
	paddingRight  float64
	line          int
	x, y          float64
	protected     bool
	newline       bool
}

func (u *displayUnit) effectiveWidth() float64 {
	return u.width + u.paddingLeft + u.paddingRight
}

func (u *displayUnit) right() float64 {
	return u.x + u.width + u.paddingRight
}

type annotationBlock struct {
	text          string
	units         []string
	naturalWidth  float64
	width         float64
	scaleX        float64
	letterSpacing float64
	x, y          float64
}

type segment struct {
	bold       bool
	block      int // 按显式换行划分的段号
	units      []*displayUnit
	annotation *annotationBlock
	widened    bool
}

// engine 持有一次排版调用的全部实体，调用结束即丢弃。
type engine struct {
	cfg      Config
	state    LayoutState
	segments []*segment
	units    []*displayUnit
	blocks   int
	passes   int
	trace    *Debug
	log      *slog.Logger
}

func newEngine(cfg Config, parsed []markup.Segment, sp markup.Splitter, opts BuildOptions) (*engine, error) {
	e := &engine{
		cfg:    cfg,
		state:  newLayoutState(),
		blocks: 1,
		log:    Logger(),
	}
	if opts.Debug.Trace {
		e.trace = &Debug{}
	}
	unitStyle := e.unitStyle(false)
	boldStyle := e.unitStyle(true)
	rtStyle := e.annotationStyle()
	block := 0
	for _, ps := range parsed {
		seg := &segment{bold: ps.Base.Bold, block: block}
		style := unitStyle
		if ps.Base.Bold {
			style = boldStyle
		}
		for _, text := range ps.Base.Units {
			u := &displayUnit{text: text, scaleX: 1}
			if text == "\n" {
				u.newline = true
				u.naturalHeight = style.LineHeight
			} else {
				size, err := opts.Measurer.Measure(text, style)
				if err != nil {
					return nil, &InputError{Text: text, Err: err}
				}
				u.naturalWidth, u.naturalHeight = size.Width, size.Height
				u.protected = strings.Contains(cfg.NoCompress, text)
			}
			u.width = u.naturalWidth
			seg.units = append(seg.units, u)
			e.units = append(e.units, u)
		}
		if ps.HasAnnotation() && len(seg.units) > 0 {
			size, err := opts.Measurer.Measure(ps.Annotation.Text, rtStyle)
			if err != nil {
				return nil, &InputError{Text: ps.Annotation.Text, Err: err}
			}
			seg.annotation = &annotationBlock{
				text:         ps.Annotation.Text,
				units:        sp.Split(ps.Annotation.Text),
				naturalWidth: size.Width,
				width:        size.Width,
				scaleX:       1,
			}
		}
		e.segments = append(e.segments, seg)
		if ps.IsNewline() {
			block++
			e.blocks = block + 1
		}
	}
	return e, nil
}

// fontSize 返回当前字号档位。
func (e *engine) fontSize() float64 {
	if e.state.SmallFontTier {
		return e.cfg.SmallFontSize
	}
	return e.cfg.FontSize
}

func (e *engine) lineAdvance() float64 {
	return e.fontSize() * e.cfg.LineHeight * e.cfg.FontScale
}

func (e *engine) unitStyle(bold bool) FontStyle {
	size := e.fontSize()
	weight := e.cfg.FontWeight
	if bold {
		weight = "bold"
	}
	return FontStyle{
		Family:        e.cfg.FontFamily,
		Size:          size * e.cfg.FontScale,
		Weight:        weight,
		LineHeight:    size * e.cfg.LineHeight * e.cfg.FontScale,
		LetterSpacing: e.cfg.LetterSpacing,
	}
}

func (e *engine) annotationStyle() FontStyle {
	return FontStyle{
		Family:        e.cfg.RtFontFamily,
		Size:          e.cfg.RtFontSize * e.cfg.FontScale,
		Weight:        e.cfg.RtFontWeight,
		LineHeight:    e.cfg.RtFontSize * e.cfg.RtLineHeight * e.cfg.FontScale,
		LetterSpacing: e.cfg.RtLetterSpacing,
	}
}

func (e *engine) lastUnit() *displayUnit {
	if len(e.units) == 0 {
		return nil
	}
	return e.units[len(e.units)-1]
}

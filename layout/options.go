package layout

import (
	"strings"

	"github.com/ByLCY/compresstext/markup"
)

// BuildOptions 配置布局阶段所需的依赖，例如测量后端与字素切分器。
type BuildOptions struct {
	Measurer Measurer
	Splitter markup.Splitter // 为空时按 Config.NoCompress 创建 GraphemeSplitter
	Debug    DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	Trace bool // 在结果中记录二分查找与各轮排版的过程
}

// Align 是行内对齐方式。
type Align string

const (
	AlignLeft    Align = "left"
	AlignCenter  Align = "center"
	AlignRight   Align = "right"
	AlignJustify Align = "justify"
)

// ParseAlign 规范化对齐方式，支持 start/end 别名，未知值回退为 justify。
func ParseAlign(v string) Align {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left", "start":
		return AlignLeft
	case "center", "middle":
		return AlignCenter
	case "right", "end":
		return AlignRight
	default:
		return AlignJustify
	}
}

const (
	baseLineHeight    = 1.15
	defaultNoCompress = "●①②③④⑤⑥⑦⑧⑨⑩"
)

// Config 是文本框的全部可配置项。长度单位与测量后端一致（canvas 渲染器约定为 mm）。
// 颜色、描边与渐变仅透传给 Sink，布局本身不解释。
type Config struct {
	Text              string  `json:"text"`
	FontFamily        string  `json:"fontFamily"`
	FontSize          float64 `json:"fontSize"`
	FontWeight        string  `json:"fontWeight"`
	LineHeight        float64 `json:"lineHeight"` // 行高倍数
	LetterSpacing     float64 `json:"letterSpacing"`
	TextAlign         Align   `json:"textAlign"`
	Color             string  `json:"color"`
	StrokeWidth       float64 `json:"strokeWidth"`
	Gradient          bool    `json:"gradient"`
	GradientColor1    string  `json:"gradientColor1"`
	GradientColor2    string  `json:"gradientColor2"`
	Width             float64 `json:"width"`  // 0 表示不限宽
	Height            float64 `json:"height"` // 0 表示不限高
	FirstLineCompress bool    `json:"firstLineCompress"`
	AutoSmallSize     bool    `json:"autoSmallSize"`
	SmallFontSize     float64 `json:"smallFontSize"`
	FontScale         float64 `json:"fontScale"`
	RtFontFamily      string  `json:"rtFontFamily"`
	RtFontSize        float64 `json:"rtFontSize"`
	RtFontWeight      string  `json:"rtFontWeight"`
	RtLineHeight      float64 `json:"rtLineHeight"`
	RtLetterSpacing   float64 `json:"rtLetterSpacing"`
	RtTop             float64 `json:"rtTop"`
	RtColor           string  `json:"rtColor"`
	RtStrokeWidth     float64 `json:"rtStrokeWidth"`
	NoCompress        string  `json:"noCompress"` // 永不压缩的字符集合
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		FontFamily:     "ygo-sc, 楷体, serif",
		FontSize:       24,
		FontWeight:     "normal",
		LineHeight:     baseLineHeight,
		TextAlign:      AlignJustify,
		Color:          "black",
		GradientColor1: "#999999",
		GradientColor2: "#ffffff",
		FontScale:      1,
		RtFontFamily:   "ygo-tip, sans-serif",
		RtFontSize:     13,
		RtFontWeight:   "bold",
		RtLineHeight:   baseLineHeight,
		RtTop:          -9,
		RtColor:        "black",
		NoCompress:     defaultNoCompress,
	}
}

// normalized 为零值字段补上可用的默认值。RtTop 等允许为 0 的字段保持原样。
func (c Config) normalized() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.FontFamily) == "" {
		c.FontFamily = d.FontFamily
	}
	if c.FontSize <= 0 {
		c.FontSize = d.FontSize
	}
	if c.FontWeight == "" {
		c.FontWeight = d.FontWeight
	}
	if c.LineHeight <= 0 {
		c.LineHeight = d.LineHeight
	}
	c.TextAlign = ParseAlign(string(c.TextAlign))
	if c.Color == "" {
		c.Color = d.Color
	}
	if c.GradientColor1 == "" {
		c.GradientColor1 = d.GradientColor1
	}
	if c.GradientColor2 == "" {
		c.GradientColor2 = d.GradientColor2
	}
	if c.SmallFontSize <= 0 {
		c.SmallFontSize = c.FontSize
	}
	if c.FontScale <= 0 {
		c.FontScale = d.FontScale
	}
	if strings.TrimSpace(c.RtFontFamily) == "" {
		c.RtFontFamily = d.RtFontFamily
	}
	if c.RtFontSize <= 0 {
		c.RtFontSize = d.RtFontSize
	}
	if c.RtFontWeight == "" {
		c.RtFontWeight = d.RtFontWeight
	}
	if c.RtLineHeight <= 0 {
		c.RtLineHeight = d.RtLineHeight
	}
	if c.RtColor == "" {
		c.RtColor = d.RtColor
	}
	if c.NoCompress == "" {
		c.NoCompress = d.NoCompress
	}
	if c.Width < 0 {
		c.Width = 0
	}
	if c.Height < 0 {
		c.Height = 0
	}
	return c
}

// Change 描述一次局部更新带来的影响。
type Change uint8

const (
	ChangeLayout Change = 1 << iota // 需要重新排版
	ChangeFont                      // 字体族变化，需要重新加载字体
)

// Has reports whether all bits of flag are set.
func (c Change) Has(flag Change) bool { return c&flag == flag }

// Patch 是 Config 的局部更新，nil 字段表示不修改。
type Patch struct {
	Text              *string  `json:"text,omitempty"`
	FontFamily        *string  `json:"fontFamily,omitempty"`
	FontSize          *float64 `json:"fontSize,omitempty"`
	FontWeight        *string  `json:"fontWeight,omitempty"`
	LineHeight        *float64 `json:"lineHeight,omitempty"`
	LetterSpacing     *float64 `json:"letterSpacing,omitempty"`
	TextAlign         *Align   `json:"textAlign,omitempty"`
	Color             *string  `json:"color,omitempty"`
	StrokeWidth       *float64 `json:"strokeWidth,omitempty"`
	Gradient          *bool    `json:"gradient,omitempty"`
	GradientColor1    *string  `json:"gradientColor1,omitempty"`
	GradientColor2    *string  `json:"gradientColor2,omitempty"`
	Width             *float64 `json:"width,omitempty"`
	Height            *float64 `json:"height,omitempty"`
	FirstLineCompress *bool    `json:"firstLineCompress,omitempty"`
	AutoSmallSize     *bool    `json:"autoSmallSize,omitempty"`
	SmallFontSize     *float64 `json:"smallFontSize,omitempty"`
	FontScale         *float64 `json:"fontScale,omitempty"`
	RtFontFamily      *string  `json:"rtFontFamily,omitempty"`
	RtFontSize        *float64 `json:"rtFontSize,omitempty"`
	RtFontWeight      *string  `json:"rtFontWeight,omitempty"`
	RtLineHeight      *float64 `json:"rtLineHeight,omitempty"`
	RtLetterSpacing   *float64 `json:"rtLetterSpacing,omitempty"`
	RtTop             *float64 `json:"rtTop,omitempty"`
	RtColor           *string  `json:"rtColor,omitempty"`
	RtStrokeWidth     *float64 `json:"rtStrokeWidth,omitempty"`
	NoCompress        *string  `json:"noCompress,omitempty"`
}

// Apply 逐字段比较并写入 Patch 中的非空字段，返回新配置与变化类型。
// 值未变化的字段不计入 Change。
func (c Config) Apply(p Patch) (Config, Change) {
	var ch Change
	assign(&c.Text, p.Text, &ch, ChangeLayout)
	assign(&c.FontFamily, p.FontFamily, &ch, ChangeLayout|ChangeFont)
	assign(&c.FontSize, p.FontSize, &ch, ChangeLayout)
	assign(&c.FontWeight, p.FontWeight, &ch, ChangeLayout)
	assign(&c.LineHeight, p.LineHeight, &ch, ChangeLayout)
	assign(&c.LetterSpacing, p.LetterSpacing, &ch, ChangeLayout)
	assign(&c.TextAlign, p.TextAlign, &ch, ChangeLayout)
	assign(&c.Color, p.Color, &ch, ChangeLayout)
	assign(&c.StrokeWidth, p.StrokeWidth, &ch, ChangeLayout)
	assign(&c.Gradient, p.Gradient, &ch, ChangeLayout)
	assign(&c.GradientColor1, p.GradientColor1, &ch, ChangeLayout)
	assign(&c.GradientColor2, p.GradientColor2, &ch, ChangeLayout)
	assign(&c.Width, p.Width, &ch, ChangeLayout)
	assign(&c.Height, p.Height, &ch, ChangeLayout)
	assign(&c.FirstLineCompress, p.FirstLineCompress, &ch, ChangeLayout)
	assign(&c.AutoSmallSize, p.AutoSmallSize, &ch, ChangeLayout)
	assign(&c.SmallFontSize, p.SmallFontSize, &ch, ChangeLayout)
	assign(&c.FontScale, p.FontScale, &ch, ChangeLayout)
	assign(&c.RtFontFamily, p.RtFontFamily, &ch, ChangeLayout|ChangeFont)
	assign(&c.RtFontSize, p.RtFontSize, &ch, ChangeLayout)
	assign(&c.RtFontWeight, p.RtFontWeight, &ch, ChangeLayout)
	assign(&c.RtLineHeight, p.RtLineHeight, &ch, ChangeLayout)
	assign(&c.RtLetterSpacing, p.RtLetterSpacing, &ch, ChangeLayout)
	assign(&c.RtTop, p.RtTop, &ch, ChangeLayout)
	assign(&c.RtColor, p.RtColor, &ch, ChangeLayout)
	assign(&c.RtStrokeWidth, p.RtStrokeWidth, &ch, ChangeLayout)
	assign(&c.NoCompress, p.NoCompress, &ch, ChangeLayout)
	return c, ch
}

func assign[T comparable](dst *T, v *T, ch *Change, flag Change) {
	if v == nil || *dst == *v {
		return
	}
	*dst = *v
	*ch |= flag
}

// FontFamilies 拆分逗号分隔的字体族列表（可传入多个），去掉引号、去重并保持顺序。
func FontFamilies(lists ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range lists {
		for _, name := range strings.Split(list, ",") {
			name = strings.Trim(strings.TrimSpace(name), `"'`)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

package layout

// 该文件定义布局结果，供 Sink 渲染与调试 JSON 共用。

// Result 保存一次完整排版的输出。坐标原点为文本框左上角，y 向下。
type Result struct {
	Width          float64         `json:"width"`  // 文本框宽度，0 表示不限
	Height         float64         `json:"height"` // 文本框高度，0 表示不限
	ContentWidth   float64         `json:"contentWidth"`
	ContentHeight  float64         `json:"contentHeight"`
	Lines          int             `json:"lines"`
	Scale          float64         `json:"scale"`          // 末段的整体压缩比例
	FirstLineScale float64         `json:"firstLineScale"` // 首段压缩比例
	SmallSize      bool            `json:"smallSize"`      // 是否降级到小字号
	FontSize       float64         `json:"fontSize"`       // 生效的字号档位（未乘 FontScale）
	Passes         int             `json:"passes"`
	Glyphs         []Glyph         `json:"glyphs"`
	Annotations    []AnnotationBox `json:"annotations"`
	Debug          *Debug          `json:"debug,omitempty"`
}

// Glyph 是一个已定位的显示单元。X 已包含左侧补白。
type Glyph struct {
	Text          string     `json:"text"`
	X             float64    `json:"x"`
	Y             float64    `json:"y"`
	Width         float64    `json:"width"`
	Height        float64    `json:"height"`
	NaturalWidth  float64    `json:"naturalWidth"`
	ScaleX        float64    `json:"scaleX"`
	Line          int        `json:"line"`
	PaddingLeft   float64    `json:"paddingLeft,omitempty"`
	PaddingRight  float64    `json:"paddingRight,omitempty"`
	Segment       int        `json:"segment"`
	Protected     bool       `json:"protected,omitempty"`
	Style         GlyphStyle `json:"style"`
}

// IsNewline reports whether the glyph is an explicit line break marker.
func (g Glyph) IsNewline() bool { return g.Text == "\n" }

// AnnotationBox 是一个已定位的注音块。Units 为按字素切分的注音文本，
// LetterSpacing 作用于相邻 Units 之间。
type AnnotationBox struct {
	Text          string     `json:"text"`
	Units         []string   `json:"units"`
	X             float64    `json:"x"`
	Y             float64    `json:"y"`
	Width         float64    `json:"width"`
	NaturalWidth  float64    `json:"naturalWidth"`
	ScaleX        float64    `json:"scaleX"`
	LetterSpacing float64    `json:"letterSpacing"`
	Segment       int        `json:"segment"`
	Style         GlyphStyle `json:"style"`
}

// GlyphStyle 携带字体与透传的绘制样式，布局不解释颜色、描边与渐变。
type GlyphStyle struct {
	Font           FontStyle `json:"font"`
	Fill           string    `json:"fill"`
	StrokeWidth    float64   `json:"strokeWidth,omitempty"`
	Gradient       bool      `json:"gradient,omitempty"`
	GradientColor1 string    `json:"gradientColor1,omitempty"`
	GradientColor2 string    `json:"gradientColor2,omitempty"`
}

// Debug 记录排版过程，仅在 DebugOptions.Trace 打开时生成。
type Debug struct {
	Bisection     []BisectStep `json:"bisection,omitempty"`
	TierDowngrade bool         `json:"tierDowngrade"`
	SecondPass    bool         `json:"secondPass"`
}

// BisectStep 是高度二分查找中的一步。
type BisectStep struct {
	Pass   int     `json:"pass"`
	Scale  float64 `json:"scale"`
	Bottom float64 `json:"bottom"`
	Fits   bool    `json:"fits"`
}

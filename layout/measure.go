package layout

// FontStyle 是测量与绘制共用的字体描述。Size 与 LineHeight 均为绝对长度。
type FontStyle struct {
	Family        string  `json:"family"`
	Size          float64 `json:"size"`
	Weight        string  `json:"weight"`
	LineHeight    float64 `json:"lineHeight"`
	LetterSpacing float64 `json:"letterSpacing"`
}

// Bold reports whether the weight asks for a bold face.
func (s FontStyle) Bold() bool {
	switch s.Weight {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	}
	return false
}

// Size 是未缩放的自然宽高。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Measurer 返回文本在给定样式下的自然宽高。
// 对相同参数必须返回相同结果；缓存由实现方负责。
type Measurer interface {
	Measure(text string, style FontStyle) (Size, error)
}

// MeasureFunc adapts a plain function to Measurer.
type MeasureFunc func(text string, style FontStyle) (Size, error)

// Measure implements Measurer.
func (f MeasureFunc) Measure(text string, style FontStyle) (Size, error) { return f(text, style) }

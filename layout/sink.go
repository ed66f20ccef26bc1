package layout

import "fmt"

// Sink 接收最终的绘制指令，是渲染库一侧的单向接口。
type Sink interface {
	DrawGlyph(g Glyph) error
	DrawAnnotation(a AnnotationBox) error
}

// Emit 依次把正文与注音交给 sink，换行标记不输出。
func (r *Result) Emit(sink Sink) error {
	if r == nil {
		return nil
	}
	for _, g := range r.Glyphs {
		if g.IsNewline() {
			continue
		}
		if err := sink.DrawGlyph(g); err != nil {
			return fmt.Errorf("绘制 %q 失败: %w", g.Text, err)
		}
	}
	for _, a := range r.Annotations {
		if err := sink.DrawAnnotation(a); err != nil {
			return fmt.Errorf("绘制注音 %q 失败: %w", a.Text, err)
		}
	}
	return nil
}

package layout

import (
	"errors"
	"math"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/compresstext/markup"
)

// stubMeasurer 按表给出宽度，未登记的文本按每个字符 perRune 计算；高度取行高。
type stubMeasurer struct {
	widths  map[string]float64
	perRune float64
	fail    string
}

func (m stubMeasurer) Measure(text string, style FontStyle) (Size, error) {
	if m.fail != "" && text == m.fail {
		return Size{}, errors.New("boom")
	}
	w, ok := m.widths[text]
	if !ok {
		w = m.perRune * float64(utf8.RuneCountInString(text))
	}
	return Size{Width: w, Height: style.LineHeight}, nil
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func build(t *testing.T, cfg Config, m Measurer) *Result {
	t.Helper()
	res, err := Build(cfg, BuildOptions{Measurer: m})
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	return res
}

func glyphs(res *Result) []Glyph {
	var out []Glyph
	for _, g := range res.Glyphs {
		if !g.IsNewline() {
			out = append(out, g)
		}
	}
	return out
}

func TestBuildJustifyEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "ab"
	cfg.Width = 100
	res := build(t, cfg, stubMeasurer{widths: map[string]float64{"a": 40, "b": 40}})
	if len(res.Glyphs) != 2 {
		t.Fatalf("期望 2 个字形，实际 %d", len(res.Glyphs))
	}
	if res.Glyphs[0].X != 0 || !near(res.Glyphs[1].X, 60) {
		t.Fatalf("两端对齐后期望 x=0/60，实际 %g/%g", res.Glyphs[0].X, res.Glyphs[1].X)
	}
	if res.Lines != 1 || res.Passes != 1 {
		t.Fatalf("期望 1 行 1 轮，实际 %d 行 %d 轮", res.Lines, res.Passes)
	}
}

func TestJustifyFillsEveryWrappedLine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "abcabcabcabc"
	cfg.Width = 100
	res := build(t, cfg, stubMeasurer{widths: map[string]float64{"a": 13, "b": 17, "c": 29}})
	if res.Lines != 3 {
		t.Fatalf("期望 3 行，实际 %d", res.Lines)
	}
	lastOf := map[int]Glyph{}
	firstOf := map[int]Glyph{}
	for _, g := range res.Glyphs {
		if _, ok := firstOf[g.Line]; !ok {
			firstOf[g.Line] = g
		}
		lastOf[g.Line] = g
	}
	for line := 0; line < 2; line++ {
		g := lastOf[line]
		if right := g.X + g.Width + g.PaddingRight; !near(right, 100) {
			t.Fatalf("第 %d 行末字右边缘期望 100，实际 %g", line, right)
		}
		if firstOf[line].X != 0 {
			t.Fatalf("第 %d 行首字应从 0 开始，实际 %g", line, firstOf[line].X)
		}
	}
	if g := lastOf[2]; !near(g.X+g.Width, 59) {
		t.Fatalf("末行不应被拉伸，右边缘期望 59，实际 %g", g.X+g.Width)
	}
}

func TestAlignModes(t *testing.T) {
	cases := []struct {
		align Align
		x0    float64
		x1    float64
	}{
		{AlignLeft, 0, 40},
		{AlignCenter, 10, 50},
		{AlignRight, 20, 60},
		{AlignJustify, 0, 60},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		cfg.Text = "ab"
		cfg.Width = 100
		cfg.TextAlign = c.align
		res := build(t, cfg, stubMeasurer{perRune: 40})
		if !near(res.Glyphs[0].X, c.x0) || !near(res.Glyphs[1].X, c.x1) {
			t.Fatalf("%s 对齐期望 %g/%g，实际 %g/%g", c.align, c.x0, c.x1, res.Glyphs[0].X, res.Glyphs[1].X)
		}
	}
}

func TestJustifySkipsLineEndingWithNewline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "ab\ncd"
	cfg.Width = 100
	res := build(t, cfg, stubMeasurer{perRune: 20})
	got := glyphs(res)
	want := []float64{0, 20, 0, 20}
	for i, g := range got {
		if !near(g.X, want[i]) {
			t.Fatalf("%q 期望 x=%g，实际 %g", g.Text, want[i], g.X)
		}
	}
	if got[2].Line != 1 || !near(got[2].Y, 24*baseLineHeight) {
		t.Fatalf("换行后期望位于第 1 行 y=%g，实际第 %d 行 y=%g", 24*baseLineHeight, got[2].Line, got[2].Y)
	}
}

func TestBuildEmptyText(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = " \n "
	cfg.Width = 100
	cfg.Height = 10
	res := build(t, cfg, stubMeasurer{perRune: 10})
	if len(res.Glyphs) != 0 || res.Lines != 0 || res.Scale != 1 {
		t.Fatalf("空文本期望没有字形，实际 %+v", res)
	}
}

func TestProtectedGlyphsNeverCompressed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "①aaaaaaaaa●aaaaaaaaa"
	cfg.Width = 100
	cfg.Height = 30
	res := build(t, cfg, stubMeasurer{perRune: 10})
	if res.Scale >= 1 {
		t.Fatalf("超出高度时应当压缩，实际比例 %g", res.Scale)
	}
	if res.Lines != 1 {
		t.Fatalf("压缩后期望 1 行，实际 %d", res.Lines)
	}
	protected := 0
	for _, g := range res.Glyphs {
		if g.Protected {
			protected++
			if g.Width != g.NaturalWidth || g.ScaleX != 1 {
				t.Fatalf("%q 不应被压缩: width=%g natural=%g", g.Text, g.Width, g.NaturalWidth)
			}
			continue
		}
		if g.ScaleX != res.Scale {
			t.Fatalf("%q 比例期望 %g，实际 %g", g.Text, res.Scale, g.ScaleX)
		}
	}
	if protected != 2 {
		t.Fatalf("期望 2 个保护字符，实际 %d", protected)
	}
}

func TestHeightFitBisection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // 40 个
	cfg.Width = 100
	cfg.Height = 30
	res, err := Build(cfg, BuildOptions{Measurer: stubMeasurer{perRune: 10}, Debug: DebugOptions{Trace: true}})
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	// 一行需要 40*10*s <= 100
	if res.Scale > 0.25 || res.Scale < 0.25-bisectPrecision {
		t.Fatalf("比例期望在 0.25 的 0.01 以内，实际 %g", res.Scale)
	}
	if res.ContentHeight > cfg.Height {
		t.Fatalf("内容高度 %g 超出 %g", res.ContentHeight, cfg.Height)
	}
	if res.Debug == nil || len(res.Debug.Bisection) == 0 {
		t.Fatalf("打开 Trace 时应记录二分过程")
	}
	for _, step := range res.Debug.Bisection {
		if step.Fits && step.Scale > res.Scale {
			t.Fatalf("最终比例 %g 小于已满足高度的 %g", res.Scale, step.Scale)
		}
	}
}

func TestCompressionMonotonic(t *testing.T) {
	prev := 2.0
	for _, h := range []float64{200, 120, 80, 56, 40, 30} {
		cfg := DefaultConfig()
		cfg.Text = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		cfg.Width = 100
		cfg.Height = h
		res := build(t, cfg, stubMeasurer{perRune: 10})
		if res.Scale > prev {
			t.Fatalf("高度 %g 的比例 %g 大于更高预算下的 %g", h, res.Scale, prev)
		}
		prev = res.Scale
	}
}

func TestOnlyLastBlockIsCompressed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "aaaa\naaaaaaaaaaaaaaaaaaaa"
	cfg.Width = 100
	cfg.Height = 60
	res := build(t, cfg, stubMeasurer{perRune: 10})
	if res.Scale >= 1 {
		t.Fatalf("期望末段被压缩，实际比例 %g", res.Scale)
	}
	for _, g := range glyphs(res) {
		if g.Segment == 0 && g.ScaleX != 1 {
			t.Fatalf("首段不应受整体比例影响，实际 %g", g.ScaleX)
		}
		if g.Segment == 2 && g.ScaleX != res.Scale {
			t.Fatalf("末段比例期望 %g，实际 %g", res.Scale, g.ScaleX)
		}
	}
}

func TestFirstLineCompress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "aaaaaaaaaaaa\nbb"
	cfg.Width = 100
	cfg.FirstLineCompress = true
	res := build(t, cfg, stubMeasurer{perRune: 10})
	if res.FirstLineScale != 0.833 {
		t.Fatalf("首段比例期望 0.833，实际 %g", res.FirstLineScale)
	}
	for _, g := range glyphs(res) {
		switch g.Text {
		case "a":
			if g.Line != 0 || g.ScaleX != 0.833 {
				t.Fatalf("首段应压进第 0 行: line=%d scale=%g", g.Line, g.ScaleX)
			}
		case "b":
			if g.Line != 1 || g.ScaleX != 1 {
				t.Fatalf("第二段不受首段比例影响: line=%d scale=%g", g.Line, g.ScaleX)
			}
		}
	}
}

func TestTierDowngrade(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	cfg.Width = 100
	cfg.Height = 30
	cfg.AutoSmallSize = true
	cfg.SmallFontSize = 12
	res := build(t, cfg, stubMeasurer{perRune: 10})
	if !res.SmallSize || res.FontSize != 12 {
		t.Fatalf("比例低于 0.7 时应降级到小字号，实际 small=%v size=%g", res.SmallSize, res.FontSize)
	}
	if res.Scale != 1 || res.Lines != 2 {
		t.Fatalf("降级后期望比例 1 共 2 行，实际 %g / %d", res.Scale, res.Lines)
	}
	if w := res.Glyphs[0].Width; !near(w, 5) {
		t.Fatalf("降级后字宽期望 5，实际 %g", w)
	}

	cfg.FontScale = 1.5
	res = build(t, cfg, stubMeasurer{perRune: 10})
	if res.SmallSize {
		t.Fatalf("FontScale > 1 时不应降级")
	}
}

func TestAnnotationStretch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "[漢字(かん)]"
	res := build(t, cfg, stubMeasurer{perRune: 10, widths: map[string]float64{"漢": 20, "字": 20}})
	if len(res.Annotations) != 1 {
		t.Fatalf("期望 1 个注音，实际 %d", len(res.Annotations))
	}
	a := res.Annotations[0]
	if !near(a.LetterSpacing, 18) || !near(a.Width, 38) || !near(a.X, 1) {
		t.Fatalf("注音拉伸结果错误: %+v", a)
	}
	if !near(a.Y, -9) {
		t.Fatalf("注音 y 期望 -9，实际 %g", a.Y)
	}
	if diff := cmp.Diff([]string{"か", "ん"}, a.Units); diff != "" {
		t.Fatalf("注音单元不符 (-want +got):\n%s", diff)
	}
}

func TestAnnotationStretchCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "[漢字(かん)]"
	res := build(t, cfg, stubMeasurer{perRune: 10, widths: map[string]float64{"漢": 200, "字": 200}})
	if a := res.Annotations[0]; !near(a.LetterSpacing, 3*13) {
		t.Fatalf("字距应被限制为 3 倍注音字号，实际 %g", a.LetterSpacing)
	}
}

func TestAnnotationCompressed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "x[字(ab)]"
	res := build(t, cfg, stubMeasurer{widths: map[string]float64{"x": 5, "字": 10, "ab": 12}})
	a := res.Annotations[0]
	if !near(a.ScaleX, 10.0/12) || !near(a.X, 5) || !near(a.Width, 10) {
		t.Fatalf("注音压缩结果错误: %+v", a)
	}
	if res.Passes != 1 {
		t.Fatalf("比例不低于 0.6 时不应触发第二轮，实际 %d 轮", res.Passes)
	}
}

func TestAnnotationCentered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "[字(a)]"
	res := build(t, cfg, stubMeasurer{widths: map[string]float64{"字": 20, "a": 8}})
	if a := res.Annotations[0]; !near(a.X, 6) || a.ScaleX != 1 {
		t.Fatalf("注音应居中于正文: %+v", a)
	}
}

func TestAnnotationWideningTriggersOneSecondPass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "[字(abcdefghij)]"
	cfg.Width = 200
	cfg = cfg.normalized()
	sp := markup.NewGraphemeSplitter(cfg.NoCompress)
	segs, err := markup.Parse(cfg.Text, sp)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	e, err := newEngine(cfg, segs, sp, BuildOptions{Measurer: stubMeasurer{perRune: 10}})
	if err != nil {
		t.Fatalf("创建排版失败: %v", err)
	}

	e.pass(false)
	if !e.state.NeedsSecondPass {
		t.Fatalf("注音是正文 10 倍宽时第一轮应请求第二轮")
	}
	u := e.units[0]
	if !near(u.paddingLeft, 25) || !near(u.paddingRight, 25) {
		t.Fatalf("补白期望各 25，实际 %g/%g", u.paddingLeft, u.paddingRight)
	}

	e.pass(true)
	if e.state.NeedsSecondPass {
		t.Fatalf("修正轮不应再次请求")
	}
	left, right := u.paddingLeft, u.paddingRight
	e.pass(true)
	if e.state.NeedsSecondPass || u.paddingLeft != left || u.paddingRight != right {
		t.Fatalf("再执行一轮补白不应变化: %g/%g -> %g/%g", left, right, u.paddingLeft, u.paddingRight)
	}
	if a := e.segments[0].annotation; !near(a.scaleX, 0.6) || !near(a.x, 0) {
		t.Fatalf("修正后注音比例期望 0.6 且 x=0，实际 %g / %g", a.scaleX, a.x)
	}

	res := build(t, cfg, stubMeasurer{perRune: 10})
	if res.Passes != 2 || !near(res.Glyphs[0].X, 25) {
		t.Fatalf("期望 2 轮且正文右移 25，实际 %d 轮 x=%g", res.Passes, res.Glyphs[0].X)
	}
}

func TestAnnotatedRunDoesNotBreak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "aaaaaaa[漢字(かんじ)]"
	cfg.Width = 100
	cfg.TextAlign = AlignLeft
	res := build(t, cfg, stubMeasurer{perRune: 12})
	var lines []int
	for _, g := range res.Glyphs {
		if g.Segment == 1 {
			lines = append(lines, g.Line)
		}
	}
	if diff := cmp.Diff([]int{1, 1}, lines); diff != "" {
		t.Fatalf("注音正文应整体换到下一行 (-want +got):\n%s", diff)
	}
}

func TestBuildIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "①[遊戯(ゆうぎ)]王<b>カード</b>を\n[召喚(しょうかん)]するaaaaaaaaaaaaaaaaaaaa"
	cfg.Width = 120
	cfg.Height = 60
	cfg.FirstLineCompress = true
	m := stubMeasurer{perRune: 11}
	a := build(t, cfg, m)
	b := build(t, cfg, m)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("相同输入两次排版结果不同 (-first +second):\n%s", diff)
	}
}

func TestBoldGlyphStyle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "x<b>y</b>z"
	cfg.Gradient = true
	res := build(t, cfg, stubMeasurer{perRune: 10})
	weights := []string{}
	for _, g := range res.Glyphs {
		weights = append(weights, g.Style.Font.Weight)
		if !g.Style.Gradient || g.Style.GradientColor1 != "#999999" {
			t.Fatalf("渐变样式应透传给字形: %+v", g.Style)
		}
	}
	if diff := cmp.Diff([]string{"normal", "bold", "normal"}, weights); diff != "" {
		t.Fatalf("粗体样式不符 (-want +got):\n%s", diff)
	}
}

func TestBuildErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "abc"
	if _, err := Build(cfg, BuildOptions{}); !errors.Is(err, ErrNoMeasurer) {
		t.Fatalf("缺少 Measurer 应返回 ErrNoMeasurer，实际 %v", err)
	}
	res, err := Build(cfg, BuildOptions{Measurer: stubMeasurer{perRune: 10, fail: "b"}})
	var inputErr *InputError
	if !errors.As(err, &inputErr) || inputErr.Text != "b" {
		t.Fatalf("测量失败应返回 InputError，实际 %v", err)
	}
	if res != nil {
		t.Fatalf("失败时不应返回结果")
	}
}

type recordingSink struct {
	calls []string
}

func (s *recordingSink) DrawGlyph(g Glyph) error {
	s.calls = append(s.calls, "g:"+g.Text)
	return nil
}

func (s *recordingSink) DrawAnnotation(a AnnotationBox) error {
	s.calls = append(s.calls, "a:"+a.Text)
	return nil
}

func TestResultEmit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = "a\n[b(c)]"
	res := build(t, cfg, stubMeasurer{perRune: 10})
	var sink recordingSink
	if err := res.Emit(&sink); err != nil {
		t.Fatalf("输出失败: %v", err)
	}
	if diff := cmp.Diff([]string{"g:a", "g:b", "a:c"}, sink.calls); diff != "" {
		t.Fatalf("输出顺序不符 (-want +got):\n%s", diff)
	}
}

package markup

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// 规则顺序即匹配优先级：注音结构与粗体标记必须排在兜底的 Text 之前。
var (
	markupLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ruby", Pattern: `\[.*?\(.*?\)\]`},
		{Name: "BoldOn", Pattern: `<b>`},
		{Name: "BoldOff", Pattern: `</b>`},
		{Name: "Newline", Pattern: `\n`},
		{Name: "Text", Pattern: `[^\[<\n]+|[\[<]`},
	})

	markupParser = participle.MustBuild[Markup](
		participle.Lexer(markupLexer),
	)

	rubyPattern = regexp.MustCompile(`^\[(.*?)\((.*?)\)\]$`)
)

// Markup is the token stream of one annotated text.
type Markup struct {
	Pieces []*Piece `parser:"@@*"`
}

// Piece is exactly one of: an annotation pair, a bold toggle, a newline or a literal run.
type Piece struct {
	Ruby    *Ruby   `parser:"  @Ruby"`
	BoldOn  bool    `parser:"| @BoldOn"`
	BoldOff bool    `parser:"| @BoldOff"`
	Newline bool    `parser:"| @Newline"`
	Text    *string `parser:"| @Text"`
}

// Ruby 保存 `[BASE(ANNOTATION)]` 中的两部分文本。
type Ruby struct {
	Base       string
	Annotation string
}

// Capture implements participle.Capture.
func (r *Ruby) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("注音结构缺少内容")
	}
	m := rubyPattern.FindStringSubmatch(values[0])
	if m == nil {
		return fmt.Errorf("无法解析注音结构 %q", values[0])
	}
	r.Base = m[1]
	r.Annotation = m[2]
	return nil
}

// Segment 是解析后的最小排版片段：一段正文及其可选注音。
type Segment struct {
	Base       Run        `json:"base"`
	Annotation Annotation `json:"annotation"`
}

// Run 描述正文部分，Units 由 Splitter 切分得到。
type Run struct {
	Text  string   `json:"text"`
	Bold  bool     `json:"bold"`
	Units []string `json:"units"`
}

// Annotation 描述注音文本，空字符串表示没有注音。
type Annotation struct {
	Text string `json:"text"`
}

// HasAnnotation reports whether the segment carries ruby text.
func (s Segment) HasAnnotation() bool { return s.Annotation.Text != "" }

// IsNewline reports whether the segment is an explicit line break.
func (s Segment) IsNewline() bool { return s.Base.Text == "\n" }

// Lex 只做词法与语法分析，不切分显示单元。
func Lex(text string) (*Markup, error) {
	return markupParser.ParseString("", text)
}

// Parse 将带注音标记的文本解析为有序的 Segment 列表。
// 末尾空白会被去除；不成对的括号或粗体标记按普通文本处理。
// sp 为 nil 时使用不带保护字符的 GraphemeSplitter。
func Parse(text string, sp Splitter) ([]Segment, error) {
	if sp == nil {
		sp = NewGraphemeSplitter("")
	}
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if text == "" {
		return []Segment{}, nil
	}
	doc, err := Lex(text)
	if err != nil {
		return nil, fmt.Errorf("解析注音文本失败: %w", err)
	}

	segments := []Segment{}
	bold := false
	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		segments = append(segments, newSegment(pending.String(), "", bold, sp))
		pending.Reset()
	}

	for _, piece := range doc.Pieces {
		switch {
		case piece.Text != nil:
			// 相邻的字面量（例如落单的 "[" 或 "<"）合并为同一段
			pending.WriteString(*piece.Text)
		case piece.Ruby != nil:
			flush()
			segments = append(segments, newSegment(piece.Ruby.Base, piece.Ruby.Annotation, bold, sp))
		case piece.BoldOn:
			flush()
			bold = true
		case piece.BoldOff:
			flush()
			bold = false
		case piece.Newline:
			flush()
			segments = append(segments, newSegment("\n", "", bold, sp))
		}
	}
	flush()
	return segments, nil
}

func newSegment(base, annotation string, bold bool, sp Splitter) Segment {
	var units []string
	if base == "\n" {
		units = []string{"\n"}
	} else {
		units = sp.Split(base)
	}
	if units == nil {
		units = []string{}
	}
	return Segment{
		Base:       Run{Text: base, Bold: bold, Units: units},
		Annotation: Annotation{Text: annotation},
	}
}

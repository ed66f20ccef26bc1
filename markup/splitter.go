package markup

import (
	"strings"

	"github.com/go-text/typesetting/segmenter"
	"golang.org/x/text/unicode/norm"
)

// Splitter 把一段正文切分为不可再分的显示单元。
type Splitter interface {
	Split(text string) []string
}

// GraphemeSplitter splits text on extended grapheme cluster boundaries (UAX #29).
// Protected characters are always emitted as units of their own so that the
// layout can recognise them by exact match.
type GraphemeSplitter struct {
	protected map[rune]bool
	// Normalize 为 true 时先做 NFC 归一化，保证组合字符与预组字符切分一致。
	Normalize bool
}

// NewGraphemeSplitter 创建切分器，protected 中的每个字符都会被单独切出。
func NewGraphemeSplitter(protected string) *GraphemeSplitter {
	g := &GraphemeSplitter{protected: map[rune]bool{}, Normalize: true}
	for _, r := range protected {
		g.protected[r] = true
	}
	return g
}

// Split implements Splitter.
func (g *GraphemeSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if text == "\n" {
		return []string{"\n"}
	}
	if g.Normalize {
		text = norm.NFC.String(text)
	}
	var seg segmenter.Segmenter
	seg.Init([]rune(text))
	iter := seg.GraphemeIterator()
	var units []string
	for iter.Next() {
		units = append(units, g.isolate(iter.Grapheme().Text)...)
	}
	return units
}

func (g *GraphemeSplitter) isolate(cluster []rune) []string {
	if len(cluster) == 1 || len(g.protected) == 0 {
		return []string{string(cluster)}
	}
	var out []string
	var rest strings.Builder
	for _, r := range cluster {
		if !g.protected[r] {
			rest.WriteRune(r)
			continue
		}
		if rest.Len() > 0 {
			out = append(out, rest.String())
			rest.Reset()
		}
		out = append(out, string(r))
	}
	if rest.Len() > 0 {
		out = append(out, rest.String())
	}
	return out
}

package markup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGraphemeSplitter(t *testing.T) {
	cases := []struct {
		name      string
		protected string
		in        string
		want      []string
	}{
		{name: "汉字", in: "漢字", want: []string{"漢", "字"}},
		{name: "组合字符", in: "e\u0301a", want: []string{"\u00e9", "a"}},
		{name: "国旗", in: "🇯🇵!", want: []string{"🇯🇵", "!"}},
		{name: "肤色修饰", in: "👍🏽x", want: []string{"👍🏽", "x"}},
		{name: "换行", in: "\n", want: []string{"\n"}},
		{name: "空", in: "", want: nil},
		{name: "保护字符单独切出", protected: "①", in: "\u2460\u20dd", want: []string{"\u2460", "\u20dd"}},
		{name: "未保护时保持字素簇", in: "\u2460\u20dd", want: []string{"\u2460\u20dd"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewGraphemeSplitter(tc.protected).Split(tc.in)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Split(%q) (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func TestGraphemeSplitterWithoutNormalize(t *testing.T) {
	g := NewGraphemeSplitter("")
	g.Normalize = false
	got := g.Split("e\u0301")
	if len(got) != 1 || got[0] != "e\u0301" {
		t.Fatalf("未归一化时组合字符应保持原样: %q", got)
	}
}

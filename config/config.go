// Package config 读取文本框配置文件（JSON 或 YAML）。
//
// 长度字段接受数字或带单位的字符串（"9pt"、"3mm"、"1cm"、"0.5in"），
// 无单位的数字按 pt 处理；读入后统一换算为 mm，与 canvas 渲染器一致。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/compresstext/layout"
)

// File 是配置文件的结构。指针字段为空表示沿用默认值。
type File struct {
	Text              string         `json:"text" yaml:"text"`
	FontFamily        *string        `json:"fontFamily" yaml:"fontFamily"`
	FontSize          *layout.Length `json:"fontSize" yaml:"fontSize"`
	FontWeight        *string        `json:"fontWeight" yaml:"fontWeight"`
	LineHeight        *float64       `json:"lineHeight" yaml:"lineHeight"`
	LetterSpacing     *layout.Length `json:"letterSpacing" yaml:"letterSpacing"`
	TextAlign         *string        `json:"textAlign" yaml:"textAlign"`
	Color             *string        `json:"color" yaml:"color"`
	StrokeWidth       *layout.Length `json:"strokeWidth" yaml:"strokeWidth"`
	Gradient          *bool          `json:"gradient" yaml:"gradient"`
	GradientColor1    *string        `json:"gradientColor1" yaml:"gradientColor1"`
	GradientColor2    *string        `json:"gradientColor2" yaml:"gradientColor2"`
	Width             *layout.Length `json:"width" yaml:"width"`
	Height            *layout.Length `json:"height" yaml:"height"`
	FirstLineCompress *bool          `json:"firstLineCompress" yaml:"firstLineCompress"`
	AutoSmallSize     *bool          `json:"autoSmallSize" yaml:"autoSmallSize"`
	SmallFontSize     *layout.Length `json:"smallFontSize" yaml:"smallFontSize"`
	FontScale         *float64       `json:"fontScale" yaml:"fontScale"`
	RtFontFamily      *string        `json:"rtFontFamily" yaml:"rtFontFamily"`
	RtFontSize        *layout.Length `json:"rtFontSize" yaml:"rtFontSize"`
	RtFontWeight      *string        `json:"rtFontWeight" yaml:"rtFontWeight"`
	RtLineHeight      *float64       `json:"rtLineHeight" yaml:"rtLineHeight"`
	RtLetterSpacing   *layout.Length `json:"rtLetterSpacing" yaml:"rtLetterSpacing"`
	RtTop             *layout.Length `json:"rtTop" yaml:"rtTop"`
	RtColor           *string        `json:"rtColor" yaml:"rtColor"`
	RtStrokeWidth     *layout.Length `json:"rtStrokeWidth" yaml:"rtStrokeWidth"`
	NoCompress        *string        `json:"noCompress" yaml:"noCompress"`

	// Fonts 把字体族名映射到字体文件，相对路径以配置文件所在目录为准。
	Fonts map[string]FontFile `json:"fonts" yaml:"fonts"`
	// Data 绑定到文本中的 ${path} 占位符。
	Data map[string]any `json:"data" yaml:"data"`
}

// FontFile 是一个字体族的字体文件路径，"embed:go-regular" 指向内置字体。
type FontFile struct {
	Regular string `json:"regular" yaml:"regular"`
	Bold    string `json:"bold" yaml:"bold"`
}

// Load 按扩展名读取 .json、.yaml 或 .yml 配置文件。
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取配置文件 %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	f, err := Parse(data, ext)
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return f, nil
}

// Parse 解析配置内容，format 为 "json"、"yaml" 或带点的扩展名。
func Parse(data []byte, format string) (*File, error) {
	var f File
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("不支持的配置格式 %q", format)
	}
	return &f, nil
}

// Defaults 返回换算为 mm 的默认配置：原始默认值按 pt 解释。
func Defaults() layout.Config {
	c := layout.DefaultConfig()
	c.FontSize *= layout.PtToMm
	c.LetterSpacing *= layout.PtToMm
	c.StrokeWidth *= layout.PtToMm
	c.RtFontSize *= layout.PtToMm
	c.RtLetterSpacing *= layout.PtToMm
	c.RtTop *= layout.PtToMm
	c.RtStrokeWidth *= layout.PtToMm
	return c
}

// Patch 把文件中出现的字段转换为 layout.Patch。
func (f *File) Patch() layout.Patch {
	p := layout.Patch{
		FontFamily:        f.FontFamily,
		FontWeight:        f.FontWeight,
		LineHeight:        f.LineHeight,
		Color:             f.Color,
		Gradient:          f.Gradient,
		GradientColor1:    f.GradientColor1,
		GradientColor2:    f.GradientColor2,
		FirstLineCompress: f.FirstLineCompress,
		AutoSmallSize:     f.AutoSmallSize,
		FontScale:         f.FontScale,
		RtFontFamily:      f.RtFontFamily,
		RtFontWeight:      f.RtFontWeight,
		RtLineHeight:      f.RtLineHeight,
		RtColor:           f.RtColor,
		NoCompress:        f.NoCompress,
		FontSize:          mm(f.FontSize),
		LetterSpacing:     mm(f.LetterSpacing),
		StrokeWidth:       mm(f.StrokeWidth),
		Width:             mm(f.Width),
		Height:            mm(f.Height),
		SmallFontSize:     mm(f.SmallFontSize),
		RtFontSize:        mm(f.RtFontSize),
		RtLetterSpacing:   mm(f.RtLetterSpacing),
		RtTop:             mm(f.RtTop),
		RtStrokeWidth:     mm(f.RtStrokeWidth),
	}
	if f.Text != "" {
		p.Text = &f.Text
	}
	if f.TextAlign != nil {
		align := layout.ParseAlign(*f.TextAlign)
		p.TextAlign = &align
	}
	return p
}

// Config 返回默认配置叠加文件内容后的结果。
func (f *File) Config() layout.Config {
	cfg, _ := Defaults().Apply(f.Patch())
	return cfg
}

func mm(l *layout.Length) *float64 {
	if l == nil {
		return nil
	}
	v := l.ToMM()
	if l.Unit == layout.UnitNone {
		v = l.Value * layout.PtToMm
	}
	return &v
}

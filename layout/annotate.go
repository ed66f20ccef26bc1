package layout

import "math"

const (
	rubyStretchBelow = 0.95 // 注音窄于正文的该比例时拉开字距
	rubyMinScale     = 0.6  // 注音最小横向压缩比例
	rubyMaxSpacing   = 3    // 字距上限，按注音字号的倍数
)

// annotate 根据正文跨度放置每个注音块。
// 非修正轮中注音过宽时会给正文加补白并请求第二轮；修正轮只压缩不再加宽。
func (e *engine) annotate(corrective bool) {
	s := &e.state
	for _, seg := range e.segments {
		a := seg.annotation
		if a == nil {
			continue
		}
		first, last := seg.units[0], seg.units[len(seg.units)-1]
		start := first.x - first.paddingLeft
		span := last.right() - start

		a.y = first.y + e.cfg.RtTop*e.cfg.FontScale
		a.width, a.scaleX, a.letterSpacing = a.naturalWidth, 1, e.cfg.RtLetterSpacing
		w := a.naturalWidth

		switch {
		case span > 0 && w/span < rubyStretchBelow && len(seg.units) > 1:
			if n := len(a.units); n > 1 {
				gaps := float64(n - 1)
				spacing := math.Min((span*rubyStretchBelow-w)/gaps, rubyMaxSpacing*e.cfg.RtFontSize*e.cfg.FontScale)
				a.letterSpacing += spacing
				a.width = w + spacing*gaps
			}
			a.x = start + (span-a.width)/2
		case w > span:
			if ratio := span / w; ratio >= rubyMinScale {
				a.scaleX = ratio
				a.width = span
				a.x = start
				break
			}
			a.scaleX = rubyMinScale
			a.width = rubyMinScale * w
			if !seg.widened && !corrective {
				widen := a.width - span
				first.paddingLeft += widen / 2
				last.paddingRight += widen / 2
				seg.widened = true
				s.NeedsSecondPass = true
			}
			a.x = start + (span-a.width)/2
		default:
			a.x = start + (span-a.width)/2
		}
	}
}

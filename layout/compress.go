package layout

import "math"

const (
	bisectPrecision = 0.01
	maxBisectSteps  = 50
	smallSizeBelow  = 0.7 // 整体比例低于该值时考虑降级到小字号
	minFirstLine    = 0.001
)

// compress 计算首段与整体压缩比例，结束时单元已按最终比例排布。
func (e *engine) compress() {
	if e.cfg.FirstLineCompress && e.cfg.Width > 0 {
		e.fitFirstLine()
	}
	e.flow()
	if e.cfg.Height > 0 {
		e.fitHeight(true)
	}
}

// fitFirstLine 让第一段（首个换行之前）在一行内放下，比例截断到三位小数。
func (e *engine) fitFirstLine() {
	available := e.cfg.Width
	total := 0.0
	for _, seg := range e.segments {
		if seg.block != 0 {
			break
		}
		for _, u := range seg.units {
			available -= u.paddingLeft + u.paddingRight
			if u.protected || u.newline {
				available -= u.naturalWidth
				continue
			}
			total += u.naturalWidth
		}
	}
	scale := 1.0
	if total > 0 {
		scale = math.Min(math.Floor(available/total*1000)/1000, 1)
	}
	if scale < minFirstLine {
		scale = minFirstLine
	}
	e.state.FirstLineScale = scale
}

func (e *engine) bottom() float64 {
	last := e.lastUnit()
	if last == nil {
		return 0
	}
	return e.state.CursorY + last.naturalHeight
}

func (e *engine) overflows() bool {
	return e.lastUnit() != nil && e.bottom() > e.cfg.Height
}

// scalable reports whether any unit follows UniformScale.
func (e *engine) scalable() bool {
	last := e.blocks - 1
	for _, seg := range e.segments {
		if seg.block != last || (e.cfg.FirstLineCompress && seg.block == 0) {
			continue
		}
		for _, u := range seg.units {
			if !u.protected && !u.newline {
				return true
			}
		}
	}
	return false
}

// fitHeight 二分查找使末行底边不超过高度的最大 UniformScale。
// 区间从 [0, 当前比例] 开始，宽度不超过 0.01 后停在满足高度的下界。
func (e *engine) fitHeight(allowDowngrade bool) {
	if !e.overflows() {
		return
	}
	s := &e.state
	if !e.scalable() {
		e.log.Warn("layout: 没有可压缩的单元，无法满足高度", "height", e.cfg.Height, "bottom", e.bottom())
		return
	}
	start, end := 0.0, s.UniformScale
	for i := 0; i < maxBisectSteps; i++ {
		if start > 0 && end-start <= bisectPrecision {
			break
		}
		scale := (start + end) / 2
		s.UniformScale = scale
		e.flow()
		fits := !e.overflows()
		if fits {
			start = scale
		} else {
			end = scale
		}
		e.log.Debug("layout: 二分查找", "pass", e.passes, "scale", scale, "bottom", e.bottom(), "fits", fits)
		if e.trace != nil {
			e.trace.Bisection = append(e.trace.Bisection, BisectStep{Pass: e.passes, Scale: scale, Bottom: e.bottom(), Fits: fits})
		}
	}
	switch {
	case start == 0:
		// 高度连一行都放不下，停在最后尝试的比例
		e.log.Warn("layout: 高度无法满足", "height", e.cfg.Height, "scale", s.UniformScale)
	case s.UniformScale != start:
		s.UniformScale = start
		e.flow()
	}

	if allowDowngrade && e.cfg.AutoSmallSize && s.UniformScale < smallSizeBelow &&
		e.cfg.FontScale <= 1 && !s.SmallFontTier {
		e.downgrade()
		e.fitHeight(false)
	}
}

// downgrade 切换到小字号档位，按字号比例缩放所有自然尺寸并从比例 1 重新排布。
func (e *engine) downgrade() {
	s := &e.state
	ratio := e.cfg.SmallFontSize / e.cfg.FontSize
	s.SmallFontTier = true
	s.UniformScale = 1
	for _, u := range e.units {
		u.naturalWidth *= ratio
		u.naturalHeight *= ratio
	}
	e.log.Debug("layout: 降级到小字号", "fontSize", e.cfg.SmallFontSize, "ratio", ratio)
	if e.trace != nil {
		e.trace.TierDowngrade = true
	}
	if e.cfg.FirstLineCompress && e.cfg.Width > 0 {
		e.fitFirstLine()
	}
	e.flow()
}

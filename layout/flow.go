package layout

// overflowEpsilon absorbs float error when a line is filled exactly.
const overflowEpsilon = 1e-9

// flow 从头排布所有显示单元，按当前缩放比例计算宽度并贪心换行。
func (e *engine) flow() {
	s := &e.state
	s.CursorX, s.CursorY, s.CurrentLine = 0, 0, 0
	last := e.blocks - 1
	for _, seg := range e.segments {
		for _, u := range seg.units {
			e.applyScale(u, seg.block, last)
		}
		if seg.annotation != nil {
			// 带注音的正文作为整体，不在内部换行
			run := 0.0
			for _, u := range seg.units {
				run += u.effectiveWidth()
			}
			e.breakBefore(run)
			for _, u := range seg.units {
				e.place(u)
			}
			continue
		}
		for _, u := range seg.units {
			e.breakBefore(u.effectiveWidth())
			e.place(u)
			if u.newline {
				e.newLine()
			}
		}
	}
}

func (e *engine) applyScale(u *displayUnit, block, last int) {
	switch {
	case u.protected || u.newline:
		u.scaleX = 1
	case e.cfg.FirstLineCompress && block == 0:
		u.scaleX = e.state.FirstLineScale
	case block == last:
		u.scaleX = e.state.UniformScale
	default:
		u.scaleX = 1
	}
	u.width = u.naturalWidth * u.scaleX
}

// breakBefore 在放不下时先换行；本身就超宽的内容允许溢出。
func (e *engine) breakBefore(w float64) {
	target := e.cfg.Width
	if target <= 0 || w > target {
		return
	}
	if e.state.CursorX+w > target+overflowEpsilon {
		e.newLine()
	}
}

func (e *engine) place(u *displayUnit) {
	s := &e.state
	u.x = s.CursorX + u.paddingLeft
	u.y = s.CursorY
	u.line = s.CurrentLine
	s.CursorX += u.effectiveWidth()
}

func (e *engine) newLine() {
	s := &e.state
	s.CursorX = 0
	s.CursorY += e.lineAdvance()
	s.CurrentLine++
}

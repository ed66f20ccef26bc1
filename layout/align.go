package layout

// align 按对齐方式把每行剩余宽度分配给该行单元。
// 末行只在发生压缩、居中/右对齐或整体只有一行时参与对齐。
func (e *engine) align() {
	s := &e.state
	if e.cfg.Width <= 0 || len(e.units) == 0 {
		return
	}
	count := s.CurrentLine
	if s.UniformScale < 1 || s.FirstLineScale < 1 || s.CurrentLine == 0 ||
		e.cfg.TextAlign == AlignCenter || e.cfg.TextAlign == AlignRight {
		count++
	}
	lines := make([][]*displayUnit, s.CurrentLine+1)
	for _, u := range e.units {
		lines[u.line] = append(lines[u.line], u)
	}
	for line := 0; line < count && line < len(lines); line++ {
		units := lines[line]
		if len(units) == 0 {
			continue
		}
		last := units[len(units)-1]
		remainder := e.cfg.Width - last.right()
		if remainder <= 0 {
			continue
		}
		switch e.cfg.TextAlign {
		case AlignCenter:
			shift(units, remainder/2)
		case AlignRight:
			shift(units, remainder)
		case AlignJustify:
			if len(units) > 1 && !last.newline {
				gap := remainder / float64(len(units)-1)
				for i, u := range units {
					u.x += float64(i) * gap
				}
			}
		}
	}
}

func shift(units []*displayUnit, dx float64) {
	for _, u := range units {
		u.x += dx
	}
}

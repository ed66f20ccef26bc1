package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMeasurer is returned when BuildOptions carries no Measurer.
	ErrNoMeasurer = errors.New("layout: 缺少测量后端 Measurer")
)

// InputError 表示测量后端对某段文本测量失败，本次排版整体中止。
type InputError struct {
	Text string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("layout: 测量 %q 失败: %v", e.Text, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

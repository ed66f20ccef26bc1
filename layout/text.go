package layout

import (
	"context"
	"sync"
)

// FontLoader 等待某个字体族可用。返回 nil 表示字体已就绪，错误会被忽略。
type FontLoader interface {
	Load(ctx context.Context, family string) error
}

// TextOptions 配置 Text 的协作方。
type TextOptions struct {
	Build    BuildOptions
	Loader   FontLoader    // 为空时不等待字体
	OnLayout func(*Result) // 每次提交新结果后调用
}

// Text 是一个长期存在的文本框：持有配置与最新一次排版结果。
// 字体就绪或配置变化时整体重新排版；较旧的排版结果不会覆盖较新的。
type Text struct {
	ctx  context.Context
	opts TextOptions

	mu     sync.Mutex
	cfg    Config
	gen    uint64
	result *Result

	loading int           // 进行中的字体加载数
	idle    chan struct{} // loading 归零时关闭
}

// NewText 完成首次排版，并为配置中的每个字体族启动加载。
func NewText(ctx context.Context, cfg Config, opts TextOptions) (*Text, error) {
	t := &Text{ctx: ctx, opts: opts, cfg: cfg}
	if err := t.Relayout(); err != nil {
		return nil, err
	}
	t.loadFonts()
	return t, nil
}

// Config returns the current configuration.
func (t *Text) Config() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// Result returns the latest committed layout.
func (t *Text) Result() *Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Set 写入局部更新。只有值真正变化的字段才会触发重新排版，
// 字体族变化时额外重新加载字体。
func (t *Text) Set(p Patch) error {
	t.mu.Lock()
	cfg, ch := t.cfg.Apply(p)
	t.cfg = cfg
	t.mu.Unlock()

	if ch.Has(ChangeFont) {
		t.loadFonts()
	}
	if ch.Has(ChangeLayout) {
		return t.Relayout()
	}
	return nil
}

// Relayout 从头执行一次排版。失败时保留上一次的结果。
func (t *Text) Relayout() error {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	cfg := t.cfg
	t.mu.Unlock()

	res, err := Build(cfg, t.opts.Build)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		Logger().Debug("layout: 丢弃过期的排版结果", "gen", gen)
		return nil
	}
	t.result = res
	t.mu.Unlock()

	if t.opts.OnLayout != nil {
		t.opts.OnLayout(res)
	}
	return nil
}

// Wait 阻塞到所有已启动的字体加载及其触发的重新排版结束。
// 可与 Set 并发调用，等待期间新启动的加载也会被等待。
func (t *Text) Wait() {
	for {
		t.mu.Lock()
		if t.loading == 0 {
			t.mu.Unlock()
			return
		}
		idle := t.idle
		t.mu.Unlock()
		<-idle
	}
}

func (t *Text) beginLoad() {
	t.mu.Lock()
	if t.loading == 0 {
		t.idle = make(chan struct{})
	}
	t.loading++
	t.mu.Unlock()
}

func (t *Text) endLoad() {
	t.mu.Lock()
	t.loading--
	if t.loading == 0 {
		close(t.idle)
	}
	t.mu.Unlock()
}

func (t *Text) loadFonts() {
	if t.opts.Loader == nil {
		return
	}
	cfg := t.Config().normalized()
	for _, family := range FontFamilies(cfg.FontFamily, cfg.RtFontFamily) {
		t.beginLoad()
		go func() {
			defer t.endLoad()
			if err := t.opts.Loader.Load(t.ctx, family); err != nil {
				Logger().Debug("layout: 字体加载失败，忽略", "family", family, "err", err)
				return
			}
			if err := t.Relayout(); err != nil {
				Logger().Warn("layout: 字体就绪后重新排版失败", "family", family, "err", err)
			}
		}()
	}
}

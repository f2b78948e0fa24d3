package visual

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Rasterizer turns a chart page into PNG bytes by capturing the element with id target.
type Rasterizer interface {
	Rasterize(ctx context.Context, page []byte, target string, width, height int) ([]byte, error)
}

// ChromeConfig 控制 headless Chrome 的启动参数。
type ChromeConfig struct {
	ExecPath  string
	Headless  bool
	NoSandbox bool
	Timeout   time.Duration
	// Settle 是图表元素出现后额外等待的时间，给字体和 canvas 绘制留余量。
	Settle time.Duration
}

func DefaultChromeConfig() ChromeConfig {
	return ChromeConfig{
		Headless: true,
		Timeout:  20 * time.Second,
		Settle:   300 * time.Millisecond,
	}
}

// ChromeRasterizer screenshots chart pages with a fresh headless browser per call.
type ChromeRasterizer struct {
	cfg   ChromeConfig
	alloc []chromedp.ExecAllocatorOption

	probeOnce sync.Once
	probeErr  error
}

func NewChromeRasterizer(cfg ChromeConfig) *ChromeRasterizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChromeConfig().Timeout
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	alloc := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	alloc = append(alloc, chromedp.DisableGPU, chromedp.Flag("hide-scrollbars", true))
	if !cfg.Headless {
		alloc = append(alloc, chromedp.Flag("headless", false))
	}
	if cfg.NoSandbox {
		alloc = append(alloc, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		alloc = append(alloc, chromedp.ExecPath(cfg.ExecPath))
	}
	return &ChromeRasterizer{cfg: cfg, alloc: alloc}
}

func (r *ChromeRasterizer) browser(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.alloc...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	return browserCtx, func() {
		cancelBrowser()
		cancelAlloc()
	}
}

// EnsureHeadlessAvailable starts the browser once and remembers the outcome.
func (r *ChromeRasterizer) EnsureHeadlessAvailable(ctx context.Context) error {
	r.probeOnce.Do(func() {
		browserCtx, cancel := r.browser(ctx)
		defer cancel()
		if err := chromedp.Run(browserCtx); err != nil {
			r.probeErr = fmt.Errorf("visual: headless chrome unavailable: %w", err)
		}
	})
	return r.probeErr
}

func setDocument(html []byte) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
	})
}

func (r *ChromeRasterizer) Rasterize(ctx context.Context, html []byte, target string, width, height int) ([]byte, error) {
	if len(html) == 0 {
		return nil, errors.New("visual: empty page")
	}
	if err := r.EnsureHeadlessAvailable(ctx); err != nil {
		return nil, err
	}
	browserCtx, cancel := r.browser(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, r.cfg.Timeout)
	defer cancelTimeout()

	sel := "#" + target
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width)+200, int64(height)+200),
		// 页面内联了 echarts，体积接近 data URL 的长度上限，所以直接写入空白页
		chromedp.Navigate("about:blank"),
		setDocument(html),
		chromedp.WaitReady(sel+" canvas", chromedp.ByQuery),
	}
	if r.cfg.Settle > 0 {
		tasks = append(tasks, chromedp.Sleep(r.cfg.Settle))
	}
	tasks = append(tasks, chromedp.Screenshot(sel, &screenshot, chromedp.ByQuery))
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, fmt.Errorf("visual: rasterize %s: %w", target, err)
	}
	if len(screenshot) == 0 {
		return nil, fmt.Errorf("visual: rasterize %s: empty screenshot", target)
	}
	return screenshot, nil
}

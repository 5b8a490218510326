package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Viewport of the rasterized page: A4 at 96 dpi, captured at 2x.
const (
	ViewportWidth  = 794
	ViewportHeight = 1123
	DeviceScale    = 2.0
)

// RodRasterizer screenshots HTML documents in headless Chrome. It connects to
// an existing DevTools endpoint when controlURL is set and otherwise launches
// bin (or the launcher default). The browser is started on first use.
type RodRasterizer struct {
	controlURL string
	bin        string

	mu      sync.Mutex
	browser *rod.Browser
}

func NewRodRasterizer(controlURL, bin string) *RodRasterizer {
	return &RodRasterizer{controlURL: controlURL, bin: bin}
}

func (r *RodRasterizer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	controlURL := r.controlURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		if r.bin != "" {
			l = l.Bin(r.bin)
		}
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	r.browser = browser
	return browser, nil
}

func (r *RodRasterizer) Rasterize(ctx context.Context, html []byte) (Image, error) {
	browser, err := r.connect()
	if err != nil {
		return Image{}, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return Image{}, fmt.Errorf("create page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             ViewportWidth,
		Height:            ViewportHeight,
		DeviceScaleFactor: DeviceScale,
		Mobile:            false,
	}).Call(page); err != nil {
		return Image{}, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.SetDocumentContent(string(html)); err != nil {
		return Image{}, fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return Image{}, fmt.Errorf("wait load: %w", err)
	}

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
	if err != nil {
		return Image{}, fmt.Errorf("screenshot: %w", err)
	}
	return DecodeImage(data)
}

// Close shuts the browser down if it was started.
func (r *RodRasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}

// DecodeImage reads the pixel size of a PNG.
func DecodeImage(data []byte) (Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decode screenshot: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return Image{}, errors.New("decode screenshot: empty image")
	}
	return Image{PNG: data, Width: cfg.Width, Height: cfg.Height}, nil
}

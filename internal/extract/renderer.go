package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	renderTimeout     = 30 * time.Second
	renderStableDur   = 500 * time.Millisecond
	maxConcurrentTabs = 3
)

var blockedResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeStylesheet,
	proto.NetworkResourceTypeMedia,
}

// RodRenderer renders script-heavy pages in headless Chromium. Call Close
// when done.
type RodRenderer struct {
	browser *rod.Browser
	tabSem  chan struct{}
}

func NewRodRenderer() (*RodRenderer, error) {
	u, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to headless browser: %w", err)
	}

	return &RodRenderer{
		browser: browser,
		tabSem:  make(chan struct{}, maxConcurrentTabs),
	}, nil
}

func (r *RodRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	select {
	case r.tabSem <- struct{}{}:
		defer func() { <-r.tabSem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	page, err := stealth.Page(r.browser)
	if err != nil {
		return "", fmt.Errorf("create tab: %w", err)
	}
	defer page.Close()

	renderCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()
	page = page.Context(renderCtx)

	router := page.HijackRequests()
	for _, rt := range blockedResourceTypes {
		_ = router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
	}
	go router.Run()
	defer router.MustStop()

	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", pageURL, err)
	}
	_ = page.WaitStable(renderStableDur)

	out, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read rendered %s: %w", pageURL, err)
	}
	return out, nil
}

func (r *RodRenderer) Close() {
	_ = r.browser.Close()
}

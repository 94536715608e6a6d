package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// NavigateTimeout bounds the initial navigation of a tab.
const NavigateTimeout = 30 * time.Second

// Tab is a page opened for inspection.
type Tab struct {
	Page    *rod.Page
	PageURL string
	manager *Manager
}

// OpenTab creates a tab, applies stealth and resource blocking from the
// manager's config, and navigates to pageURL. An empty pageURL adopts the
// first existing page instead, which is how an operator's own remote Chrome
// window is attached to.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	log := mgr.cfg.Logger

	if pageURL == "" {
		pages, err := b.Pages()
		if err != nil {
			return nil, fmt.Errorf("browser: list pages: %w", err)
		}
		if len(pages) == 0 {
			return nil, fmt.Errorf("browser: no page to attach to")
		}
		page := pages.First()
		info, err := page.Info()
		if err != nil {
			return nil, fmt.Errorf("browser: page info: %w", err)
		}
		log.Info("browser: attached to existing page", "url", info.URL)
		return &Tab{Page: page, PageURL: info.URL, manager: mgr}, nil
	}

	var (
		page *rod.Page
		err  error
	)
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		blockResources(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL, manager: mgr}, nil
}

// Close closes the tab unless it was adopted from the operator.
func (t *Tab) Close() error {
	if t.Page == nil || t.manager.cfg.RemoteURL != "" {
		return nil
	}
	return t.Page.Close()
}

package hpp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Bootstrap describes the widget bundle every payment form instance shares.
type Bootstrap struct {
	ScriptURL string
}

// ScriptLoader performs the widget bootstrap at most once per process and
// memoizes the result, error included. Every bridge awaits the same load; a
// failed load is sticky for the life of the process, matching the
// no-dynamic-reload behavior of the page-scoped script tag it replaces.
type ScriptLoader struct {
	fetch func(ctx context.Context) (Bootstrap, error)

	once   sync.Once
	done   atomic.Bool
	result Bootstrap
	err    error
}

// NewScriptLoader creates a loader that verifies the widget bundle at
// scriptURL is reachable.
func NewScriptLoader(scriptURL string) *ScriptLoader {
	client := &http.Client{Timeout: 15 * time.Second}
	return &ScriptLoader{
		fetch: func(ctx context.Context) (Bootstrap, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, scriptURL, nil)
			if err != nil {
				return Bootstrap{}, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return Bootstrap{}, fmt.Errorf("load widget script: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return Bootstrap{}, fmt.Errorf("load widget script: status %d", resp.StatusCode)
			}
			return Bootstrap{ScriptURL: scriptURL}, nil
		},
	}
}

// NewScriptLoaderFunc creates a loader with a custom fetch, for tests.
func NewScriptLoaderFunc(fetch func(ctx context.Context) (Bootstrap, error)) *ScriptLoader {
	return &ScriptLoader{fetch: fetch}
}

// Load returns the memoized bootstrap, performing the fetch on first call.
func (l *ScriptLoader) Load(ctx context.Context) (Bootstrap, error) {
	l.once.Do(func() {
		l.result, l.err = l.fetch(ctx)
		l.done.Store(true)
	})
	return l.result, l.err
}

// Loaded reports whether a previous Load already succeeded, without
// triggering a fetch.
func (l *ScriptLoader) Loaded() bool {
	return l.done.Load() && l.err == nil
}

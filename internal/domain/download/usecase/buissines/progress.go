package buissines

import (
	"context"
	"sync"
	"time"

	"github.com/Conte777/MediaFlow/internal/domain/download/deps"
)

// Telegram rate-limits message edits; status updates arriving faster
// than this are dropped.
const statusEditInterval = 1200 * time.Millisecond

// statusPump serializes status texts onto a single notifier. Producers
// push from engine goroutines and never block: when the channel is full
// the update is dropped, a fresher one is always coming.
type statusPump struct {
	ch       chan string
	stopOnce sync.Once
	done     chan struct{}
}

func newStatusPump(ctx context.Context, notifier deps.StatusNotifier) *statusPump {
	p := &statusPump{
		ch:   make(chan string, 8),
		done: make(chan struct{}),
	}
	go p.run(ctx, notifier)
	return p
}

func (p *statusPump) push(text string) {
	select {
	case p.ch <- text:
	default:
	}
}

func (p *statusPump) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

func (p *statusPump) run(ctx context.Context, notifier deps.StatusNotifier) {
	var lastText string
	var lastEdit time.Time

	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case text := <-p.ch:
			if text == lastText || time.Since(lastEdit) < statusEditInterval {
				continue
			}
			if notifier != nil {
				notifier.Notify(ctx, text)
			}
			lastText = text
			lastEdit = time.Now()
		}
	}
}

// progressGate smooths a percent stream for the fallback uploader:
// duplicates and regressions are dropped and edits are throttled, but
// completion always goes through.
type progressGate struct {
	mu       sync.Mutex
	notify   func(pct int)
	lastPct  int
	lastSent time.Time
}

func newProgressGate(notify func(pct int)) *progressGate {
	return &progressGate{notify: notify, lastPct: -1}
}

func (g *progressGate) update(pct int) {
	if g.notify == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if pct <= g.lastPct {
		return
	}
	if pct < 100 && time.Since(g.lastSent) < statusEditInterval {
		return
	}

	g.lastPct = pct
	g.lastSent = time.Now()
	g.notify(pct)
}

func (g *progressGate) complete() {
	if g.notify == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastPct >= 100 {
		return
	}
	g.lastPct = 100
	g.notify(100)
}

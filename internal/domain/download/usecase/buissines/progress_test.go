package buissines

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Conte777/MediaFlow/internal/domain/download/entities"
)

func TestProgressGateMonotonicAndDeduped(t *testing.T) {
	var got []int
	g := newProgressGate(func(pct int) { got = append(got, pct) })

	g.update(10)
	g.update(10) // duplicate
	g.update(5)  // regression
	require.Equal(t, []int{10}, got)
}

func TestProgressGateThrottles(t *testing.T) {
	var got []int
	g := newProgressGate(func(pct int) { got = append(got, pct) })

	g.update(10)
	g.update(20) // within the edit interval, dropped
	require.Equal(t, []int{10}, got)
}

func TestProgressGateCompletionAlwaysDelivered(t *testing.T) {
	var got []int
	g := newProgressGate(func(pct int) { got = append(got, pct) })

	g.update(10)
	g.update(100) // completion skips the throttle
	g.complete()  // already at 100, no second call
	require.Equal(t, []int{10, 100}, got)
}

func TestProgressGateCompleteFromZero(t *testing.T) {
	var got []int
	g := newProgressGate(func(pct int) { got = append(got, pct) })

	g.complete()
	require.Equal(t, []int{100}, got)
}

func TestProgressGateNilCallback(t *testing.T) {
	g := newProgressGate(nil)
	g.update(50)
	g.complete()
}

func TestStatusPumpDropsFloodedUpdates(t *testing.T) {
	notifier := &mockNotifier{}
	pump := newStatusPump(context.Background(), notifier)
	defer pump.stop()

	for i := 0; i < 100; i++ {
		pump.push("⬇️ Загрузка: 1%")
	}

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.texts) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Duplicates and throttled edits never reach the notifier
	time.Sleep(50 * time.Millisecond)
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Equal(t, []string{"⬇️ Загрузка: 1%"}, notifier.texts)
}

func TestDownloadStatusText(t *testing.T) {
	require.Equal(t, "⬇️ Загрузка: 25%", downloadStatusText(entities.FetchProgress{
		Status: entities.ProgressDownloading, Downloaded: 25, Total: 100,
	}))
	require.Equal(t, "⬇️ Загрузка...", downloadStatusText(entities.FetchProgress{
		Status: entities.ProgressDownloading, Downloaded: 25,
	}))
	require.Equal(t, "⚙️ Обработка файла...", downloadStatusText(entities.FetchProgress{
		Status: entities.ProgressFinished,
	}))
}

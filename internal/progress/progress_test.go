package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSpeedThresholds(t *testing.T) {
	assert.Equal(t, "512 B/s", FormatSpeed(512))
	assert.Equal(t, "1.50 KB/s", FormatSpeed(1500))
	assert.Equal(t, "2.00 MB/s", FormatSpeed(2_000_000))
	assert.Equal(t, "1.25 GB/s", FormatSpeed(1_250_000_000))
}

func TestFormatPercentClamped(t *testing.T) {
	assert.Equal(t, "0.0%", FormatPercent(-5))
	assert.Equal(t, "100.0%", FormatPercent(150))
	assert.Equal(t, "42.3%", FormatPercent(42.3))
}

func TestFormatDurationBands(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "2m 5s", FormatDuration(2*time.Minute+5*time.Second))
	assert.Equal(t, "1h 30m", FormatDuration(90*time.Minute))
}

func TestAggregateWeightedMean(t *testing.T) {
	samples := []Sample{
		{DownloadedBytes: 50, TotalBytes: 100, BytesPerSecond: 10, ETASeconds: 5},
		{DownloadedBytes: 100, TotalBytes: 100, BytesPerSecond: 20, ETASeconds: 0},
	}
	pct, downloaded, total, speed, eta := Aggregate(samples)
	assert.InDelta(t, 75.0, pct, 0.001)
	assert.Equal(t, int64(150), downloaded)
	assert.Equal(t, int64(200), total)
	assert.Equal(t, 30.0, speed)
	assert.Equal(t, 5, eta)
}

func TestAggregateClampedToHundred(t *testing.T) {
	samples := []Sample{{DownloadedBytes: 100, TotalBytes: 100}}
	pct, _, _, _, _ := Aggregate(samples)
	assert.LessOrEqual(t, pct, 100.0)
}

func TestAggregateEmpty(t *testing.T) {
	pct, downloaded, total, speed, eta := Aggregate(nil)
	assert.Zero(t, pct)
	assert.Zero(t, downloaded)
	assert.Zero(t, total)
	assert.Zero(t, speed)
	assert.Zero(t, eta)
}

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var received []domain.ProgressEvent
	var wg sync.WaitGroup
	wg.Add(1)

	bus.Subscribe(func(ev domain.ProgressEvent) {
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
		wg.Done()
	})

	bus.Publish(domain.ProgressEvent{TaskID: "t1", Status: domain.StatusDownloading})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "t1", received[0].TaskID)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	count := 0
	var mu sync.Mutex

	h := bus.Subscribe(func(ev domain.ProgressEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	bus.Unsubscribe(h)
	bus.Publish(domain.ProgressEvent{TaskID: "t1", Status: domain.StatusQueued})

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, bus.ListenerCount())
}

func TestBusPublishDoesNotBlockOnFullQueue(t *testing.T) {
	bus := NewBus()
	block := make(chan struct{})
	started := make(chan struct{}, 1)

	bus.Subscribe(func(ev domain.ProgressEvent) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block // simulate a stuck listener
	})

	time.Sleep(10 * time.Millisecond) // let the subscriber goroutine start consuming

	done := make(chan struct{})
	go func() {
		for i := 0; i < listenerQueueSize+10; i++ {
			bus.Publish(domain.ProgressEvent{TaskID: "flood", Status: domain.StatusDownloading})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full listener queue")
	}
	close(block)
}

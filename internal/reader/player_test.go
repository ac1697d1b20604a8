package reader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

// fakeSpeaker blocks until cancelled unless finish is closed, and tracks
// how many utterances run at once.
type fakeSpeaker struct {
	mu      sync.Mutex
	running int
	peak    int
	spoken  []string
	finish  chan struct{}
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{finish: make(chan struct{})}
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	f.running++
	f.peak = max(f.peak, f.running)
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.finish:
		return nil
	}
}

func TestPlayer_AtMostOneSession(t *testing.T) {
	speaker := newFakeSpeaker()
	p := NewPlayer(speaker)
	ctx := context.Background()

	first := p.Acquire(ctx, v1.Article{ID: "a", Title: "A"})
	second := p.Acquire(ctx, v1.Article{ID: "b", Title: "B"})

	select {
	case <-first.Done():
	default:
		t.Fatal("first session still running after second acquire")
	}
	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.Same(t, second, p.Active())

	second.Release()
	second.Release()
	assert.ErrorIs(t, second.Err(), context.Canceled)
	require.Eventually(t, func() bool { return p.Active() == nil }, time.Second, time.Millisecond)

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	assert.Equal(t, 1, speaker.peak)
	assert.Equal(t, []string{"A", "B"}, speaker.spoken)
}

func TestPlayer_ConcurrentAcquire(t *testing.T) {
	speaker := newFakeSpeaker()
	p := NewPlayer(speaker)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Acquire(context.Background(), v1.Article{ID: "x", Title: "X"})
		}()
	}
	wg.Wait()
	p.Stop()
	require.Eventually(t, func() bool { return p.Active() == nil }, time.Second, time.Millisecond)

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	assert.Equal(t, 1, speaker.peak)
	assert.Zero(t, speaker.running)
}

func TestPlayer_NaturalEnd(t *testing.T) {
	speaker := newFakeSpeaker()
	p := NewPlayer(speaker)

	s := p.Acquire(context.Background(), v1.Article{ID: "a", Title: "A"})
	close(speaker.finish)
	<-s.Done()
	assert.NoError(t, s.Err())
	require.Eventually(t, func() bool { return p.Active() == nil }, time.Second, time.Millisecond)
	s.Release()
}

func TestSpeechText(t *testing.T) {
	a := v1.Article{Title: "Title.", Description: " ", Content: "Body text"}
	assert.Equal(t, "Title. Body text", SpeechText(a))
	assert.Equal(t, "", SpeechText(v1.Article{}))
}

func TestExecSpeaker_Cancel(t *testing.T) {
	s := &ExecSpeaker{Command: "sleep", Args: nil}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := s.Speak(ctx, "5")
	assert.ErrorIs(t, err, context.Canceled)
}

package reader

import (
	"context"
	"strings"
	"sync"

	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

// Speaker reads text aloud, returning when done or when ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Player hands out read-aloud sessions. At most one session is active;
// acquiring a new one stops the previous one first.
type Player struct {
	speaker Speaker

	mu     sync.Mutex
	active *Session
}

// NewPlayer creates a Player using speaker.
func NewPlayer(speaker Speaker) *Player {
	return &Player{speaker: speaker}
}

// Acquire stops any active session and starts reading a.
func (p *Player) Acquire(ctx context.Context, a v1.Article) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		p.active.Release()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ArticleID: a.ID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	p.active = s

	go func() {
		s.err = p.speaker.Speak(ctx, SpeechText(a))
		cancel()
		// done is closed before taking p.mu: Acquire holds the lock while
		// waiting on the previous session.
		close(s.done)

		p.mu.Lock()
		if p.active == s {
			p.active = nil
		}
		p.mu.Unlock()
	}()
	return s
}

// Active returns the running session, or nil.
func (p *Player) Active() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Stop releases the active session, if any. No session is active once it
// returns, unless another goroutine acquired one meanwhile.
func (p *Player) Stop() {
	p.mu.Lock()
	s := p.active
	p.mu.Unlock()
	if s == nil {
		return
	}
	s.Release()

	p.mu.Lock()
	if p.active == s {
		p.active = nil
	}
	p.mu.Unlock()
}

// Session is one read-aloud playback.
type Session struct {
	ArticleID string

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

// Release stops playback and waits for the speaker to return. It is safe
// to call more than once.
func (s *Session) Release() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed when playback ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err reports the speaker error once Done is closed. Cancellation by
// Release is reported as the context error.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// SpeechText is what gets read for a.
func SpeechText(a v1.Article) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Title, a.Description, a.Content} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, strings.TrimSuffix(p, "."))
		}
	}
	return strings.Join(parts, ". ")
}

package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

var ErrInvalidTransition = errors.New("invalid session transition")

type SessionState int

const (
	// The current card's front is showing, or a feed item is.
	Unflipped SessionState = iota
	// The current card's back is showing and the review timer is running.
	Flipped
	// Nothing left to review.
	Exhausted
)

func (s SessionState) String() string {
	switch s {
	case Unflipped:
		return "unflipped"
	case Flipped:
		return "flipped"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Recorder persists what happens during a session. *Service is one.
type Recorder interface {
	RecordImpression(ctx context.Context, userID, cardID string, res cardfeed.Resolution, timeSpent time.Duration, at time.Time) (cardfeed.CardImpression, error)
	MarkRead(ctx context.Context, userID string, itemIDs ...string) error
}

// Session walks a user through a review queue. It lives only as long as the
// review does; starting over means building a new queue.
//
// Writes are fired off in the background so the session advances immediately.
// A failed write is logged and lost.
type Session struct {
	userID   string
	recorder Recorder

	mu        sync.Mutex
	queue     []QueueItem
	pos       int
	state     SessionState
	flippedAt time.Time

	pending sync.WaitGroup
}

func NewSession(userID string, queue []QueueItem, recorder Recorder) *Session {
	s := &Session{
		userID:   userID,
		recorder: recorder,
		queue:    queue,
	}
	if len(queue) == 0 {
		s.state = Exhausted
	}
	return s
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current is the item under review. False once the session is exhausted.
func (s *Session) Current() (QueueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Exhausted {
		return QueueItem{}, false
	}
	return s.queue[s.pos], true
}

// Remaining counts the items not yet reviewed, the current one included.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) - s.pos
}

// Flip shows the back of the current card and starts timing the review.
func (s *Session) Flip(at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Unflipped || s.queue[s.pos].Kind != KindCard {
		return fmt.Errorf("%w: can't flip in state %s", ErrInvalidTransition, s.state)
	}
	s.state = Flipped
	s.flippedAt = at

	return nil
}

// Resolve records how the flipped card went and moves on to the next item.
func (s *Session) Resolve(ctx context.Context, res cardfeed.Resolution, at time.Time) error {
	if !res.IsValid() {
		return fmt.Errorf("%w: unknown resolution %q", cardfeed.ErrValidation, res)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Flipped {
		return fmt.Errorf("%w: can't resolve in state %s", ErrInvalidTransition, s.state)
	}
	cardID := s.queue[s.pos].Card.ID
	spent := max(at.Sub(s.flippedAt), 0)

	s.background(ctx, "card_id", cardID, func(ctx context.Context) error {
		_, err := s.recorder.RecordImpression(ctx, s.userID, cardID, res, spent, at)
		return err
	})
	s.advance()

	return nil
}

// Finish marks the current feed item read and moves on to the next item.
func (s *Session) Finish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Unflipped || s.queue[s.pos].Kind != KindItem {
		return fmt.Errorf("%w: can't finish in state %s", ErrInvalidTransition, s.state)
	}
	itemID := s.queue[s.pos].Item.ID

	s.background(ctx, "item_id", itemID, func(ctx context.Context) error {
		return s.recorder.MarkRead(ctx, s.userID, itemID)
	})
	s.advance()

	return nil
}

// Wait blocks until every write the session fired off is done.
func (s *Session) Wait() {
	s.pending.Wait()
}

func (s *Session) advance() {
	s.pos++
	s.flippedAt = time.Time{}
	if s.pos >= len(s.queue) {
		s.state = Exhausted
		return
	}
	s.state = Unflipped
}

func (s *Session) background(ctx context.Context, key, id string, write func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := write(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to record review", "user_id", s.userID, key, id, "error", err)
		}
	}()
}

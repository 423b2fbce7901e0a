package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rounds-service/internal/domain"
)

// Hub fans the latest leaderboard out to websocket subscribers. Score changes
// poke it via Notify; rebuilds are coalesced so a burst of answers triggers
// one refresh.
type Hub struct {
	board *LeaderboardService
	log   *zap.Logger

	mu     sync.Mutex
	subs   map[chan domain.Leaderboard]struct{}
	latest *domain.Leaderboard

	pokes chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func NewHub(board *LeaderboardService, log *zap.Logger) *Hub {
	h := &Hub{
		board: board,
		log:   log,
		subs:  make(map[chan domain.Leaderboard]struct{}),
		pokes: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

// Notify schedules a refresh. Non-blocking; a pending poke absorbs new ones.
func (h *Hub) Notify() {
	select {
	case h.pokes <- struct{}{}:
	default:
	}
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.pokes:
			h.refresh()
		case <-h.done:
			return
		}
	}
}

func (h *Hub) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	board, err := h.board.Build(ctx)
	if err != nil {
		h.log.Warn("leaderboard refresh", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.latest = &board
	for ch := range h.subs {
		select {
		case ch <- board:
		default:
			// slow subscriber keeps only the freshest board
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- board:
			default:
			}
		}
	}
	h.mu.Unlock()
}

// Subscribe registers a listener. The current board, if any, is delivered
// immediately; cancel must be called when the connection closes.
func (h *Hub) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.latest != nil {
		ch <- *h.latest
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the refresh loop.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
	h.wg.Wait()
}

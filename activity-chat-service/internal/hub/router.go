package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/weiawesome/trip-chat/pkg/log"
)

var ErrRouterClosed = errors.New("router closed")

type envelope struct {
	kind    string
	data    []byte
	exclude string
}

// Router fans events out to the members of a room. Each room has a FIFO
// queue drained by at most one goroutine, so members observe a room's
// events in emission order. Delivery never blocks on a session.
type Router struct {
	registry *Registry
	queues   map[string][]envelope // a key is present while its drainer runs
	closed   bool
	mu       sync.Mutex
	wg       sync.WaitGroup
}

func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		queues:   make(map[string][]envelope),
	}
}

// Emit queues payload for every current member of the room except the
// session with id exclude. Only encoding and shutdown errors are returned.
func (r *Router) Emit(activityID, kind string, payload interface{}, exclude string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.EmitRaw(activityID, kind, data, exclude)
}

// EmitRaw is Emit for an already encoded frame.
func (r *Router) EmitRaw(activityID, kind string, data []byte, exclude string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRouterClosed
	}

	q, running := r.queues[activityID]
	r.queues[activityID] = append(q, envelope{kind: kind, data: data, exclude: exclude})
	if !running {
		r.wg.Add(1)
		go r.drain(activityID)
	}
	return nil
}

func (r *Router) drain(activityID string) {
	defer r.wg.Done()

	for {
		r.mu.Lock()
		q := r.queues[activityID]
		if len(q) == 0 {
			delete(r.queues, activityID)
			r.mu.Unlock()
			return
		}
		env := q[0]
		r.queues[activityID] = q[1:]
		r.mu.Unlock()

		r.dispatch(activityID, env)
	}
}

// dispatch delivers to the room as it is at dispatch time.
func (r *Router) dispatch(activityID string, env envelope) {
	for _, s := range r.registry.Members(activityID) {
		if s.ID() == env.exclude {
			continue
		}
		if err := s.Deliver(env.data); err != nil {
			l := log.L()
			l.Warn().Err(err).
				Str(log.FieldActivityID, activityID).
				Str(log.FieldSessionID, s.ID()).
				Str(log.FieldEventType, env.kind).
				Msg("dropped event for session")
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id     string
	userID string
	mu     sync.Mutex
	frames [][]byte
	fail   error
}

func newFakeSession(id, userID string) *fakeSession {
	return &fakeSession{id: id, userID: userID}
}

func (s *fakeSession) ID() string          { return s.id }
func (s *fakeSession) UserID() string      { return s.userID }
func (s *fakeSession) DisplayName() string { return "name-" + s.userID }

func (s *fakeSession) Deliver(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.frames = append(s.frames, data)
	return nil
}

func (s *fakeSession) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		var v struct {
			Seq string `json:"seq"`
		}
		_ = json.Unmarshal(f, &v)
		out[i] = v.Seq
	}
	return out
}

func flush(t *testing.T, r *Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Close(ctx))
}

func TestRegistry_JoinTwiceLeaveOnce(t *testing.T) {
	reg := NewRegistry()
	s := newFakeSession("s1", "alice")

	assert.True(t, reg.Join("x", s))
	assert.False(t, reg.Join("x", s))
	assert.Len(t, reg.Members("x"), 1)

	assert.True(t, reg.Leave("x", "s1"))
	assert.False(t, reg.IsMember("x", "s1"))
	assert.Empty(t, reg.Members("x"))
	assert.Equal(t, 0, reg.RoomCount())

	assert.False(t, reg.Leave("x", "s1"))
	assert.False(t, reg.Leave("never", "s1"))
}

func TestRegistry_RemoveSession(t *testing.T) {
	reg := NewRegistry()
	s1 := newFakeSession("s1", "alice")
	s2 := newFakeSession("s2", "bob")

	reg.Join("x", s1)
	reg.Join("y", s1)
	reg.Join("y", s2)

	removed := reg.RemoveSession("s1")
	assert.Equal(t, []string{"x", "y"}, removed)

	assert.False(t, reg.IsMember("x", "s1"))
	assert.False(t, reg.IsMember("y", "s1"))
	assert.Empty(t, reg.RoomsOf("s1"))
	assert.True(t, reg.IsMember("y", "s2"))
	assert.Equal(t, 1, reg.RoomCount())

	assert.Empty(t, reg.RemoveSession("s1"))
}

func TestRegistry_OnlineUsers(t *testing.T) {
	reg := NewRegistry()
	reg.Join("x", newFakeSession("s1", "bob"))
	reg.Join("x", newFakeSession("s2", "alice"))
	reg.Join("x", newFakeSession("s3", "bob"))

	users, sessions := reg.OnlineUsers("x")
	assert.Equal(t, []string{"alice", "bob"}, users)
	assert.Equal(t, 3, sessions)

	users, sessions = reg.OnlineUsers("empty")
	assert.Empty(t, users)
	assert.Equal(t, 0, sessions)
}

func TestRegistry_ConcurrentJoinLeave(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newFakeSession(fmt.Sprintf("s%d", i), "u")
			reg.Join("x", s)
			reg.Join("y", s)
			if i%2 == 0 {
				reg.RemoveSession(s.ID())
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, reg.Members("x"), 25)
	assert.Len(t, reg.Members("y"), 25)
}

func TestRouter_DeliversInOrderAndExcludes(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)

	a := newFakeSession("a", "alice")
	b := newFakeSession("b", "bob")
	outsider := newFakeSession("d", "dave")
	reg.Join("x", a)
	reg.Join("x", b)
	reg.Join("y", outsider)

	var want []string
	for i := 0; i < 100; i++ {
		seq := fmt.Sprintf("%03d", i)
		want = append(want, seq)
		require.NoError(t, router.Emit("x", "test", map[string]string{"seq": seq}, ""))
	}
	require.NoError(t, router.Emit("x", "test", map[string]string{"seq": "typing"}, "a"))

	flush(t, router)

	assert.Equal(t, want, a.received())
	assert.Equal(t, append(want, "typing"), b.received())
	assert.Empty(t, outsider.received())
}

func TestRouter_FailingSessionDoesNotBlockOthers(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)

	slow := newFakeSession("slow", "alice")
	slow.fail = ErrSendBufferFull
	ok := newFakeSession("ok", "bob")
	reg.Join("x", slow)
	reg.Join("x", ok)

	require.NoError(t, router.Emit("x", "test", map[string]string{"seq": "1"}, ""))
	require.NoError(t, router.Emit("x", "test", map[string]string{"seq": "2"}, ""))
	flush(t, router)

	assert.Equal(t, []string{"1", "2"}, ok.received())
	assert.Empty(t, slow.received())
}

func TestRouter_EmptyRoomAndClosed(t *testing.T) {
	router := NewRouter(NewRegistry())

	require.NoError(t, router.Emit("nobody", "test", map[string]string{"seq": "1"}, ""))
	flush(t, router)

	err := router.Emit("nobody", "test", map[string]string{"seq": "2"}, "")
	assert.ErrorIs(t, err, ErrRouterClosed)
}

func TestRouter_ConcurrentEmittersKeepPerRoomOrder(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)

	r1 := newFakeSession("r1", "alice")
	r2 := newFakeSession("r2", "bob")
	reg.Join("x", r1)
	reg.Join("x", r2)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = router.Emit("x", "test", map[string]string{"seq": fmt.Sprintf("%d-%02d", w, i)}, "")
			}
		}(w)
	}
	wg.Wait()
	flush(t, router)

	// Every member sees the same interleaving.
	require.Len(t, r1.received(), 100)
	assert.Equal(t, r1.received(), r2.received())
}

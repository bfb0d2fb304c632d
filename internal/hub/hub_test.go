package hub

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndPublish(t *testing.T) {
	h := New()
	key := BarKey("bar-1")

	a := NewClient(key)
	b := NewClient(key)
	h.Register(a)
	h.Register(b)
	require.Equal(t, 2, h.Count(key))

	h.Publish(key, []byte("hello"))

	assert.Equal(t, "hello", string(<-a.Send()))
	assert.Equal(t, "hello", string(<-b.Send()))
}

func TestPublishToEmptyKey(t *testing.T) {
	h := New()
	h.Publish(UserKey("nobody"), []byte("x"))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := New()
	key := UserKey("user-1")
	c := NewClient(key)

	h.Unregister(c)

	h.Register(c)
	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.Count(key))

	_, open := <-c.Send()
	assert.False(t, open, "send channel closed on unregister")
}

func TestKeysAreIndependent(t *testing.T) {
	h := New()
	bar := NewClient(BarKey("bar-1"))
	user := NewClient(UserKey("user-1"))
	h.Register(bar)
	h.Register(user)

	h.Publish(BarKey("bar-1"), []byte("bar only"))

	assert.Equal(t, "bar only", string(<-bar.Send()))
	select {
	case msg := <-user.Send():
		t.Fatalf("user channel got unexpected message %q", msg)
	default:
	}
}

func TestSlowClientIsEvicted(t *testing.T) {
	h := New()
	key := BarKey("bar-1")
	slow := NewClient(key)
	fast := NewClient(key)
	h.Register(slow)
	h.Register(fast)

	// Fill the slow client's buffer without draining it.
	for i := 0; i < sendBuffer; i++ {
		h.Publish(key, []byte(fmt.Sprintf("msg-%d", i)))
		<-fast.Send()
	}
	require.Equal(t, 2, h.Count(key))

	h.Publish(key, []byte("overflow"))

	assert.Equal(t, 1, h.Count(key), "slow client evicted")
	assert.Equal(t, "overflow", string(<-fast.Send()))

	// The evicted client keeps its queued backlog but the channel is closed
	// and sees nothing new.
	got := 0
	for range slow.Send() {
		got++
	}
	assert.Equal(t, sendBuffer, got)
}

func TestShutdownClosesAllClients(t *testing.T) {
	h := New()
	a := NewClient(BarKey("bar-1"))
	b := NewClient(UserKey("user-1"))
	h.Register(a)
	h.Register(b)

	h.Shutdown()

	assert.Equal(t, 0, h.Count(BarKey("bar-1")))
	assert.Equal(t, 0, h.Count(UserKey("user-1")))
	_, open := <-a.Send()
	assert.False(t, open)
	_, open = <-b.Send()
	assert.False(t, open)
}

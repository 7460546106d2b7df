package broadcast_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/verishda/verishda/internal/broadcast"
)

func drain[T any](s *broadcast.Subscription[T]) []T {
	var out []T
	for {
		select {
		case v, ok := <-s.C():
			if !ok {
				return out
			}
			out = append(out, v)
		default:
			return out
		}
	}
}

func TestHub(t *testing.T) {
	t.Run("every subscriber sees every value", func(t *testing.T) {
		h := broadcast.New[int]()
		a := h.Subscribe(4)
		b := h.Subscribe(4)

		h.Publish(1)
		h.Publish(2)

		require.Equal(t, []int{1, 2}, drain(a))
		require.Equal(t, []int{1, 2}, drain(b))
	})

	t.Run("late subscriber misses earlier values", func(t *testing.T) {
		h := broadcast.New[int]()
		h.Publish(1)
		s := h.Subscribe(4)
		h.Publish(2)
		require.Equal(t, []int{2}, drain(s))
	})

	t.Run("slow subscriber loses oldest values", func(t *testing.T) {
		h := broadcast.New[int]()
		s := h.Subscribe(2)
		for i := 1; i <= 5; i++ {
			h.Publish(i)
		}
		require.Equal(t, []int{4, 5}, drain(s))
		require.Equal(t, uint64(3), s.Dropped())
	})

	t.Run("cancel closes the channel and stops delivery", func(t *testing.T) {
		h := broadcast.New[int]()
		s := h.Subscribe(2)
		s.Cancel()
		h.Publish(1)
		_, ok := <-s.C()
		require.False(t, ok)
		s.Cancel()
	})

	t.Run("close delivers buffered values then closes", func(t *testing.T) {
		h := broadcast.New[string]()
		s := h.Subscribe(2)
		h.Publish("last")
		h.Close()

		v, ok := <-s.C()
		require.True(t, ok)
		require.Equal(t, "last", v)
		_, ok = <-s.C()
		require.False(t, ok)

		late := h.Subscribe(1)
		_, ok = <-late.C()
		require.False(t, ok)
		s.Cancel()
	})
}

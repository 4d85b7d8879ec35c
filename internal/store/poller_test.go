package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_DeliversUntilUnsubscribed(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, userID string) ([]string, error) {
		n := calls.Add(1)
		if n == 2 {
			return nil, errors.New("transient")
		}
		return []string{userID}, nil
	}
	p := NewPoller(5*time.Millisecond, fetch, zerolog.Nop())

	got := make(chan []string, 16)
	unsubscribe := p.Subscribe("user-1", func(rows []string) { got <- rows })

	first := <-got
	assert.Equal(t, []string{"user-1"}, first)
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("expected a second snapshot after the failed poll")
	}

	unsubscribe()
	unsubscribe()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, after, calls.Load())
}

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
	"github.com/rl1809/nft-marketplace/internal/port"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.events))
	for _, e := range r.events {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestPool_PublishesToEveryPublisher(t *testing.T) {
	queue := make(chan domain.Event, 10)
	first := &recordingPublisher{}
	second := &recordingPublisher{}

	pool := NewPool(queue, []port.EventPublisher{first, second}, zerolog.Nop(), nil)
	pool.Start(3)

	for _, id := range []string{"e1", "e2", "e3", "e4"} {
		queue <- domain.Event{ID: id, Type: domain.EventItemListed}
	}
	close(queue)
	pool.Wait()

	assert.ElementsMatch(t, []string{"e1", "e2", "e3", "e4"}, first.ids())
	assert.ElementsMatch(t, []string{"e1", "e2", "e3", "e4"}, second.ids())
}

func TestPool_FailingPublisherDoesNotBlockOthers(t *testing.T) {
	queue := make(chan domain.Event, 10)
	broken := &recordingPublisher{err: errors.New("down")}
	healthy := &recordingPublisher{}

	pool := NewPool(queue, []port.EventPublisher{broken, healthy}, zerolog.Nop(), nil)
	pool.Start(1)

	queue <- domain.Event{ID: "e1", Type: domain.EventItemBought}
	close(queue)
	pool.Wait()

	require.Equal(t, []string{"e1"}, healthy.ids())
	assert.Empty(t, broken.ids())
}

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
	"github.com/rl1809/nft-marketplace/internal/metrics"
	"github.com/rl1809/nft-marketplace/internal/port"
)

const publishTimeout = 5 * time.Second

// Pool drains committed ledger events and hands each one to every
// publisher. Workers exit when the queue is closed.
type Pool struct {
	queue      <-chan domain.Event
	publishers []port.EventPublisher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	wg         sync.WaitGroup
}

func NewPool(queue <-chan domain.Event, publishers []port.EventPublisher, logger zerolog.Logger, m *metrics.Metrics) *Pool {
	if m == nil {
		m = metrics.NopMetrics()
	}
	return &Pool{
		queue:      queue,
		publishers: publishers,
		logger:     logger,
		metrics:    m,
	}
}

func (p *Pool) Start(workers int) {
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.loop(id)
		}(i)
	}
}

// Wait blocks until every worker has drained the closed queue.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) loop(id int) {
	logger := p.logger.With().Int("worker", id).Logger()

	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		for _, pub := range p.publishers {
			if err := pub.Publish(ctx, event); err != nil {
				logger.Error().Err(err).
					Str("event_id", event.ID).
					Str("type", string(event.Type)).
					Msg("failed to publish event")
			}
		}
		p.metrics.EventsPublished.With("type", string(event.Type)).Add(1)
		logger.Debug().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("published event")

		cancel()
	}
}

package events

import (
	"context"
	"sync"

	"finsync/internal/cache"
	"finsync/internal/log"
)

// Publisher is the outbound half of Client.
type Publisher interface {
	PublishChange(ctx context.Context, msg *ChangeMessage) error
}

const outboxSize = 64

// Bridge forwards local invalidations to other clients and applies theirs
// to the local cache. Messages stamped with this bridge's origin are
// ignored, so a change never bounces back.
type Bridge struct {
	c      *cache.Coordinator
	pub    Publisher
	origin string
	logger *log.Logger

	outbox chan *ChangeMessage
	remove func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewBridge hooks into c right away; Close unhooks it.
func NewBridge(c *cache.Coordinator, pub Publisher, origin string, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		c:      c,
		pub:    pub,
		origin: origin,
		logger: logger.WithComponent(log.ComponentEvents),
		outbox: make(chan *ChangeMessage, outboxSize),
		cancel: cancel,
	}
	b.remove = c.OnInvalidate(b.enqueue)
	b.wg.Add(1)
	go b.publishLoop(ctx)
	return b
}

func (b *Bridge) Origin() string { return b.origin }

// enqueue runs inside Coordinator.Invalidate, so it never blocks: when the
// outbox is full the change is logged and skipped.
func (b *Bridge) enqueue(targets []cache.Target) {
	order, byAccount := groupByAccount(targets)
	for _, acc := range order {
		msg := NewChangeMessage(b.origin, acc, byAccount[acc])
		select {
		case b.outbox <- msg:
		default:
			b.logger.Warn("Change outbox full, skipping broadcast",
				log.FieldAccountID, acc, log.FieldTargets, len(msg.Targets))
		}
	}
}

func (b *Bridge) publishLoop(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.outbox:
			if err := b.pub.PublishChange(ctx, msg); err != nil {
				b.logger.WarnContext(ctx, "Failed to broadcast change",
					log.FieldError, err, log.FieldAccountID, msg.AccountID)
			}
		}
	}
}

// Handle applies a change received from the bus. It matches the handler
// signature of Client.Consume.
func (b *Bridge) Handle(ctx context.Context, msg *ChangeMessage) error {
	if msg.Origin == b.origin {
		return nil
	}
	b.logger.DebugContext(ctx, "Applying remote change",
		"origin", msg.Origin, log.FieldAccountID, msg.AccountID, log.FieldTargets, len(msg.Targets))
	b.c.ApplyRemote(msg.Targets...)
	return nil
}

// Close unhooks the bridge and stops publishing. Changes still queued are
// dropped.
func (b *Bridge) Close() {
	b.once.Do(func() {
		b.remove()
		b.cancel()
		b.wg.Wait()
	})
}

// Package aggregator assembles multi-part submissions (Telegram media
// groups) into single reviewable bundles. Parts of one album arrive as
// separate updates in no guaranteed order; the aggregator buffers them per
// group key and emits the whole bundle once the debounce window closes.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/subgatebot/subgate/core/logger"
	"github.com/subgatebot/subgate/internal/content"
	"log/slog"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultDebounce matches the window the submitter-facing bot historically
// used for album collection.
const DefaultDebounce = 1500 * time.Millisecond

// flushedKeyTTL bounds how long a closed group key is remembered for
// straggler detection.
const flushedKeyTTL = 10 * time.Minute

// ErrClosed is returned when items arrive after Close.
var ErrClosed = errors.New("aggregator: closed")

// Item is one inbound content part. GroupKey is empty for standalone
// messages, which skip buffering entirely.
type Item struct {
	GroupKey  string
	Owner     int64
	OwnerName string
	Forwarded bool
	OriginTag string
	Part      content.Part
}

// Bundle is a completed submission candidate: all parts of one logical
// group, ordered by their origin sequence.
type Bundle struct {
	GroupKey  string
	Owner     int64
	OwnerName string
	Forwarded bool
	OriginTag string
	Parts     []content.Part
}

// Sink receives completed bundles. It is invoked outside the aggregator
// locks and may block without stalling other groups.
type Sink func(ctx context.Context, b Bundle)

type buffer struct {
	rawKey    string
	key       string
	owner     int64
	ownerName string
	forwarded bool
	originTag string
	parts     []content.Part
	timer     *time.Timer
	gen       uint64
}

// Aggregator buffers album parts per group key with a resettable debounce
// timer. Expiry and arrival on the same buffer are serialized on the table
// lock: whichever acquires it first wins, and a part that loses against a
// flush starts a fresh buffer under a derived key instead of amending the
// closed one.
type Aggregator struct {
	delay time.Duration
	sink  Sink

	mu      sync.Mutex
	buffers map[string]*buffer // logical key -> live buffer
	active  map[string]string  // raw group key -> logical key
	flushed *gocache.Cache     // raw group key -> completed flush count
	closed  bool
}

// New builds an aggregator emitting into sink. A non-positive delay falls
// back to DefaultDebounce.
func New(delay time.Duration, sink Sink) *Aggregator {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Aggregator{
		delay:   delay,
		sink:    sink,
		buffers: make(map[string]*buffer),
		active:  make(map[string]string),
		flushed: gocache.New(flushedKeyTTL, flushedKeyTTL/2),
	}
}

// Ingest accepts one inbound part. Standalone items produce a single-part
// bundle immediately; grouped items are buffered until the debounce timer
// for their group expires.
func (a *Aggregator) Ingest(ctx context.Context, item Item) error {
	if item.GroupKey == "" {
		a.sink(ctx, Bundle{
			Owner:     item.Owner,
			OwnerName: item.OwnerName,
			Forwarded: item.Forwarded,
			OriginTag: item.OriginTag,
			Parts:     []content.Part{item.Part},
		})
		return nil
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}

	logical, live := a.active[item.GroupKey]
	if !live {
		logical = a.deriveKey(item.GroupKey)
		buf := &buffer{
			rawKey:    item.GroupKey,
			key:       logical,
			owner:     item.Owner,
			ownerName: item.OwnerName,
			forwarded: item.Forwarded,
			originTag: item.OriginTag,
		}
		a.buffers[logical] = buf
		a.active[item.GroupKey] = logical
		if logical != item.GroupKey {
			logger.Debug(ctx, "aggregator", "group.straggler",
				slog.String("group_key", item.GroupKey),
				slog.String("derived_key", logical),
			)
		}
	}

	buf := a.buffers[logical]
	buf.parts = append(buf.parts, item.Part)
	// First message of a group decides attribution for the whole bundle.
	if item.Forwarded && len(buf.parts) == 1 {
		buf.forwarded = true
		buf.originTag = item.OriginTag
	}

	buf.gen++
	gen := buf.gen
	if buf.timer != nil {
		buf.timer.Stop()
	}
	buf.timer = time.AfterFunc(a.delay, func() {
		a.flush(logical, gen)
	})

	size := len(buf.parts)
	a.mu.Unlock()

	logger.Debug(ctx, "aggregator", "group.buffered",
		slog.String("group_key", item.GroupKey),
		slog.Int64("user_id", item.Owner),
		slog.Int("parts", size),
	)
	return nil
}

// deriveKey picks the logical buffer key for a raw group key. A key whose
// buffer was already flushed gets a numbered successor, so stragglers form a
// new submission instead of touching the closed one.
func (a *Aggregator) deriveKey(raw string) string {
	if n, ok := a.flushed.Get(raw); ok {
		return fmt.Sprintf("%s#%d", raw, n.(int)+1)
	}
	return raw
}

func (a *Aggregator) flush(logical string, gen uint64) {
	a.mu.Lock()
	buf, ok := a.buffers[logical]
	if !ok || buf.gen != gen {
		// A later part rescheduled the timer, or the buffer is gone.
		a.mu.Unlock()
		return
	}
	delete(a.buffers, logical)
	delete(a.active, buf.rawKey)

	n := 0
	if prev, ok := a.flushed.Get(buf.rawKey); ok {
		n = prev.(int)
	}
	a.flushed.Set(buf.rawKey, n+1, flushedKeyTTL)

	parts := make([]content.Part, len(buf.parts))
	copy(parts, buf.parts)
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Sequence < parts[j].Sequence })

	bundle := Bundle{
		GroupKey:  buf.key,
		Owner:     buf.owner,
		OwnerName: buf.ownerName,
		Forwarded: buf.forwarded,
		OriginTag: buf.originTag,
		Parts:     parts,
	}
	a.mu.Unlock()

	ctx := context.Background()
	logger.Info(ctx, "aggregator", "group.flushed",
		slog.String("group_key", bundle.GroupKey),
		slog.Int64("user_id", bundle.Owner),
		slog.Int("parts", len(parts)),
	)
	a.sink(ctx, bundle)
}

// PendingGroups reports how many buffers are currently open.
func (a *Aggregator) PendingGroups() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}

// Close stops all timers and rejects further grouped input. Buffered parts
// are dropped: there is no durable store for in-flight submissions.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for key, buf := range a.buffers {
		if buf.timer != nil {
			buf.timer.Stop()
		}
		delete(a.buffers, key)
		delete(a.active, buf.rawKey)
	}
}

// Package realtime keeps state collections synchronized with a store
// change feed.
//
// A Reconciler performs one full load to seed its collection, then
// applies feed events record by record: creates and updates upsert the
// decoded entity, deletes remove it by ID. When an event cannot be
// decoded the reconciler falls back to a coalesced full reload, so the
// collection converges to the store contents even across malformed or
// dropped events.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/safeops/safeops/pkg/state"
	"github.com/safeops/safeops/pkg/store"
)

// Reconciler binds one feed table to one collection.
type Reconciler[T any] struct {
	feed    store.ChangeFeed
	table   string
	coll    *state.Collection[T]
	loadAll func(ctx context.Context) ([]T, error)
	decode  func(data map[string]any) (T, error)
	log     zerolog.Logger

	// reload has capacity 1 so any number of pending requests collapse
	// into a single refresh.
	reload chan struct{}
}

// NewReconciler wires a feed table to a collection. loadAll fetches
// the full table from the store; decode turns a feed payload into the
// entity type.
func NewReconciler[T any](
	feed store.ChangeFeed,
	table string,
	coll *state.Collection[T],
	loadAll func(ctx context.Context) ([]T, error),
	decode func(data map[string]any) (T, error),
	log zerolog.Logger,
) *Reconciler[T] {
	return &Reconciler[T]{
		feed:    feed,
		table:   table,
		coll:    coll,
		loadAll: loadAll,
		decode:  decode,
		log:     log.With().Str("table", table).Logger(),
		reload:  make(chan struct{}, 1),
	}
}

// Run seeds the collection and then consumes the feed until ctx is
// done or the feed channel closes. The initial load failing is fatal;
// later reload failures are logged and retried on the next trigger.
func (r *Reconciler[T]) Run(ctx context.Context) error {
	changes, err := r.feed.Subscribe(ctx, r.table)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.table, err)
	}

	// Subscribe before the first load so events racing the load are
	// applied on top of it rather than lost.
	if err := r.refresh(ctx); err != nil {
		return fmt.Errorf("initial load of %s: %w", r.table, err)
	}

	for {
		select {
		case <-ctx.Done():
			r.log.Debug().Msg("reconciler stopping")
			return nil
		case <-r.reload:
			if err := r.refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.log.Warn().Err(err).Msg("full reload failed")
				r.requestReloadLater(ctx)
			}
		case change, ok := <-changes:
			if !ok {
				r.log.Debug().Msg("change feed closed")
				return nil
			}
			r.apply(change)
		}
	}
}

func (r *Reconciler[T]) apply(change store.Change) {
	switch change.Action {
	case store.ChangeDelete:
		r.coll.Remove(change.ID)
	case store.ChangeCreate, store.ChangeUpdate:
		item, err := r.decode(change.Data)
		if err != nil {
			r.log.Warn().Err(err).Str("id", change.ID).Msg("undecodable change, scheduling reload")
			r.requestReload()
			return
		}
		r.coll.Upsert(item)
	default:
		r.log.Warn().Str("action", string(change.Action)).Msg("unknown change action")
	}
}

func (r *Reconciler[T]) refresh(ctx context.Context) error {
	r.coll.SetLoading(true)
	items, err := r.loadAll(ctx)
	if err != nil {
		r.coll.SetLoading(false)
		return err
	}
	r.coll.ReplaceAll(items)
	return nil
}

func (r *Reconciler[T]) requestReload() {
	select {
	case r.reload <- struct{}{}:
	default:
	}
}

// requestReloadLater re-arms the reload trigger after a short delay so
// a failing store is not hammered in a tight loop.
func (r *Reconciler[T]) requestReloadLater(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
			r.requestReload()
		}
	}()
}

// JSONDecoder returns a decode function that round-trips a feed
// payload through JSON into T. It suits feeds whose payloads are
// JSON-shaped maps, such as the in-memory store's.
func JSONDecoder[T any]() func(map[string]any) (T, error) {
	return func(data map[string]any) (T, error) {
		var out T
		if data == nil {
			return out, fmt.Errorf("change carried no record data")
		}
		b, err := json.Marshal(data)
		if err != nil {
			return out, fmt.Errorf("failed to encode change data: %w", err)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return out, fmt.Errorf("failed to decode change data: %w", err)
		}
		return out, nil
	}
}

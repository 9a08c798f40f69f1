package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/safeops/safeops/pkg/store"
)

// Subscribe opens a live query on the table and adapts its
// notifications to store.Change events.
//
// The live query is killed when ctx is done or the notification
// channel closes; kill failures are swallowed because teardown runs
// while the caller is already shutting the view down. Resubscription
// after a dropped connection is the SDK's responsibility.
func (s *SurrealStore) Subscribe(ctx context.Context, table string) (<-chan store.Change, error) {
	live, err := surrealdb.Live(ctx, s.db, surrealdb_models.Table(table), false)
	if err != nil {
		return nil, fmt.Errorf("failed to start live query on %s: %w", table, err)
	}

	notifications, err := s.db.LiveNotifications(live.String())
	if err != nil {
		killCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = surrealdb.Kill(killCtx, s.db, live.String())
		return nil, fmt.Errorf("failed to open notification channel for %s: %w", table, err)
	}

	out := make(chan store.Change)
	go func() {
		defer close(out)
		defer func() {
			// ctx may already be done, so the kill gets its own deadline.
			killCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = surrealdb.Kill(killCtx, s.db, live.String())
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-notifications:
				if !ok {
					return
				}
				change, ok := toChange(table, n)
				if !ok {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// toChange converts a live query notification into a store.Change.
// Live queries without diff deliver the full record as map[string]any
// with the id field as a RecordID.
func toChange(table string, n connection.Notification) (store.Change, bool) {
	var action store.ChangeAction
	switch n.Action {
	case connection.CreateAction:
		action = store.ChangeCreate
	case connection.UpdateAction:
		action = store.ChangeUpdate
	case connection.DeleteAction:
		action = store.ChangeDelete
	default:
		return store.Change{}, false
	}

	record, ok := n.Result.(map[string]any)
	if !ok {
		return store.Change{}, false
	}

	change := store.Change{Action: action, Table: table}
	if rid, ok := record["id"].(surrealdb_models.RecordID); ok {
		change.ID = fmt.Sprint(rid.ID)
	}
	if action != store.ChangeDelete {
		change.Data = record
	}
	return change, true
}

// RecordDecoder returns a decode function that turns a live query
// payload into T by round-tripping it through the same CBOR codec the
// connection uses, so record IDs and datetimes keep their tagged
// representations.
func RecordDecoder[T any]() func(map[string]any) (T, error) {
	codec := surrealcbor.New()
	return func(data map[string]any) (T, error) {
		var out T
		if data == nil {
			return out, fmt.Errorf("live notification carried no record")
		}
		b, err := codec.Marshal(data)
		if err != nil {
			return out, fmt.Errorf("failed to re-encode live record: %w", err)
		}
		if err := codec.Unmarshal(b, &out); err != nil {
			return out, fmt.Errorf("failed to decode live record: %w", err)
		}
		return out, nil
	}
}

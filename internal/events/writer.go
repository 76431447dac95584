package events

import (
	"context"
	"time"

	"brdflow/internal/domain"
	"brdflow/internal/store"
)

// Key is the store key of the activity log.
const Key = "eventLog"

// maxEvents bounds the stored log; older entries are dropped first.
const maxEvents = 1000

type Writer struct {
	Store store.Store
	Now   func() time.Time
}

type EventPayload map[string]any

// Append adds one event to the log and returns it with its assigned id.
func (w Writer) Append(ctx context.Context, evtType, entityKind, entityID, actorID string, payload EventPayload) (domain.Event, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	log, err := store.Load(ctx, w.Store, Key, []domain.Event{})
	if err != nil {
		return domain.Event{}, err
	}
	var next int64 = 1
	if n := len(log); n > 0 {
		next = log[n-1].ID + 1
	}
	evt := domain.Event{
		ID:         next,
		TS:         w.Now().UTC().Format(time.RFC3339),
		Type:       evtType,
		EntityKind: entityKind,
		EntityID:   entityID,
		ActorID:    actorID,
		Payload:    payload,
	}
	log = append(log, evt)
	if len(log) > maxEvents {
		log = log[len(log)-maxEvents:]
	}
	if err := store.Save(ctx, w.Store, Key, log); err != nil {
		return domain.Event{}, err
	}
	return evt, nil
}

package records

import (
	"context"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
)

// Item is a record together with its decoded payload.
type Item[T models.Payload] struct {
	models.Record
	Value T
}

// Typed decodes payloads of one domain for UI code.
type Typed[T models.Payload] struct {
	repo *SQLiteRepository
}

func NewTyped[T models.Payload](repo *SQLiteRepository) Typed[T] {
	return Typed[T]{repo: repo}
}

func (t Typed[T]) Get(ctx context.Context, id string) (*Item[T], error) {
	rec, err := t.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := models.DecodePayload[T](rec.Payload)
	if err != nil {
		return nil, err
	}
	return &Item[T]{Record: *rec, Value: v}, nil
}

// ListByOwner returns the owner's visible records with decoded payloads.
func (t Typed[T]) ListByOwner(ctx context.Context, ownerID string) ([]Item[T], error) {
	var items []Item[T]
	for rec, err := range t.repo.StreamByOwner(ctx, ownerID) {
		if err != nil {
			return nil, err
		}
		v, err := models.DecodePayload[T](rec.Payload)
		if err != nil {
			return nil, err
		}
		items = append(items, Item[T]{Record: rec, Value: v})
	}
	return items, nil
}

// ListByGroup returns the visible records of one group with decoded
// payloads.
func (t Typed[T]) ListByGroup(ctx context.Context, groupID string) ([]Item[T], error) {
	recs, err := t.repo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	items := make([]Item[T], 0, len(recs))
	for _, rec := range recs {
		v, err := models.DecodePayload[T](rec.Payload)
		if err != nil {
			return nil, err
		}
		items = append(items, Item[T]{Record: rec, Value: v})
	}
	return items, nil
}

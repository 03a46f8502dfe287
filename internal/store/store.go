package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// TestStore holds the active-test set. The orchestrator is the only writer.
type TestStore interface {
	ListTests(ctx context.Context) ([]*Test, error)
	GetTest(ctx context.Context, id string) (*Test, error)
	PutTest(ctx context.Context, test *Test) error
	DeleteTest(ctx context.Context, id string) error
}

// ArchiveStore holds completed tests.
type ArchiveStore interface {
	ListArchived(ctx context.Context) ([]*ArchivedTest, error)
	AppendArchived(ctx context.Context, test *ArchivedTest) error
}

// EventStore is the bounded append-only event log.
type EventStore interface {
	AppendEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context) ([]*Event, error)
}

// ProductionStore maps target pages to their current production variant.
type ProductionStore interface {
	SetProductionVariant(ctx context.Context, page string, pv ProductionVariant) error
	ProductionVariants(ctx context.Context) (map[string]ProductionVariant, error)
}

// RecommendationStore is the pending-approval log for recommend_winner
// decisions.
type RecommendationStore interface {
	AppendRecommendation(ctx context.Context, rec *Recommendation) error
	ListRecommendations(ctx context.Context) ([]*Recommendation, error)
}

// ModelStore persists the trained prediction model. LoadModel returns
// ErrNotFound until a model has been trained.
type ModelStore interface {
	SaveModel(ctx context.Context, model *Model) error
	LoadModel(ctx context.Context) (*Model, error)
}

// Store composes all repositories. Implementations: the JSON document
// store and the SQLite store.
type Store interface {
	TestStore
	ArchiveStore
	EventStore
	ProductionStore
	RecommendationStore
	ModelStore
	Close() error
}

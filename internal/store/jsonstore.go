package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultEventCapacity bounds the rolling event log.
const DefaultEventCapacity = 10000

// JSONStore is a file-backed document store. Each collection lives in its
// own JSON file under the data directory, in the same shapes the dashboard
// tooling reads: {"tests": []}, {"archivedTests": []}, {"events": []},
// {"variants": {}}, {"items": []}.
type JSONStore struct {
	mu            sync.Mutex
	dir           string
	eventCapacity int
}

// OpenJSON creates the data directory and returns a store over it.
// eventCapacity <= 0 selects DefaultEventCapacity.
func OpenJSON(dir string, eventCapacity int) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if eventCapacity <= 0 {
		eventCapacity = DefaultEventCapacity
	}
	return &JSONStore{dir: dir, eventCapacity: eventCapacity}, nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readDoc decodes a collection file into dst. A missing file is not an
// error: dst keeps its zero value so an empty store reads as empty.
func readDoc(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeDoc writes atomically via a temp file so readers never observe a
// half-written collection.
func writeDoc(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

type testsDoc struct {
	Tests []*Test `json:"tests"`
}

type archiveDoc struct {
	ArchivedTests []*ArchivedTest `json:"archivedTests"`
}

type eventsDoc struct {
	Events []*Event `json:"events"`
}

type productionDoc struct {
	Variants map[string]ProductionVariant `json:"variants"`
}

type recommendationsDoc struct {
	Items []*Recommendation `json:"items"`
}

func (s *JSONStore) ListTests(ctx context.Context) ([]*Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc testsDoc
	if err := readDoc(s.path("active-tests.json"), &doc); err != nil {
		return nil, err
	}
	return doc.Tests, nil
}

func (s *JSONStore) GetTest(ctx context.Context, id string) (*Test, error) {
	tests, err := s.ListTests(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tests {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONStore) PutTest(ctx context.Context, test *Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc testsDoc
	if err := readDoc(s.path("active-tests.json"), &doc); err != nil {
		return err
	}
	replaced := false
	for i, t := range doc.Tests {
		if t.ID == test.ID {
			doc.Tests[i] = test
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Tests = append(doc.Tests, test)
	}
	return writeDoc(s.path("active-tests.json"), &doc)
}

func (s *JSONStore) DeleteTest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc testsDoc
	if err := readDoc(s.path("active-tests.json"), &doc); err != nil {
		return err
	}
	kept := doc.Tests[:0]
	found := false
	for _, t := range doc.Tests {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return ErrNotFound
	}
	doc.Tests = kept
	return writeDoc(s.path("active-tests.json"), &doc)
}

func (s *JSONStore) ListArchived(ctx context.Context) ([]*ArchivedTest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc archiveDoc
	if err := readDoc(s.path("test-archive.json"), &doc); err != nil {
		return nil, err
	}
	return doc.ArchivedTests, nil
}

func (s *JSONStore) AppendArchived(ctx context.Context, test *ArchivedTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc archiveDoc
	if err := readDoc(s.path("test-archive.json"), &doc); err != nil {
		return err
	}
	doc.ArchivedTests = append(doc.ArchivedTests, test)
	return writeDoc(s.path("test-archive.json"), &doc)
}

func (s *JSONStore) AppendEvent(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc eventsDoc
	if err := readDoc(s.path("test-events.json"), &doc); err != nil {
		return err
	}
	doc.Events = append(doc.Events, event)
	if excess := len(doc.Events) - s.eventCapacity; excess > 0 {
		doc.Events = doc.Events[excess:]
	}
	return writeDoc(s.path("test-events.json"), &doc)
}

func (s *JSONStore) ListEvents(ctx context.Context) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc eventsDoc
	if err := readDoc(s.path("test-events.json"), &doc); err != nil {
		return nil, err
	}
	return doc.Events, nil
}

func (s *JSONStore) SetProductionVariant(ctx context.Context, page string, pv ProductionVariant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc productionDoc
	if err := readDoc(s.path("production-variants.json"), &doc); err != nil {
		return err
	}
	if doc.Variants == nil {
		doc.Variants = map[string]ProductionVariant{}
	}
	doc.Variants[page] = pv
	return writeDoc(s.path("production-variants.json"), &doc)
}

func (s *JSONStore) ProductionVariants(ctx context.Context) (map[string]ProductionVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc productionDoc
	if err := readDoc(s.path("production-variants.json"), &doc); err != nil {
		return nil, err
	}
	if doc.Variants == nil {
		doc.Variants = map[string]ProductionVariant{}
	}
	return doc.Variants, nil
}

func (s *JSONStore) AppendRecommendation(ctx context.Context, rec *Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc recommendationsDoc
	if err := readDoc(s.path("recommendations.json"), &doc); err != nil {
		return err
	}
	doc.Items = append(doc.Items, rec)
	return writeDoc(s.path("recommendations.json"), &doc)
}

func (s *JSONStore) ListRecommendations(ctx context.Context) ([]*Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc recommendationsDoc
	if err := readDoc(s.path("recommendations.json"), &doc); err != nil {
		return nil, err
	}
	return doc.Items, nil
}

func (s *JSONStore) SaveModel(ctx context.Context, model *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeDoc(s.path("model-data.json"), model)
}

func (s *JSONStore) LoadModel(ctx context.Context) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path("model-data.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read model-data.json: %w", err)
	}
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model-data.json: %w", err)
	}
	return &model, nil
}

package pipeline_test

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"kura/internal/candidate"
	"kura/internal/config"
	"kura/internal/logging"
	"kura/internal/pipeline"
	"kura/internal/scoring"
	"kura/internal/services"
	"kura/internal/store"
	"kura/internal/testsupport"
)

var fakeCodePattern = regexp.MustCompile(`\b(RJ\d{6})\b`)

// fakeLocator claims RJ codes and answers from fixed tables.
type fakeLocator struct {
	weights   config.Scoring
	results   map[string][]candidate.Record
	metadata  map[string]candidate.Metadata
	searchErr error
	fetchErr  error

	mu       sync.Mutex
	searches []string
	fetches  []string
}

func newFakeLocator(cfg *config.Config) *fakeLocator {
	return &fakeLocator{
		weights:  cfg.Scoring,
		results:  map[string][]candidate.Record{},
		metadata: map[string]candidate.Metadata{},
	}
}

func (f *fakeLocator) Name() string { return "fake" }

func (f *fakeLocator) Search(_ context.Context, term string) ([]candidate.Record, error) {
	f.mu.Lock()
	f.searches = append(f.searches, term)
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results[term], nil
}

func (f *fakeLocator) ExtractCode(name string) string {
	return fakeCodePattern.FindString(name)
}

func (f *fakeLocator) ScoreCodes(q candidate.Query) []candidate.Scored {
	return scoring.Score(f.weights, q)
}

func (f *fakeLocator) ShouldUse(id string) bool {
	return strings.HasPrefix(id, "RJ")
}

func (f *fakeLocator) FetchMetadata(_ context.Context, code string) (candidate.Metadata, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, code)
	f.mu.Unlock()
	if f.fetchErr != nil {
		return candidate.Metadata{}, f.fetchErr
	}
	md, ok := f.metadata[code]
	if !ok {
		return candidate.Metadata{}, services.Wrap(services.ErrNotFound, "fake", "fetch", code, nil)
	}
	return md, nil
}

func (f *fakeLocator) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

func (f *fakeLocator) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetches...)
}

type fixture struct {
	cfg     *config.Config
	store   *store.Store
	locator *fakeLocator
	inbox   string
	library string
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return &fixture{
		cfg:     cfg,
		store:   testsupport.MustOpenStore(t, cfg),
		locator: newFakeLocator(cfg),
		inbox:   cfg.Paths.UnsortedDirs[0],
		library: cfg.Paths.LibraryDir,
	}
}

func (f *fixture) driver(opts ...pipeline.Option) *pipeline.Driver {
	return pipeline.New(f.cfg, f.store, candidate.NewRegistry(f.locator), logging.NewNop(), opts...)
}

// recordingProgress remembers the phases and items it was told about.
type recordingProgress struct {
	mu     sync.Mutex
	phases []string
	items  []string
	done   int
}

func (r *recordingProgress) Start(phase string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, fmt.Sprintf("%s/%d", phase, total))
}

func (r *recordingProgress) Advance(item string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
}

func (r *recordingProgress) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
}

func pipelineWithoutLocators(f *fixture) *pipeline.Driver {
	return pipeline.New(f.cfg, f.store, candidate.NewRegistry(), logging.NewNop())
}

package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	"github.com/AlkaloidWells/GraphWork/internal/etl/extractor"
	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
)

type fakeExtractor struct {
	mu    sync.Mutex
	rows  []extractor.Row
	errs  []error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ extractor.Profile, _ domain.Scope) ([]extractor.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls
	f.calls++
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	return f.rows, nil
}

type fakeLoader struct {
	mu     sync.Mutex
	loaded []domain.Interaction
	errFor map[int64][]error
	calls  map[int64]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{errFor: map[int64][]error{}, calls: map[int64]int{}}
}

func (f *fakeLoader) Load(_ context.Context, rec domain.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls[rec.UserID]
	f.calls[rec.UserID]++
	if errs := f.errFor[rec.UserID]; call < len(errs) && errs[call] != nil {
		return errs[call]
	}
	f.loaded = append(f.loaded, rec)
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func viewRow(userID, productID int64) extractor.Row {
	return extractor.Row{
		UserID:    sql.NullInt64{Int64: userID, Valid: true},
		ProductID: sql.NullInt64{Int64: productID, Valid: true},
		Action:    "view",
	}
}

func TestRunCountsAndIsolation(t *testing.T) {
	rows := []extractor.Row{
		viewRow(1, 10),
		{UserID: sql.NullInt64{Int64: 2, Valid: true}, Action: "wishlist"}, // invalid
		viewRow(3, 12),
		viewRow(4, 13), // load fails
	}
	ex := &fakeExtractor{rows: rows}
	ld := newFakeLoader()
	ld.errFor[4] = []error{fmt.Errorf("%w: boom", pkgerrors.ErrLoad)}

	svc := NewService(ex, ld, testLogger(t))
	summary, err := svc.Run(context.Background(), domain.Scope{Kind: domain.ScopeAll})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Attempted != 4 || summary.Succeeded != 2 || summary.Failed != 2 {
		t.Fatalf("unexpected counters: %+v", summary)
	}
	if len(ld.loaded) != 2 {
		t.Fatalf("expected 2 loaded records, got %d", len(ld.loaded))
	}
	if summary.RunID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("run id not assigned")
	}
}

func TestRunAbortsOnExtractionError(t *testing.T) {
	ex := &fakeExtractor{errs: []error{fmt.Errorf("%w: source unreachable", pkgerrors.ErrExtraction)}}
	svc := NewService(ex, newFakeLoader(), testLogger(t))

	summary, err := svc.Run(context.Background(), domain.Scope{Kind: domain.ScopeAll})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, pkgerrors.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if summary.Attempted != 0 {
		t.Fatalf("aborted run must not count records: %+v", summary)
	}
}

func TestRunRetriesExtractionTimeoutOnce(t *testing.T) {
	ex := &fakeExtractor{
		rows: []extractor.Row{viewRow(1, 10)},
		errs: []error{fmt.Errorf("%w: deadline", pkgerrors.ErrTimeout)},
	}
	svc := NewService(ex, newFakeLoader(), testLogger(t))

	summary, err := svc.Run(context.Background(), domain.Scope{Kind: domain.ScopeAll})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ex.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", ex.calls)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("unexpected counters: %+v", summary)
	}
}

func TestRunDoesNotRetryExtractionTwice(t *testing.T) {
	timeout := fmt.Errorf("%w: deadline", pkgerrors.ErrTimeout)
	ex := &fakeExtractor{errs: []error{timeout, timeout}}
	svc := NewService(ex, newFakeLoader(), testLogger(t))

	_, err := svc.Run(context.Background(), domain.Scope{Kind: domain.ScopeAll})
	if err == nil {
		t.Fatalf("expected error")
	}
	if ex.calls != 2 {
		t.Fatalf("expected exactly 2 extraction attempts, got %d", ex.calls)
	}
}

func TestRunRetriesRecordLoadTimeoutOnce(t *testing.T) {
	ex := &fakeExtractor{rows: []extractor.Row{viewRow(1, 10)}}
	ld := newFakeLoader()
	ld.errFor[1] = []error{fmt.Errorf("%w: slow write", pkgerrors.ErrTimeout)}

	svc := NewService(ex, ld, testLogger(t))
	summary, err := svc.Run(context.Background(), domain.Scope{Kind: domain.ScopeAll})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 1 || summary.Failed != 0 {
		t.Fatalf("retried record should succeed: %+v", summary)
	}
	if ld.calls[1] != 2 {
		t.Fatalf("expected 2 load attempts, got %d", ld.calls[1])
	}
}

func TestRunSkipsRecordAfterSecondTimeout(t *testing.T) {
	ex := &fakeExtractor{rows: []extractor.Row{viewRow(1, 10), viewRow(2, 11)}}
	ld := newFakeLoader()
	timeout := fmt.Errorf("%w: slow write", pkgerrors.ErrTimeout)
	ld.errFor[1] = []error{timeout, timeout}

	svc := NewService(ex, ld, testLogger(t))
	summary, err := svc.Run(context.Background(), domain.Scope{Kind: domain.ScopeAll})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", summary)
	}
}

func TestRunAllConcurrentScopes(t *testing.T) {
	ex := &fakeExtractor{rows: []extractor.Row{viewRow(1, 10)}}
	svc := NewService(ex, newFakeLoader(), testLogger(t))

	scopes := []domain.Scope{
		{Kind: domain.ScopeVendor, VendorID: 268},
		{Kind: domain.ScopeVendor, VendorID: 301},
	}
	summaries, err := svc.RunAll(context.Background(), scopes)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	for i, summary := range summaries {
		if summary.Scope != scopes[i] {
			t.Fatalf("summary %d has scope %v, want %v", i, summary.Scope, scopes[i])
		}
		if summary.Succeeded != 1 {
			t.Fatalf("summary %d: %+v", i, summary)
		}
	}
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScopeKind selects which slice of the relational source a pipeline run
// extracts.
type ScopeKind string

const (
	ScopeAll      ScopeKind = "all"
	ScopeVendor   ScopeKind = "vendor"
	ScopeCategory ScopeKind = "category"
	ScopeUser     ScopeKind = "user"
)

// Scope restricts a pipeline run to all data or to one vendor, category or
// user. Concurrent runs are expected to use disjoint scopes.
type Scope struct {
	Kind       ScopeKind `json:"kind" yaml:"kind"`
	VendorID   int64     `json:"vendor_id,omitempty" yaml:"vendor_id,omitempty"`
	CategoryID int64     `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	UserID     int64     `json:"user_id,omitempty" yaml:"user_id,omitempty"`
}

func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeAll:
		return nil
	case ScopeVendor:
		if s.VendorID <= 0 {
			return fmt.Errorf("vendor scope requires a positive vendor_id")
		}
	case ScopeCategory:
		if s.CategoryID <= 0 {
			return fmt.Errorf("category scope requires a positive category_id")
		}
	case ScopeUser:
		if s.UserID <= 0 {
			return fmt.Errorf("user scope requires a positive user_id")
		}
	default:
		return fmt.Errorf("unknown scope kind %q", s.Kind)
	}
	return nil
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeVendor:
		return fmt.Sprintf("vendor:%d", s.VendorID)
	case ScopeCategory:
		return fmt.Sprintf("category:%d", s.CategoryID)
	case ScopeUser:
		return fmt.Sprintf("user:%d", s.UserID)
	}
	return string(ScopeAll)
}

// RunSummary is the aggregate outcome of one pipeline run. Attempted counts
// every extracted row; rows that failed validation or loading are counted in
// Failed and logged with their identifying keys, never silently dropped.
type RunSummary struct {
	RunID      uuid.UUID `json:"run_id"`
	Scope      Scope     `json:"scope"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

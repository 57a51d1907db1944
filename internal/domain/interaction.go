package domain

import (
	"time"
)

// ActionKind is the behavioral signal recorded by the relational source.
type ActionKind string

const (
	ActionView   ActionKind = "view"
	ActionBuy    ActionKind = "buy"
	ActionSearch ActionKind = "search"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionView, ActionBuy, ActionSearch:
		return true
	}
	return false
}

// RelType maps the action kind to the interaction relationship written to
// the graph.
func (k ActionKind) RelType() string {
	switch k {
	case ActionView:
		return "VIEWED"
	case ActionBuy:
		return "BOUGHT"
	case ActionSearch:
		return "SEARCHED"
	}
	return ""
}

// Interaction is the canonical, validated form of one behavioral fact.
// ProductID and CategoryID are required for views and buys; search records
// may carry neither (the search never resolved to a product).
type Interaction struct {
	UserID     int64
	ProductID  *int64
	CategoryID *int64
	VendorID   *int64
	Action     ActionKind

	// Optional display attributes merged onto nodes when present.
	UserName     string
	ProductName  string
	CategoryName string
	VendorName   string

	// OccurredAt is carried onto the interaction edge when the source row
	// has a timestamp. Ordering queries fall back to insertion order when
	// it is absent.
	OccurredAt *time.Time
}

// Ranked is one entry of an ordered recommendation result: the entity's
// natural key plus its score or count.
type Ranked struct {
	ID    int64 `json:"id"`
	Score int64 `json:"score"`
}

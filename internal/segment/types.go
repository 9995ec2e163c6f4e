// Package segment provides the core logic for customer segmentation.
// It defines the customer record shape, the declarative criteria used to
// describe a segment, a deterministic predicate evaluator, and the aggregate
// statistics derived from a matched subset.
package segment

import "time"

// Status is the lifecycle stage of a customer record.
type Status string

// The closed set of customer statuses. Criteria referencing any other value
// simply never match.
const (
	StatusLead     Status = "lead"
	StatusProspect Status = "prospect"
	StatusCustomer Status = "customer"
	StatusVIP      Status = "vip"
	StatusInactive Status = "inactive"
)

// Customer is the segmentable entity. It carries attributes only; all
// behavior lives in the evaluator and aggregator functions.
type Customer struct {
	// ID is the unique identifier of the record.
	ID string `json:"id"`

	// Display attributes. They never participate in matching but are
	// returned by the members listing so the UI can render the subset.
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Status is the lifecycle stage (lead, prospect, customer, vip, inactive).
	Status Status `json:"status"`

	// Source is the free-form acquisition channel label (e.g. "referral").
	Source string `json:"source"`

	// Tags is a set of free-form labels attached to the record.
	Tags []string `json:"tags"`

	// TotalOrders is the number of orders placed. Never negative.
	TotalOrders int `json:"total_orders"`

	// TotalSpent is the cumulative amount spent. Never negative.
	TotalSpent float64 `json:"total_spent"`

	// LifetimeValue is the projected value of the relationship. It is not
	// necessarily equal to TotalSpent.
	LifetimeValue float64 `json:"lifetime_value"`

	// LeadScore is the qualification score, typically within 0-100.
	LeadScore float64 `json:"lead_score"`

	// CreatedAt is always present.
	CreatedAt time.Time `json:"created_at"`

	// LastContactAt is nil when the customer has never been contacted.
	LastContactAt *time.Time `json:"last_contact_at,omitempty"`
}

// Criteria is the declarative description of a segment. Every field is
// optional: a nil/empty field imposes no constraint on that dimension, so the
// zero value matches every customer.
//
// Documented policy choices:
//   - All numeric and date bounds are inclusive.
//   - Tags use intersection-nonempty (OR) semantics: a customer matches if it
//     carries any of the listed tags.
//   - A customer with no LastContactAt is never evaluated against the
//     lastContact bounds and therefore passes them by default. This mirrors
//     the product's historical behavior; see DESIGN.md.
type Criteria struct {
	Status []Status `json:"status,omitempty"`
	Source []string `json:"source,omitempty"`
	Tags   []string `json:"tags,omitempty"`

	MinSpent *float64 `json:"min_spent,omitempty"`
	MaxSpent *float64 `json:"max_spent,omitempty"`

	MinOrders *int `json:"min_orders,omitempty"`
	MaxOrders *int `json:"max_orders,omitempty"`

	MinLeadScore *float64 `json:"min_lead_score,omitempty"`
	MaxLeadScore *float64 `json:"max_lead_score,omitempty"`

	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`

	LastContactAfter  *time.Time `json:"last_contact_after,omitempty"`
	LastContactBefore *time.Time `json:"last_contact_before,omitempty"`
}

// Rule is the capability shared by catalog segments and built-in quick
// segments, so the selection coordinator and the API can operate on both
// uniformly without type switches.
type Rule interface {
	// Ref is the stable reference of the rule: the segment's uuid for
	// catalog segments, or a "quick:<slug>" sentinel for built-ins.
	Ref() string

	// DisplayName is the human-readable name of the rule.
	DisplayName() string

	// CriteriaAt materializes the rule's criteria relative to the given
	// time. Catalog segments ignore the argument; built-ins with relative
	// date windows (e.g. "last 30 days") anchor them on it.
	CriteriaAt(now time.Time) Criteria
}

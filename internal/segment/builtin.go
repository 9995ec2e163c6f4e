package segment

import (
	"strings"
	"time"
)

// quickRefPrefix namespaces built-in rule references so they can never
// collide with catalog segment ids.
const quickRefPrefix = "quick:"

// recentWindow is the lookback used by the time-relative quick segments.
const recentWindow = 30 * 24 * time.Hour

// BuiltinRule is a fixed, read-only quick segment. It has no persisted id and
// no cached aggregate: statistics are computed live on every access.
type BuiltinRule struct {
	// Slug is the stable, URL-safe identifier of the rule.
	Slug string

	// Name is the display name shown in the UI.
	Name string

	// Description explains who the segment targets.
	Description string

	// criteriaAt materializes the criteria relative to the given time.
	criteriaAt func(now time.Time) Criteria
}

// Ref implements Rule.
func (r BuiltinRule) Ref() string { return quickRefPrefix + r.Slug }

// DisplayName implements Rule.
func (r BuiltinRule) DisplayName() string { return r.Name }

// CriteriaAt implements Rule. Relative date windows (e.g. "last 30 days")
// are anchored on the provided time, so the rule is always live.
func (r BuiltinRule) CriteriaAt(now time.Time) Criteria { return r.criteriaAt(now) }

// builtinRules is the fixed template set. Ordering is the display order.
var builtinRules = []BuiltinRule{
	{
		Slug:        "high-value",
		Name:        "High Value Customers",
		Description: "Customers with lifetime value over $10,000",
		criteriaAt: func(time.Time) Criteria {
			return Criteria{MinSpent: ptr(10000.0)}
		},
	},
	{
		Slug:        "vip",
		Name:        "VIP Customers",
		Description: "Customers marked as VIP",
		criteriaAt: func(time.Time) Criteria {
			return Criteria{Status: []Status{StatusVIP}}
		},
	},
	{
		Slug:        "recent",
		Name:        "Recent Customers",
		Description: "Customers created in the last 30 days",
		criteriaAt: func(now time.Time) Criteria {
			return Criteria{CreatedAfter: ptr(now.Add(-recentWindow))}
		},
	},
	{
		Slug:        "at-risk",
		Name:        "At Risk Customers",
		Description: "Customers with high lead score but no recent contact",
		criteriaAt: func(now time.Time) Criteria {
			return Criteria{
				MinLeadScore:      ptr(70.0),
				LastContactBefore: ptr(now.Add(-recentWindow)),
			}
		},
	},
	{
		Slug:        "frequent-buyers",
		Name:        "Frequent Buyers",
		Description: "Customers with 5+ orders",
		criteriaAt: func(time.Time) Criteria {
			return Criteria{MinOrders: ptr(5)}
		},
	},
}

// BuiltinRules returns the fixed quick segment set in display order.
// The returned slice is a copy; callers may not mutate the templates.
func BuiltinRules() []BuiltinRule {
	out := make([]BuiltinRule, len(builtinRules))
	copy(out, builtinRules)
	return out
}

// FindBuiltin looks up a quick segment by slug.
func FindBuiltin(slug string) (BuiltinRule, bool) {
	for _, r := range builtinRules {
		if r.Slug == slug {
			return r, true
		}
	}
	return BuiltinRule{}, false
}

// FindBuiltinByRef looks up a quick segment by its full "quick:<slug>"
// reference. Returns false for refs outside the quick namespace.
func FindBuiltinByRef(ref string) (BuiltinRule, bool) {
	slug, ok := strings.CutPrefix(ref, quickRefPrefix)
	if !ok {
		return BuiltinRule{}, false
	}
	return FindBuiltin(slug)
}

// IsQuickRef reports whether ref addresses the built-in quick segment
// namespace, whether or not such a rule exists.
func IsQuickRef(ref string) bool {
	return strings.HasPrefix(ref, quickRefPrefix)
}

// ptr is a small helper for criteria literals.
func ptr[T any](v T) *T { return &v }

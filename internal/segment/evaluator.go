package segment

import "slices"

// Matches reports whether the customer satisfies every present criteria
// field. It is pure and total: the same (customer, criteria) pair always
// yields the same result, and well-formed input never panics.
//
// Absent fields contribute no constraint, so the conjunction over zero
// present fields is true and the zero Criteria matches everyone.
func Matches(c Customer, cr Criteria) bool {
	if len(cr.Status) > 0 && !slices.Contains(cr.Status, c.Status) {
		return false
	}

	if len(cr.Source) > 0 && !slices.Contains(cr.Source, c.Source) {
		return false
	}

	// OR semantics across requested tags: one shared tag is enough.
	if len(cr.Tags) > 0 && !intersects(c.Tags, cr.Tags) {
		return false
	}

	if cr.MinSpent != nil && c.TotalSpent < *cr.MinSpent {
		return false
	}
	if cr.MaxSpent != nil && c.TotalSpent > *cr.MaxSpent {
		return false
	}

	if cr.MinOrders != nil && c.TotalOrders < *cr.MinOrders {
		return false
	}
	if cr.MaxOrders != nil && c.TotalOrders > *cr.MaxOrders {
		return false
	}

	if cr.MinLeadScore != nil && c.LeadScore < *cr.MinLeadScore {
		return false
	}
	if cr.MaxLeadScore != nil && c.LeadScore > *cr.MaxLeadScore {
		return false
	}

	// CreatedAt is always set; bounds are inclusive on both ends.
	if cr.CreatedAfter != nil && c.CreatedAt.Before(*cr.CreatedAfter) {
		return false
	}
	if cr.CreatedBefore != nil && c.CreatedAt.After(*cr.CreatedBefore) {
		return false
	}

	// A customer with no recorded contact passes the lastContact bounds by
	// default (documented policy choice, see Criteria).
	if c.LastContactAt != nil {
		if cr.LastContactAfter != nil && c.LastContactAt.Before(*cr.LastContactAfter) {
			return false
		}
		if cr.LastContactBefore != nil && c.LastContactAt.After(*cr.LastContactBefore) {
			return false
		}
	}

	return true
}

// Filter returns the ordered sub-sequence of records matching the criteria.
// Input order is preserved and no deduplication is performed; records are
// assumed unique by ID already.
func Filter(records []Customer, cr Criteria) []Customer {
	matched := make([]Customer, 0, len(records))
	for _, c := range records {
		if Matches(c, cr) {
			matched = append(matched, c)
		}
	}
	return matched
}

// intersects reports whether the two label sets share at least one element.
func intersects(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

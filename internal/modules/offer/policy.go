// README: Offer selection when several offers are valid on the same date.
package offer

import "time"

// Select returns the offer applied on date at, or nil. The highest discount
// wins; ties go to the earliest start, then the lowest id, so the result does
// not depend on input order.
func Select(offers []Offer, at time.Time) *Offer {
	var best *Offer
	for i := range offers {
		o := &offers[i]
		if !o.ValidOn(at) {
			continue
		}
		if best == nil || better(o, best) {
			best = o
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func better(a, b *Offer) bool {
	if c := a.DiscountPercent.Cmp(b.DiscountPercent); c != 0 {
		return c > 0
	}
	if !a.StartsOn.Equal(b.StartsOn) {
		return a.StartsOn.Before(b.StartsOn)
	}
	return a.ID < b.ID
}

package domain

import "strings"

func (g GaugeMetrics) Validate() error {
	for _, v := range []*int64{g.ImportedCustomers, g.CertifiedCustomers, g.TodayCoverage, g.TodayReplies} {
		if v != nil && *v < 0 {
			return ErrNegativeCount
		}
	}
	return nil
}

// Normalize trims the free-text labels.
func (f PerformanceFields) Normalize() PerformanceFields {
	f.Branch = strings.TrimSpace(f.Branch)
	f.Product = strings.TrimSpace(f.Product)
	return f
}

func (f PerformanceFields) Validate() error {
	for _, amount := range f.Amounts() {
		if err := amount.validate(); err != nil {
			return err
		}
	}
	if f.CreditCard < 0 {
		return ErrNegativeCount
	}
	return nil
}

func (f OpportunityFields) Normalize() OpportunityFields {
	f.Category = strings.TrimSpace(f.Category)
	return f
}

func (f OpportunityFields) Validate() error {
	if f.Category == "" {
		return ErrInvalidCategory
	}
	if f.Count < 0 {
		return ErrNegativeCount
	}
	return nil
}

// Validate checks that a non-zero range is ordered.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return ErrInvalidRange
	}
	return nil
}

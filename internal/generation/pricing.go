package generation

import (
	"strings"

	"mediagen/internal/domain"
)

// PriceFor returns what a request at resolution costs. Unknown resolutions
// fall back to the base price.
func (e Entry) PriceFor(resolution string) int {
	if p, ok := e.Prices[strings.ToUpper(strings.TrimSpace(resolution))]; ok {
		return p
	}
	return e.Price
}

// Price looks up the price of model at resolution.
func (r *Registry) Price(model, resolution string) (int, error) {
	e, err := r.Lookup(model)
	if err != nil {
		return 0, err
	}
	return e.PriceFor(resolution), nil
}

// settlementCost trusts the stored cost and only consults the price table for
// legacy jobs created before cost was persisted.
func (r *Registry) settlementCost(job domain.Job) (int, error) {
	if cost, ok := job.Cost.Get(); ok {
		return cost, nil
	}
	return r.Price(job.Model, job.Resolution)
}

// rewardFor is the amount credited to a parent author when a remix completes.
// nanobanana-pro pays 3, or 2 at its 2K price point; everything else pays 1.
func rewardFor(model string, cost int) int {
	if model != "nanobanana-pro" {
		return 1
	}
	if cost == 10 {
		return 2
	}
	return 3
}

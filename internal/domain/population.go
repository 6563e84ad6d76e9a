package domain

import "context"

// PopulationLookup resolves a location identifier to its population so the
// summary can report per-100k incidence. The second return is false when the
// registry has no entry for the location; that is not an error.
type PopulationLookup interface {
	Population(ctx context.Context, location string) (float64, bool, error)
}

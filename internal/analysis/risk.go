package analysis

import (
	"fmt"
	"slices"
)

// RiskStratum is the mortality risk profile of one age band. Counts are nil
// when the band was not reported; the case fatality rate is nil when cases
// are zero or unreported; relative risk is nil when the reference band's CFR
// is undefined or zero.
type RiskStratum struct {
	AgeBand      string   `json:"age_band"`
	CaseCount    *float64 `json:"case_count,omitempty"`
	DeathCount   *float64 `json:"death_count,omitempty"`
	CFR          *float64 `json:"case_fatality_rate,omitempty"`
	RelativeRisk *float64 `json:"relative_risk,omitempty"`
}

// RiskStratifier computes per-band case fatality rates and risk relative to
// a reference band. Bands is the canonical band set: every configured band
// appears in the output even when its counts are missing, so consumers see a
// complete age-band set rather than silently dropped rows.
type RiskStratifier struct {
	Bands         []string
	ReferenceBand string
}

// NewRiskStratifier validates that the reference band belongs to the band set.
func NewRiskStratifier(bands []string, referenceBand string) (*RiskStratifier, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: empty age band set", ErrInvalidParameter)
	}
	if !slices.Contains(bands, referenceBand) {
		return nil, fmt.Errorf("%w: %q not in configured bands", ErrUnknownBand, referenceBand)
	}
	return &RiskStratifier{Bands: slices.Clone(bands), ReferenceBand: referenceBand}, nil
}

// Stratify returns one stratum per configured band, in configuration order.
// Bands present in the input but absent from the configured set are appended
// in sorted order so no reported data is dropped.
func (s *RiskStratifier) Stratify(cases, deaths map[string]float64) []RiskStratum {
	bands := slices.Clone(s.Bands)
	var extra []string
	for band := range cases {
		if !slices.Contains(bands, band) {
			extra = append(extra, band)
		}
	}
	for band := range deaths {
		if !slices.Contains(bands, band) && !slices.Contains(extra, band) {
			extra = append(extra, band)
		}
	}
	slices.Sort(extra)
	bands = append(bands, extra...)

	refCFR := bandCFR(cases, deaths, s.ReferenceBand)

	strata := make([]RiskStratum, 0, len(bands))
	for _, band := range bands {
		st := RiskStratum{AgeBand: band}
		if c, ok := cases[band]; ok {
			st.CaseCount = &c
		}
		if d, ok := deaths[band]; ok {
			st.DeathCount = &d
		}
		st.CFR = bandCFR(cases, deaths, band)
		if st.CFR != nil && refCFR != nil && *refCFR > 0 {
			rr := *st.CFR / *refCFR
			st.RelativeRisk = &rr
		}
		strata = append(strata, st)
	}
	return strata
}

// bandCFR returns deaths/cases for a band, or nil when either count is
// missing or cases are zero. Never zero-by-convention, never infinite.
func bandCFR(cases, deaths map[string]float64, band string) *float64 {
	c, okC := cases[band]
	d, okD := deaths[band]
	if !okC || !okD || c <= 0 {
		return nil
	}
	cfr := d / c
	return &cfr
}

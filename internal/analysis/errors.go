package analysis

import "errors"

// Errors fall into two groups. Parameter errors (ErrInvalidWindow,
// ErrInvalidParameter, ErrUnknownMethod, ErrUnknownBand) indicate a caller
// programming error and are fatal for a whole batch. Data errors
// (ErrInsufficientHistory, ErrInsufficientSample, ErrZeroVariance) describe a
// single series that cannot support the requested computation and are
// reported per location alongside successful results.
var (
	// ErrInvalidWindow is returned when a smoothing window is non-positive
	// or longer than the series it is applied to.
	ErrInvalidWindow = errors.New("invalid smoothing window")

	// ErrInvalidParameter is returned for malformed analysis parameters
	// such as a non-positive threshold multiplier or generation interval.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnknownMethod is returned for an unrecognized correlation method.
	ErrUnknownMethod = errors.New("unknown correlation method")

	// ErrUnknownBand is returned when the reference age band is not part of
	// the configured band set.
	ErrUnknownBand = errors.New("unknown reference age band")

	// ErrInsufficientHistory is returned when a series is too short for the
	// requested estimate.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrInsufficientSample is returned when fewer than two paired
	// observations remain after date matching.
	ErrInsufficientSample = errors.New("insufficient paired sample")

	// ErrZeroVariance is returned when a paired series is constant, leaving
	// the correlation coefficient undefined.
	ErrZeroVariance = errors.New("zero variance in paired series")
)

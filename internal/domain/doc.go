// Package domain models daily epidemiological observations and the
// structured analysis results derived from them.
//
// # Data Source
//
// Observations originate from public surveillance feeds (Our World in Data
// style exports). The upstream collector service fetches them on a cron
// schedule, deduplicates rows by (location, date), and publishes each row as
// flat JSON to the Kafka source topic. The engine validates the invariants
// it depends on but does not deduplicate.
//
// # Conventions
//
// Dates:
//
//	ISO calendar dates ("2020-03-01") interpreted as UTC midnight. A
//	location's series must have strictly increasing unique dates; gaps in
//	the calendar are allowed and handled by the analysis gap policy.
//
// Counts:
//
//	new_cases and new_deaths are daily increments and may be null when a
//	jurisdiction did not report that day. Null is distinct from zero: a
//	zero means "reported none", null means "did not report". Negative
//	daily values (retroactive corrections) are nulled during cleaning, so
//	after cleaning a daily count is either null or non-negative.
//	cumulative_cases and cumulative_deaths must be non-decreasing within a
//	location; a decrease fails the location with a data quality error.
//
// Age bands:
//
//	cases_by_age and deaths_by_age map band labels (such as "0-17",
//	"18-49", "50-64", "65+") to daily counts. Bands are summed across the
//	series before risk stratification.
//
// # Result Keys
//
// Analysis results are keyed by location on the sink topic. The key is
// deterministic, so reprocessing the same observations is replay-safe
// downstream (ON CONFLICT DO NOTHING semantics at the consumer).
package domain

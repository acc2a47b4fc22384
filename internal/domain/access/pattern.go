// Package access tracks per-record access patterns and derives the
// hot/warm/cool/cold temperature classification that drives cold migration.
package access

import "time"

// Temperature classifies a record by access frequency and recency.
type Temperature int

const (
	Hot Temperature = iota
	Warm
	Cool
	Cold
)

// String returns the lowercase name of the temperature bucket.
func (t Temperature) String() string {
	switch t {
	case Hot:
		return "hot"
	case Warm:
		return "warm"
	case Cool:
		return "cool"
	default:
		return "cold"
	}
}

// Pattern holds the access counters for one record. Temperature and frequency
// are derived on demand, never stored authoritatively.
type Pattern struct {
	RecordID        string
	AccessCount     uint64
	FirstAccessedAt time.Time
	LastAccessedAt  time.Time
}

// Frequency returns accesses per day since the first access. The elapsed span
// is floored at one day so a burst of reads on day one does not diverge.
func (p Pattern) Frequency(now time.Time) float64 {
	days := now.Sub(p.FirstAccessedAt).Hours() / 24
	if days < 1 {
		days = 1
	}
	return float64(p.AccessCount) / days
}

// Classify derives the temperature bucket from an access count and the time
// of the last access. Records never observed classify by recency alone.
func Classify(accessCount uint64, lastAccessedAt, now time.Time) Temperature {
	days := now.Sub(lastAccessedAt).Hours() / 24
	switch {
	case accessCount > 10 && days < 1:
		return Hot
	case accessCount > 5 && days < 7:
		return Warm
	case days < 30:
		return Cool
	default:
		return Cold
	}
}

// Analysis is a snapshot of how many tracked records fall in each bucket.
type Analysis struct {
	Hot   int `json:"hot"`
	Warm  int `json:"warm"`
	Cool  int `json:"cool"`
	Cold  int `json:"cold"`
	Total int `json:"total_patterns"`
}

package proctoring

// Severity buckets a violation count for reporting.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityFor maps a total violation count to its bucket.
func SeverityFor(total int) Severity {
	switch {
	case total <= 0:
		return SeverityNone
	case total <= 2:
		return SeverityLow
	case total <= 5:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

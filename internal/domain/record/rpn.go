package record

// Risk band names shared by both classification schemes.
const (
	BandCritical = "Critical"
	BandHigh     = "High"
	BandMedium   = "Medium"
	BandLow      = "Low"
)

// RPN is the risk priority number: severity * occurrence * detection.
// Every write path and every preview goes through this one function so the
// stored value and the live form value can never diverge.
func RPN(severity, occurrence, detection int) int {
	return severity * occurrence * detection
}

// BadgeBand is the per-record four band scheme used on record badges.
func BadgeBand(rpn int) string {
	switch {
	case rpn >= 200:
		return BandCritical
	case rpn >= 100:
		return BandHigh
	case rpn >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

// DashboardBand is the three band scheme behind the dashboard counters. It
// uses different cut points than BadgeBand and has no Critical bucket. The
// two schemes are kept as separate functions on purpose: the divergence is
// shipped behavior, pending a product decision on which rule is right.
func DashboardBand(rpn int) string {
	switch {
	case rpn >= 100:
		return BandHigh
	case rpn >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

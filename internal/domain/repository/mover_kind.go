package repository

// MoverKind selects which side of the anomaly report to list.
type MoverKind string

const (
	MoverDeal MoverKind = "deal"
	MoverHike MoverKind = "hike"
)

// DefaultMoversLimit matches the number of cards per column on the dashboard.
const DefaultMoversLimit = 30

// IsValidMoverKind returns true if k is a supported kind.
func IsValidMoverKind(k MoverKind) bool {
	switch k {
	case MoverDeal, MoverHike:
		return true
	default:
		return false
	}
}

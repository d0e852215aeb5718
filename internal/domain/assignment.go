package domain

import (
	"fmt"
	"sort"
)

// ClusterCenter is a cluster centroid expressed in raw feature units.
// Cluster IDs come from the fitted model and carry no intrinsic order.
type ClusterCenter struct {
	ClusterID  int     `json:"cluster_id"`
	RainfallMM float64 `json:"rainfall_mm"`
	ElevationM float64 `json:"elevation_m"`
}

// LabeledCenter pairs a centroid with its assigned risk category.
type LabeledCenter struct {
	ClusterCenter
	Category RiskCategory `json:"category"`
}

// RiskAssignment is the immutable cluster-to-category mapping derived from
// a fitted model. Build it once per loaded model; lookups are read-only and
// safe for unlimited concurrent callers.
type RiskAssignment struct {
	byCluster map[int]RiskCategory
	ordered   []LabeledCenter
}

// BuildAssignment maps every cluster to a risk category by elevation order:
// the lowest-elevation cluster gets the most severe category, because low
// ground floods first. Ties on elevation break by ascending cluster ID so
// the result is deterministic for any input order.
func BuildAssignment(centers []ClusterCenter, scale SeverityScale) (*RiskAssignment, error) {
	if len(centers) == 0 {
		return nil, fmt.Errorf("build assignment: no cluster centers: %w", ErrModelUnavailable)
	}

	seen := make(map[int]bool, len(centers))
	for _, c := range centers {
		if seen[c.ClusterID] {
			return nil, fmt.Errorf("build assignment: duplicate cluster id %d: %w", c.ClusterID, ErrModelUnavailable)
		}
		seen[c.ClusterID] = true
	}

	sorted := make([]ClusterCenter, len(centers))
	copy(sorted, centers)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ElevationM != sorted[j].ElevationM {
			return sorted[i].ElevationM < sorted[j].ElevationM
		}
		return sorted[i].ClusterID < sorted[j].ClusterID
	})

	a := &RiskAssignment{
		byCluster: make(map[int]RiskCategory, len(sorted)),
		ordered:   make([]LabeledCenter, len(sorted)),
	}
	for i, c := range sorted {
		category := scale.CategoryAt(i)
		a.byCluster[c.ClusterID] = category
		a.ordered[i] = LabeledCenter{ClusterCenter: c, Category: category}
	}
	return a, nil
}

// Category returns the risk category assigned to a cluster ID.
func (a *RiskAssignment) Category(clusterID int) (RiskCategory, bool) {
	c, ok := a.byCluster[clusterID]
	return c, ok
}

// Centers returns the labeled centers in elevation order, most severe
// first. The returned slice is a copy; callers may reorder it freely.
func (a *RiskAssignment) Centers() []LabeledCenter {
	out := make([]LabeledCenter, len(a.ordered))
	copy(out, a.ordered)
	return out
}

// Size returns the number of clusters in the assignment.
func (a *RiskAssignment) Size() int {
	return len(a.ordered)
}

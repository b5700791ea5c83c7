package publish

import (
	"fmt"

	"github.com/plugdex/plugdex/pkg/market"
)

// CheckConsistency verifies the cross-stage completeness rule: every
// discovered repository either appears in the aggregate or carries
// exactly one drop with an acceptable reason. Returned strings describe
// the violations; an empty slice means the run reconciles.
func CheckConsistency(discovered []market.DiscoveredRepo, agg *market.Aggregate) []string {
	present := make(map[string]bool)
	for _, a := range agg.Authors {
		for _, m := range a.Marketplaces {
			present[m.RepoFullName] = true
		}
	}

	dropCount := make(map[string]int)
	dropReason := make(map[string]string)
	for _, d := range agg.DroppedRepos {
		dropCount[d.FullName]++
		dropReason[d.FullName] = d.Reason
	}

	var violations []string
	for _, d := range discovered {
		switch {
		case present[d.FullName]:
			if dropCount[d.FullName] > 0 {
				violations = append(violations,
					fmt.Sprintf("%s: both published and dropped (%s)", d.FullName, dropReason[d.FullName]))
			}
		case dropCount[d.FullName] == 0:
			violations = append(violations,
				fmt.Sprintf("%s: neither published nor dropped", d.FullName))
		case dropCount[d.FullName] > 1:
			violations = append(violations,
				fmt.Sprintf("%s: dropped %d times", d.FullName, dropCount[d.FullName]))
		case !market.AcceptableDrop(dropReason[d.FullName]):
			violations = append(violations,
				fmt.Sprintf("%s: dropped for unacceptable reason %q", d.FullName, dropReason[d.FullName]))
		}
	}
	return violations
}

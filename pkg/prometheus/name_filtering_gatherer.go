package prometheus

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type nameFilteringGatherer struct {
	base        prometheus.Gatherer
	namePattern *regexp.Regexp
}

// NewNameFilteringGatherer creates a decorator for Gatherer that only
// returns metric families whose name matches a regular expression.
// This can be used to limit the metrics that are pushed to a
// Prometheus Pushgateway to the ones describing a transfer.
func NewNameFilteringGatherer(base prometheus.Gatherer, namePattern *regexp.Regexp) prometheus.Gatherer {
	return &nameFilteringGatherer{
		base:        base,
		namePattern: namePattern,
	}
}

func (g *nameFilteringGatherer) Gather() ([]*dto.MetricFamily, error) {
	families, err := g.base.Gather()
	filteredFamilies := families[:0]
	for _, family := range families {
		if g.namePattern.MatchString(family.GetName()) {
			filteredFamilies = append(filteredFamilies, family)
		}
	}
	// Gatherers may return partial results along with an error.
	return filteredFamilies, err
}

// Package mock contains gomock stubs for the interfaces declared by
// this repository. Regenerate them by running "go generate ./...".
package mock

//go:generate go run go.uber.org/mock/mockgen -destination blockdevice.go -package mock -mock_names BlockDevice=MockBlockDevice github.com/buildbarn/bb-zone-writer/pkg/blockdevice BlockDevice
//go:generate go run go.uber.org/mock/mockgen -destination clock.go -package mock -mock_names Clock=MockClock github.com/buildbarn/bb-zone-writer/pkg/clock Clock
//go:generate go run go.uber.org/mock/mockgen -destination zbc.go -package mock -mock_names Device=MockDevice,ZoneMetadataStore=MockZoneMetadataStore github.com/buildbarn/bb-zone-writer/pkg/zbc Device,ZoneMetadataStore
//go:generate go run go.uber.org/mock/mockgen -destination prometheus.go -package mock -mock_names Gatherer=MockPrometheusGatherer github.com/prometheus/client_golang/prometheus Gatherer

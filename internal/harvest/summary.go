package harvest

import (
	"sort"

	"github.com/google/uuid"

	"geospider/pkg/spider"
)

// Summary describes the outcome of one harvest run.
type Summary struct {
	// RunID uniquely identifies the run in logs.
	RunID string

	// Services is the number of successfully harvested services.
	Services int

	// Layers is the total layer count across harvested services.
	Layers int

	// ByProtocol counts harvested services per protocol.
	ByProtocol map[spider.ProtocolType]int

	// Failures is the number of records that could not be harvested.
	Failures int
}

// Summarize builds the run summary for a set of harvested services.
func Summarize(services []spider.Service, failures []Failure) Summary {
	s := Summary{
		RunID:      uuid.NewString(),
		Services:   len(services),
		ByProtocol: make(map[spider.ProtocolType]int),
		Failures:   len(failures),
	}
	for _, svc := range services {
		s.ByProtocol[svc.Protocol]++
		s.Layers += len(svc.Layers)
	}
	return s
}

// Report writes the summary to the logger, one line per protocol in
// deterministic order, then the totals and every failed record.
func (s Summary) Report(logger spider.Logger, failures []Failure) {
	logger.Info("harvest run %s finished", s.RunID)

	protocols := make([]spider.ProtocolType, 0, len(s.ByProtocol))
	for p := range s.ByProtocol {
		protocols = append(protocols, p)
	}
	sort.Slice(protocols, func(i, j int) bool { return protocols[i] < protocols[j] })
	for _, p := range protocols {
		logger.Info("  %s: %d services", p, s.ByProtocol[p])
	}

	logger.Info("harvested %d services with %d layers, %d failures", s.Services, s.Layers, s.Failures)
	for _, f := range failures {
		logger.Error("  failed: %s (%s): %v", f.Record.Title, f.Record.ServiceURL, f.Err)
	}
}

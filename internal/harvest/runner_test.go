package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geospider/internal/capabilities"
	"geospider/internal/logging"
	"geospider/internal/retry"
	"geospider/pkg/spider"
)

func wmsCapabilitiesDoc(layerName string) string {
	return fmt.Sprintf(`<WMS_Capabilities>
		<Service><Title>Service %s</Title></Service>
		<Capability>
			<Layer><Name>%s</Name><Title>%s</Title></Layer>
		</Capability>
	</WMS_Capabilities>`, layerName, layerName, layerName)
}

func newRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	cfg := &spider.HarvestConfig{}
	cfg.ApplyDefaults()
	executor := retry.NewExecutor(
		retry.NewHTTPErrorClassifier(),
		retry.NewExponentialBackoff(0, retry.WithInitialDelay(time.Millisecond)),
	)
	fetcher := capabilities.NewFetcher(cfg, logging.NewNullLogger(), capabilities.WithExecutor(executor))
	return NewRunner(fetcher, workers, logging.NewNullLogger())
}

func TestRun_RestoresCatalogOrderDespiteConcurrency(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// The first record responds slowest so worker completion order inverts
	// the catalog order.
	delays := []time.Duration{30 * time.Millisecond, 15 * time.Millisecond, 0}
	var records []spider.MetadataRecord
	for i, delay := range delays {
		name := fmt.Sprintf("layer_%d", i)
		mux.HandleFunc("/"+name, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			fmt.Fprint(w, wmsCapabilitiesDoc(name))
		})
		records = append(records, spider.MetadataRecord{
			Identifier: name,
			Title:      name,
			ServiceURL: srv.URL + "/" + name,
			Protocol:   spider.ProtocolWMS,
			Seq:        i,
		})
	}

	services, failures := newRunner(t, 3).Run(context.Background(), records)

	require.Empty(t, failures)
	require.Len(t, services, 3)
	for i, svc := range services {
		assert.Equal(t, fmt.Sprintf("layer_%d", i), svc.Layers[0].Name)
	}
}

func TestRun_FailureIsolatedFromOtherRecords(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, wmsCapabilitiesDoc("good_layer"))
	})
	mux.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	records := []spider.MetadataRecord{
		{Identifier: "a", Title: "A", ServiceURL: srv.URL + "/bad", Protocol: spider.ProtocolWMS, Seq: 0},
		{Identifier: "b", Title: "B", ServiceURL: srv.URL + "/good", Protocol: spider.ProtocolWMS, Seq: 1},
	}

	services, failures := newRunner(t, 2).Run(context.Background(), records)

	require.Len(t, services, 1)
	assert.Equal(t, "good_layer", services[0].Layers[0].Name)
	require.Len(t, failures, 1)
	assert.Equal(t, "a", failures[0].Record.Identifier)
	assert.ErrorIs(t, failures[0].Err, spider.ErrServiceUnreachable)
}

func TestRun_SecuredEndpointSkippedWithoutFailure(t *testing.T) {
	records := []spider.MetadataRecord{
		{Identifier: "s", Title: "S", ServiceURL: "https://secure.example.com/wms", Protocol: spider.ProtocolWMS},
	}

	services, failures := newRunner(t, 1).Run(context.Background(), records)

	assert.Empty(t, services)
	assert.Empty(t, failures)
}

func TestRun_UnsupportedProtocolIsFailure(t *testing.T) {
	records := []spider.MetadataRecord{
		{Identifier: "atom", Title: "Atom feed", ServiceURL: "https://example.com/atom", Protocol: spider.ProtocolAtom},
	}

	services, failures := newRunner(t, 1).Run(context.Background(), records)

	assert.Empty(t, services)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, spider.ErrCapabilityParse)
}

func TestSummarize_CountsPerProtocol(t *testing.T) {
	services := []spider.Service{
		{Protocol: spider.ProtocolWMS, Layers: []spider.Layer{{Name: "a"}, {Name: "b"}}},
		{Protocol: spider.ProtocolWMS, Layers: []spider.Layer{{Name: "c"}}},
		{Protocol: spider.ProtocolWFS, Layers: []spider.Layer{{Name: "d"}}},
	}
	failures := []Failure{{Record: spider.MetadataRecord{Identifier: "x"}}}

	s := Summarize(services, failures)

	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 3, s.Services)
	assert.Equal(t, 4, s.Layers)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, 2, s.ByProtocol[spider.ProtocolWMS])
	assert.Equal(t, 1, s.ByProtocol[spider.ProtocolWFS])
}

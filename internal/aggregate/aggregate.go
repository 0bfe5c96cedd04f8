// Package aggregate shapes harvested services into the output modes:
// services, datasets and flat layers.
package aggregate

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"geospider/pkg/spider"
)

// DatasetLookup resolves dataset-level metadata for grouping. Implemented by
// the catalog client.
type DatasetLookup interface {
	DatasetRecord(ctx context.Context, mdID string) (*spider.DatasetRecord, error)
	RecordInfoURL(mdID string) string
}

// ungroupedDatasetTitle names the synthetic bucket for services without a
// dataset identifier under the bucket policy.
const ungroupedDatasetTitle = "ungrouped"

// Services is the services-mode aggregation: the harvested services
// unchanged, one record per service.
func Services(services []spider.Service) []spider.Service {
	return services
}

// Datasets groups services by their dataset metadata identifier and
// resolves dataset titles through the catalog. Dataset order follows the
// first service that referenced each dataset; services keep their harvest
// order within a group. Groups whose dataset record is missing from the
// catalog are dropped (the lookup logs them). The policy decides what
// happens to services without a dataset identifier.
func Datasets(ctx context.Context, services []spider.Service, lookup DatasetLookup, workers int, policy spider.UngroupedPolicy) ([]spider.Dataset, error) {
	var (
		order     []string
		grouped   = make(map[string][]spider.Service)
		ungrouped []spider.Service
	)
	for _, svc := range services {
		id := svc.DatasetMetadataID
		if id == "" {
			if policy == spider.UngroupedBucket {
				ungrouped = append(ungrouped, svc)
			}
			continue
		}
		if _, seen := grouped[id]; !seen {
			order = append(order, id)
		}
		// The dataset id is redundant inside its own group.
		svc.DatasetMetadataID = ""
		grouped[id] = append(grouped[id], svc)
	}

	if workers < 1 {
		workers = 1
	}
	records := make(map[string]*spider.DatasetRecord, len(order))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range order {
		id := id
		g.Go(func() error {
			rec, err := lookup.DatasetRecord(ctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			records[id] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	datasets := make([]spider.Dataset, 0, len(order)+1)
	for _, id := range order {
		rec := records[id]
		if rec == nil {
			continue
		}
		datasets = append(datasets, spider.Dataset{
			Title:      rec.Title,
			Abstract:   rec.Abstract,
			MetadataID: id,
			InfoURL:    lookup.RecordInfoURL(id),
			Services:   grouped[id],
		})
	}
	if len(ungrouped) > 0 {
		datasets = append(datasets, spider.Dataset{
			Title:    ungroupedDatasetTitle,
			Services: ungrouped,
		})
	}
	return datasets, nil
}

// FlattenLayers produces one FlatLayer per unique (protocol, service URL,
// layer name) triple. The first-seen layer wins on field conflicts; dataset
// and service metadata identifiers of later duplicates are unioned into the
// list fields, which are only populated when more than one distinct
// identifier was seen.
func FlattenLayers(services []spider.Service) []spider.FlatLayer {
	var (
		order      []string
		byIdentity = make(map[string]*spider.FlatLayer)
		datasetIDs = make(map[string][]string)
		serviceIDs = make(map[string][]string)
	)

	for _, svc := range services {
		for _, layer := range svc.Layers {
			flat := spider.FlatLayer{
				Layer:             layer,
				ServiceMetadataID: svc.MetadataID,
				ServiceTitle:      svc.Title,
				ServiceAbstract:   svc.Abstract,
				ServiceURL:        svc.URL,
				ServiceProtocol:   svc.Protocol,
			}
			key := flat.Identity()

			if _, seen := byIdentity[key]; !seen {
				order = append(order, key)
				byIdentity[key] = &flat
				if layer.DatasetMetadataID != "" {
					datasetIDs[key] = []string{layer.DatasetMetadataID}
				}
				if svc.MetadataID != "" {
					serviceIDs[key] = []string{svc.MetadataID}
				}
				continue
			}
			// Duplicate identity: only the metadata linkage is merged.
			if id := layer.DatasetMetadataID; id != "" && !contains(datasetIDs[key], id) {
				datasetIDs[key] = append(datasetIDs[key], id)
			}
			if id := svc.MetadataID; id != "" && !contains(serviceIDs[key], id) {
				serviceIDs[key] = append(serviceIDs[key], id)
			}
		}
	}

	result := make([]spider.FlatLayer, 0, len(order))
	for _, key := range order {
		flat := byIdentity[key]
		if ids := datasetIDs[key]; len(ids) > 1 {
			flat.DatasetMetadataIDs = ids
		}
		if ids := serviceIDs[key]; len(ids) > 1 {
			flat.ServiceMetadataIDs = ids
		}
		result = append(result, *flat)
	}
	return result
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

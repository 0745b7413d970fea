// Package search keeps listings searchable in Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
)

const requestTimeout = 3 * time.Second

const indexMapping = `{
  "mappings": {
    "properties": {
      "userRef":      {"type": "keyword"},
      "type":         {"type": "keyword"},
      "name":         {"type": "text"},
      "location":     {"type": "text"},
      "geolocation":  {"type": "geo_point"},
      "offer":        {"type": "boolean"},
      "regularPrice": {"type": "double"},
      "bedrooms":     {"type": "integer"},
      "bathrooms":    {"type": "integer"},
      "timestamp":    {"type": "date"}
    }
  }
}`

// document is the indexed shape of a listing.
type document struct {
	UserRef      string     `json:"userRef"`
	Type         string     `json:"type"`
	Name         string     `json:"name"`
	Location     string     `json:"location"`
	Geolocation  [2]float64 `json:"geolocation"`
	Offer        bool       `json:"offer"`
	RegularPrice float64    `json:"regularPrice"`
	Bedrooms     int        `json:"bedrooms"`
	Bathrooms    int        `json:"bathrooms"`
	Timestamp    time.Time  `json:"timestamp"`
}

func docFrom(l *entity.Listing) document {
	return document{
		UserRef:  l.UserRef,
		Type:     string(l.Type),
		Name:     l.Name,
		Location: l.Location,
		// geo_point arrays are [lon, lat]
		Geolocation:  [2]float64{l.Geolocation.Lng, l.Geolocation.Lat},
		Offer:        l.Offer,
		RegularPrice: l.RegularPrice,
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		Timestamp:    l.Timestamp,
	}
}

type ListingIndex struct {
	ES        *elasticsearch.Client
	IndexName string
	Logger    *logrus.Logger
}

func NewListingIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *ListingIndex {
	return &ListingIndex{ES: es, IndexName: index, Logger: logger}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *ListingIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.IndicesExistsRequest{Index: []string{x.IndexName}}.Do(c, x.ES)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	created, err := helpers.ESDo(c, x.ES, esapi.IndicesCreateRequest{Index: x.IndexName, Body: strings.NewReader(indexMapping)})
	if err != nil {
		return fmt.Errorf("create index %s: %w", x.IndexName, err)
	}
	_ = created.Body.Close()
	if x.Logger != nil {
		x.Logger.WithField("index", x.IndexName).Info("search index created")
	}
	return nil
}

func (x *ListingIndex) Index(ctx context.Context, l *entity.Listing) error {
	b, err := json.Marshal(docFrom(l))
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := helpers.ESDo(c, x.ES, esapi.IndexRequest{Index: x.IndexName, DocumentID: l.ID, Body: bytes.NewReader(b)})
	if err != nil {
		return err
	}
	return res.Body.Close()
}

// Delete removes a listing document; a missing document is not an error.
func (x *ListingIndex) Delete(ctx context.Context, id string) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.DeleteRequest{Index: x.IndexName, DocumentID: id}.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch %s", res.Status())
	}
	return nil
}

func searchBody(q string, size int) ([]byte, error) {
	return json.Marshal(map[string]any{
		"size":    size,
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^2", "location"},
				"fuzziness": "AUTO",
			},
		},
	})
}

// Search returns listing ids ordered by relevance.
func (x *ListingIndex) Search(ctx context.Context, q string, size int) ([]string, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	body, err := searchBody(q, size)
	if err != nil {
		return nil, err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := helpers.ESDo(c, x.ES, esapi.SearchRequest{Index: []string{x.IndexName}, Body: bytes.NewReader(body)})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// IndexAll writes listings through the bulk API and returns the number of
// documents that failed.
func (x *ListingIndex) IndexAll(ctx context.Context, listings []entity.Listing) (int, error) {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     x.ES,
		Index:      x.IndexName,
		NumWorkers: 2,
	})
	if err != nil {
		return 0, err
	}
	for i := range listings {
		l := &listings[i]
		b, err := json.Marshal(docFrom(l))
		if err != nil {
			return 0, err
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: l.ID,
			Body:       bytes.NewReader(b),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err == nil {
					err = fmt.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
				}
				helpers.LogWarn(x.Logger, "bulk index item failed", err, logrus.Fields{"listing_id": item.DocumentID})
			},
		})
		if err != nil {
			return 0, err
		}
	}
	if err := bi.Close(ctx); err != nil {
		return 0, err
	}
	return int(bi.Stats().NumFailed), nil
}

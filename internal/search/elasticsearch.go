package search

import (
	"bytes"
	"context"
	"encoding/json"

	"example.com/dairydesk/services/billing/config"
	"example.com/dairydesk/services/billing/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client. Returns nil when
// indexing is disabled in config; callers treat a nil client as a no-op.
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexBill indexes a bill in Elasticsearch
func (c *ElasticClient) IndexBill(ctx context.Context, bill *models.Bill, customerName, customerPhone string) error {
	log.Debug().Str("bill_id", bill.ID.String()).Msg("indexing bill")

	billDoc := map[string]interface{}{
		"id":              bill.ID.String(),
		"invoice_number":  bill.InvoiceNumber,
		"customer_id":     bill.CustomerID.String(),
		"customer_name":   customerName,
		"customer_phone":  customerPhone,
		"period_start":    bill.PeriodStart,
		"period_end":      bill.PeriodEnd,
		"total_liters":    bill.TotalLiters,
		"price_per_liter": bill.PricePerLiter,
		"total_amount":    bill.TotalAmount,
		"status":          bill.Status,
		"created_at":      bill.CreatedAt,
	}

	docJSON, err := json.Marshal(billDoc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal bill document")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: bill.ID.String(),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	return nil
}

// SearchBills searches for bills with the given criteria
func (c *ElasticClient) SearchBills(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}

	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}

		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		docs = append(docs, source)
	}

	return docs, nil
}

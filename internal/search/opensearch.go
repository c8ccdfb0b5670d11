// internal/search/opensearch.go
package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/collabd/internal/logging"
)

// Config configures the OpenSearch backend client.
type Config struct {
	// Addresses lists cluster node URLs (http or https).
	Addresses []string

	// Username and Password enable basic auth when both are set.
	Username string
	Password string

	// InsecureTLS skips server certificate verification.
	InsecureTLS bool

	// DialTimeout bounds the initial reachability check.
	DialTimeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if len(c.Addresses) == 0 {
		c.Addresses = []string{"http://localhost:9200"}
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

// Validate validates the client configuration.
func (c *Config) Validate() error {
	if len(c.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}
	for _, addr := range c.Addresses {
		if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
			return fmt.Errorf("address %q must start with http:// or https://", addr)
		}
	}
	return nil
}

// OpenSearchBackend implements Backend over the cluster REST API.
type OpenSearchBackend struct {
	client *opensearch.Client
	logger *logging.Logger
}

// NewOpenSearchBackend creates a backend client and verifies reachability.
func NewOpenSearchBackend(cfg *Config, logger *logging.Logger) (*OpenSearchBackend, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	osCfg := opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		// Retry policy belongs to callers; a failed call must surface
		// exactly once.
		DisableRetry: true,
	}
	if cfg.InsecureTLS {
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	b := &OpenSearchBackend{client: client, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	logger.Info(ctx, "connecting to search backend", zap.Strings("addresses", cfg.Addresses))
	if err := b.Ping(ctx); err != nil {
		logger.Error(ctx, "search backend unreachable", zap.Error(err))
		return nil, fmt.Errorf("reachability check failed: %w", err)
	}
	logger.Info(ctx, "search backend connection established")

	return b, nil
}

// Ping checks cluster reachability.
func (b *OpenSearchBackend) Ping(ctx context.Context) error {
	res, err := opensearchapi.PingRequest{}.Do(ctx, b.client)
	if err != nil {
		return transportErr(err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() {
		return fmt.Errorf("%w: ping returned %s", ErrUnavailable, res.Status())
	}
	return nil
}

// IndexExists checks cluster routing state for the index.
func (b *OpenSearchBackend) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := opensearchapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, b.client)
	if err != nil {
		return false, transportErr(err)
	}
	defer drainAndClose(res.Body)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, b.responseErr(res)
	}
}

// CreateIndex creates the index with the given settings/mappings body.
func (b *OpenSearchBackend) CreateIndex(ctx context.Context, index string, body []byte) error {
	res, err := opensearchapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader(body),
	}.Do(ctx, b.client)
	if err != nil {
		return transportErr(err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() {
		return b.responseErr(res)
	}

	var ack struct {
		Acknowledged bool `json:"acknowledged"`
	}
	if err := json.NewDecoder(res.Body).Decode(&ack); err != nil {
		return fmt.Errorf("failed to decode create-index response: %w", err)
	}
	if !ack.Acknowledged {
		return fmt.Errorf("%w: create index %q", ErrNotAcknowledged, index)
	}
	return nil
}

// PutMapping applies an additive mapping update to an existing index.
func (b *OpenSearchBackend) PutMapping(ctx context.Context, index string, body []byte) error {
	res, err := opensearchapi.IndicesPutMappingRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, b.client)
	if err != nil {
		return transportErr(err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() {
		return b.responseErr(res)
	}

	var ack struct {
		Acknowledged bool `json:"acknowledged"`
	}
	if err := json.NewDecoder(res.Body).Decode(&ack); err != nil {
		return fmt.Errorf("failed to decode put-mapping response: %w", err)
	}
	if !ack.Acknowledged {
		return fmt.Errorf("%w: put mapping on %q", ErrNotAcknowledged, index)
	}
	return nil
}

// GetDocument fetches a document by id. Absence returns (nil, nil).
func (b *OpenSearchBackend) GetDocument(ctx context.Context, index, id string) (*Hit, error) {
	res, err := opensearchapi.GetRequest{Index: index, DocumentID: id}.Do(ctx, b.client)
	if err != nil {
		return nil, transportErr(err)
	}
	defer drainAndClose(res.Body)

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, b.responseErr(res)
	}

	var doc struct {
		ID          string          `json:"_id"`
		Version     int64           `json:"_version"`
		SeqNo       int64           `json:"_seq_no"`
		PrimaryTerm int64           `json:"_primary_term"`
		Found       bool            `json:"found"`
		Source      json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode get response: %w", err)
	}
	if !doc.Found {
		return nil, nil
	}

	return &Hit{
		ID:          doc.ID,
		Source:      doc.Source,
		Version:     doc.Version,
		SeqNo:       doc.SeqNo,
		PrimaryTerm: doc.PrimaryTerm,
	}, nil
}

// MultiGetDocuments fetches documents by id, returning only those found.
func (b *OpenSearchBackend) MultiGetDocuments(ctx context.Context, index string, ids []string) ([]Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mget request: %w", err)
	}

	res, err := opensearchapi.MgetRequest{Index: index, Body: bytes.NewReader(body)}.Do(ctx, b.client)
	if err != nil {
		return nil, transportErr(err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() {
		return nil, b.responseErr(res)
	}

	var envelope struct {
		Docs []struct {
			ID          string          `json:"_id"`
			Version     int64           `json:"_version"`
			SeqNo       int64           `json:"_seq_no"`
			PrimaryTerm int64           `json:"_primary_term"`
			Found       bool            `json:"found"`
			Source      json.RawMessage `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode mget response: %w", err)
	}

	hits := make([]Hit, 0, len(envelope.Docs))
	for _, doc := range envelope.Docs {
		if !doc.Found {
			continue
		}
		hits = append(hits, Hit{
			ID:          doc.ID,
			Source:      doc.Source,
			Version:     doc.Version,
			SeqNo:       doc.SeqNo,
			PrimaryTerm: doc.PrimaryTerm,
		})
	}
	return hits, nil
}

// CreateDocument indexes a document with create-only semantics.
func (b *OpenSearchBackend) CreateDocument(ctx context.Context, index, id string, body []byte) (string, error) {
	var res *opensearchapi.Response
	var err error

	if id == "" {
		// No id supplied: the backend assigns one. Auto-ids cannot
		// collide, so a plain index request keeps create-only semantics.
		res, err = opensearchapi.IndexRequest{
			Index:   index,
			Body:    bytes.NewReader(body),
			Refresh: "true",
		}.Do(ctx, b.client)
	} else {
		res, err = opensearchapi.CreateRequest{
			Index:      index,
			DocumentID: id,
			Body:       bytes.NewReader(body),
			Refresh:    "true",
		}.Do(ctx, b.client)
	}
	if err != nil {
		return "", transportErr(err)
	}
	defer drainAndClose(res.Body)

	if res.StatusCode == http.StatusConflict {
		return "", fmt.Errorf("%w: id %q", ErrConflict, id)
	}
	if res.IsError() {
		return "", b.responseErr(res)
	}

	var created struct {
		ID     string `json:"_id"`
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	if created.Result != "created" {
		return "", fmt.Errorf("%w: unexpected create result %q", ErrNotAcknowledged, created.Result)
	}
	return created.ID, nil
}

// DeleteDocument removes a document by id, reporting whether it existed.
func (b *OpenSearchBackend) DeleteDocument(ctx context.Context, index, id string) (bool, error) {
	res, err := opensearchapi.DeleteRequest{
		Index:      index,
		DocumentID: id,
		Refresh:    "true",
	}.Do(ctx, b.client)
	if err != nil {
		return false, transportErr(err)
	}
	defer drainAndClose(res.Body)

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, b.responseErr(res)
	}

	var deleted struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&deleted); err != nil {
		return false, fmt.Errorf("failed to decode delete response: %w", err)
	}
	return deleted.Result == "deleted", nil
}

// BulkDeleteDocuments removes documents by id with independent per-id outcomes.
func (b *OpenSearchBackend) BulkDeleteDocuments(ctx context.Context, index string, ids []string) (map[string]BulkResult, error) {
	if len(ids) == 0 {
		return map[string]BulkResult{}, nil
	}

	var buf bytes.Buffer
	for _, id := range ids {
		action := map[string]map[string]string{
			"delete": {"_index": index, "_id": id},
		}
		line, err := json.Marshal(action)
		if err != nil {
			return nil, fmt.Errorf("failed to encode bulk action: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	res, err := opensearchapi.BulkRequest{Body: &buf, Refresh: "true"}.Do(ctx, b.client)
	if err != nil {
		return nil, transportErr(err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() {
		return nil, b.responseErr(res)
	}

	var envelope struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Delete struct {
				ID     string `json:"_id"`
				Result string `json:"result"`
				Status int    `json:"status"`
				Error  *struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"delete"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	results := make(map[string]BulkResult, len(envelope.Items))
	for _, item := range envelope.Items {
		result := BulkResult{
			StatusCode: item.Delete.Status,
			Result:     item.Delete.Result,
		}
		if item.Delete.Error != nil {
			result.Reason = item.Delete.Error.Reason
		}
		results[item.Delete.ID] = result
	}
	return results, nil
}

// Search executes a query body against the index.
func (b *OpenSearchBackend) Search(ctx context.Context, index string, body []byte) (*SearchResponse, error) {
	res, err := opensearchapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, b.client)
	if err != nil {
		return nil, transportErr(err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() {
		return nil, b.responseErr(res)
	}

	var envelope struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value    int64  `json:"value"`
				Relation string `json:"relation"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	out := &SearchResponse{
		TookMillis: envelope.Took,
		Total:      envelope.Hits.Total.Value,
		Relation:   TotalRelation(envelope.Hits.Total.Relation),
		Hits:       make([]Hit, 0, len(envelope.Hits.Hits)),
	}
	if out.Relation == "" {
		out.Relation = TotalEqual
	}
	for _, h := range envelope.Hits.Hits {
		out.Hits = append(out.Hits, Hit{ID: h.ID, Source: h.Source, Score: h.Score})
	}
	return out, nil
}

// responseErr turns a non-2xx response into a classified error.
func (b *OpenSearchBackend) responseErr(res *opensearchapi.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))

	var envelope struct {
		Error struct {
			Type      string `json:"type"`
			Reason    string `json:"reason"`
			RootCause []struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"root_cause"`
		} `json:"error"`
		Status int `json:"status"`
	}

	errType := ""
	reason := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Type != "" {
		errType = envelope.Error.Type
		reason = envelope.Error.Reason
		// The root cause carries the decisive type when the top-level
		// error is a wrapper.
		for _, cause := range envelope.Error.RootCause {
			if cause.Type != "" {
				errType = cause.Type
				if cause.Reason != "" {
					reason = cause.Reason
				}
				break
			}
		}
	}

	switch {
	case errType == "resource_already_exists_exception":
		return fmt.Errorf("%w: %s", ErrIndexExists, reason)
	case errType == "index_not_found_exception":
		return fmt.Errorf("%w: %s", ErrIndexNotFound, reason)
	case errType == "version_conflict_engine_exception" || res.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, reason)
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
		return fmt.Errorf("%w: %s: %s", ErrUnavailable, res.Status(), reason)
	default:
		return fmt.Errorf("backend request failed: %s: %s", res.Status(), reason)
	}
}

// transportErr classifies request transport failures. Context
// cancellation and deadline expiry pass through for the caller's
// timeout handling.
func transportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// drainAndClose consumes the rest of a response body so the transport
// can reuse the connection.
func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

package argus

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
)

// PromRemoteStoreConfig configures the Prometheus remote-read metric store.
type PromRemoteStoreConfig struct {
	// Endpoint is the remote-read URL, e.g. http://prom:9090/api/v1/read.
	Endpoint string

	// Timeout bounds each read request.
	Timeout time.Duration

	// HTTPClient overrides the default client, e.g. for auth transports.
	HTTPClient *http.Client
}

// PromRemoteStore is a MetricStore backed by the Prometheus remote-read
// protocol: snappy-compressed protobuf over HTTP.
type PromRemoteStore struct {
	endpoint string
	client   *http.Client
}

// NewPromRemoteStore creates a remote-read backed metric store.
func NewPromRemoteStore(config PromRemoteStoreConfig) (*PromRemoteStore, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("prom remote store: endpoint is required")
	}
	client := config.HTTPClient
	if client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &PromRemoteStore{endpoint: config.Endpoint, client: client}, nil
}

// QueryRange fetches all samples for metric in [start, end], merged across
// matching series and sorted timestamp-ascending.
func (s *PromRemoteStore) QueryRange(ctx context.Context, metric string, start, end time.Time) (MetricSeries, error) {
	req := &prompb.ReadRequest{
		Queries: []*prompb.Query{{
			StartTimestampMs: start.UnixMilli(),
			EndTimestampMs:   end.UnixMilli(),
			Matchers: []*prompb.LabelMatcher{{
				Type:  prompb.LabelMatcher_EQ,
				Name:  "__name__",
				Value: metric,
			}},
		}},
	}

	data, err := req.Marshal()
	if err != nil {
		return MetricSeries{}, fmt.Errorf("marshal read request: %w", err)
	}
	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(compressed))
	if err != nil {
		return MetricSeries{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Read-Version", "0.1.0")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return MetricSeries{}, fmt.Errorf("remote read %s: %w", metric, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return MetricSeries{}, fmt.Errorf("remote read %s: status %d: %s", metric, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return MetricSeries{}, err
	}
	decoded, err := snappy.Decode(nil, body)
	if err != nil {
		return MetricSeries{}, fmt.Errorf("decompress read response: %w", err)
	}

	var readResp prompb.ReadResponse
	if err := readResp.Unmarshal(decoded); err != nil {
		return MetricSeries{}, fmt.Errorf("unmarshal read response: %w", err)
	}

	series := MetricSeries{Name: metric}
	for _, result := range readResp.Results {
		for _, ts := range result.Timeseries {
			for _, sample := range ts.Samples {
				series.Points = append(series.Points, MetricPoint{
					Timestamp: time.UnixMilli(sample.Timestamp).UTC(),
					Value:     sample.Value,
				})
			}
		}
	}
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Timestamp.Before(series.Points[j].Timestamp)
	})
	return series, nil
}

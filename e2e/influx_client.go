package e2e

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient reads back what the outcome sink wrote during a test run.
type InfluxClient struct {
	org    string
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient connects to a running InfluxDB v2 instance.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{org: org, bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// Ready fails unless the organisation and bucket provisioned by the
// container's init mode are visible.
func (c *InfluxClient) Ready(ctx context.Context) error {
	if _, err := c.client.OrganizationsAPI().FindOrganizationByName(ctx, c.org); err != nil {
		return fmt.Errorf("find org %s: %w", c.org, err)
	}
	if _, err := c.client.BucketsAPI().FindBucketByName(ctx, c.bucket); err != nil {
		return fmt.Errorf("find bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Points returns the rows of measurement written within the last window,
// keyed by field name.
func (c *InfluxClient) Points(ctx context.Context, measurement string, window time.Duration) ([]map[string]any, error) {
	flux := fmt.Sprintf(`from(bucket:%q) |> range(start:-%s) |> filter(fn: (r) => r._measurement == %q)`,
		c.bucket, window, measurement)
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	var rows []map[string]any
	for res.Next() {
		rec := res.Record()
		rows = append(rows, map[string]any{
			"field":     rec.Field(),
			"value":     rec.Value(),
			"objective": rec.ValueByKey("objective"),
			"outcome":   rec.ValueByKey("outcome"),
		})
	}
	return rows, res.Err()
}

// WaitForPoints polls until measurement has at least one row or ctx ends.
func (c *InfluxClient) WaitForPoints(ctx context.Context, measurement string) ([]map[string]any, error) {
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		rows, err := c.Points(ctx, measurement, 5*time.Minute)
		if err == nil && len(rows) > 0 {
			return rows, nil
		}
		select {
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
			return nil, fmt.Errorf("no %s points: %w", measurement, err)
		case <-tick.C:
		}
	}
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }

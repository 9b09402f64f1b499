// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"net/http"
	"time"
)

// DLQStats describes the dead-letter queue.
type DLQStats struct {
	Enabled bool `json:"enabled"`
	Count   int  `json:"count"`
}

// DLQEntry is an action that exhausted its retries.
type DLQEntry struct {
	ActionID   string `json:"action_id"`
	Namespace  string `json:"namespace"`
	Tenant     string `json:"tenant"`
	Provider   string `json:"provider"`
	ActionType string `json:"action_type"`
	Error      string `json:"error"`
	Attempts   uint32 `json:"attempts"`

	// Timestamp is when the entry was created, in Unix seconds.
	Timestamp int64 `json:"timestamp"`
}

// Time converts Timestamp.
func (entry DLQEntry) Time() time.Time {
	return time.Unix(entry.Timestamp, 0).UTC()
}

// DLQStats returns dead-letter queue statistics.
func (client *Client) DLQStats(ctx context.Context) (*DLQStats, error) {
	var stats DLQStats
	err := client.do(ctx, call{
		op:      "dlq stats",
		request: &Request{Method: http.MethodGet, Path: "/v1/dlq/stats"},
		result:  &stats,
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// DrainDLQ removes and returns every dead-letter entry. When the queue
// is disabled the error matches [ErrNotFound].
func (client *Client) DrainDLQ(ctx context.Context) ([]DLQEntry, error) {
	var drained struct {
		Entries []DLQEntry `json:"entries"`
		Count   int        `json:"count"`
	}
	err := client.do(ctx, call{
		op:      "drain dlq",
		request: &Request{Method: http.MethodPost, Path: "/v1/dlq/drain"},
		result:  &drained,
	})
	if err != nil {
		return nil, err
	}
	return drained.Entries, nil
}

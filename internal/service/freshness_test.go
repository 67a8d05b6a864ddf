package service

import (
	"testing"
	"time"
)

func TestFreshnessPolicy_Fresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := FreshnessPolicy{TTL: 24 * time.Hour}

	tests := []struct {
		name      string
		updatedAt time.Time
		want      bool
	}{
		{"just written", now, true},
		{"one hour old", now.Add(-time.Hour), true},
		{"just under the ttl", now.Add(-24*time.Hour + time.Second), true},
		{"exactly the ttl is stale", now.Add(-24 * time.Hour), false},
		{"25 hours old", now.Add(-25 * time.Hour), false},
		{"never fetched", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Fresh(tt.updatedAt, now); got != tt.want {
				t.Errorf("Fresh(%v) = %v, want %v", tt.updatedAt, got, tt.want)
			}
		})
	}
}

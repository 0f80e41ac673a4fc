package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchDeriveStatus(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name      string
		quantity  int64
		expiresAt *time.Time
		want      BatchStatus
	}{
		{"in stock, no expiry", 5, nil, BatchAvailable},
		{"in stock, future expiry", 5, &future, BatchAvailable},
		{"expired with stock left", 5, &past, BatchExpired},
		{"expired exactly now", 5, &now, BatchExpired},
		{"empty, no expiry", 0, nil, BatchSoldOut},
		{"empty and expired", 0, &past, BatchExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Batch{Quantity: tt.quantity, ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, b.DeriveStatus(now))
		})
	}
}

func TestBatchRefresh(t *testing.T) {
	now := time.Now()
	b := Batch{Quantity: 3, Status: BatchSoldOut}
	b.Refresh(now)
	assert.Equal(t, BatchAvailable, b.Status)

	b.Quantity = 0
	b.Refresh(now)
	assert.Equal(t, BatchSoldOut, b.Status)
}

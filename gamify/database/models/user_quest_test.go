package models

import (
	"testing"
	"time"
)

func TestUserQuest_Expired(t *testing.T) {
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{"no expiry", nil, false},
		{"future expiry", &future, false},
		{"past expiry", &past, true},
		{"exactly at expiry", &now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uq := &UserQuest{ExpiresAt: tt.expiresAt}
			if got := uq.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserQuest_ProgressPercentage(t *testing.T) {
	tests := []struct {
		name     string
		progress int
		target   int
		want     float64
	}{
		{"empty", 0, 10, 0},
		{"halfway", 5, 10, 50},
		{"complete", 10, 10, 100},
		{"overshoot capped", 15, 10, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uq := &UserQuest{
				Progress: tt.progress,
				Quest:    &Quest{TargetValue: tt.target},
			}
			if got := uq.ProgressPercentage(); got != tt.want {
				t.Errorf("ProgressPercentage() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("missing quest relation", func(t *testing.T) {
		uq := &UserQuest{Progress: 5}
		if got := uq.ProgressPercentage(); got != 0 {
			t.Errorf("ProgressPercentage() = %v, want 0", got)
		}
	})
}

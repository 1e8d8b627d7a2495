package models

import "testing"

func TestPeriod_Valid(t *testing.T) {
	tests := []struct {
		period Period
		want   bool
	}{
		{PeriodWeekly, true},
		{PeriodMonthly, true},
		{PeriodAllTime, true},
		{"", false},
		{"weekly", false},
		{"DAILY", false},
	}

	for _, tt := range tests {
		if got := tt.period.Valid(); got != tt.want {
			t.Errorf("Period(%q).Valid() = %v, want %v", tt.period, got, tt.want)
		}
	}
}

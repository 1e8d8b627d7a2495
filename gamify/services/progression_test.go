package services

import (
	"context"
	"errors"
	"testing"
)

func TestProgressionService_CreditXP(t *testing.T) {
	tests := []struct {
		name          string
		startXP       int64
		amount        int64
		wantErr       error
		wantXP        int64
		wantLevel     int
		wantLeveledUp bool
	}{
		{
			name:    "rejects zero amount",
			amount:  0,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "rejects negative amount",
			amount:  -10,
			wantErr: ErrInvalidAmount,
		},
		{
			name:      "credit below first boundary",
			amount:    50,
			wantXP:    50,
			wantLevel: 1,
		},
		{
			name:          "credit crossing level boundary",
			startXP:       90,
			amount:        20,
			wantXP:        110,
			wantLevel:     2,
			wantLeveledUp: true,
		},
		{
			name:      "credit within same level",
			startXP:   110,
			amount:    50,
			wantXP:    160,
			wantLevel: 2,
		},
		{
			name:          "large credit skips levels",
			amount:        10000,
			wantXP:        10000,
			wantLevel:     11,
			wantLeveledUp: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeProgressRepo()
			if tt.startXP > 0 {
				if _, err := repo.AddXP(context.Background(), 1, tt.startXP); err != nil {
					t.Fatalf("seed xp: %v", err)
				}
			}
			s := NewProgressionService(repo)

			result, err := s.CreditXP(context.Background(), 1, tt.amount, "test")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreditXP() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreditXP() error = %v", err)
			}
			if result.XP != tt.wantXP {
				t.Errorf("CreditXP() xp = %d, want %d", result.XP, tt.wantXP)
			}
			if result.Level != tt.wantLevel {
				t.Errorf("CreditXP() level = %d, want %d", result.Level, tt.wantLevel)
			}
			if result.LeveledUp != tt.wantLeveledUp {
				t.Errorf("CreditXP() leveledUp = %v, want %v", result.LeveledUp, tt.wantLeveledUp)
			}
			if len(repo.txs) != 1 {
				t.Errorf("CreditXP() audit rows = %d, want 1", len(repo.txs))
			}
		})
	}
}

func TestProgressionService_CreditCoins(t *testing.T) {
	tests := []struct {
		name       string
		startCoins int64
		amount     int64
		wantErr    error
		wantCoins  int64
	}{
		{
			name:    "rejects zero amount",
			amount:  0,
			wantErr: ErrInvalidAmount,
		},
		{
			name:      "credit adds to balance",
			amount:    150,
			wantCoins: 150,
		},
		{
			name:       "debit subtracts from balance",
			startCoins: 200,
			amount:     -50,
			wantCoins:  150,
		},
		{
			name:       "debit to exactly zero",
			startCoins: 50,
			amount:     -50,
			wantCoins:  0,
		},
		{
			name:       "debit exceeding balance",
			startCoins: 30,
			amount:     -50,
			wantErr:    ErrInsufficientBalance,
		},
		{
			name:    "debit for unknown user",
			amount:  -50,
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeProgressRepo()
			if tt.startCoins > 0 {
				if _, err := repo.AddCoins(context.Background(), 1, tt.startCoins); err != nil {
					t.Fatalf("seed coins: %v", err)
				}
			}
			s := NewProgressionService(repo)

			coins, err := s.CreditCoins(context.Background(), 1, tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreditCoins() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreditCoins() error = %v", err)
			}
			if coins != tt.wantCoins {
				t.Errorf("CreditCoins() = %d, want %d", coins, tt.wantCoins)
			}
		})
	}
}

func TestProgressionService_CreditCoins_LifetimeOnlyGrows(t *testing.T) {
	repo := newFakeProgressRepo()
	s := NewProgressionService(repo)
	ctx := context.Background()

	if _, err := s.CreditCoins(ctx, 1, 500); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := s.CreditCoins(ctx, 1, -300); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, err := s.CreditCoins(ctx, 1, 700); err != nil {
		t.Fatalf("credit: %v", err)
	}

	progress, err := s.GetProgress(ctx, 1)
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if progress.Coins != 900 {
		t.Errorf("coins = %d, want 900", progress.Coins)
	}
	if progress.LifetimeCoins != 1200 {
		t.Errorf("lifetime coins = %d, want 1200", progress.LifetimeCoins)
	}
}

func TestProgressionService_GetProgress_NotFound(t *testing.T) {
	s := NewProgressionService(newFakeProgressRepo())

	_, err := s.GetProgress(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProgress() error = %v, want %v", err, ErrNotFound)
	}
}

func TestProgressionService_RecordGameScore(t *testing.T) {
	repo := newFakeProgressRepo()
	s := NewProgressionService(repo)
	ctx := context.Background()

	if err := s.RecordGameScore(ctx, 1, "step_challenge", -1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("RecordGameScore(-1) error = %v, want %v", err, ErrInvalidAmount)
	}

	for _, score := range []int64{300, 800, 500} {
		if err := s.RecordGameScore(ctx, 1, "step_challenge", score); err != nil {
			t.Fatalf("RecordGameScore(%d) error = %v", score, err)
		}
	}

	best, err := repo.GetBestScores(ctx, 1)
	if err != nil {
		t.Fatalf("GetBestScores() error = %v", err)
	}
	if best["step_challenge"] != 800 {
		t.Errorf("best score = %d, want 800", best["step_challenge"])
	}
}

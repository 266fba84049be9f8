package ops

import (
	"context"
	"math"
	"testing"

	"github.com/vidpage/vidpage/internal/errors"
)

func TestProgress_DefaultsToZero(t *testing.T) {
	database := setupDB(t)

	p, err := GetProgress(context.Background(), database, "abc")
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if p.Timestamp != 0 || p.UpdatedAt != "" {
		t.Errorf("progress = %+v, want zero", p)
	}
}

func TestProgress_SetThenGet(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()

	set, err := SetProgress(ctx, database, "abc", 123.5)
	if err != nil {
		t.Fatalf("SetProgress() error = %v", err)
	}
	if set.Timestamp != 123.5 || set.UpdatedAt == "" {
		t.Errorf("SetProgress() = %+v", set)
	}

	got, err := GetProgress(ctx, database, "abc")
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if got.Timestamp != 123.5 {
		t.Errorf("Timestamp = %v, want 123.5", got.Timestamp)
	}
}

func TestSetProgress_Validation(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()

	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := SetProgress(ctx, database, "abc", v); !errors.Is(err, errors.ErrValidation) {
			t.Errorf("SetProgress(%v) error = %v, want VALIDATION", v, err)
		}
	}
	if _, err := SetProgress(ctx, database, " ", 1); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("SetProgress(blank id) error = %v, want VALIDATION", err)
	}
}

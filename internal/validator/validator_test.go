package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/airwaves-fm/stationsearch/internal/domain"
)

type pageParams struct {
	Page  int    `validate:"gte=1"`
	Limit int    `validate:"gte=1,lte=100"`
	Mode  string `validate:"omitempty,oneof=browse search"`
}

func TestValidate(t *testing.T) {
	v := New()

	if err := v.Validate(pageParams{Page: 1, Limit: 24}); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	err := v.Validate(pageParams{Page: 0, Limit: 500, Mode: "shuffle"})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	for _, want := range []string{"Page must be at least 1", "Limit must be at most 100", "Mode must be one of"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(pageParams{Page: 2, Limit: 1}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

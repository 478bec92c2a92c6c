package core

import (
	"errors"
	"testing"
)

func TestScoreInputEntry(t *testing.T) {
	score := int64(42)
	e, err := ScoreInput{Score: &score, Name: "Al"}.Entry()
	if err != nil || e.Score != 42 || e.Name != "Al" {
		t.Fatalf("got %+v %v", e, err)
	}
	e, err = ScoreInput{Score: &score}.Entry()
	if err != nil || e.Name != DefaultName {
		t.Fatalf("expected default name, got %+v %v", e, err)
	}
	if _, err := (ScoreInput{Name: "Bo"}).Entry(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNormalizeName(t *testing.T) {
	if NormalizeName("  ") != DefaultName {
		t.Fatal("blank name should default")
	}
	if NormalizeName("Cy") != "Cy" {
		t.Fatal("name should be kept")
	}
}

func TestClampLimit(t *testing.T) {
	if ClampLimit(0, 0) != DefaultTopLimit || ClampLimit(-3, -1) != DefaultTopLimit {
		t.Fatal("non-positive limits should use the default")
	}
	if ClampLimit(0, 5) != 5 {
		t.Fatal("non-positive limit should use the fallback")
	}
	if ClampLimit(3, 5) != 3 {
		t.Fatal("positive limit should be kept")
	}
}

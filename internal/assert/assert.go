package assert

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func Equal[T comparable](t *testing.T, actual, expected T) {
	t.Helper()

	if actual != expected {
		t.Errorf("got: %v; want %v", actual, expected)
	}
}

func StringContains(t *testing.T, actual, expectedSubstring string) {
	t.Helper()

	if !strings.Contains(actual, expectedSubstring) {
		t.Errorf("got: %q; expected to contain: %q", actual, expectedSubstring)
	}
}

func NilError(t *testing.T, actual error) {
	t.Helper()

	if actual != nil {
		t.Errorf("got: %v; expected: nil", actual)
	}
}

func ErrorIs(t *testing.T, actual, target error) {
	t.Helper()

	if !errors.Is(actual, target) {
		t.Errorf("got: %v; expected error matching: %v", actual, target)
	}
}

func True(t *testing.T, actual bool, msg string) {
	t.Helper()

	if !actual {
		t.Errorf("expected true: %s", msg)
	}
}

func SliceEqual[T comparable](t *testing.T, actual, expected []T) {
	t.Helper()

	if !slices.Equal(actual, expected) {
		t.Errorf("got %v, expected: %v", actual, expected)
	}
}

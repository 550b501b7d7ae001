package common

import (
	"errors"
	"testing"
)

func TestCombine(t *testing.T) {
	if Combine(nil, nil) != nil {
		t.Error("all-nil combine should be nil")
	}

	e1 := errors.New("first")
	e2 := errors.New("second")
	combined := Combine(e1, nil, e2)
	if combined == nil {
		t.Fatal("combine dropped errors")
	}
	if !errors.Is(combined, e1) || !errors.Is(combined, e2) {
		t.Errorf("combined = %v, want both wrapped", combined)
	}
}

// Reaching the end of the test means the panic was absorbed.
func TestRecoverStopsPanic(t *testing.T) {
	func() {
		defer Recover("")
		panic("boom")
	}()
}

package models

import "testing"

func TestResultCodeAsErrorNilOnlyForSuccess(t *testing.T) {
	if err := ResultSuccess.AsError(); err != nil {
		t.Fatalf("expected nil error for success, got %v", err)
	}
	for _, rc := range []ResultCode{ResultUnknownError, ResultTimeout, ResultDbAccessFailed} {
		if err := rc.AsError(); err == nil {
			t.Fatalf("expected non-nil error for %v", rc)
		}
	}
}

func TestResultCodeIsTransient(t *testing.T) {
	transient := []ResultCode{ResultTimeout, ResultResourceBusy}
	permanent := []ResultCode{ResultSuccess, ResultUnknownError, ResultNotLoaded, ResultAllocFailure,
		ResultInvalidParameter, ResultDbAccessFailed, ResultInvalidProperty, ResultNotSupported, ResultDbAbort}
	for _, rc := range transient {
		if !rc.IsTransient() {
			t.Errorf("%v should be transient", rc)
		}
	}
	for _, rc := range permanent {
		if rc.IsTransient() {
			t.Errorf("%v should not be transient", rc)
		}
	}
}

func TestHandleTypeStringKnownAndUnknown(t *testing.T) {
	if HandleTypeTrack.String() != "track" {
		t.Fatalf("unexpected string for HandleTypeTrack: %q", HandleTypeTrack.String())
	}
	if got := HandleType(255).String(); got == "" {
		t.Fatal("expected a non-empty fallback string for an unknown handle type")
	}
}

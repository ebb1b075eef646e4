package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_ErrorString(t *testing.T) {
	plain := Unauthorized("bad credentials")
	if plain.Error() != "bad credentials" {
		t.Fatalf("unexpected message: %q", plain.Error())
	}

	wrapped := Wrap(errors.New("dial tcp: refused"), ErrCodeNetwork, "login request")
	if wrapped.Error() != "login request: dial tcp: refused" {
		t.Fatalf("unexpected message: %q", wrapped.Error())
	}
}

func TestWrap_NilIsNil(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
	if Wrapf(nil, ErrCodeInternal, "x %d", 1) != nil {
		t.Fatalf("Wrapf(nil) must be nil")
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, ErrCodeBackendRejected, "exchange")
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should reach the cause")
	}

	// Wrapping again keeps the outermost code visible via errors.As.
	outer := fmt.Errorf("handler: %w", err)
	if GetCode(outer) != ErrCodeBackendRejected {
		t.Fatalf("GetCode = %q", GetCode(outer))
	}
}

func TestCodePredicates(t *testing.T) {
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{Unauthorized("x"), IsUnauthorized},
		{Network("x"), IsNetwork},
		{Networkf("x %d", 1), IsNetwork},
		{Provider("x"), IsProvider},
		{BackendRejected("x"), IsBackendRejected},
		{RefreshFailed("x"), IsRefreshFailed},
		{Validation("x"), IsValidation},
		{Conflict("x"), IsConflict},
		{NotFound("x"), IsNotFound},
		{Internal("x"), IsInternal},
	}
	for _, tc := range cases {
		if !tc.pred(tc.err) {
			t.Fatalf("predicate failed for %v", tc.err)
		}
	}

	if IsUnauthorized(Network("x")) {
		t.Fatalf("predicate must not match other codes")
	}
	if IsNetwork(errors.New("plain")) {
		t.Fatalf("predicate must not match plain errors")
	}
}

func TestGetField(t *testing.T) {
	err := ValidationField("email", "email is required")
	if GetField(err) != "email" {
		t.Fatalf("GetField = %q", GetField(err))
	}
	if GetField(Validation("no field")) != "" {
		t.Fatalf("expected empty field")
	}
	if GetField(errors.New("plain")) != "" {
		t.Fatalf("expected empty field for plain error")
	}
}

func TestGetCode_PlainError(t *testing.T) {
	if GetCode(errors.New("plain")) != "" {
		t.Fatalf("expected empty code")
	}
}

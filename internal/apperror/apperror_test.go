package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFound(t *testing.T) {
	err := NotFound("user", "abc123")

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFound() should wrap ErrNotFound")
	}
	if err.Message != "user not found with id abc123" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestValidationFailed(t *testing.T) {
	err := ValidationFailed("email", "email is required")

	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationFailed() should wrap ErrValidation")
	}
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if err.Error() != "email is required" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestConflict(t *testing.T) {
	err := Conflict("user", "a@b.com")

	if !errors.Is(err, ErrConflict) {
		t.Error("Conflict() should wrap ErrConflict")
	}
}

func TestForbidden(t *testing.T) {
	err := Forbidden("admin access required")

	if !errors.Is(err, ErrForbidden) {
		t.Error("Forbidden() should wrap ErrForbidden")
	}
	if err.Error() != "admin access required" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestQuotaExceeded(t *testing.T) {
	err := QuotaExceeded("scan")

	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("QuotaExceeded() should wrap ErrQuotaExceeded")
	}
	if err.Message == "" {
		t.Error("QuotaExceeded() should carry a message")
	}
}

func TestPartialProvisioning(t *testing.T) {
	cause := errors.New("disk full")
	err := PartialProvisioning("user-1", cause)

	if !errors.Is(err, ErrPartialProvisioning) {
		t.Error("PartialProvisioning() should wrap ErrPartialProvisioning")
	}
}

// Wrapping an AppError with fmt.Errorf("%w") must keep the sentinel
// reachable — handlers rely on errors.Is through arbitrarily deep chains.
func TestWrappedChain(t *testing.T) {
	inner := NotFound("subscription", "u1")
	outer := fmt.Errorf("loading subscription: %w", inner)

	if !errors.Is(outer, ErrNotFound) {
		t.Error("errors.Is should find ErrNotFound through the wrap chain")
	}

	var appErr *AppError
	if !errors.As(outer, &appErr) {
		t.Fatal("errors.As should extract the *AppError")
	}
	if appErr.Message != inner.Message {
		t.Errorf("extracted Message = %q, want %q", appErr.Message, inner.Message)
	}
}

// The sentinels must stay distinct — a quota denial is not a NotFound.
func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrValidation, ErrConflict, ErrForbidden, ErrQuotaExceeded, ErrPartialProvisioning}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v matches %v", a, b)
			}
		}
	}
}

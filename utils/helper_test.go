package utils_test

import (
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/stockroom_backend/utils"
)

func TestParseDate(t *testing.T) {
	got, err := utils.ParseDate("2026-03-18")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	want := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ParseDate = %v, want %v", got, want)
	}

	if _, err := utils.ParseDate("18/03/2026"); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("bad date error = %v, want validation", err)
	}
}

func TestParseMonth(t *testing.T) {
	got, err := utils.ParseMonth("2026-03")
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	if got.Day() != 1 || got.Month() != time.March {
		t.Fatalf("ParseMonth = %v", got)
	}

	if _, err := utils.ParseMonth("March 2026"); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("bad month error = %v, want validation", err)
	}
}

func TestJwtRoundTrip(t *testing.T) {
	token, err := utils.JwtGenerate(42, "Admin")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	parsed, err := utils.JwtValidate(token)
	if err != nil || !parsed.Valid {
		t.Fatalf("JwtValidate: %v", err)
	}
	claims, ok := parsed.Claims.(*utils.JwtCustomClaim)
	if !ok {
		t.Fatalf("claims type %T", parsed.Claims)
	}
	if claims.ID != 42 || claims.Role != "Admin" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestUniqueSlice(t *testing.T) {
	got := utils.UniqueSlice([]int{3, 1, 3, 2, 1})
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("UniqueSlice = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("UniqueSlice = %v, want %v", got, want)
		}
	}
}

func TestDereferencePtr(t *testing.T) {
	v := 7
	if got := utils.DereferencePtr(&v); got != 7 {
		t.Fatalf("DereferencePtr(&7) = %d", got)
	}
	if got := utils.DereferencePtr[int](nil, 9); got != 9 {
		t.Fatalf("DereferencePtr(nil, 9) = %d", got)
	}
	if got := utils.DereferencePtr[string](nil); got != "" {
		t.Fatalf("DereferencePtr(nil) = %q", got)
	}
}

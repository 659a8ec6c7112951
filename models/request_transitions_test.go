package models_test

import (
	"testing"

	"github.com/mmdatafocus/stockroom_backend/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.RequestStatusPending, models.RequestStatusApproved, true},
		{models.RequestStatusPending, models.RequestStatusRejected, true},
		{models.RequestStatusPending, models.RequestStatusPartiallyApproved, true},
		{models.RequestStatusPending, models.RequestStatusCollected, false},
		{models.RequestStatusApproved, models.RequestStatusCollected, true},
		{models.RequestStatusPartiallyApproved, models.RequestStatusCollected, true},
		{models.RequestStatusApproved, models.RequestStatusPending, false},
		{models.RequestStatusApproved, models.RequestStatusRejected, false},
		{models.RequestStatusRejected, models.RequestStatusCollected, false},
		{models.RequestStatusRejected, models.RequestStatusPending, false},
		{models.RequestStatusCollected, models.RequestStatusPending, false},
		{models.RequestStatusCollected, models.RequestStatusApproved, false},
	}

	for _, c := range cases {
		if got := models.CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsValidDirectorate(t *testing.T) {
	for _, d := range models.AllowedDirectorates {
		if !models.IsValidDirectorate(d) {
			t.Errorf("IsValidDirectorate(%q) = false", d)
		}
	}
	for _, d := range []string{"", "ict", "Shipping"} {
		if models.IsValidDirectorate(d) {
			t.Errorf("IsValidDirectorate(%q) = true", d)
		}
	}
}

func TestDeriveRequestStatus(t *testing.T) {
	cases := []struct {
		name        string
		statuses    []string
		wantStatus  string
		wantDecided bool
	}{
		{
			name:        "all approved",
			statuses:    []string{models.RequestItemApproved, models.RequestItemApproved},
			wantStatus:  models.RequestStatusApproved,
			wantDecided: true,
		},
		{
			name:        "all rejected",
			statuses:    []string{models.RequestItemRejected, models.RequestItemRejected},
			wantStatus:  models.RequestStatusRejected,
			wantDecided: true,
		},
		{
			name:        "mixed",
			statuses:    []string{models.RequestItemApproved, models.RequestItemRejected},
			wantStatus:  models.RequestStatusPartiallyApproved,
			wantDecided: true,
		},
		{
			name:        "one still pending",
			statuses:    []string{models.RequestItemApproved, models.RequestItemPending},
			wantStatus:  models.RequestStatusPending,
			wantDecided: false,
		},
		{
			name:        "no items",
			statuses:    nil,
			wantStatus:  models.RequestStatusPending,
			wantDecided: false,
		},
		{
			name:        "single rejection",
			statuses:    []string{models.RequestItemRejected},
			wantStatus:  models.RequestStatusRejected,
			wantDecided: true,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			status, decided := models.DeriveRequestStatus(c.statuses)
			if status != c.wantStatus || decided != c.wantDecided {
				t.Fatalf("DeriveRequestStatus(%v) = (%q, %v), want (%q, %v)",
					c.statuses, status, decided, c.wantStatus, c.wantDecided)
			}
		})
	}
}

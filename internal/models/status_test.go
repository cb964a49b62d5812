package models

import (
	"testing"
)

func TestStatusAdjacency(t *testing.T) {
	legal := []struct {
		from, to AppointmentStatus
	}{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusRejected},
		{StatusPendingConfirmation, StatusConfirmed},
		{StatusPendingConfirmation, StatusRejected},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusConfirmedReschedule},
		{StatusConfirmed, StatusRejected},
		{StatusConfirmedReschedule, StatusCompleted},
		{StatusConfirmedReschedule, StatusConfirmed},
		{StatusConfirmedReschedule, StatusRejected},
	}
	for _, e := range legal {
		if !e.from.CanTransitionTo(e.to) {
			t.Errorf("expected %s -> %s to be legal", e.from, e.to)
		}
	}

	illegal := []struct {
		from, to AppointmentStatus
	}{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusConfirmedReschedule},
		{StatusPendingConfirmation, StatusCompleted},
		{StatusCompleted, StatusConfirmed},
		{StatusRejected, StatusPending},
		{StatusRejected, StatusConfirmed},
	}
	for _, e := range illegal {
		if e.from.CanTransitionTo(e.to) {
			t.Errorf("expected %s -> %s to be illegal", e.from, e.to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusCompleted, StatusRejected} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []AppointmentStatus{StatusPending, StatusPendingConfirmation, StatusConfirmed, StatusConfirmedReschedule} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestConversationOpenByStatus(t *testing.T) {
	open := map[AppointmentStatus]bool{
		StatusPending:             false,
		StatusPendingConfirmation: false,
		StatusConfirmed:           true,
		StatusConfirmedReschedule: true,
		StatusCompleted:           false,
		StatusRejected:            false,
	}
	for s, want := range open {
		if got := s.ConversationOpen(); got != want {
			t.Errorf("%s.ConversationOpen() = %v, want %v", s, got, want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	if AppointmentStatus("archived").Valid() {
		t.Error("unknown status should not be valid")
	}
	if !StatusConfirmed.Valid() {
		t.Error("confirmed should be valid")
	}
}

package kitchen

import (
	"testing"
	"time"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/pkg/enums/kitchenstatus"
)

func ticketInStatus(status string) *Ticket {
	t := NewTicket()
	t.Status = status
	if status != kitchenstatus.Statuses.Pending.Name {
		now := time.Now().Add(-10 * time.Minute)
		t.StartedAt = &now
	}
	return t
}

func TestTicketTransitions(t *testing.T) {
	s := kitchenstatus.Statuses

	tests := []struct {
		name    string
		from    string
		apply   func(*Ticket) error
		want    string
		wantErr bool
	}{
		{"startFromPending", s.Pending.Name, (*Ticket).Start, s.Preparing.Name, false},
		{"startFromPreparing", s.Preparing.Name, (*Ticket).Start, s.Preparing.Name, true},
		{"startFromCancelled", s.Cancelled.Name, (*Ticket).Start, s.Cancelled.Name, true},
		{"readyFromPreparing", s.Preparing.Name, (*Ticket).MarkReady, s.Ready.Name, false},
		{"readyFromPending", s.Pending.Name, (*Ticket).MarkReady, s.Pending.Name, true},
		{"serveFromReady", s.Ready.Name, (*Ticket).Serve, s.Served.Name, false},
		{"serveFromPending", s.Pending.Name, (*Ticket).Serve, s.Pending.Name, true},
		{"bumpFromServed", s.Served.Name, (*Ticket).Bump, s.Completed.Name, false},
		{"bumpFromReady", s.Ready.Name, (*Ticket).Bump, s.Ready.Name, true},
		{"recallFromServed", s.Served.Name, (*Ticket).Recall, s.Ready.Name, false},
		{"recallFromCompleted", s.Completed.Name, (*Ticket).Recall, s.Ready.Name, false},
		{"recallFromPreparing", s.Preparing.Name, (*Ticket).Recall, s.Preparing.Name, true},
		{"cancelFromPending", s.Pending.Name, (*Ticket).Cancel, s.Cancelled.Name, false},
		{"cancelFromPreparing", s.Preparing.Name, (*Ticket).Cancel, s.Cancelled.Name, false},
		{"cancelFromServed", s.Served.Name, (*Ticket).Cancel, s.Cancelled.Name, false},
		{"cancelFromCompleted", s.Completed.Name, (*Ticket).Cancel, s.Completed.Name, true},
		{"cancelFromCancelled", s.Cancelled.Name, (*Ticket).Cancel, s.Cancelled.Name, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := ticketInStatus(tt.from)
			err := tt.apply(ticket)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !fault.IsInvalidTransition(err) {
					t.Errorf("expected invalid transition, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ticket.Status != tt.want {
				t.Errorf("status = %s, want %s", ticket.Status, tt.want)
			}
		})
	}
}

func TestStartStampsStartedAt(t *testing.T) {
	ticket := NewTicket()
	if err := ticket.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ticket.StartedAt == nil {
		t.Error("expected started_at to be stamped")
	}
}

func TestMarkReadyDerivesActualTime(t *testing.T) {
	ticket := NewTicket()
	started := time.Now().Add(-22 * time.Minute)
	ticket.Status = kitchenstatus.Statuses.Preparing.Name
	ticket.StartedAt = &started

	if err := ticket.MarkReady(); err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	if ticket.CompletedAt == nil {
		t.Error("expected completed_at to be stamped")
	}
	if ticket.ActualTime == nil {
		t.Fatal("expected actual_time to be derived")
	}
	if *ticket.ActualTime != 22 {
		t.Errorf("actual_time = %d, want 22", *ticket.ActualTime)
	}
}

func TestDelayed(t *testing.T) {
	now := time.Now()
	started := now.Add(-20 * time.Minute)

	ticket := NewTicket()
	ticket.Status = kitchenstatus.Statuses.Preparing.Name
	ticket.StartedAt = &started
	ticket.EstimatedTime = 15

	if !ticket.Delayed(now) {
		t.Error("expected ticket past estimate to be delayed")
	}

	ticket.EstimatedTime = 30
	if ticket.Delayed(now) {
		t.Error("expected ticket within estimate not to be delayed")
	}

	ready := ticketInStatus(kitchenstatus.Statuses.Ready.Name)
	ready.EstimatedTime = 1
	if ready.Delayed(now) {
		t.Error("delayed must only hold while preparing")
	}
}

func TestSetPriority(t *testing.T) {
	ticket := NewTicket()

	if err := ticket.SetPriority(1); err != nil {
		t.Fatalf("set priority: %v", err)
	}
	if ticket.Priority != 1 {
		t.Errorf("priority = %d, want 1", ticket.Priority)
	}

	if err := ticket.SetPriority(0); err == nil {
		t.Error("expected out-of-range priority to fail")
	}
	if err := ticket.SetPriority(6); err == nil {
		t.Error("expected out-of-range priority to fail")
	}

	if err := ticket.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := ticket.SetPriority(2); err == nil {
		t.Error("expected priority change on terminal ticket to fail")
	}
}

package workflow

import (
	"errors"
	"testing"

	"github.com/iliyamo/estate-market/internal/policy"
)

func TestApply(t *testing.T) {
	owner := Actor{Role: policy.RoleUser, IsOwner: true}
	stranger := Actor{Role: policy.RoleUser, IsOwner: false}
	admin := Actor{Role: policy.RoleAdmin, IsOwner: false}

	tests := []struct {
		name      string
		current   Status
		requested Transition
		actor     Actor
		want      Status
		wantErr   error // nil, ErrForbidden, or invalid-transition marker
		invalid   bool
	}{
		{name: "admin approves pending", current: StatusPending, requested: TransitionApprove, actor: admin, want: StatusApproved},
		{name: "admin rejects pending", current: StatusPending, requested: TransitionReject, actor: admin, want: StatusRejected},
		{name: "owner cannot approve own listing", current: StatusPending, requested: TransitionApprove, actor: owner, wantErr: ErrForbidden},
		{name: "manager cannot approve", current: StatusPending, requested: TransitionApprove, actor: Actor{Role: policy.RoleManager}, wantErr: ErrForbidden},
		{name: "approving an active listing is invalid even for admin", current: StatusActive, requested: TransitionApprove, actor: admin, invalid: true},
		{name: "rejecting a rejected listing is invalid", current: StatusRejected, requested: TransitionReject, actor: admin, invalid: true},

		{name: "owner withdraws active", current: StatusActive, requested: TransitionWithdraw, actor: owner, want: StatusInactive},
		{name: "owner withdraws approved", current: StatusApproved, requested: TransitionWithdraw, actor: owner, want: StatusInactive},
		{name: "stranger cannot withdraw", current: StatusActive, requested: TransitionWithdraw, actor: stranger, wantErr: ErrForbidden},
		{name: "admin cannot withdraw for the owner", current: StatusActive, requested: TransitionWithdraw, actor: admin, wantErr: ErrForbidden},
		{name: "withdrawing pending is invalid", current: StatusPending, requested: TransitionWithdraw, actor: owner, invalid: true},

		{name: "owner deletes draft", current: StatusDraft, requested: TransitionDelete, actor: owner, want: StatusDeleted},
		{name: "owner deletes rejected", current: StatusRejected, requested: TransitionDelete, actor: owner, want: StatusDeleted},
		{name: "owner deletes inactive", current: StatusInactive, requested: TransitionDelete, actor: owner, want: StatusDeleted},
		{name: "admin deletes active", current: StatusActive, requested: TransitionDelete, actor: admin, want: StatusDeleted},
		{name: "stranger cannot delete", current: StatusActive, requested: TransitionDelete, actor: stranger, wantErr: ErrForbidden},
		{name: "deleting deleted is invalid", current: StatusDeleted, requested: TransitionDelete, actor: owner, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.current, tt.requested, tt.actor)
			if tt.invalid {
				var ite *InvalidTransitionError
				if !errors.As(err, &ite) {
					t.Fatalf("want InvalidTransitionError, got %v", err)
				}
				if ite.Current != tt.current || ite.Requested != tt.requested {
					t.Fatalf("error names %q/%q, want %q/%q", ite.Current, ite.Requested, tt.current, tt.requested)
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Apply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitialStatus(t *testing.T) {
	if got := InitialStatus(false); got != StatusActive {
		t.Fatalf("plain creation starts %q, want %q", got, StatusActive)
	}
	if got := InitialStatus(true); got != StatusPending {
		t.Fatalf("approval-path creation starts %q, want %q", got, StatusPending)
	}
}

func TestPubliclyVisible(t *testing.T) {
	tests := []struct {
		status Status
		owner  policy.Role
		want   bool
	}{
		{StatusActive, policy.RoleUser, true},
		{StatusApproved, policy.RoleUser, true},
		{StatusActive, policy.RoleManager, true},
		{StatusApproved, policy.RoleManager, true},
		{StatusPending, policy.RoleUser, false},
		{StatusPending, policy.RoleManager, false},
		{StatusRejected, policy.RoleManager, false},
		{StatusDraft, policy.RoleAgent, false},
		{StatusInactive, policy.RoleUser, false},
		{StatusDeleted, policy.RoleAdmin, false},
	}
	for _, tt := range tests {
		if got := PubliclyVisible(tt.status, tt.owner); got != tt.want {
			t.Errorf("PubliclyVisible(%q, %q) = %v, want %v", tt.status, tt.owner, got, tt.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusPending, StatusApproved, StatusActive, StatusRejected, StatusInactive, StatusDeleted} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Error("unknown status should be invalid")
	}
}

package validate

import (
	"strings"
	"testing"

	"github.com/five82/ticketbook/internal/model"
)

func TestProfileChecksPresentFields(t *testing.T) {
	tests := []struct {
		name  string
		patch model.ProfilePatch
		field string
	}{
		{"empty patch", model.ProfilePatch{}, ""},
		{"nickname", model.ProfilePatch{Nickname: model.Ptr("민지")}, ""},
		{"blank nickname", model.ProfilePatch{Nickname: model.Ptr(" ")}, "nickname"},
		{"long nickname", model.ProfilePatch{Nickname: model.Ptr(strings.Repeat("n", 21))}, "nickname"},
		{"email", model.ProfilePatch{Email: model.Ptr("a@example.com")}, ""},
		{"bad email", model.ProfilePatch{Email: model.Ptr("not-an-email")}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Profile(tt.patch)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Profile = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Field != tt.field {
				t.Fatalf("Profile = %v, want field %q", err, tt.field)
			}
		})
	}
}

func TestSettingsRejectsUnknownVisibility(t *testing.T) {
	bad := model.Visibility("everyone")
	if err := Settings(model.SettingsPatch{TicketVisibility: &bad}); err == nil || err.Field != "ticketVisibility" {
		t.Fatalf("Settings = %v, want ticketVisibility failure", err)
	}
	ok := model.VisibilityFriends
	if err := Settings(model.SettingsPatch{ProfileVisibility: &ok}); err != nil {
		t.Fatalf("Settings = %v, want nil", err)
	}
}

func TestFriendTarget(t *testing.T) {
	if err := FriendTarget("me", ""); err == nil || err.Field != "toUserId" {
		t.Fatalf("empty target = %v", err)
	}
	if err := FriendTarget("me", "me"); err == nil {
		t.Fatalf("self target accepted")
	}
	if err := FriendTarget("me", "you"); err != nil {
		t.Fatalf("FriendTarget = %v", err)
	}
}

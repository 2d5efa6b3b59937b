package model

import "time"

// GuestUserID identifies the current user when no profile is loaded.
const GuestUserID = "temp-user-id-for-unauthenticated"

// UserProfile is the signed-in user's account.
type UserProfile struct {
	ID             string    `json:"id"`
	Nickname       string    `json:"nickname"`
	Email          string    `json:"email"`
	ProfileImage   string    `json:"profileImage,omitempty"`
	AccountPrivate bool      `json:"isAccountPrivate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProfilePatch is a partial profile update.
type ProfilePatch struct {
	Nickname       *string
	Email          *string
	ProfileImage   *string
	AccountPrivate *bool
}

// Apply returns p merged into u.
func (u UserProfile) Apply(p ProfilePatch, now time.Time) UserProfile {
	setString(&u.Nickname, p.Nickname)
	setString(&u.Email, p.Email)
	setString(&u.ProfileImage, p.ProfileImage)
	if p.AccountPrivate != nil {
		u.AccountPrivate = *p.AccountPrivate
	}
	u.UpdatedAt = now
	return u
}

// Visibility is a privacy level.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

type NotificationSettings struct {
	FriendRequests bool `json:"friendRequests"`
	NewTickets     bool `json:"newTickets"`
	Reminders      bool `json:"reminders"`
}

type PrivacySettings struct {
	ProfileVisibility Visibility `json:"profileVisibility"`
	TicketVisibility  Visibility `json:"ticketVisibility"`
}

// UserSettings groups notification and privacy preferences.
type UserSettings struct {
	Notifications NotificationSettings `json:"notifications"`
	Privacy       PrivacySettings      `json:"privacy"`
}

// DefaultSettings are used before settings are fetched.
func DefaultSettings() UserSettings {
	return UserSettings{
		Notifications: NotificationSettings{FriendRequests: true, NewTickets: true, Reminders: true},
		Privacy:       PrivacySettings{ProfileVisibility: VisibilityPublic, TicketVisibility: VisibilityFriends},
	}
}

// SettingsPatch updates settings group by group; nil fields are unchanged.
type SettingsPatch struct {
	FriendRequests    *bool
	NewTickets        *bool
	Reminders         *bool
	ProfileVisibility *Visibility
	TicketVisibility  *Visibility
}

// Apply merges p into s without dropping sibling fields of either group.
func (s UserSettings) Apply(p SettingsPatch) UserSettings {
	if p.FriendRequests != nil {
		s.Notifications.FriendRequests = *p.FriendRequests
	}
	if p.NewTickets != nil {
		s.Notifications.NewTickets = *p.NewTickets
	}
	if p.Reminders != nil {
		s.Notifications.Reminders = *p.Reminders
	}
	if p.ProfileVisibility != nil {
		s.Privacy.ProfileVisibility = *p.ProfileVisibility
	}
	if p.TicketVisibility != nil {
		s.Privacy.TicketVisibility = *p.TicketVisibility
	}
	return s
}

package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Limits enforced by the local actions.
const (
	MaxTitleLength    = 100
	MaxVenueLength    = 100
	MaxArtistLength   = 100
	MaxReviewLength   = 6000
	MaxTicketsPerUser = 100
)

const (
	ticketPrefix  = "ticket_"
	friendPrefix  = "friend_"
	requestPrefix = "request_"
	userPrefix    = "user_"
	tempPrefix    = "temp_"
)

func NewTicketID() string     { return ticketPrefix + uuid.NewString() }
func NewFriendID() string     { return friendPrefix + uuid.NewString() }
func NewRequestID() string    { return requestPrefix + uuid.NewString() }
func NewUserID() string       { return userPrefix + uuid.NewString() }
func NewFriendshipID() string { return "friendship_" + uuid.NewString() }

// TempID returns the placeholder id used for an optimistic insert.
func TempID(now time.Time) string {
	return tempPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// IsTempID reports whether id is an optimistic placeholder.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}

// HasIDPrefix reports whether id is prefix followed by a valid UUID.
func HasIDPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// IsTicketID reports whether id was minted by NewTicketID.
func IsTicketID(id string) bool { return HasIDPrefix(id, ticketPrefix) }

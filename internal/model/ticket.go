package model

import (
	"slices"
	"time"
)

// TicketStatus controls who can see a ticket.
type TicketStatus string

const (
	StatusPublic  TicketStatus = "PUBLIC"
	StatusPrivate TicketStatus = "PRIVATE"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s == StatusPublic || s == StatusPrivate
}

// Review is the free-text review attached to a ticket.
type Review struct {
	Text      string    `json:"reviewText"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Ticket is a record of one attended performance.
type Ticket struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	PerformedAt time.Time    `json:"performedAt"`
	Venue       string       `json:"venue,omitempty"`
	Artist      string       `json:"artist,omitempty"`
	Seat        string       `json:"seat,omitempty"`
	BookingSite string       `json:"bookingSite,omitempty"`
	Genre       string       `json:"genre"`
	Status      TicketStatus `json:"status"`
	Review      *Review      `json:"review,omitempty"`
	Images      []string     `json:"images,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// HasReview reports whether t carries a non-empty review.
func (t *Ticket) HasReview() bool {
	return t.Review != nil && t.Review.Text != ""
}

// HasImages reports whether t has at least one image.
func (t *Ticket) HasImages() bool {
	return len(t.Images) > 0
}

// TicketDraft is the caller-supplied part of a new ticket.
type TicketDraft struct {
	Title       string
	PerformedAt time.Time
	Venue       string
	Artist      string
	Seat        string
	BookingSite string
	Genre       string
	Status      TicketStatus
	ReviewText  string
	Images      []string
}

// TicketPatch is a partial ticket update. Nil fields are left unchanged. A
// non-nil empty ReviewText removes the review; a non-nil Images replaces them.
type TicketPatch struct {
	Title       *string
	PerformedAt *time.Time
	Venue       *string
	Artist      *string
	Seat        *string
	BookingSite *string
	Genre       *string
	Status      *TicketStatus
	ReviewText  *string
	Images      []string
}

// NewTicket builds a ticket from d. Status defaults to PUBLIC.
func NewTicket(d TicketDraft, id, userID string, now time.Time) *Ticket {
	status := d.Status
	if status == "" {
		status = StatusPublic
	}
	t := &Ticket{
		ID:          id,
		UserID:      userID,
		Title:       d.Title,
		PerformedAt: d.PerformedAt,
		Venue:       d.Venue,
		Artist:      d.Artist,
		Seat:        d.Seat,
		BookingSite: d.BookingSite,
		Genre:       d.Genre,
		Status:      status,
		Images:      slices.Clone(d.Images),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.ReviewText != "" {
		t.Review = &Review{Text: d.ReviewText, CreatedAt: now}
	}
	return t
}

// Apply returns a copy of t with p merged in and UpdatedAt set to now. The
// review is merged field-wise so its CreatedAt survives edits.
func (t *Ticket) Apply(p TicketPatch, now time.Time) *Ticket {
	next := *t
	next.Images = slices.Clone(t.Images)
	if t.Review != nil {
		review := *t.Review
		next.Review = &review
	}

	setString(&next.Title, p.Title)
	setString(&next.Venue, p.Venue)
	setString(&next.Artist, p.Artist)
	setString(&next.Seat, p.Seat)
	setString(&next.BookingSite, p.BookingSite)
	setString(&next.Genre, p.Genre)
	if p.PerformedAt != nil {
		next.PerformedAt = *p.PerformedAt
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.Images != nil {
		next.Images = slices.Clone(p.Images)
	}
	if p.ReviewText != nil {
		switch {
		case *p.ReviewText == "":
			next.Review = nil
		case next.Review == nil:
			next.Review = &Review{Text: *p.ReviewText, CreatedAt: now}
		default:
			next.Review.Text = *p.ReviewText
			next.Review.UpdatedAt = now
		}
	}
	next.UpdatedAt = now
	return &next
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// NewestFirst orders tickets by CreatedAt descending, then by ID.
func NewestFirst(a, b *Ticket) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// TicketFilter narrows a ticket list. Zero fields match everything.
type TicketFilter struct {
	Status     TicketStatus
	Genre      string
	From       time.Time
	To         time.Time
	SearchText string
}

// IsZero reports whether f matches every ticket.
func (f TicketFilter) IsZero() bool {
	return f.Status == "" && f.Genre == "" && f.From.IsZero() && f.To.IsZero() && f.SearchText == ""
}

// TicketStats summarises a ticket list.
type TicketStats struct {
	Total       int
	Public      int
	Private     int
	WithReviews int
	WithImages  int
	ThisMonth   int
	ThisYear    int
	ByGenre     map[string]int
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }

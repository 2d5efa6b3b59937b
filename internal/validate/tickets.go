package validate

import (
	"fmt"
	"time"

	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
)

func title(s string) *result.AppError {
	if err := Required("title", s); err != nil {
		return err
	}
	return MaxLength("title", s, model.MaxTitleLength)
}

func genre(s string) *result.AppError {
	return Required("genre", s)
}

func performedAt(ts time.Time) *result.AppError {
	if ts.IsZero() {
		return result.Validation("performedAt must be a valid date", "performedAt")
	}
	return nil
}

func status(s model.TicketStatus) *result.AppError {
	if !s.Valid() {
		return result.Validation(fmt.Sprintf("status %q is not one of PUBLIC, PRIVATE", s), "status")
	}
	return nil
}

// ReviewText checks a review body.
func ReviewText(s string) *result.AppError {
	return MaxLength("reviewText", s, model.MaxReviewLength)
}

var createRules = []Rule[model.TicketDraft]{
	{Field: "title", Check: func(d model.TicketDraft) *result.AppError { return title(d.Title) }},
	{Field: "venue", Check: func(d model.TicketDraft) *result.AppError {
		return MaxLength("venue", d.Venue, model.MaxVenueLength)
	}},
	{Field: "genre", Check: func(d model.TicketDraft) *result.AppError { return genre(d.Genre) }},
	{Field: "artist", Check: func(d model.TicketDraft) *result.AppError {
		return MaxLength("artist", d.Artist, model.MaxArtistLength)
	}},
	{Field: "performedAt", Check: func(d model.TicketDraft) *result.AppError { return performedAt(d.PerformedAt) }},
	{Field: "status", Check: func(d model.TicketDraft) *result.AppError {
		// Empty status defaults to PUBLIC on create.
		if d.Status == "" {
			return nil
		}
		return status(d.Status)
	}},
	{Field: "reviewText", Check: func(d model.TicketDraft) *result.AppError { return ReviewText(d.ReviewText) }},
}

var updateRules = []Rule[model.TicketPatch]{
	{Field: "title", Check: func(p model.TicketPatch) *result.AppError {
		if p.Title == nil {
			return nil
		}
		return title(*p.Title)
	}},
	{Field: "venue", Check: func(p model.TicketPatch) *result.AppError {
		if p.Venue == nil {
			return nil
		}
		return MaxLength("venue", *p.Venue, model.MaxVenueLength)
	}},
	{Field: "genre", Check: func(p model.TicketPatch) *result.AppError {
		if p.Genre == nil {
			return nil
		}
		return genre(*p.Genre)
	}},
	{Field: "artist", Check: func(p model.TicketPatch) *result.AppError {
		if p.Artist == nil {
			return nil
		}
		return MaxLength("artist", *p.Artist, model.MaxArtistLength)
	}},
	{Field: "performedAt", Check: func(p model.TicketPatch) *result.AppError {
		if p.PerformedAt == nil {
			return nil
		}
		return performedAt(*p.PerformedAt)
	}},
	{Field: "status", Check: func(p model.TicketPatch) *result.AppError {
		if p.Status == nil {
			return nil
		}
		return status(*p.Status)
	}},
	{Field: "reviewText", Check: func(p model.TicketPatch) *result.AppError {
		if p.ReviewText == nil {
			return nil
		}
		return ReviewText(*p.ReviewText)
	}},
}

// CreateTicket validates a new ticket. Required fields must be present.
func CreateTicket(d model.TicketDraft) *result.AppError {
	return Fields(d, createRules)
}

// UpdateTicket validates only the fields present in p.
func UpdateTicket(p model.TicketPatch) *result.AppError {
	return Fields(p, updateRules)
}

// EntityID fails when id is blank.
func EntityID(field, id string) *result.AppError {
	return Required(field, id)
}

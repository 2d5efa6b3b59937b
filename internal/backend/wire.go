package backend

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/five82/ticketbook/internal/model"
)

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

type ticketResponse struct {
	ID          flexID `json:"id"`
	UserID      flexID `json:"userId"`
	Title       string `json:"title"`
	Venue       string `json:"venue"`
	Artist      string `json:"artist"`
	Seat        string `json:"seat"`
	BookingSite string `json:"bookingSite"`
	Genre       string `json:"genre"`
	ViewDate    string `json:"viewDate"`
	PerformedAt string `json:"performedAt"`
	ImageURL    string `json:"imageUrl"`
	ReviewText  string `json:"reviewText"`
	IsPublic    bool   `json:"isPublic"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func (r ticketResponse) toModel() *model.Ticket {
	performed := parseTime(r.PerformedAt)
	if performed.IsZero() {
		performed = parseTime(r.ViewDate)
	}
	created := parseTime(r.CreatedAt)
	updated := parseTime(r.UpdatedAt)
	if updated.IsZero() {
		updated = created
	}
	t := &model.Ticket{
		ID:          string(r.ID),
		UserID:      string(r.UserID),
		Title:       r.Title,
		PerformedAt: performed,
		Venue:       r.Venue,
		Artist:      r.Artist,
		Seat:        r.Seat,
		BookingSite: r.BookingSite,
		Genre:       r.Genre,
		Status:      model.StatusPrivate,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
	if r.IsPublic {
		t.Status = model.StatusPublic
	}
	if r.ImageURL != "" {
		t.Images = []string{r.ImageURL}
	}
	if r.ReviewText != "" {
		t.Review = &model.Review{Text: r.ReviewText, CreatedAt: created}
	}
	return t
}

func ticketsToModel(in []ticketResponse) []*model.Ticket {
	out := make([]*model.Ticket, 0, len(in))
	for _, r := range in {
		out = append(out, r.toModel())
	}
	return out
}

type ticketCreateRequest struct {
	Title       string `json:"title"`
	Venue       string `json:"venue,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Genre       string `json:"genre"`
	PerformedAt string `json:"performedAt"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ReviewText  string `json:"reviewText,omitempty"`
	IsPublic    bool   `json:"isPublic"`
	Seat        string `json:"seat,omitempty"`
	BookingSite string `json:"bookingSite,omitempty"`
}

func newTicketCreateRequest(d model.TicketDraft) ticketCreateRequest {
	req := ticketCreateRequest{
		Title:       d.Title,
		Venue:       d.Venue,
		Artist:      d.Artist,
		Genre:       d.Genre,
		PerformedAt: formatTime(d.PerformedAt),
		ReviewText:  d.ReviewText,
		IsPublic:    d.Status != model.StatusPrivate,
		Seat:        d.Seat,
		BookingSite: d.BookingSite,
	}
	if len(d.Images) > 0 {
		req.ImageURL = d.Images[0]
	}
	return req
}

type ticketUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Venue       *string `json:"venue,omitempty"`
	Artist      *string `json:"artist,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	PerformedAt *string `json:"performedAt,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	ReviewText  *string `json:"reviewText,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
	Seat        *string `json:"seat,omitempty"`
	BookingSite *string `json:"bookingSite,omitempty"`
}

func newTicketUpdateRequest(p model.TicketPatch) ticketUpdateRequest {
	req := ticketUpdateRequest{
		Title:       p.Title,
		Venue:       p.Venue,
		Artist:      p.Artist,
		Genre:       p.Genre,
		ReviewText:  p.ReviewText,
		Seat:        p.Seat,
		BookingSite: p.BookingSite,
	}
	if p.PerformedAt != nil {
		req.PerformedAt = model.Ptr(formatTime(*p.PerformedAt))
	}
	if p.Status != nil {
		req.IsPublic = model.Ptr(*p.Status == model.StatusPublic)
	}
	if p.Images != nil {
		url := ""
		if len(p.Images) > 0 {
			url = p.Images[0]
		}
		req.ImageURL = &url
	}
	return req
}

type friendResponse struct {
	ID           flexID `json:"id"`
	UserID       string `json:"user_id"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
	FriendshipID flexID `json:"friendshipId"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func (r friendResponse) toModel() *model.Friend {
	return &model.Friend{
		ID:           string(r.ID),
		UserID:       r.UserID,
		FriendshipID: string(r.FriendshipID),
		Nickname:     r.Nickname,
		ProfileImage: r.ProfileImage,
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
}

type friendList struct {
	Friends []friendResponse `json:"friends"`
}

type friendRequestResponse struct {
	ID           flexID `json:"id"`
	FriendshipID flexID `json:"friendshipId"`
	FromUserID   flexID `json:"fromUserId"`
	ToUserID     flexID `json:"toUserId"`
	Nickname     string `json:"nickname"`
	UserID       string `json:"user_id"`
	ProfileImage string `json:"profileImage"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func (r friendRequestResponse) toModel() *model.FriendRequest {
	id := string(r.ID)
	if id == "" {
		id = string(r.FriendshipID)
	}
	status := model.FriendRequestStatus(strings.ToUpper(r.Status))
	if status == "" {
		status = model.RequestPending
	}
	return &model.FriendRequest{
		ID:           id,
		FromUserID:   string(r.FromUserID),
		ToUserID:     string(r.ToUserID),
		Nickname:     r.Nickname,
		UserID:       r.UserID,
		ProfileImage: r.ProfileImage,
		Status:       status,
		Message:      r.Message,
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
}

type requestList struct {
	Requests []friendRequestResponse `json:"requests"`
}

func requestsToModel(in []friendRequestResponse) []*model.FriendRequest {
	out := make([]*model.FriendRequest, 0, len(in))
	for _, r := range in {
		out = append(out, r.toModel())
	}
	return out
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type signupRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

type authResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Type         string `json:"type"`
	ExpiresIn    int64  `json:"expiresIn"`
	Role         string `json:"role"`
}

func (r authResponse) toSession() Session {
	return Session{
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
		Type:         r.Type,
		ExpiresIn:    r.ExpiresIn,
		Role:         r.Role,
	}
}

type profileResponse struct {
	ID             flexID `json:"id"`
	Nickname       string `json:"nickname"`
	Email          string `json:"email"`
	ProfileImage   string `json:"profileImage"`
	AccountPrivate bool   `json:"isAccountPrivate"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

func (r profileResponse) toModel() model.UserProfile {
	return model.UserProfile{
		ID:             string(r.ID),
		Nickname:       r.Nickname,
		Email:          r.Email,
		ProfileImage:   r.ProfileImage,
		AccountPrivate: r.AccountPrivate,
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
	}
}

type profileUpdateRequest struct {
	Nickname       *string `json:"nickname,omitempty"`
	Email          *string `json:"email,omitempty"`
	ProfileImage   *string `json:"profileImage,omitempty"`
	AccountPrivate *bool   `json:"isAccountPrivate,omitempty"`
}

type sendRequest struct {
	TargetID string `json:"targetId"`
}

func ticketPath(id string) string {
	return "/tickets/" + id
}

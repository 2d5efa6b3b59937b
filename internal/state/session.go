package state

import (
	"context"
	"errors"

	"github.com/five82/ticketbook/internal/apistate"
	"github.com/five82/ticketbook/internal/backend"
	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
	"github.com/five82/ticketbook/internal/tokens"
	"github.com/five82/ticketbook/internal/validate"
)

// Session is the signed-in user: token pair, profile and settings.
type Session struct {
	AuthToken    *cell.State[string]
	RefreshToken *cell.State[string]
	Profile      *cell.State[apistate.State[model.UserProfile]]
	Settings     *cell.State[apistate.State[model.UserSettings]]

	IsAuthenticated *cell.Derived[bool]
	// CurrentUserID is the profile id, or model.GuestUserID before a profile
	// is loaded.
	CurrentUserID *cell.Derived[string]
	// CurrentSettings is the fetched settings or model.DefaultSettings.
	CurrentSettings *cell.Derived[model.UserSettings]

	Restore        *cell.Action[RestoreParams, result.Result[bool]]
	Login          *cell.Action[LoginParams, result.Result[backend.Session]]
	Register       *cell.Action[RegisterParams, result.Result[backend.Session]]
	Logout         *cell.Action[LogoutParams, result.Result[bool]]
	Clear          *cell.Action[ClearSessionParams, result.Result[bool]]
	FetchProfile   *cell.Action[FetchProfileParams, result.Result[model.UserProfile]]
	UpdateProfile  *cell.Action[UpdateProfileParams, result.Result[model.UserProfile]]
	FetchSettings  *cell.Action[FetchSettingsParams, result.Result[model.UserSettings]]
	UpdateSettings *cell.Action[UpdateSettingsParams, result.Result[model.UserSettings]]

	// userData is reset on logout.
	userData []cell.Resettable
}

type RestoreParams struct{}

type LoginParams struct {
	ID       string `json:"id" validate:"required,min=4,max=20,handle"`
	Password string `json:"password" validate:"required,min=8,max=64"`
}

type RegisterParams struct {
	ID       string `json:"id" validate:"required,min=4,max=20,handle"`
	Password string `json:"password" validate:"required,min=8,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Nickname string `json:"nickname" validate:"required,max=20"`
}

type LogoutParams struct{}

// ClearSessionParams drops the stored tokens without calling the backend, as
// after a 401.
type ClearSessionParams struct{}

type FetchProfileParams struct {
	Force bool
}

type UpdateProfileParams struct {
	Patch model.ProfilePatch
}

type FetchSettingsParams struct {
	Force bool
}

type UpdateSettingsParams struct {
	Patch model.SettingsPatch
}

func newSession(e *env, n *Network) *Session {
	s := &Session{
		AuthToken:    cell.NewState(""),
		RefreshToken: cell.NewState(""),
		Profile:      cell.NewState(apistate.Initial[model.UserProfile]()),
		Settings:     cell.NewState(apistate.Initial[model.UserSettings]()),
	}

	s.IsAuthenticated = cell.NewDerived(func(g cell.Getter) bool {
		return cell.Get(g, s.AuthToken) != ""
	})
	s.CurrentUserID = cell.NewDerived(func(g cell.Getter) string {
		p := cell.Get(g, s.Profile)
		if !p.HasData || p.Data.ID == "" {
			return model.GuestUserID
		}
		return p.Data.ID
	})
	s.CurrentSettings = cell.NewDerived(func(g cell.Getter) model.UserSettings {
		st := cell.Get(g, s.Settings)
		if !st.HasData {
			return model.DefaultSettings()
		}
		return st.Data
	})

	s.Restore = action(func(ctx context.Context, tx *cell.Tx, _ RestoreParams) result.Result[bool] {
		token, err := e.tokens.Get(ctx, tokens.AuthTokenKey)
		if errors.Is(err, tokens.ErrNotFound) {
			return result.Success(false)
		}
		if err != nil {
			return result.Failure[bool](result.From(err))
		}
		if tokens.Expired(token, e.now()) {
			e.log.Info().Msg("stored session expired")
			s.forget(ctx, e)
			return result.Success(false)
		}
		refresh, err := e.tokens.Get(ctx, tokens.RefreshTokenKey)
		if err != nil && !errors.Is(err, tokens.ErrNotFound) {
			e.log.Warn().Err(err).Msg("read refresh token")
		}
		cell.Set(tx, s.AuthToken, token)
		cell.Set(tx, s.RefreshToken, refresh)
		return result.Success(true)
	})

	s.Login = action(func(ctx context.Context, tx *cell.Tx, p LoginParams) result.Result[backend.Session] {
		if err := validate.Struct(p); err != nil {
			return result.Failure[backend.Session](err)
		}
		res := e.svc.Login(ctx, p.ID, p.Password)
		if sess, ok := res.Value(); ok {
			s.adopt(ctx, tx, e, sess)
		}
		return res
	})

	s.Register = action(func(ctx context.Context, tx *cell.Tx, p RegisterParams) result.Result[backend.Session] {
		if err := validate.Struct(p); err != nil {
			return result.Failure[backend.Session](err)
		}
		res := e.svc.Register(ctx, backend.Registration{
			ID:       p.ID,
			Password: p.Password,
			Email:    p.Email,
			Nickname: p.Nickname,
		})
		if sess, ok := res.Value(); ok {
			s.adopt(ctx, tx, e, sess)
		}
		return res
	})

	s.Clear = action(func(ctx context.Context, tx *cell.Tx, _ ClearSessionParams) result.Result[bool] {
		s.forget(ctx, e)
		cell.Reset(tx, s.AuthToken, s.RefreshToken)
		return result.Success(true)
	})

	s.Logout = action(func(ctx context.Context, tx *cell.Tx, _ LogoutParams) result.Result[bool] {
		if cell.Get(tx, s.IsAuthenticated) {
			if err := e.svc.Logout(ctx).Err(); err != nil {
				e.log.Warn().Str("kind", string(err.Kind)).Msg("logout request failed, clearing local session anyway")
			}
		}
		s.forget(ctx, e)
		cell.Reset(tx, s.AuthToken, s.RefreshToken, s.Profile, s.Settings)
		cell.Reset(tx, s.userData...)
		return result.Success(true)
	})

	s.FetchProfile = action(func(ctx context.Context, tx *cell.Tx, p FetchProfileParams) result.Result[model.UserProfile] {
		return fetch(ctx, tx, e, n, s.Profile, "profile", p.Force, e.svc.Profile)
	})

	s.UpdateProfile = action(func(ctx context.Context, tx *cell.Tx, p UpdateProfileParams) result.Result[model.UserProfile] {
		if err := validate.Profile(p.Patch); err != nil {
			return result.Failure[model.UserProfile](err)
		}
		now := e.now()
		prev := cell.Get(tx, s.Profile)
		if prev.HasData {
			cell.Update(tx, s.Profile, func(st apistate.State[model.UserProfile]) apistate.State[model.UserProfile] {
				return apistate.WithData(st, st.Data.Apply(p.Patch, now))
			})
		}

		res := e.svc.UpdateProfile(ctx, p.Patch)
		updated, ok := res.Value()
		if !ok {
			n.surface(tx, res.Err())
			rollback(ctx, tx, e, s.Profile, prev, "profile", res.Err(), func(ctx context.Context) bool {
				return s.FetchProfile.Dispatch(ctx, tx, FetchProfileParams{Force: true}).OK()
			})
			return res
		}
		cell.Update(tx, s.Profile, func(st apistate.State[model.UserProfile]) apistate.State[model.UserProfile] {
			return apistate.SetSuccess(st, updated, e.now())
		})
		return res
	})

	s.FetchSettings = action(func(ctx context.Context, tx *cell.Tx, p FetchSettingsParams) result.Result[model.UserSettings] {
		return fetch(ctx, tx, e, n, s.Settings, "settings", p.Force, e.svc.Settings)
	})

	s.UpdateSettings = action(func(ctx context.Context, tx *cell.Tx, p UpdateSettingsParams) result.Result[model.UserSettings] {
		if err := validate.Settings(p.Patch); err != nil {
			return result.Failure[model.UserSettings](err)
		}
		prev := cell.Get(tx, s.Settings)
		merged := cell.Get(tx, s.CurrentSettings).Apply(p.Patch)
		cell.Update(tx, s.Settings, func(st apistate.State[model.UserSettings]) apistate.State[model.UserSettings] {
			return apistate.WithData(st, merged)
		})

		res := e.svc.UpdateSettings(ctx, merged)
		saved, ok := res.Value()
		if !ok {
			n.surface(tx, res.Err())
			rollback(ctx, tx, e, s.Settings, prev, "settings", res.Err(), func(ctx context.Context) bool {
				return s.FetchSettings.Dispatch(ctx, tx, FetchSettingsParams{Force: true}).OK()
			})
			return res
		}
		cell.Update(tx, s.Settings, func(st apistate.State[model.UserSettings]) apistate.State[model.UserSettings] {
			return apistate.SetSuccess(st, saved, e.now())
		})
		return res
	})

	return s
}

// adopt stores a fresh token pair and loads the profile it belongs to.
func (s *Session) adopt(ctx context.Context, tx *cell.Tx, e *env, sess backend.Session) {
	cell.Set(tx, s.AuthToken, sess.Token)
	cell.Set(tx, s.RefreshToken, sess.RefreshToken)
	if err := e.tokens.Set(ctx, tokens.AuthTokenKey, sess.Token); err != nil {
		e.log.Warn().Err(err).Msg("persist auth token")
	}
	if sess.RefreshToken != "" {
		if err := e.tokens.Set(ctx, tokens.RefreshTokenKey, sess.RefreshToken); err != nil {
			e.log.Warn().Err(err).Msg("persist refresh token")
		}
	}
	if err := s.FetchProfile.Dispatch(ctx, tx, FetchProfileParams{Force: true}).Err(); err != nil {
		e.log.Warn().Str("kind", string(err.Kind)).Msg("load profile after sign-in")
	}
}

// forget deletes the persisted tokens. Storage errors are logged only.
func (s *Session) forget(ctx context.Context, e *env) {
	for _, key := range []string{tokens.AuthTokenKey, tokens.RefreshTokenKey} {
		if err := e.tokens.Delete(ctx, key); err != nil && !errors.Is(err, tokens.ErrNotFound) {
			e.log.Warn().Err(err).Str("key", key).Msg("delete stored token")
		}
	}
}

// rollback discards an optimistic change to c. refetch reloads c from the
// backend; if it fails too, the data from before the change is restored. The
// refetch runs even when ctx is already done.
func rollback[T any](ctx context.Context, tx *cell.Tx, e *env, c *cell.State[apistate.State[T]], prev apistate.State[T], resource string, cause *result.AppError, refetch func(context.Context) bool) {
	e.metrics.Rollback(resource)
	e.log.Warn().Str("resource", resource).Str("kind", string(cause.Kind)).Msg("rolling back optimistic change")
	if refetch(context.WithoutCancel(ctx)) {
		return
	}
	cell.Update(tx, c, func(st apistate.State[T]) apistate.State[T] {
		st.Data, st.HasData = prev.Data, prev.HasData
		return st
	})
}

package validate

import (
	"fmt"

	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
)

// MaxNicknameLength bounds profile and friend nicknames.
const MaxNicknameLength = 20

var profileRules = []Rule[model.ProfilePatch]{
	{Field: "nickname", Check: func(p model.ProfilePatch) *result.AppError {
		if p.Nickname == nil {
			return nil
		}
		if err := Required("nickname", *p.Nickname); err != nil {
			return err
		}
		return MaxLength("nickname", *p.Nickname, MaxNicknameLength)
	}},
	{Field: "email", Check: func(p model.ProfilePatch) *result.AppError {
		if p.Email == nil {
			return nil
		}
		if err := Validator().Var(*p.Email, "required,email"); err != nil {
			return result.Validation("email must be a valid email address", "email")
		}
		return nil
	}},
}

// Profile validates the fields present in p.
func Profile(p model.ProfilePatch) *result.AppError {
	return Fields(p, profileRules)
}

func visibility(field string, v *model.Visibility) *result.AppError {
	if v == nil {
		return nil
	}
	switch *v {
	case model.VisibilityPublic, model.VisibilityFriends, model.VisibilityPrivate:
		return nil
	}
	return result.Validation(fmt.Sprintf("%s %q is not one of public, friends, private", field, *v), field)
}

// Settings validates the privacy levels present in p.
func Settings(p model.SettingsPatch) *result.AppError {
	if err := visibility("profileVisibility", p.ProfileVisibility); err != nil {
		return err
	}
	return visibility("ticketVisibility", p.TicketVisibility)
}

// FriendTarget checks the recipient of a friend request sent by self.
func FriendTarget(self, target string) *result.AppError {
	if err := EntityID("toUserId", target); err != nil {
		return err
	}
	if target == self {
		return result.Validation("cannot send a friend request to yourself", "toUserId")
	}
	return nil
}

package users_test

import (
	"testing"

	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/internal/utils"
	"github.com/jrsteele09/openlabs-client/users"
	"github.com/stretchr/testify/require"
)

func TestFromUserInfo(t *testing.T) {
	info := users.UserInfo{
		UserID:       42,
		Username:     "ada",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         users.RoleUser,
		Email:        "ada@example.com",
		LabsSolved:   utils.Ptr(3),
		LabsReviewed: utils.Ptr(1),
		Balance:      utils.Ptr(5),
	}

	u := users.FromUserInfo(info)
	require.Equal(t, users.User{
		ID:           42,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Username:     "ada",
		Email:        "ada@example.com",
		Role:         users.RoleUser,
		Balance:      5,
		LabsSolved:   3,
		LabsReviewed: 1,
	}, u)
	require.Equal(t, "Ada Lovelace", u.FullName())
}

func TestFromUserInfoMissingCounters(t *testing.T) {
	u := users.FromUserInfo(users.UserInfo{UserID: 1, Username: "bob"})
	require.Zero(t, u.Balance)
	require.Zero(t, u.LabsSolved)
}

func TestMerge(t *testing.T) {
	base := users.User{ID: 1, FirstName: "Ada", Username: "ada", Balance: 5, LabsSolved: 2}

	merged := base.Merge(users.UserInfo{FirstName: "Augusta", Balance: utils.Ptr(0)})
	require.Equal(t, "Augusta", merged.FirstName)
	require.Equal(t, "ada", merged.Username)
	require.Equal(t, 0, merged.Balance)
	require.Equal(t, 2, merged.LabsSolved)
}

func TestMarshalRoundTrip(t *testing.T) {
	u := users.User{ID: 7, Username: "ada", Balance: 3}
	raw, err := u.Marshal()
	require.NoError(t, err)
	require.Contains(t, raw, `"labsSolved":0`)

	back, err := users.Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, u, *back)

	_, err = users.Unmarshal("{not json")
	require.Error(t, err)
}

func TestSignUpRequireFields(t *testing.T) {
	valid := users.SignUpRequest{FirstName: "Ada", LastName: "Lovelace", Username: "ada", Email: "ada@example.com", Password: "longenough"}
	require.NoError(t, valid.RequireFields())

	missing := valid
	missing.Email = "   "
	err := missing.RequireFields()
	require.ErrorIs(t, err, apperrors.ErrAllFieldsRequired)
	require.EqualError(t, err, "All fields are required")
}

func TestValidateSignUp(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		errs := users.ValidateSignUp(users.SignUpRequest{
			FirstName: "Ada", LastName: "Lovelace", Username: "ada",
			Email: "ada@example.com", Password: "longenough", ConfirmPassword: "longenough",
		})
		require.True(t, errs.Valid())
	})

	t.Run("every rule", func(t *testing.T) {
		errs := users.ValidateSignUp(users.SignUpRequest{
			FirstName: "A", LastName: "", Username: "ad",
			Email: "not-an-email", Password: "short", ConfirmPassword: "other",
		})
		require.False(t, errs.Valid())
		require.Len(t, errs, 6)
		require.Equal(t, "Passwords do not match", errs["confirmPassword"])
	})

	t.Run("cyrillic names count runes", func(t *testing.T) {
		errs := users.ValidateSignUp(users.SignUpRequest{
			FirstName: "Ян", LastName: "Ли", Username: "yan",
			Email: "yan@example.com", Password: "secret1",
		})
		require.True(t, errs.Valid())
	})
}

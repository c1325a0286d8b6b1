package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"trainee":         RoleTrainee,
		"trainer":         RoleTrainer,
		"manager":         RoleManager,
		"trainer_manager": RoleManager, // legacy spelling
		"admin":           RoleAdmin,
	}
	for input, want := range cases {
		got, err := ParseRole(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got)
	}

	_, err := ParseRole("superuser")
	require.Error(t, err)
	_, err = ParseRole("")
	require.Error(t, err)
}

func TestCanPresent(t *testing.T) {
	require.False(t, RoleTrainee.CanPresent())
	require.True(t, RoleTrainer.CanPresent())
	require.True(t, RoleManager.CanPresent())
	require.True(t, RoleAdmin.CanPresent())
}

func TestDisplayName(t *testing.T) {
	u := User{FirstName: "Ana", LastName: "Cole", Email: "ana@example.com"}
	require.Equal(t, "Ana Cole", u.DisplayName())

	u = User{Email: "solo@example.com"}
	require.Equal(t, "solo@example.com", u.DisplayName(), "falls back to email")
}

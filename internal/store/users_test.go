package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetUser(t *testing.T) {
	s := openTestStore(t)

	user, err := s.CreateUser("Alice", "Alice@Example.com", "hash", "supervisor")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email, "emails are stored lowercased")

	byEmail, err := s.GetUserByEmail("ALICE@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Alice", byID.Name)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateUser("Alice", "alice@example.com", "hash", "supervisor")
	require.NoError(t, err)

	_, err = s.CreateUser("Other", "alice@example.com", "hash", "operator")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetUser_Unknown(t *testing.T) {
	s := openTestStore(t)

	user, err := s.GetUserByEmail("missing@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = s.GetUserByID("missing")
	require.NoError(t, err)
	assert.Nil(t, user)
}

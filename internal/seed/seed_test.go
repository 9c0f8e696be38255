package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

const sample = `
campuses:
  - name: Main Campus
    code: main
  - name: North Campus
    code: NRT
users:
  - username: desk-main
    password: change-me-now
    role: staff
    campus: MAIN
  - username: registrar
    password: change-me-too
    role: admin
`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, f.Campuses, 2)
	assert.Equal(t, "MAIN", f.Campuses[0].Code)
	require.Len(t, f.Users, 2)
	assert.Equal(t, model.RoleStaff, f.Users[0].Role)
}

func TestParseEmpty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Campuses)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "campus:\n  - name: x\n"},
		{"missing code", "campuses:\n  - name: Main\n"},
		{"duplicate code", "campuses:\n  - {name: A, code: X}\n  - {name: B, code: x}\n"},
		{"bad role", "users:\n  - {username: a, password: long-enough, role: janitor}\n"},
		{"short password", "users:\n  - {username: a, password: short, role: staff}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestApply(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	res, err := Apply(ctx, database, f)
	require.NoError(t, err)
	assert.Equal(t, &Result{CampusesCreated: 2, UsersCreated: 2}, res)

	desk, err := store.GetUserByUsername(ctx, database, "desk-main")
	require.NoError(t, err)
	require.NotNil(t, desk)
	require.NotNil(t, desk.CampusID)
	mainCampus, err := store.GetCampusByCode(ctx, database, "MAIN")
	require.NoError(t, err)
	assert.Equal(t, mainCampus.ID, *desk.CampusID)
	assert.True(t, auth.CheckPassword(desk.PasswordHash, "change-me-now"))

	// Applying again changes nothing.
	res, err = Apply(ctx, database, f)
	require.NoError(t, err)
	assert.Equal(t, &Result{Skipped: 4}, res)
}

func TestApplyUnknownCampus(t *testing.T) {
	database := db.NewTestDB(t)

	f, err := Parse(strings.NewReader("users:\n  - {username: a, password: long-enough, role: staff, campus: NOPE}\n"))
	require.NoError(t, err)

	_, err = Apply(context.Background(), database, f)
	assert.ErrorContains(t, err, "unknown campus")

	users, err := store.ListUsers(context.Background(), database, "")
	require.NoError(t, err)
	assert.Empty(t, users)
}

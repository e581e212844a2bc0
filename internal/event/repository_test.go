package event

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lamitna/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "events.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.SQL)
}

func TestRepositoryEvents(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	clock := time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first := &Event{Name: "  Family iftar ", Dates: []string{"2026-03-01", "2026-03-02", "2026-03-01"}}
	require.NoError(t, repo.Save(ctx, "owner-1", first))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Family iftar", first.Name)
	assert.Equal(t, Iftar, first.MealType)
	assert.Equal(t, []string{"2026-03-01", "2026-03-02"}, first.Dates)

	second := &Event{Name: "Suhoor with friends", MealType: Suhoor, DishParty: true, Message: "Bring dates!"}
	require.NoError(t, repo.Save(ctx, "owner-1", second))
	require.NoError(t, repo.Save(ctx, "owner-2", &Event{Name: "Other host"}))

	t.Run("ListNewestFirst", func(t *testing.T) {
		events, err := repo.List(ctx, "owner-1")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, second.ID, events[0].ID)
		assert.Equal(t, first.ID, events[1].ID)
		assert.Equal(t, "Bring dates!", events[0].Message)
		assert.True(t, events[0].DishParty)
	})

	t.Run("GetIsOwnerScoped", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "owner-1", first.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

		got, err = repo.GetByID(ctx, "owner-2", first.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		public, err := repo.GetPublic(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, public)
		assert.Equal(t, "Family iftar", public.Name)
	})

	t.Run("UpsertKeepsCreatedAt", func(t *testing.T) {
		updated := *first
		updated.Name = "Big family iftar"
		require.NoError(t, repo.Save(ctx, "owner-1", &updated))

		got, err := repo.GetByID(ctx, "owner-1", first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Big family iftar", got.Name)

		hijack := *first
		err = repo.Save(ctx, "owner-2", &hijack)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateHasPlan", func(t *testing.T) {
		require.NoError(t, repo.UpdateHasPlan(ctx, "owner-1", first.ID, true))
		got, err := repo.GetByID(ctx, "owner-1", first.ID)
		require.NoError(t, err)
		assert.True(t, got.HasPlan)

		assert.ErrorIs(t, repo.UpdateHasPlan(ctx, "owner-1", "missing", true), ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "owner-1", second.ID))
		got, err := repo.GetByID(ctx, "owner-1", second.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, repo.Delete(ctx, "owner-1", second.ID))
	})

	t.Run("Invalid", func(t *testing.T) {
		err := repo.Save(ctx, "owner-1", &Event{Name: " "})
		assert.True(t, errors.Is(err, ErrInvalid))
		err = repo.Save(ctx, "owner-1", &Event{Name: "x", MealType: "brunch"})
		assert.ErrorIs(t, err, ErrInvalid)
		err = repo.Save(ctx, "owner-1", &Event{Name: "x", Dates: []string{"March 1"}})
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestRepositoryResponses(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	e := &Event{Name: "Iftar", Dates: []string{"2026-03-05", "2026-03-06"}}
	require.NoError(t, repo.Save(ctx, "host", e))

	first, err := repo.AddResponse(ctx, e.ID, "  Amira ", "2026-03-05", "  Kunafa ")
	require.NoError(t, err)
	assert.Equal(t, "Amira", first.GuestName)
	require.NotNil(t, first.Dish)
	assert.Equal(t, "Kunafa", *first.Dish)

	second, err := repo.AddResponse(ctx, e.ID, "Omar", "2026-03-06", "   ")
	require.NoError(t, err)
	assert.Nil(t, second.Dish)

	_, err = repo.AddResponse(ctx, e.ID, "Late", "2026-04-01", "")
	assert.ErrorIs(t, err, ErrUnknownDate)
	_, err = repo.AddResponse(ctx, e.ID, "  ", "2026-03-05", "")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = repo.AddResponse(ctx, "nope", "Guest", "2026-03-05", "")
	assert.ErrorIs(t, err, ErrNotFound)

	responses, err := repo.ListResponses(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, first.ID, responses[0].ID)
	assert.Equal(t, "Kunafa", *responses[0].Dish)
	assert.Equal(t, second.ID, responses[1].ID)
	assert.Nil(t, responses[1].Dish)

	require.NoError(t, repo.Delete(ctx, "host", e.ID))
	responses, err = repo.ListResponses(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, responses, "responses are removed with their event")
}

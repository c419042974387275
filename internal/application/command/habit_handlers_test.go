package command

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

func TestCreateHabitHandler_Tiered(t *testing.T) {
	repo := newMemHabitRepo()
	events := &recordingPublisher{}
	owner, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)

	handler := NewCreateHabitHandler(repo, events, nil)
	hb, err := handler.Handle(context.Background(), CreateHabitCommand{
		OwnerID:    owner,
		Name:       "Read pages",
		Kind:       habit.KindTiered,
		Thresholds: habit.Thresholds{Bronze: 10, Silver: 25, Gold: 50},
		Unit:       "pages",
		IsShared:   true,
	})
	require.NoError(t, err)
	assert.True(t, hb.IsShared)
	assert.Contains(t, events.types(), shared.EventHabitCreated)

	stored, err := repo.GetByID(context.Background(), hb.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read pages", stored.Name)
}

func TestCreateHabitHandler_RejectsBadThresholds(t *testing.T) {
	repo := newMemHabitRepo()
	owner, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)
	handler := NewCreateHabitHandler(repo, nil, nil)

	tests := []struct {
		name string
		th   habit.Thresholds
	}{
		{"unordered", habit.Thresholds{Bronze: 50, Silver: 25, Gold: 10}},
		{"equal", habit.Thresholds{Bronze: 10, Silver: 10, Gold: 50}},
		{"zero bronze", habit.Thresholds{Bronze: 0, Silver: 25, Gold: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Handle(context.Background(), CreateHabitCommand{
				OwnerID:    owner,
				Name:       "Read pages",
				Kind:       habit.KindTiered,
				Thresholds: tt.th,
			})
			assert.ErrorIs(t, err, shared.ErrInvalidThresholds)
		})
	}
}

func TestUpdateHabitHandler(t *testing.T) {
	repo := newMemHabitRepo()
	owner, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)
	stranger, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)

	create := NewCreateHabitHandler(repo, nil, nil)
	hb, err := create.Handle(context.Background(), CreateHabitCommand{
		OwnerID:    owner,
		Name:       "Run",
		Kind:       habit.KindTiered,
		Thresholds: habit.Thresholds{Bronze: 1, Silver: 3, Gold: 5},
		Unit:       "km",
	})
	require.NoError(t, err)

	update := NewUpdateHabitHandler(repo, nil, nil)

	t.Run("owner patches thresholds", func(t *testing.T) {
		th := habit.Thresholds{Bronze: 2, Silver: 5, Gold: 10}
		got, err := update.Handle(context.Background(), UpdateHabitCommand{
			OwnerID: owner, HabitID: hb.ID, Thresholds: &th,
		})
		require.NoError(t, err)
		assert.Equal(t, th, got.Thresholds)
	})

	t.Run("invalid thresholds rejected", func(t *testing.T) {
		th := habit.Thresholds{Bronze: 5, Silver: 2, Gold: 10}
		_, err := update.Handle(context.Background(), UpdateHabitCommand{
			OwnerID: owner, HabitID: hb.ID, Thresholds: &th,
		})
		assert.ErrorIs(t, err, shared.ErrInvalidThresholds)
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		name := "Sprint"
		_, err := update.Handle(context.Background(), UpdateHabitCommand{
			OwnerID: stranger, HabitID: hb.ID, Name: &name,
		})
		assert.ErrorIs(t, err, shared.ErrNotHabitOwner)
	})

	t.Run("thresholds on binary habit rejected", func(t *testing.T) {
		binary, err := create.Handle(context.Background(), CreateHabitCommand{
			OwnerID: owner, Name: "Meditate", Kind: habit.KindBinary,
		})
		require.NoError(t, err)
		th := habit.Thresholds{Bronze: 1, Silver: 2, Gold: 3}
		_, err = update.Handle(context.Background(), UpdateHabitCommand{
			OwnerID: owner, HabitID: binary.ID, Thresholds: &th,
		})
		assert.Error(t, err)
	})
}

func TestDeleteHabitHandler(t *testing.T) {
	repo := newMemHabitRepo()
	events := &recordingPublisher{}
	owner, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)
	stranger, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)

	hb, err := NewCreateHabitHandler(repo, nil, nil).Handle(context.Background(), CreateHabitCommand{
		OwnerID: owner, Name: "Stretch", Kind: habit.KindBinary,
	})
	require.NoError(t, err)

	handler := NewDeleteHabitHandler(repo, events, nil)

	err = handler.Handle(context.Background(), DeleteHabitCommand{OwnerID: stranger, HabitID: hb.ID})
	assert.ErrorIs(t, err, shared.ErrNotHabitOwner)

	err = handler.Handle(context.Background(), DeleteHabitCommand{OwnerID: owner, HabitID: hb.ID})
	require.NoError(t, err)
	assert.Contains(t, events.types(), shared.EventHabitDeleted)

	_, err = repo.GetByID(context.Background(), hb.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/domain"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/repository/dao"
)

type mockRaffleDAO struct {
	mock.Mock
}

func (m *mockRaffleDAO) Insert(ctx context.Context, raffle dao.Raffle) (dao.Raffle, error) {
	args := m.Called(ctx, raffle)
	return args.Get(0).(dao.Raffle), args.Error(1)
}

func (m *mockRaffleDAO) FindByName(ctx context.Context, name string) (dao.Raffle, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(dao.Raffle), args.Error(1)
}

func (m *mockRaffleDAO) CountPairsByGiverAndRaffleName(ctx context.Context, giverID uint, name string) (int64, error) {
	args := m.Called(ctx, giverID, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRaffleDAO) InsertPair(ctx context.Context, pair dao.Pair) (dao.Pair, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(dao.Pair), args.Error(1)
}

func (m *mockRaffleDAO) FindPairsByGiver(ctx context.Context, giverID uint) ([]dao.Pair, error) {
	args := m.Called(ctx, giverID)
	return args.Get(0).([]dao.Pair), args.Error(1)
}

func (m *mockRaffleDAO) FindPairByGiverAndRaffle(ctx context.Context, giverID, raffleID uint) (dao.Pair, int64, error) {
	args := m.Called(ctx, giverID, raffleID)
	return args.Get(0).(dao.Pair), args.Get(1).(int64), args.Error(2)
}

func (m *mockRaffleDAO) Finish(ctx context.Context, raffleID, ownerID uint, match func(dao.Raffle) (dao.Raffle, error)) (dao.Raffle, error) {
	args := m.Called(ctx, raffleID, ownerID, match)
	return args.Get(0).(dao.Raffle), args.Error(1)
}

func TestRaffleRepository_HasPairInRaffleNamed(t *testing.T) {
	ctx := context.Background()
	d := &mockRaffleDAO{}
	d.On("CountPairsByGiverAndRaffleName", ctx, uint(1), "joined").Return(int64(1), nil)
	d.On("CountPairsByGiverAndRaffleName", ctx, uint(1), "other").Return(int64(0), nil)
	repo := NewRaffleRepository(d)

	ok, err := repo.HasPairInRaffleNamed(ctx, 1, "joined")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasPairInRaffleNamed(ctx, 1, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRaffleRepository_FindPairInRaffle(t *testing.T) {
	ctx := context.Background()
	receiverID := uint(7)
	d := &mockRaffleDAO{}
	d.On("FindPairByGiverAndRaffle", ctx, uint(3), uint(9)).Return(dao.Pair{
		ID:         1,
		RaffleID:   9,
		Raffle:     &dao.Raffle{ID: 9, Name: "xmas", OwnerID: 3, Finished: true},
		GiverID:    3,
		ReceiverID: &receiverID,
		Receiver:   &dao.User{ID: receiverID, Name: "Ada"},
	}, int64(4), nil)
	d.On("FindPairByGiverAndRaffle", ctx, uint(3), uint(10)).Return(dao.Pair{}, int64(0), dao.ErrPairNotFound)
	repo := NewRaffleRepository(d)

	pair, count, err := repo.FindPairInRaffle(ctx, 3, 9)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	require.NotNil(t, pair.Raffle)
	assert.Equal(t, "xmas", pair.Raffle.Name)
	require.NotNil(t, pair.Receiver)
	assert.Equal(t, "Ada", pair.Receiver.Name)

	_, _, err = repo.FindPairInRaffle(ctx, 3, 10)
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestRaffleRepository_Finish(t *testing.T) {
	ctx := context.Background()
	d := &mockRaffleDAO{}
	locked := dao.Raffle{
		ID:      5,
		OwnerID: 1,
		Pairs:   []dao.Pair{{ID: 10, RaffleID: 5, GiverID: 1}, {ID: 11, RaffleID: 5, GiverID: 2}},
	}

	var written dao.Raffle
	d.On("Finish", ctx, uint(5), uint(1), mock.Anything).
		Run(func(args mock.Arguments) {
			match := args.Get(3).(func(dao.Raffle) (dao.Raffle, error))
			var err error
			written, err = match(locked)
			require.NoError(t, err)
		}).
		Return(dao.Raffle{ID: 5, Finished: true}, nil).Once()
	d.On("Finish", ctx, uint(6), uint(1), mock.Anything).Return(dao.Raffle{}, dao.ErrRaffleNotFound).Once()
	repo := NewRaffleRepository(d)

	finished, err := repo.Finish(ctx, 5, 1, func(r domain.Raffle) (domain.Raffle, error) {
		require.Len(t, r.Pairs, 2)
		for i := range r.Pairs {
			receiver := r.Pairs[1-i].GiverID
			r.Pairs[i].ReceiverID = &receiver
		}
		r.Finished = true
		return r, nil
	})
	require.NoError(t, err)
	assert.True(t, finished.Finished)
	assert.True(t, written.Finished)
	require.Len(t, written.Pairs, 2)
	assert.Equal(t, uint(2), *written.Pairs[0].ReceiverID)
	assert.Equal(t, uint(1), *written.Pairs[1].ReceiverID)
	assert.Nil(t, written.Pairs[0].Receiver)

	_, err = repo.Finish(ctx, 6, 1, nil)
	assert.ErrorIs(t, err, ErrRaffleNotFound)
	d.AssertExpectations(t)
}

package dao

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seq atomic.Int64

func unique(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, seq.Add(1))
}

func insertUser(t *testing.T, d *UserDAO) User {
	t.Helper()

	u, err := d.Insert(context.Background(), User{
		Email:    unique("user") + "@example.com",
		Password: "hash",
		Name:     unique("name"),
	})
	require.NoError(t, err)

	return u
}

func insertRaffle(t *testing.T, d *RaffleDAO, owner User) Raffle {
	t.Helper()

	r, err := d.Insert(context.Background(), Raffle{
		Name:    unique("raffle"),
		JoinKey: "key",
		OwnerID: owner.ID,
		Pairs:   []Pair{{GiverID: owner.ID}},
	})
	require.NoError(t, err)

	return r
}

func TestUserDAO_Insert(t *testing.T) {
	db := requireDB(t)
	d := NewUserDAO(db)
	ctx := context.Background()

	u := insertUser(t, d)
	assert.NotZero(t, u.ID)

	_, err := d.Insert(ctx, User{Email: u.Email, Password: "x", Name: "other"})
	assert.ErrorIs(t, err, ErrUserEmailExists)

	found, err := d.FindByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = d.FindByID(ctx, u.ID+100000)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRaffleDAO_InsertAndJoin(t *testing.T) {
	db := requireDB(t)
	users := NewUserDAO(db)
	d := NewRaffleDAO(db)
	ctx := context.Background()

	owner := insertUser(t, users)
	guest := insertUser(t, users)
	r := insertRaffle(t, d, owner)
	require.Len(t, r.Pairs, 1)
	assert.Equal(t, r.ID, r.Pairs[0].RaffleID)

	_, err := d.Insert(ctx, Raffle{Name: r.Name, JoinKey: "other", OwnerID: guest.ID})
	assert.ErrorIs(t, err, ErrRaffleNameExists)

	found, err := d.FindByName(ctx, r.Name)
	require.NoError(t, err)
	assert.Equal(t, r.ID, found.ID)
	_, err = d.FindByName(ctx, unique("missing"))
	assert.ErrorIs(t, err, ErrRaffleNotFound)

	count, err := d.CountPairsByGiverAndRaffleName(ctx, guest.ID, r.Name)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = d.InsertPair(ctx, Pair{RaffleID: r.ID, GiverID: guest.ID})
	require.NoError(t, err)
	_, err = d.InsertPair(ctx, Pair{RaffleID: r.ID, GiverID: guest.ID})
	assert.ErrorIs(t, err, ErrPairExists)

	count, err = d.CountPairsByGiverAndRaffleName(ctx, guest.ID, r.Name)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	pair, total, err := d.FindPairByGiverAndRaffle(ctx, guest.ID, r.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.NotNil(t, pair.Raffle)
	assert.Equal(t, r.Name, pair.Raffle.Name)
	assert.Nil(t, pair.Receiver)

	_, _, err = d.FindPairByGiverAndRaffle(ctx, guest.ID, r.ID+100000)
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestRaffleDAO_FindPairsByGiver_JoinOrder(t *testing.T) {
	db := requireDB(t)
	users := NewUserDAO(db)
	d := NewRaffleDAO(db)
	ctx := context.Background()

	user := insertUser(t, users)
	var names []string
	for i := 0; i < 3; i++ {
		r := insertRaffle(t, d, insertUser(t, users))
		_, err := d.InsertPair(ctx, Pair{RaffleID: r.ID, GiverID: user.ID})
		require.NoError(t, err)
		names = append(names, r.Name)
	}

	pairs, err := d.FindPairsByGiver(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	for i, p := range pairs {
		require.NotNil(t, p.Raffle)
		assert.Equal(t, names[i], p.Raffle.Name)
		if i > 0 {
			assert.Greater(t, p.JoinOrder, pairs[i-1].JoinOrder)
		}
	}
}

func assignInOrder(r Raffle) (Raffle, error) {
	n := len(r.Pairs)
	for i := range r.Pairs {
		receiver := r.Pairs[(i+1)%n].GiverID
		r.Pairs[i].ReceiverID = &receiver
	}
	r.Finished = true
	return r, nil
}

func TestRaffleDAO_Finish(t *testing.T) {
	db := requireDB(t)
	users := NewUserDAO(db)
	d := NewRaffleDAO(db)
	ctx := context.Background()

	owner := insertUser(t, users)
	guest := insertUser(t, users)
	r := insertRaffle(t, d, owner)
	_, err := d.InsertPair(ctx, Pair{RaffleID: r.ID, GiverID: guest.ID})
	require.NoError(t, err)

	_, err = d.Finish(ctx, r.ID, guest.ID, assignInOrder)
	assert.ErrorIs(t, err, ErrRaffleNotFound, "only the owner can finish")

	finished, err := d.Finish(ctx, r.ID, owner.ID, assignInOrder)
	require.NoError(t, err)
	assert.True(t, finished.Finished)
	require.Len(t, finished.Pairs, 2)
	for _, p := range finished.Pairs {
		require.NotNil(t, p.Receiver)
		assert.NotEqual(t, p.GiverID, p.Receiver.ID)
	}

	_, err = d.Finish(ctx, r.ID, owner.ID, func(raffle Raffle) (Raffle, error) {
		assert.True(t, raffle.Finished)
		return raffle, nil
	})
	assert.ErrorIs(t, err, ErrRaffleAlreadyFinished)
}

func TestRaffleDAO_Finish_RollsBack(t *testing.T) {
	db := requireDB(t)
	users := NewUserDAO(db)
	d := NewRaffleDAO(db)
	ctx := context.Background()

	owner := insertUser(t, users)
	guest := insertUser(t, users)
	r := insertRaffle(t, d, owner)
	_, err := d.InsertPair(ctx, Pair{RaffleID: r.ID, GiverID: guest.ID})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = d.Finish(ctx, r.ID, owner.ID, func(raffle Raffle) (Raffle, error) {
		return Raffle{}, boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := d.FindByName(ctx, r.Name)
	require.NoError(t, err)
	assert.False(t, found.Finished)

	pair, _, err := d.FindPairByGiverAndRaffle(ctx, guest.ID, r.ID)
	require.NoError(t, err)
	assert.Nil(t, pair.ReceiverID)
}

func TestRaffleDAO_Finish_Concurrent(t *testing.T) {
	db := requireDB(t)
	users := NewUserDAO(db)
	d := NewRaffleDAO(db)
	ctx := context.Background()

	owner := insertUser(t, users)
	r := insertRaffle(t, d, owner)
	for i := 0; i < 3; i++ {
		_, err := d.InsertPair(ctx, Pair{RaffleID: r.ID, GiverID: insertUser(t, users).ID})
		require.NoError(t, err)
	}

	const attempts = 5
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		finished  atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := d.Finish(ctx, r.ID, owner.ID, func(raffle Raffle) (Raffle, error) {
				if raffle.Finished {
					return Raffle{}, ErrRaffleAlreadyFinished
				}
				return assignInOrder(raffle)
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrRaffleAlreadyFinished):
				finished.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded.Load())
	assert.EqualValues(t, attempts-1, finished.Load())
}

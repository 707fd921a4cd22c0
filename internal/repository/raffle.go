package repository

import (
	"context"
	"fmt"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/domain"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/repository/dao"
)

var (
	ErrRaffleNameExists      = dao.ErrRaffleNameExists
	ErrRaffleNotFound        = dao.ErrRaffleNotFound
	ErrRaffleAlreadyFinished = dao.ErrRaffleAlreadyFinished
	ErrPairExists            = dao.ErrPairExists
	ErrPairNotFound          = dao.ErrPairNotFound
)

type RaffleDAO interface {
	Insert(ctx context.Context, raffle dao.Raffle) (dao.Raffle, error)
	FindByName(ctx context.Context, name string) (dao.Raffle, error)
	CountPairsByGiverAndRaffleName(ctx context.Context, giverID uint, name string) (int64, error)
	InsertPair(ctx context.Context, pair dao.Pair) (dao.Pair, error)
	FindPairsByGiver(ctx context.Context, giverID uint) ([]dao.Pair, error)
	FindPairByGiverAndRaffle(ctx context.Context, giverID, raffleID uint) (dao.Pair, int64, error)
	Finish(ctx context.Context, raffleID, ownerID uint, match func(dao.Raffle) (dao.Raffle, error)) (dao.Raffle, error)
}

type RaffleRepository struct {
	dao RaffleDAO
}

func NewRaffleRepository(dao RaffleDAO) *RaffleRepository {
	return &RaffleRepository{
		dao: dao,
	}
}

func (r *RaffleRepository) Create(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error) {
	created, err := r.dao.Insert(ctx, raffleDomainToDao(raffle))
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return raffleDaoToDomain(created), nil
}

func (r *RaffleRepository) FindByName(ctx context.Context, name string) (domain.Raffle, error) {
	found, err := r.dao.FindByName(ctx, name)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("r.dao.FindByName -> %w", err)
	}

	return raffleDaoToDomain(found), nil
}

func (r *RaffleRepository) HasPairInRaffleNamed(ctx context.Context, userID uint, name string) (bool, error) {
	count, err := r.dao.CountPairsByGiverAndRaffleName(ctx, userID, name)
	if err != nil {
		return false, fmt.Errorf("r.dao.CountPairsByGiverAndRaffleName -> %w", err)
	}

	return count > 0, nil
}

func (r *RaffleRepository) AddPair(ctx context.Context, pair domain.Pair) (domain.Pair, error) {
	created, err := r.dao.InsertPair(ctx, pairDomainToDao(pair))
	if err != nil {
		return domain.Pair{}, fmt.Errorf("r.dao.InsertPair -> %w", err)
	}

	return pairDaoToDomain(created), nil
}

// FindPairsByGiver returns the user's pairs in join order, each with its Raffle attached.
func (r *RaffleRepository) FindPairsByGiver(ctx context.Context, userID uint) ([]domain.Pair, error) {
	found, err := r.dao.FindPairsByGiver(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindPairsByGiver -> %w", err)
	}

	pairs := make([]domain.Pair, 0, len(found))
	for _, p := range found {
		pairs = append(pairs, pairDaoToDomain(p))
	}

	return pairs, nil
}

// FindPairInRaffle returns the user's pair in a raffle and the raffle's pair count.
func (r *RaffleRepository) FindPairInRaffle(ctx context.Context, userID, raffleID uint) (domain.Pair, int, error) {
	found, count, err := r.dao.FindPairByGiverAndRaffle(ctx, userID, raffleID)
	if err != nil {
		return domain.Pair{}, 0, fmt.Errorf("r.dao.FindPairByGiverAndRaffle -> %w", err)
	}

	return pairDaoToDomain(found), int(count), nil
}

// Finish runs match on the locked raffle owned by ownerID and persists its
// outcome atomically.
func (r *RaffleRepository) Finish(ctx context.Context, raffleID, ownerID uint, match func(domain.Raffle) (domain.Raffle, error)) (domain.Raffle, error) {
	finished, err := r.dao.Finish(ctx, raffleID, ownerID, func(locked dao.Raffle) (dao.Raffle, error) {
		matched, err := match(raffleDaoToDomain(locked))
		if err != nil {
			return dao.Raffle{}, err
		}

		return raffleDomainToDao(matched), nil
	})
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("r.dao.Finish -> %w", err)
	}

	return raffleDaoToDomain(finished), nil
}

func raffleDomainToDao(r domain.Raffle) dao.Raffle {
	pairs := make([]dao.Pair, 0, len(r.Pairs))
	for _, p := range r.Pairs {
		pairs = append(pairs, pairDomainToDao(p))
	}

	return dao.Raffle{
		ID:        r.ID,
		Name:      r.Name,
		JoinKey:   r.JoinKey,
		OwnerID:   r.OwnerID,
		Finished:  r.Finished,
		Pairs:     pairs,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func raffleDaoToDomain(r dao.Raffle) domain.Raffle {
	var pairs []domain.Pair
	if len(r.Pairs) > 0 {
		pairs = make([]domain.Pair, 0, len(r.Pairs))
		for _, p := range r.Pairs {
			pairs = append(pairs, pairDaoToDomain(p))
		}
	}

	return domain.Raffle{
		ID:        r.ID,
		Name:      r.Name,
		JoinKey:   r.JoinKey,
		OwnerID:   r.OwnerID,
		Owner:     userDaoToDomain(r.Owner),
		Finished:  r.Finished,
		Pairs:     pairs,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// pairDomainToDao only carries foreign keys, associations are never written through a pair.
func pairDomainToDao(p domain.Pair) dao.Pair {
	return dao.Pair{
		ID:         p.ID,
		RaffleID:   p.RaffleID,
		GiverID:    p.GiverID,
		ReceiverID: p.ReceiverID,
		JoinOrder:  p.JoinOrder,
	}
}

func pairDaoToDomain(p dao.Pair) domain.Pair {
	pair := domain.Pair{
		ID:         p.ID,
		RaffleID:   p.RaffleID,
		GiverID:    p.GiverID,
		Giver:      userDaoToDomain(p.Giver),
		ReceiverID: p.ReceiverID,
		JoinOrder:  p.JoinOrder,
	}
	if p.Raffle != nil {
		raffle := raffleDaoToDomain(*p.Raffle)
		pair.Raffle = &raffle
	}
	if p.Receiver != nil {
		receiver := userDaoToDomain(*p.Receiver)
		pair.Receiver = &receiver
	}

	return pair
}

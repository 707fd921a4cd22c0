package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/domain"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/pkg/raffle"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/repository"
)

// Business errors. Their messages are stable codes shown to clients.
var (
	ErrRaffleNameTaken       = errors.New("error.raffle.nameTaken")
	ErrRaffleAlreadyJoined   = errors.New("error.raffle.alreadyJoinedTo")
	ErrRaffleNotFound        = errors.New("error.raffle.notFound")
	ErrRaffleAlreadyFinished = errors.New("error.raffle.alreadyFinished")
	ErrRaffleOwnedNotFound   = errors.New("error.raffle.ownedNotFound")
	ErrRaffleCannotClose     = errors.New("error.raffle.canNotClose")
	ErrMatchingImpossible    = raffle.ErrMatchingImpossible
)

type RaffleRepository interface {
	Create(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error)
	FindByName(ctx context.Context, name string) (domain.Raffle, error)
	HasPairInRaffleNamed(ctx context.Context, userID uint, name string) (bool, error)
	AddPair(ctx context.Context, pair domain.Pair) (domain.Pair, error)
	FindPairsByGiver(ctx context.Context, userID uint) ([]domain.Pair, error)
	FindPairInRaffle(ctx context.Context, userID, raffleID uint) (domain.Pair, int, error)
	Finish(ctx context.Context, raffleID, ownerID uint, match func(domain.Raffle) (domain.Raffle, error)) (domain.Raffle, error)
}

type RaffleEventPublisher interface {
	Publish(event domain.RaffleEvent)
}

type globalRand struct{}

func (globalRand) Intn(n int) int {
	return rand.Intn(n)
}

type RaffleService struct {
	repo   RaffleRepository
	events RaffleEventPublisher
	rnd    raffle.Chooser
	newKey func() string
}

func NewRaffleService(repo RaffleRepository, events RaffleEventPublisher) *RaffleService {
	return &RaffleService{
		repo:   repo,
		events: events,
		rnd:    globalRand{},
		newKey: raffle.GenerateKey,
	}
}

func (s *RaffleService) CreateRaffle(ctx context.Context, name string, owner domain.User) (uint, error) {
	created, err := s.repo.Create(ctx, domain.Raffle{
		Name:     name,
		JoinKey:  s.newKey(),
		OwnerID:  owner.ID,
		Finished: false,
		Pairs: []domain.Pair{
			{GiverID: owner.ID},
		},
	})
	if err != nil {
		if errors.Is(err, repository.ErrRaffleNameExists) {
			return 0, ErrRaffleNameTaken
		}

		return 0, fmt.Errorf("s.repo.Create -> %w", err)
	}

	zap.L().Info("raffle created", zap.Uint("raffle_id", created.ID), zap.Uint("owner_id", owner.ID))

	return created.ID, nil
}

func (s *RaffleService) JoinRaffle(ctx context.Context, name, joinKey string, user domain.User) (uint, error) {
	joined, err := s.repo.HasPairInRaffleNamed(ctx, user.ID, name)
	if err != nil {
		return 0, fmt.Errorf("s.repo.HasPairInRaffleNamed -> %w", err)
	}
	if joined {
		return 0, ErrRaffleAlreadyJoined
	}

	found, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrRaffleNotFound) {
			return 0, ErrRaffleNotFound
		}

		return 0, fmt.Errorf("s.repo.FindByName -> %w", err)
	}
	if found.JoinKey != joinKey {
		return 0, ErrRaffleNotFound
	}
	if found.Finished {
		return 0, ErrRaffleAlreadyFinished
	}

	if _, err = s.repo.AddPair(ctx, domain.Pair{RaffleID: found.ID, GiverID: user.ID}); err != nil {
		if errors.Is(err, repository.ErrPairExists) {
			return 0, ErrRaffleAlreadyJoined
		}

		return 0, fmt.Errorf("s.repo.AddPair -> %w", err)
	}

	zap.L().Info("raffle joined", zap.Uint("raffle_id", found.ID), zap.Uint("user_id", user.ID))
	s.publishJoined(ctx, found.ID, user.ID)

	return found.ID, nil
}

func (s *RaffleService) EndRaffle(ctx context.Context, raffleID uint, user domain.User) (domain.Raffle, error) {
	finished, err := s.repo.Finish(ctx, raffleID, user.ID, func(locked domain.Raffle) (domain.Raffle, error) {
		if locked.Finished {
			return domain.Raffle{}, ErrRaffleAlreadyFinished
		}
		if len(locked.Pairs) < 2 {
			return domain.Raffle{}, ErrRaffleCannotClose
		}

		matched, err := raffle.Match(locked.Pairs, s.rnd)
		if err != nil {
			return domain.Raffle{}, fmt.Errorf("raffle.Match -> %w", err)
		}

		locked.Pairs = matched
		locked.Finished = true

		return locked, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRaffleNotFound):
			return domain.Raffle{}, ErrRaffleOwnedNotFound
		case errors.Is(err, ErrRaffleAlreadyFinished), errors.Is(err, repository.ErrRaffleAlreadyFinished):
			return domain.Raffle{}, ErrRaffleAlreadyFinished
		case errors.Is(err, ErrRaffleCannotClose):
			return domain.Raffle{}, ErrRaffleCannotClose
		case errors.Is(err, ErrMatchingImpossible):
			zap.L().Error("raffle matching failed", zap.Uint("raffle_id", raffleID), zap.Error(err))
		}

		return domain.Raffle{}, fmt.Errorf("s.repo.Finish -> %w", err)
	}

	zap.L().Info("raffle finished", zap.Uint("raffle_id", finished.ID), zap.Int("pairs", len(finished.Pairs)))
	s.publish(domain.RaffleEvent{
		Type:       domain.RaffleFinished,
		RaffleID:   finished.ID,
		PairsCount: len(finished.Pairs),
	})

	return finished, nil
}

func (s *RaffleService) GetRafflesList(ctx context.Context, userID uint) ([]domain.RaffleListItem, error) {
	pairs, err := s.repo.FindPairsByGiver(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindPairsByGiver -> %w", err)
	}

	return listItems(pairs, userID), nil
}

func (s *RaffleService) GetRaffleDetails(ctx context.Context, raffleID, userID uint) (domain.RaffleDetails, error) {
	pair, pairsCount, err := s.repo.FindPairInRaffle(ctx, userID, raffleID)
	if err != nil {
		if errors.Is(err, repository.ErrPairNotFound) {
			return domain.RaffleDetails{}, ErrRaffleNotFound
		}

		return domain.RaffleDetails{}, fmt.Errorf("s.repo.FindPairInRaffle -> %w", err)
	}
	if pair.Raffle == nil {
		return domain.RaffleDetails{}, fmt.Errorf("pair %d has no raffle loaded", pair.ID)
	}

	return details(pair, pairsCount, userID), nil
}

// IsParticipating reports whether the user holds a pair in the raffle.
func (s *RaffleService) IsParticipating(ctx context.Context, raffleID, userID uint) (bool, error) {
	_, _, err := s.repo.FindPairInRaffle(ctx, userID, raffleID)
	if err != nil {
		if errors.Is(err, repository.ErrPairNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("s.repo.FindPairInRaffle -> %w", err)
	}

	return true, nil
}

func (s *RaffleService) publishJoined(ctx context.Context, raffleID, userID uint) {
	if s.events == nil {
		return
	}

	_, pairsCount, err := s.repo.FindPairInRaffle(ctx, userID, raffleID)
	if err != nil {
		zap.L().Warn("count pairs for join event", zap.Uint("raffle_id", raffleID), zap.Error(err))
		return
	}

	s.publish(domain.RaffleEvent{
		Type:       domain.RaffleJoined,
		RaffleID:   raffleID,
		PairsCount: pairsCount,
	})
}

func (s *RaffleService) publish(event domain.RaffleEvent) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

// Package raffle holds the pure pieces of a gift exchange: join key
// generation and the giver/receiver matching.
package raffle

import (
	"errors"
	"fmt"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/domain"
)

var ErrMatchingImpossible = errors.New("error.raffle.matchingImpossible")

// Chooser picks a uniform index in [0, n). *rand.Rand satisfies it.
type Chooser interface {
	Intn(n int) int
}

// Match assigns a receiver to every pair in join order. The pool of receivers
// starts as every giver; each step picks a random pool member other than the
// giver and removes it. Input pairs are not modified.
func Match(pairs []domain.Pair, rnd Chooser) ([]domain.Pair, error) {
	if len(pairs) < 2 {
		return nil, fmt.Errorf("%d participants -> %w", len(pairs), ErrMatchingImpossible)
	}

	pool := make([]domain.User, 0, len(pairs))
	seen := make(map[uint]struct{}, len(pairs))
	for _, p := range pairs {
		if _, ok := seen[p.GiverID]; ok {
			return nil, fmt.Errorf("giver %d appears twice -> %w", p.GiverID, ErrMatchingImpossible)
		}
		seen[p.GiverID] = struct{}{}
		pool = append(pool, giverOf(p))
	}

	last := pairs[len(pairs)-1].GiverID
	matched := make([]domain.Pair, 0, len(pairs))
	for i, p := range pairs {
		candidates := without(pool, p.GiverID)
		if len(candidates) == 0 {
			return nil, fmt.Errorf("no receiver left for giver %d -> %w", p.GiverID, ErrMatchingImpossible)
		}

		var pick domain.User
		if i == len(pairs)-2 && len(candidates) == 2 && contains(candidates, last) {
			// The final giver must not be left alone in the pool.
			pick = find(candidates, last)
		} else {
			pick = candidates[rnd.Intn(len(candidates))]
		}

		receiver := pick
		receiverID := pick.ID
		p.Receiver = &receiver
		p.ReceiverID = &receiverID

		// The giver, if still unassigned, keeps its place in the pool.
		pool = without(pool, pick.ID)
		matched = append(matched, p)
	}

	return matched, nil
}

func giverOf(p domain.Pair) domain.User {
	g := p.Giver
	g.ID = p.GiverID
	return g
}

// without returns a copy of users minus the one with the given id.
func without(users []domain.User, id uint) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}

func contains(users []domain.User, id uint) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func find(users []domain.User, id uint) domain.User {
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	return domain.User{}
}

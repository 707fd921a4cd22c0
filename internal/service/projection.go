package service

import "github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/domain"

// listItems keeps the order of pairs, which is the user's join order.
func listItems(pairs []domain.Pair, userID uint) []domain.RaffleListItem {
	items := make([]domain.RaffleListItem, 0, len(pairs))
	for _, p := range pairs {
		if p.Raffle == nil {
			continue
		}

		items = append(items, domain.RaffleListItem{
			ID:       p.Raffle.ID,
			Name:     p.Raffle.Name,
			IsOwner:  p.Raffle.IsOwnedBy(userID),
			Finished: p.Raffle.Finished,
		})
	}

	return items
}

// details never exposes the join key to a non-owner, and only names the
// match once the raffle is finished.
func details(pair domain.Pair, pairsCount int, userID uint) domain.RaffleDetails {
	r := pair.Raffle
	d := domain.RaffleDetails{
		ID:         r.ID,
		Name:       r.Name,
		IsOwner:    r.IsOwnedBy(userID),
		Finished:   r.Finished,
		PairsCount: pairsCount,
	}

	if d.IsOwner {
		d.RaffleKey = r.JoinKey
	}
	if r.Finished && pair.Receiver != nil {
		d.YourMatch = pair.Receiver.Name
	}

	return d
}

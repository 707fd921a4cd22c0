package domain

import "time"

type Raffle struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	JoinKey   string    `json:"-"`
	OwnerID   uint      `json:"owner_id"`
	Owner     User      `json:"-"`
	Finished  bool      `json:"finished"`
	Pairs     []Pair    `json:"pairs"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pair is one participation in a raffle. Receiver stays nil until the raffle
// is finished and is never serialized: only the giver may learn it.
type Pair struct {
	ID         uint    `json:"id"`
	RaffleID   uint    `json:"raffle_id"`
	Raffle     *Raffle `json:"-"`
	GiverID    uint    `json:"giver_id"`
	Giver      User    `json:"-"`
	ReceiverID *uint   `json:"-"`
	Receiver   *User   `json:"-"`
	JoinOrder  uint    `json:"join_order"`
}

func (r Raffle) IsOwnedBy(userID uint) bool {
	return r.OwnerID == userID
}

type RaffleListItem struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	IsOwner  bool   `json:"isOwner"`
	Finished bool   `json:"finished"`
}

type RaffleDetails struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	IsOwner    bool   `json:"isOwner"`
	Finished   bool   `json:"finished"`
	PairsCount int    `json:"pairsCount"`
	RaffleKey  string `json:"raffleKey,omitempty"`
	YourMatch  string `json:"yourMatch,omitempty"`
}

type RaffleEventType string

const (
	RaffleJoined   RaffleEventType = "joined"
	RaffleFinished RaffleEventType = "finished"
)

type RaffleEvent struct {
	Type       RaffleEventType `json:"type"`
	RaffleID   uint            `json:"raffle_id"`
	PairsCount int             `json:"pairs_count"`
}

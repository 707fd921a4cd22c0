package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRaffleNameExists      = errors.New("raffle name already exists")
	ErrRaffleNotFound        = errors.New("raffle not found")
	ErrRaffleAlreadyFinished = errors.New("raffle already finished")
	ErrPairExists            = errors.New("user already has a pair in raffle")
	ErrPairNotFound          = errors.New("pair not found")
)

type Raffle struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"unique;not null"`
	JoinKey   string `gorm:"not null"`
	OwnerID   uint   `gorm:"not null;index"`
	Owner     User   `gorm:"foreignKey:OwnerID"`
	Finished  bool   `gorm:"not null;default:false"`
	Pairs     []Pair `gorm:"foreignKey:RaffleID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Pair struct {
	ID         uint    `gorm:"primaryKey"`
	RaffleID   uint    `gorm:"not null;uniqueIndex:idx_pairs_raffle_giver"`
	Raffle     *Raffle `gorm:"foreignKey:RaffleID"`
	GiverID    uint    `gorm:"not null;uniqueIndex:idx_pairs_raffle_giver"`
	Giver      User    `gorm:"foreignKey:GiverID"`
	ReceiverID *uint
	Receiver   *User `gorm:"foreignKey:ReceiverID"`
	JoinOrder  uint  `gorm:"autoIncrement;not null"`
}

type RaffleDAO struct {
	db *gorm.DB
}

func NewRaffleDAO(db *gorm.DB) *RaffleDAO {
	return &RaffleDAO{
		db: db,
	}
}

func byJoinOrder(db *gorm.DB) *gorm.DB {
	return db.Order("join_order ASC")
}

// Insert saves the raffle together with its pairs.
func (d *RaffleDAO) Insert(ctx context.Context, raffle Raffle) (Raffle, error) {
	result := d.db.WithContext(ctx).Create(&raffle)
	if result.Error != nil {
		if isUniqueViolation(result.Error, "uni_raffles_name") {
			return Raffle{}, ErrRaffleNameExists
		}

		return Raffle{}, result.Error
	}

	return raffle, nil
}

func (d *RaffleDAO) FindByName(ctx context.Context, name string) (Raffle, error) {
	var raffle Raffle

	result := d.db.WithContext(ctx).First(&raffle, "name = ?", name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Raffle{}, ErrRaffleNotFound
		}

		return Raffle{}, result.Error
	}

	return raffle, nil
}

func (d *RaffleDAO) CountPairsByGiverAndRaffleName(ctx context.Context, giverID uint, name string) (int64, error) {
	var count int64

	result := d.db.WithContext(ctx).
		Model(&Pair{}).
		Joins("JOIN raffles ON raffles.id = pairs.raffle_id").
		Where("pairs.giver_id = ? AND raffles.name = ?", giverID, name).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

func (d *RaffleDAO) InsertPair(ctx context.Context, pair Pair) (Pair, error) {
	result := d.db.WithContext(ctx).Omit(clause.Associations).Create(&pair)
	if result.Error != nil {
		if isUniqueViolation(result.Error, "idx_pairs_raffle_giver") {
			return Pair{}, ErrPairExists
		}

		return Pair{}, result.Error
	}

	return pair, nil
}

// FindPairsByGiver returns every pair the user gives in, with its raffle loaded.
func (d *RaffleDAO) FindPairsByGiver(ctx context.Context, giverID uint) ([]Pair, error) {
	var pairs []Pair

	result := d.db.WithContext(ctx).
		Preload("Raffle").
		Where("giver_id = ?", giverID).
		Scopes(byJoinOrder).
		Find(&pairs)
	if result.Error != nil {
		return nil, result.Error
	}

	return pairs, nil
}

// FindPairByGiverAndRaffle returns the user's pair in a raffle with the raffle
// and the receiver loaded, plus the number of pairs in that raffle.
func (d *RaffleDAO) FindPairByGiverAndRaffle(ctx context.Context, giverID, raffleID uint) (Pair, int64, error) {
	var pair Pair

	result := d.db.WithContext(ctx).
		Preload("Raffle").
		Preload("Receiver").
		Where("giver_id = ? AND raffle_id = ?", giverID, raffleID).
		Scopes(byJoinOrder).
		First(&pair)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Pair{}, 0, ErrPairNotFound
		}

		return Pair{}, 0, result.Error
	}

	var count int64
	result = d.db.WithContext(ctx).Model(&Pair{}).Where("raffle_id = ?", raffleID).Count(&count)
	if result.Error != nil {
		return Pair{}, 0, result.Error
	}

	return pair, count, nil
}

// Finish locks the owner's raffle, hands it with its pairs to match and stores
// the returned receivers and the finished flag in the same transaction. Any
// error from match rolls everything back.
func (d *RaffleDAO) Finish(ctx context.Context, raffleID, ownerID uint, match func(Raffle) (Raffle, error)) (Raffle, error) {
	var finished Raffle

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var raffle Raffle
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", raffleID, ownerID).
			First(&raffle)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrRaffleNotFound
			}
			return result.Error
		}

		if err := tx.Preload("Giver").Where("raffle_id = ?", raffle.ID).Scopes(byJoinOrder).Find(&raffle.Pairs).Error; err != nil {
			return err
		}

		matched, err := match(raffle)
		if err != nil {
			return err
		}

		for _, p := range matched.Pairs {
			result = tx.Model(&Pair{}).
				Where("id = ? AND raffle_id = ?", p.ID, raffle.ID).
				Update("receiver_id", p.ReceiverID)
			if result.Error != nil {
				return result.Error
			}
		}

		result = tx.Model(&Raffle{}).
			Where("id = ? AND finished = ?", raffle.ID, false).
			Updates(map[string]interface{}{"finished": true, "updated_at": time.Now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRaffleAlreadyFinished
		}

		return tx.Preload("Pairs", byJoinOrder).
			Preload("Pairs.Giver").
			Preload("Pairs.Receiver").
			First(&finished, raffle.ID).Error
	})
	if err != nil {
		return Raffle{}, err
	}

	return finished, nil
}

package services

import (
	"context"
	"time"

	"lesson-league-system/logging"
	"lesson-league-system/metrics"
	"lesson-league-system/models"
	"lesson-league-system/repository"

	"github.com/google/uuid"
)

// HeartRefillInterval is the time it takes to regain one heart.
const HeartRefillInterval = 30 * time.Minute

// RefillHearts returns the heart count after regeneration since lastRefill
// and whether anything changed. At or above cap nothing changes.
func RefillHearts(hearts, maxHearts int, lastRefill *time.Time, now time.Time) (int, bool) {
	if hearts >= maxHearts {
		return hearts, false
	}
	if lastRefill == nil {
		// no clock yet; start it now
		return hearts, true
	}
	elapsed := now.Sub(*lastRefill)
	if elapsed < HeartRefillInterval {
		return hearts, false
	}
	gained := int(elapsed / HeartRefillInterval)
	next := hearts + gained
	if next > maxHearts {
		next = maxHearts
	}
	return next, true
}

// StreakForGap is the streak rule over whole calendar days since the last login.
func StreakForGap(gapDays, prev int) int {
	switch {
	case gapDays == 1:
		return prev + 1
	case gapDays > 1:
		return 1
	default:
		return prev
	}
}

// NextStreak applies StreakForGap to the UTC dates of lastLogin and now.
// A user with no recorded login starts at 1.
func NextStreak(lastLogin *time.Time, now time.Time, prev int) int {
	if lastLogin == nil {
		return 1
	}
	return StreakForGap(daysBetween(*lastLogin, now), prev)
}

func daysBetween(from, to time.Time) int {
	f := from.UTC().Truncate(24 * time.Hour)
	t := to.UTC().Truncate(24 * time.Hour)
	return int(t.Sub(f).Hours() / 24)
}

// CanAfford reports whether a balance covers price.
func CanAfford(gems, price int64) bool {
	return gems >= price
}

type HeartsStatus struct {
	Hearts       int        `json:"hearts"`
	MaxHearts    int        `json:"max_hearts"`
	NextRefillAt *time.Time `json:"next_refill_at,omitempty"`
	Deducted     *bool      `json:"deducted,omitempty"`
}

type PurchaseResult struct {
	Item          models.ShopItem        `json:"item"`
	GemsRemaining int64                  `json:"gems_remaining"`
	Inventory     *models.InventoryEntry `json:"inventory,omitempty"`
	Hearts        int                    `json:"hearts"`
	MaxHearts     int                    `json:"max_hearts"`
}

// EconomyService owns hearts, streaks, the shop and inventories.
type EconomyService struct {
	users repository.UserRepository
	shop  repository.ShopRepository
	now   Clock
}

func NewEconomyService(store *repository.Store, now Clock) *EconomyService {
	return &EconomyService{users: store.Users, shop: store.Shop, now: now}
}

// SeedShop inserts missing catalog items. Idempotent.
func (s *EconomyService) SeedShop(ctx context.Context) error {
	return s.shop.SeedItems(ctx, models.ShopCatalog)
}

// RefillHearts regenerates hearts for elapsed time and persists on change.
func (s *EconomyService) RefillHearts(ctx context.Context, userID string) (*HeartsStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr("RefillHearts", "user", err)
	}
	if err := s.applyRefill(ctx, user); err != nil {
		return nil, err
	}
	return heartsStatus(user), nil
}

// applyRefill updates user in place and persists when hearts changed.
func (s *EconomyService) applyRefill(ctx context.Context, user *models.User) error {
	now := s.now()
	hearts, changed := RefillHearts(user.Hearts, user.MaxHearts, user.LastHeartRefill, now)
	if !changed {
		return nil
	}
	if err := s.users.SetHearts(ctx, user.ID, hearts, now); err != nil {
		return storeErr("RefillHearts", "user", err)
	}
	user.Hearts = hearts
	user.LastHeartRefill = &now
	return nil
}

func heartsStatus(user *models.User) *HeartsStatus {
	st := &HeartsStatus{Hearts: user.Hearts, MaxHearts: user.MaxHearts}
	if user.Hearts < user.MaxHearts && user.LastHeartRefill != nil {
		next := user.LastHeartRefill.Add(HeartRefillInterval)
		st.NextRefillAt = &next
	}
	return st
}

// DeductHeart removes one heart; Deducted is false when none were left.
func (s *EconomyService) DeductHeart(ctx context.Context, userID string) (*HeartsStatus, error) {
	const op = "DeductHeart"
	ok, err := s.users.DecrementHeart(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	// leaving a full bar starts the regeneration clock
	if ok && user.Hearts == user.MaxHearts-1 {
		now := s.now()
		if err := s.users.SetHearts(ctx, userID, user.Hearts, now); err != nil {
			return nil, storeErr(op, "user", err)
		}
		user.LastHeartRefill = &now
	}
	st := heartsStatus(user)
	st.Deducted = &ok
	return st, nil
}

// UpdateStreak applies the daily streak rule and records now as the last login.
func (s *EconomyService) UpdateStreak(ctx context.Context, userID string) (int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, storeErr("UpdateStreak", "user", err)
	}
	return s.touchStreak(ctx, user)
}

func (s *EconomyService) touchStreak(ctx context.Context, user *models.User) (int, error) {
	now := s.now()
	streak := NextStreak(user.LastLogin, now, user.Streak)
	if err := s.users.SetStreak(ctx, user.ID, streak, now); err != nil {
		return 0, storeErr("UpdateStreak", "user", err)
	}
	user.Streak = streak
	user.LastLogin = &now
	return streak, nil
}

func (s *EconomyService) ListShop(ctx context.Context) ([]models.ShopItem, error) {
	items, err := s.shop.ListItems(ctx)
	if err != nil {
		return nil, storeErr("ListShop", "shop", err)
	}
	return items, nil
}

func (s *EconomyService) Inventory(ctx context.Context, userID string) ([]models.InventoryEntry, error) {
	rows, err := s.shop.ListInventory(ctx, userID, s.now())
	if err != nil {
		return nil, storeErr("Inventory", "inventory", err)
	}
	return rows, nil
}

// Purchase debits the item's price and applies its effect. Insufficient
// gems is a validation error and leaves the balance untouched.
func (s *EconomyService) Purchase(ctx context.Context, userID, itemID string) (*PurchaseResult, error) {
	const op = "Purchase"
	if itemID == "" {
		return nil, invalid(op, "item_id is required")
	}
	item, err := s.shop.GetItem(ctx, itemID)
	if err != nil {
		return nil, storeErr(op, "item", err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	if !CanAfford(user.Gems, item.Price) {
		metrics.Purchases.WithLabelValues(item.ItemType, "insufficient_funds").Inc()
		return nil, invalid(op, "insufficient gems")
	}
	ok, err := s.users.DebitGems(ctx, userID, item.Price)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	if !ok {
		metrics.Purchases.WithLabelValues(item.ItemType, "insufficient_funds").Inc()
		return nil, invalid(op, "insufficient gems")
	}

	result := &PurchaseResult{Item: *item}
	now := s.now()
	switch item.ItemType {
	case models.ItemHeartRefill:
		err = s.users.SetHearts(ctx, userID, user.MaxHearts, now)
	case models.ItemHeartIncrease:
		err = s.users.IncreaseMaxHearts(ctx, userID)
	case models.ItemLevelSkip:
		err = s.users.IncrementSkillTreeLevel(ctx, userID)
	default:
		entry := &models.InventoryEntry{
			ID:          uuid.NewString(),
			UserID:      userID,
			ItemType:    item.ItemType,
			PurchasedAt: now,
		}
		if item.ItemType == models.ItemXPBoost {
			exp := now.Add(models.XPBoostDuration)
			entry.ExpiresAt = &exp
		}
		if err = s.shop.AddInventory(ctx, entry); err == nil {
			result.Inventory = entry
		}
	}
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Str("item", item.ItemType).Msg("[SHOP] gems debited but effect failed")
		return nil, storeErr(op, "user", err)
	}

	updated, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	result.GemsRemaining = updated.Gems
	result.Hearts = updated.Hearts
	result.MaxHearts = updated.MaxHearts

	metrics.Purchases.WithLabelValues(item.ItemType, "ok").Inc()
	logging.Info().Str("user_id", userID).Str("item", item.ItemType).Int64("price", item.Price).Msg("[SHOP] purchase")
	return result, nil
}

// PurgeExpiredInventory deletes timed boosts past their expiry.
func (s *EconomyService) PurgeExpiredInventory(ctx context.Context) (int64, error) {
	n, err := s.shop.DeleteExpiredInventory(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.InventoryExpired.Add(float64(n))
	}
	return n, nil
}

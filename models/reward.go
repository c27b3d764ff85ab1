package models

import (
	"time"
)

// ItemCategory groups shop items by how their effect is applied.
type ItemCategory string

const (
	ItemCategoryConsumable ItemCategory = "consumable"
	ItemCategoryPowerUp    ItemCategory = "power_up"
	ItemCategoryPermanent  ItemCategory = "permanent"
)

// Item types. heart_refill, heart_increase and level_skip change the account
// at purchase; every other item is a collectible kept in the inventory with no
// effect on XP, streaks or hearts.
const (
	ItemHeartRefill   = "heart_refill"
	ItemStreakFreeze  = "streak_freeze"
	ItemXPBoost       = "xp_boost"
	ItemHeartIncrease = "heart_increase"
	ItemTimerBoost    = "timer_boost"
	ItemHintToken     = "hint_token"
	ItemMistakeShield = "mistake_shield"
	ItemLevelSkip     = "level_skip"
	ItemBonusLesson   = "bonus_lesson"
)

// XPBoostDuration is how long a purchased xp_boost stays in the inventory.
// It does not multiply XP.
const XPBoostDuration = 15 * time.Minute

// ShopItem is a catalog entry purchasable with gems.
type ShopItem struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	ItemType    string       `gorm:"uniqueIndex;not null" json:"item_type"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Price       int64        `gorm:"not null" json:"price"`
	Icon        string       `gorm:"size:10" json:"icon"`
	Category    ItemCategory `gorm:"type:varchar(16);not null" json:"category"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// InventoryEntry is a purchased item held by a user.
type InventoryEntry struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string     `gorm:"index;type:uuid;not null" json:"user_id"`
	ItemType    string     `gorm:"index;not null" json:"item_type"`
	PurchasedAt time.Time  `gorm:"not null" json:"purchased_at"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"`
}

// Active reports whether the entry is still usable at now.
func (e *InventoryEntry) Active(now time.Time) bool {
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}

// ShopCatalog is seeded into the store on startup when missing.
var ShopCatalog = []ShopItem{
	{ItemType: ItemHeartRefill, Name: "Heart Refill", Description: "Refill all hearts instantly", Price: 350, Icon: "❤️", Category: ItemCategoryConsumable},
	{ItemType: ItemStreakFreeze, Name: "Streak Freeze", Description: "Collectible frost badge for your profile", Price: 200, Icon: "🧊", Category: ItemCategoryPowerUp},
	{ItemType: ItemXPBoost, Name: "XP Boost", Description: "Collectible lightning badge, shown for 15 minutes", Price: 100, Icon: "⚡", Category: ItemCategoryPowerUp},
	{ItemType: ItemHeartIncrease, Name: "Extra Heart", Description: "Permanently increase max hearts by one", Price: 500, Icon: "💖", Category: ItemCategoryPermanent},
	{ItemType: ItemTimerBoost, Name: "Timer Boost", Description: "Collectible stopwatch badge for your profile", Price: 150, Icon: "⏱️", Category: ItemCategoryPowerUp},
	{ItemType: ItemHintToken, Name: "Hint Token", Description: "Collectible lightbulb badge for your profile", Price: 75, Icon: "💡", Category: ItemCategoryConsumable},
	{ItemType: ItemMistakeShield, Name: "Mistake Shield", Description: "Collectible shield badge for your profile", Price: 300, Icon: "🛡️", Category: ItemCategoryPowerUp},
	{ItemType: ItemLevelSkip, Name: "Level Skip", Description: "Raise your skill tree level stat by one", Price: 450, Icon: "⏭️", Category: ItemCategoryPermanent},
	{ItemType: ItemBonusLesson, Name: "Bonus Lesson", Description: "Collectible gift badge for your profile", Price: 200, Icon: "🎁", Category: ItemCategoryConsumable},
}

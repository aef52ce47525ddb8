package economy

import (
	"context"
	"fmt"

	"guild-ledger/internal/config"
)

type ShopItem struct {
	ID          string
	Emoji       string
	Name        string
	Price       int64
	Kind        string
	Description string
}

type PurchaseResult struct {
	OK       bool
	Reason   Reason
	Item     ShopItem
	Quantity int64
	Balance  int64
	Message  string
}

type InventoryEntry struct {
	Item     ShopItem
	Quantity int64
}

func shopFromConfig(cfgs []config.ShopItemConfig) []ShopItem {
	items := make([]ShopItem, 0, len(cfgs))
	for _, c := range cfgs {
		items = append(items, ShopItem{ID: c.ID, Emoji: c.Emoji, Name: c.Name, Price: c.Price, Kind: c.Kind, Description: c.Description})
	}
	return items
}

// Shop lists the catalog in configuration order.
func (s *Service) Shop() []ShopItem {
	out := make([]ShopItem, len(s.shop))
	copy(out, s.shop)
	return out
}

// FindItem matches an item by id or by its emoji.
func (s *Service) FindItem(ref string) (ShopItem, bool) {
	for _, item := range s.shop {
		if item.ID == ref || (item.Emoji != "" && item.Emoji == ref) {
			return item, true
		}
	}
	return ShopItem{}, false
}

func (s *Service) BuyItem(ctx context.Context, guildID, userID uint64, itemRef string) (PurchaseResult, error) {
	item, ok := s.FindItem(itemRef)
	if !ok {
		return PurchaseResult{Reason: ReasonUnknownItem, Message: "Item not found in shop!"}, nil
	}
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()

	acct, err := s.load(ctx, guildID, userID)
	if err != nil {
		return PurchaseResult{}, err
	}
	if !applyDebit(&acct, item.Price) {
		return PurchaseResult{
			Reason:  ReasonInsufficientFunds,
			Item:    item,
			Balance: acct.Balance,
			Message: fmt.Sprintf("You need %d coins but only have %d!", item.Price, acct.Balance),
		}, nil
	}
	acct.Inventory[item.ID]++

	if err := s.save(ctx, acct); err != nil {
		return PurchaseResult{}, err
	}
	s.record(ctx, acct, -item.Price, "Bought "+item.Name)
	return PurchaseResult{
		OK:       true,
		Item:     item,
		Quantity: acct.Inventory[item.ID],
		Balance:  acct.Balance,
		Message:  fmt.Sprintf("Successfully bought %s for %d coins!", item.Name, item.Price),
	}, nil
}

// Inventory lists owned items in catalog order. Items no longer in the
// catalog and zero quantities are skipped.
func (s *Service) Inventory(ctx context.Context, guildID, userID uint64) ([]InventoryEntry, error) {
	acct, err := s.GetAccount(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	var entries []InventoryEntry
	for _, item := range s.shop {
		if qty := acct.Inventory[item.ID]; qty > 0 {
			entries = append(entries, InventoryEntry{Item: item, Quantity: qty})
		}
	}
	return entries, nil
}

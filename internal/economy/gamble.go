package economy

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Heads = "heads"
	Tails = "tails"
)

type CoinflipResult struct {
	OK      bool
	Reason  Reason
	Won     bool
	Outcome string
	// Delta is +bet on a win and -bet on a loss.
	Delta   int64
	Balance int64
}

type SlotsResult struct {
	OK       bool
	Reason   Reason
	Reels    [3]string
	Winnings int64
	Message  string
	Balance  int64
}

// SlotPool is the reel strip; every reel draws one entry uniformly.
var SlotPool = [9]string{"🍒", "🍒", "🍒", "🍋", "🍋", "🍊", "🍊", "⭐", "💎"}

type slotPayout struct {
	multiplier int64
	message    string
}

var threeOfAKind = map[string]slotPayout{
	"💎": {50, "💎 JACKPOT! 💎"},
	"⭐": {10, "⭐ AMAZING! ⭐"},
	"🍊": {5, "🍊 Great! 🍊"},
	"🍋": {3, "🍋 Nice! 🍋"},
	"🍒": {2, "🍒 Good! 🍒"},
}

var pairMultiplier = decimal.RequireFromString("0.5")

// EvaluateSlots returns the winnings for reels, the bet already deducted.
func EvaluateSlots(reels [3]string, bet int64) (int64, string) {
	if reels[0] == reels[1] && reels[1] == reels[2] {
		if payout, ok := threeOfAKind[reels[0]]; ok {
			return bet * payout.multiplier, payout.message
		}
	}
	if reels[0] == reels[1] || reels[1] == reels[2] || reels[0] == reels[2] {
		return decimal.NewFromInt(bet).Mul(pairMultiplier).Floor().IntPart(), "Two of a kind!"
	}
	return 0, "Better luck next time!"
}

func (s *Service) Coinflip(ctx context.Context, guildID, userID uint64, bet int64, choice string) (CoinflipResult, error) {
	choice = strings.ToLower(strings.TrimSpace(choice))
	if bet <= 0 || (choice != Heads && choice != Tails) {
		return CoinflipResult{Reason: ReasonInvalidArgument}, nil
	}
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()

	acct, err := s.load(ctx, guildID, userID)
	if err != nil {
		return CoinflipResult{}, err
	}
	if acct.Balance < bet {
		return CoinflipResult{Reason: ReasonInsufficientFunds, Balance: acct.Balance}, nil
	}

	outcome := Heads
	if s.rng.Intn(2) == 1 {
		outcome = Tails
	}
	result := CoinflipResult{OK: true, Outcome: outcome, Won: outcome == choice}
	if result.Won {
		applyCredit(&acct, bet)
		result.Delta = bet
	} else {
		applyDebit(&acct, bet)
		result.Delta = -bet
	}

	if err := s.save(ctx, acct); err != nil {
		return CoinflipResult{}, err
	}
	if result.Won {
		s.record(ctx, acct, bet, "Coinflip win")
	} else {
		s.record(ctx, acct, -bet, "Coinflip loss")
	}
	result.Balance = acct.Balance
	return result, nil
}

// Slots takes the bet, spins three reels and pays out, all in one write.
func (s *Service) Slots(ctx context.Context, guildID, userID uint64, bet int64) (SlotsResult, error) {
	if bet <= 0 {
		return SlotsResult{Reason: ReasonInvalidArgument}, nil
	}
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()

	acct, err := s.load(ctx, guildID, userID)
	if err != nil {
		return SlotsResult{}, err
	}
	if !applyDebit(&acct, bet) {
		return SlotsResult{Reason: ReasonInsufficientFunds, Balance: acct.Balance}, nil
	}

	var reels [3]string
	for i := range reels {
		reels[i] = SlotPool[s.rng.Intn(len(SlotPool))]
	}
	winnings, message := EvaluateSlots(reels, bet)
	if winnings > 0 {
		applyCredit(&acct, winnings)
	}

	if err := s.save(ctx, acct); err != nil {
		return SlotsResult{}, err
	}
	s.record(ctx, acct, -bet, "Slots bet")
	s.record(ctx, acct, winnings, "Slots win")
	return SlotsResult{OK: true, Reels: reels, Winnings: winnings, Message: message, Balance: acct.Balance}, nil
}

// Package economy implements the per-guild coin ledger: balances, daily
// rewards, jobs, gambling and the shop.
//
// Every operation serializes on the (guild, user) key, reads the account
// (creating it on first access), applies the rule and writes the account back
// in one store call. Business rejections are reported through Reason on the
// result; the error return is reserved for storage failures.
package economy

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"guild-ledger/internal/config"
	"guild-ledger/internal/storage"
	"guild-ledger/internal/utils"
)

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonCooldown          Reason = "cooldown"
	ReasonUnknownItem       Reason = "unknown_item"
	ReasonInvalidArgument   Reason = "invalid_argument"
	ReasonInvalidCategory   Reason = "invalid_category"
	ReasonSelfTransfer      Reason = "self_transfer"
)

type Store interface {
	GetEconomyAccount(ctx context.Context, guildID, userID uint64) (storage.EconomyAccount, bool, error)
	SaveEconomyAccounts(ctx context.Context, accounts ...storage.EconomyAccount) error
	ListEconomyAccounts(ctx context.Context, guildID uint64) ([]storage.EconomyAccount, error)
}

// Recorder receives every committed balance movement.
type Recorder interface {
	Record(ctx context.Context, guildID, userID uint64, amount int64, reason string)
}

type Clock interface {
	Now() time.Time
}

type Random interface {
	Intn(n int) int
	Float64() float64
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	store    Store
	cfg      config.EconomyConfig
	recorder Recorder
	logger   *zap.Logger
	clock    Clock
	rng      Random
	locks    *utils.KeyedMutex
	jobs     []Job
	shop     []ShopItem
}

func NewService(store Store, cfg config.EconomyConfig, recorder Recorder, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
		clock:    realClock{},
		rng:      utils.NewRandom(),
		locks:    utils.NewKeyedMutex(),
		jobs:     jobsFromConfig(cfg.Jobs),
		shop:     shopFromConfig(cfg.ShopItems),
	}
}

func (s *Service) WithClock(clock Clock) {
	s.clock = clock
}

func (s *Service) WithRandom(rng Random) {
	s.rng = rng
}

// BalanceResult reports a single credit or debit.
type BalanceResult struct {
	OK      bool
	Reason  Reason
	Balance int64
}

type TransferResult struct {
	OK          bool
	Reason      Reason
	FromBalance int64
	ToBalance   int64
}

func accountKey(guildID, userID uint64) string {
	return storage.FormatID(guildID) + ":" + storage.FormatID(userID)
}

// GetAccount returns the member's account, creating and persisting the
// starting state on first access.
func (s *Service) GetAccount(ctx context.Context, guildID, userID uint64) (storage.EconomyAccount, error) {
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()
	return s.load(ctx, guildID, userID)
}

// load must be called with the account key held.
func (s *Service) load(ctx context.Context, guildID, userID uint64) (storage.EconomyAccount, error) {
	acct, ok, err := s.store.GetEconomyAccount(ctx, guildID, userID)
	if err != nil {
		return storage.EconomyAccount{}, fmt.Errorf("load account: %w", err)
	}
	if ok {
		if acct.Inventory == nil {
			acct.Inventory = make(map[string]int64)
		}
		if acct.JobExperience == nil {
			acct.JobExperience = make(map[string]int64)
		}
		return acct, nil
	}

	acct = s.newAccount(guildID, userID)
	if err := s.store.SaveEconomyAccounts(ctx, acct); err != nil {
		return storage.EconomyAccount{}, fmt.Errorf("create account: %w", err)
	}
	return acct, nil
}

func (s *Service) newAccount(guildID, userID uint64) storage.EconomyAccount {
	return storage.EconomyAccount{
		GuildID:       guildID,
		UserID:        userID,
		Balance:       s.cfg.StartingBalance,
		TotalEarned:   s.cfg.StartingBalance,
		Inventory:     make(map[string]int64),
		JobExperience: make(map[string]int64),
	}
}

func (s *Service) save(ctx context.Context, accounts ...storage.EconomyAccount) error {
	if err := s.store.SaveEconomyAccounts(ctx, accounts...); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, acct storage.EconomyAccount, amount int64, reason string) {
	if s.recorder == nil || amount == 0 {
		return
	}
	s.recorder.Record(ctx, acct.GuildID, acct.UserID, amount, reason)
}

// applyCredit adds amount, counting positive amounts as earnings.
func applyCredit(acct *storage.EconomyAccount, amount int64) {
	acct.Balance += amount
	if amount > 0 {
		acct.TotalEarned += amount
	}
}

// fitsCredit reports whether a positive amount can be added without
// overflowing the balance or the earnings total.
func fitsCredit(acct storage.EconomyAccount, amount int64) bool {
	if amount <= 0 {
		return true
	}
	return acct.Balance <= math.MaxInt64-amount && acct.TotalEarned <= math.MaxInt64-amount
}

// applyDebit removes amount and counts it as spent. It reports false and
// leaves acct untouched when the balance does not cover amount.
func applyDebit(acct *storage.EconomyAccount, amount int64) bool {
	if acct.Balance < amount {
		return false
	}
	acct.Balance -= amount
	acct.TotalSpent += amount
	return true
}

// Credit adds amount to the balance. A negative amount is accepted only while
// the balance stays non-negative; an amount that would overflow the balance or
// the earnings total is an invalid argument.
func (s *Service) Credit(ctx context.Context, guildID, userID uint64, amount int64, reason string) (BalanceResult, error) {
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()

	acct, err := s.load(ctx, guildID, userID)
	if err != nil {
		return BalanceResult{}, err
	}
	if !fitsCredit(acct, amount) {
		return BalanceResult{Reason: ReasonInvalidArgument, Balance: acct.Balance}, nil
	}
	if acct.Balance+amount < 0 {
		return BalanceResult{Reason: ReasonInsufficientFunds, Balance: acct.Balance}, nil
	}

	applyCredit(&acct, amount)
	if err := s.save(ctx, acct); err != nil {
		return BalanceResult{}, err
	}
	s.record(ctx, acct, amount, reason)
	return BalanceResult{OK: true, Balance: acct.Balance}, nil
}

func (s *Service) Debit(ctx context.Context, guildID, userID uint64, amount int64, reason string) (BalanceResult, error) {
	if amount < 0 {
		return BalanceResult{Reason: ReasonInvalidArgument}, nil
	}
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()

	acct, err := s.load(ctx, guildID, userID)
	if err != nil {
		return BalanceResult{}, err
	}
	if !applyDebit(&acct, amount) {
		return BalanceResult{Reason: ReasonInsufficientFunds, Balance: acct.Balance}, nil
	}
	if err := s.save(ctx, acct); err != nil {
		return BalanceResult{}, err
	}
	s.record(ctx, acct, -amount, reason)
	return BalanceResult{OK: true, Balance: acct.Balance}, nil
}

// Transfer moves amount between two members of the same guild. Both accounts
// are written together or not at all.
func (s *Service) Transfer(ctx context.Context, guildID, fromID, toID uint64, amount int64) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{Reason: ReasonInvalidArgument}, nil
	}
	if fromID == toID {
		return TransferResult{Reason: ReasonSelfTransfer}, nil
	}
	unlock := s.locks.LockAll(accountKey(guildID, fromID), accountKey(guildID, toID))
	defer unlock()

	from, err := s.load(ctx, guildID, fromID)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := s.load(ctx, guildID, toID)
	if err != nil {
		return TransferResult{}, err
	}
	if !fitsCredit(to, amount) {
		return TransferResult{Reason: ReasonInvalidArgument, FromBalance: from.Balance, ToBalance: to.Balance}, nil
	}
	if !applyDebit(&from, amount) {
		return TransferResult{Reason: ReasonInsufficientFunds, FromBalance: from.Balance, ToBalance: to.Balance}, nil
	}
	applyCredit(&to, amount)

	if err := s.save(ctx, from, to); err != nil {
		return TransferResult{}, err
	}
	s.record(ctx, from, -amount, "Transfer to "+storage.FormatID(toID))
	s.record(ctx, to, amount, "Transfer from "+storage.FormatID(fromID))
	return TransferResult{OK: true, FromBalance: from.Balance, ToBalance: to.Balance}, nil
}

// ResetAccount puts the member back to the starting state.
func (s *Service) ResetAccount(ctx context.Context, guildID, userID uint64) (storage.EconomyAccount, error) {
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()

	acct := s.newAccount(guildID, userID)
	if err := s.save(ctx, acct); err != nil {
		return storage.EconomyAccount{}, err
	}
	s.logger.Info("economy account reset", zap.Uint64("guild_id", guildID), zap.Uint64("user_id", userID))
	return acct, nil
}

func remaining(last, now time.Time, cooldown time.Duration) time.Duration {
	if last.IsZero() {
		return 0
	}
	left := cooldown - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

package economy

import (
	"context"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"guild-ledger/internal/config"
	"guild-ledger/internal/storage"
	"guild-ledger/internal/utils"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

// scriptedRandom replays fixed draws and falls back to zero once exhausted.
type scriptedRandom struct {
	ints   []int
	floats []float64
}

func (r *scriptedRandom) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *scriptedRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

type memoryRecorder struct {
	mu      sync.Mutex
	amounts []int64
	reasons []string
}

func (m *memoryRecorder) Record(_ context.Context, _, _ uint64, amount int64, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.amounts = append(m.amounts, amount)
	m.reasons = append(m.reasons, reason)
}

type fixture struct {
	svc      *Service
	store    *storage.Store
	clock    *fakeClock
	rng      *scriptedRandom
	recorder *memoryRecorder
}

func newFixture(t *testing.T, mutate func(*config.EconomyConfig)) fixture {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.DefaultConfig().Economy
	if mutate != nil {
		mutate(&cfg)
	}
	recorder := &memoryRecorder{}
	svc := NewService(store, cfg, recorder, zap.NewNop())
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	rng := &scriptedRandom{}
	svc.WithClock(clock)
	svc.WithRandom(rng)
	return fixture{svc: svc, store: store, clock: clock, rng: rng, recorder: recorder}
}

func (f fixture) stored(t *testing.T, guildID, userID uint64) storage.EconomyAccount {
	t.Helper()
	acct, ok, err := f.store.GetEconomyAccount(context.Background(), guildID, userID)
	if err != nil || !ok {
		t.Fatalf("stored account: ok=%v err=%v", ok, err)
	}
	return acct
}

func TestGetAccountInitializesAndPersists(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, ok, _ := f.store.GetEconomyAccount(ctx, 1, 2); ok {
		t.Fatalf("account should not exist before first access")
	}
	acct, err := f.svc.GetAccount(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.Balance != 1000 || acct.TotalEarned != 1000 || acct.Bank != 0 || acct.DailyStreak != 0 {
		t.Fatalf("unexpected defaults: %+v", acct)
	}
	if stored := f.stored(t, 1, 2); stored.Balance != 1000 {
		t.Fatalf("expected persisted starting balance, got %d", stored.Balance)
	}
}

func TestDebitInsufficientLeavesRecordUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.GetAccount(ctx, 1, 2); err != nil {
		t.Fatalf("get account: %v", err)
	}
	before := f.stored(t, 1, 2)

	result, err := f.svc.Debit(ctx, 1, 2, 1001, "too much")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if result.OK || result.Reason != ReasonInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %+v", result)
	}
	if after := f.stored(t, 1, 2); !reflect.DeepEqual(before, after) {
		t.Fatalf("record changed: before %+v after %+v", before, after)
	}
	if len(f.recorder.amounts) != 0 {
		t.Fatalf("rejected debit should not be logged")
	}
}

func TestDebitAndCredit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if result, _ := f.svc.Debit(ctx, 1, 2, -5, "bad"); result.Reason != ReasonInvalidArgument {
		t.Fatalf("expected invalid argument, got %+v", result)
	}

	debit, err := f.svc.Debit(ctx, 1, 2, 300, "purchase")
	if err != nil || !debit.OK || debit.Balance != 700 {
		t.Fatalf("unexpected debit: %+v err=%v", debit, err)
	}
	credit, err := f.svc.Credit(ctx, 1, 2, 50, "gift")
	if err != nil || !credit.OK || credit.Balance != 750 {
		t.Fatalf("unexpected credit: %+v err=%v", credit, err)
	}

	acct := f.stored(t, 1, 2)
	if acct.TotalSpent != 300 || acct.TotalEarned != 1050 {
		t.Fatalf("unexpected counters: %+v", acct)
	}
	if !reflect.DeepEqual(f.recorder.amounts, []int64{-300, 50}) {
		t.Fatalf("unexpected transaction log: %v", f.recorder.amounts)
	}
}

func TestNegativeCreditCannotOverdraw(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	result, err := f.svc.Credit(ctx, 1, 2, -1500, "admin")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if result.OK || result.Reason != ReasonInsufficientFunds || result.Balance != 1000 {
		t.Fatalf("expected rejection, got %+v", result)
	}

	result, err = f.svc.Credit(ctx, 1, 2, -400, "admin")
	if err != nil || !result.OK || result.Balance != 600 {
		t.Fatalf("expected 600, got %+v err=%v", result, err)
	}
	if acct := f.stored(t, 1, 2); acct.TotalEarned != 1000 {
		t.Fatalf("negative credit must not touch total earned, got %d", acct.TotalEarned)
	}
}

func TestCreditCannotOverflow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	result, err := f.svc.Credit(ctx, 1, 2, math.MaxInt64, "admin")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if result.OK || result.Reason != ReasonInvalidArgument || result.Balance != 1000 {
		t.Fatalf("expected invalid argument, got %+v", result)
	}

	result, err = f.svc.Credit(ctx, 1, 2, math.MaxInt64-1000, "admin")
	if err != nil || !result.OK || result.Balance != math.MaxInt64 {
		t.Fatalf("expected max balance, got %+v err=%v", result, err)
	}
	result, err = f.svc.Credit(ctx, 1, 2, 1, "admin")
	if err != nil || result.OK || result.Reason != ReasonInvalidArgument {
		t.Fatalf("expected overflow rejection, got %+v err=%v", result, err)
	}

	transfer, err := f.svc.Transfer(ctx, 1, 3, 2, 1)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if transfer.OK || transfer.Reason != ReasonInvalidArgument {
		t.Fatalf("expected overflow rejection, got %+v", transfer)
	}
	if acct := f.stored(t, 1, 3); acct.Balance != 1000 {
		t.Fatalf("sender charged on rejected transfer: %d", acct.Balance)
	}
	if acct := f.stored(t, 1, 2); acct.Balance != math.MaxInt64 || acct.TotalEarned != math.MaxInt64 {
		t.Fatalf("unexpected receiver: %+v", acct)
	}
}

func TestClaimDailyCooldown(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.rng.ints = []int{20}

	first, err := f.svc.ClaimDaily(ctx, 1, 2)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !first.OK || first.Streak != 1 || first.StreakBroken {
		t.Fatalf("unexpected first claim: %+v", first)
	}
	if first.Amount != 100+10+20 {
		t.Fatalf("expected 130, got %d", first.Amount)
	}
	before := f.stored(t, 1, 2)

	for _, wait := range []time.Duration{0, 23 * time.Hour, 86399*time.Second - 23*time.Hour} {
		f.clock.Advance(wait)
		again, err := f.svc.ClaimDaily(ctx, 1, 2)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if again.OK || again.Reason != ReasonCooldown {
			t.Fatalf("expected cooldown after %v, got %+v", wait, again)
		}
		if after := f.stored(t, 1, 2); !reflect.DeepEqual(before, after) {
			t.Fatalf("cooldown claim mutated the record")
		}
	}

	f.clock.Advance(time.Second)
	third, err := f.svc.ClaimDaily(ctx, 1, 2)
	if err != nil || !third.OK || third.Streak != 2 {
		t.Fatalf("expected claim exactly 24h later, got %+v err=%v", third, err)
	}
}

func TestClaimDailyStreakBreak(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := f.svc.ClaimDaily(ctx, 1, 2)
		if err != nil || !result.OK {
			t.Fatalf("claim %d: %+v err=%v", i, result, err)
		}
		f.clock.Advance(25 * time.Hour)
	}
	if acct := f.stored(t, 1, 2); acct.DailyStreak != 3 {
		t.Fatalf("expected streak 3, got %d", acct.DailyStreak)
	}

	f.clock.Advance(24 * time.Hour)
	result, err := f.svc.ClaimDaily(ctx, 1, 2)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !result.OK || !result.StreakBroken || result.Streak != 1 {
		t.Fatalf("expected broken streak reset to 1, got %+v", result)
	}
}

func TestDailyRewardClampsAfterSumming(t *testing.T) {
	cases := []struct {
		streak, roll, want int64
	}{
		{1, 0, 110},
		{5, 50, 200},
		{20, 0, 300},
		{40, 50, 350},
		{40, 250, 500},
	}
	for _, tc := range cases {
		if got := DailyReward(100, tc.streak, 10, 200, tc.roll, 500); got != tc.want {
			t.Fatalf("streak %d roll %d: expected %d, got %d", tc.streak, tc.roll, tc.want, got)
		}
	}
}

func fixedJob(rate float64) func(*config.EconomyConfig) {
	return func(cfg *config.EconomyConfig) {
		cfg.Jobs = []config.JobConfig{{ID: "clerk", Name: "Clerk", MinPay: 200, MaxPay: 200, SuccessRate: rate}}
	}
}

func TestWorkFirstShift(t *testing.T) {
	f := newFixture(t, fixedJob(1.0))
	f.rng.floats = []float64{0.99}

	result, err := f.svc.Work(context.Background(), 1, 2, "")
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	if !result.OK || !result.Success || result.Earnings != 200 || result.LeveledUp {
		t.Fatalf("unexpected result: %+v", result)
	}
	acct := f.stored(t, 1, 2)
	if acct.Balance != 1200 || acct.JobExperience["clerk"] != 1 || acct.Job != "clerk" {
		t.Fatalf("unexpected account: %+v", acct)
	}
	if result.Message != "Great job! You earned 200 coins working as a Clerk!" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestWorkFailureConsumesCooldownOnly(t *testing.T) {
	f := newFixture(t, fixedJob(0.5))
	f.rng.floats = []float64{0.75}
	ctx := context.Background()

	result, err := f.svc.Work(ctx, 1, 2, "clerk")
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	if !result.OK || result.Success || result.Earnings != 0 {
		t.Fatalf("expected failed shift, got %+v", result)
	}
	acct := f.stored(t, 1, 2)
	if acct.Balance != 1000 || len(acct.JobExperience) != 0 || acct.Job != "" {
		t.Fatalf("failed shift mutated more than the cooldown: %+v", acct)
	}
	if !acct.LastWork.Equal(f.clock.now) {
		t.Fatalf("expected last work to be set")
	}

	f.clock.Advance(59 * time.Minute)
	again, err := f.svc.Work(ctx, 1, 2, "clerk")
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	if again.OK || again.Reason != ReasonCooldown {
		t.Fatalf("expected cooldown, got %+v", again)
	}
}

func TestWorkExperienceBonusAndLevelUp(t *testing.T) {
	f := newFixture(t, fixedJob(1.0))
	ctx := context.Background()

	var last WorkResult
	for i := 0; i < 10; i++ {
		result, err := f.svc.Work(ctx, 1, 2, "")
		if err != nil {
			t.Fatalf("work %d: %v", i, err)
		}
		if result.Bonus != ExperienceBonus(200, int64(i)) {
			t.Fatalf("shift %d: expected bonus %d, got %d", i, ExperienceBonus(200, int64(i)), result.Bonus)
		}
		last = result
		f.clock.Advance(time.Hour)
	}
	if !last.LeveledUp || last.Experience != 10 {
		t.Fatalf("expected level up on 10th shift, got %+v", last)
	}
}

func TestWorkJobResolution(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.rng.ints = []int{3}
	result, err := f.svc.Work(ctx, 1, 2, "astronaut")
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	if result.Job.ID != "chef" {
		t.Fatalf("expected random pick chef, got %q", result.Job.ID)
	}

	f.clock.Advance(time.Hour)
	result, err = f.svc.Work(ctx, 1, 2, "")
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	if result.Job.ID != "chef" {
		t.Fatalf("expected stored job chef, got %q", result.Job.ID)
	}

	f.clock.Advance(time.Hour)
	result, err = f.svc.Work(ctx, 1, 2, "teacher")
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	if result.Job.ID != "teacher" {
		t.Fatalf("expected explicit teacher, got %q", result.Job.ID)
	}
}

func TestExperienceBonus(t *testing.T) {
	cases := []struct {
		pay, experience, want int64
	}{
		{200, 0, 0},
		{200, 50, 10},
		{333, 7, 2},
		{100, 1000, 100},
		{100, 5000, 100},
	}
	for _, tc := range cases {
		if got := ExperienceBonus(tc.pay, tc.experience); got != tc.want {
			t.Fatalf("pay %d exp %d: expected %d, got %d", tc.pay, tc.experience, tc.want, got)
		}
	}
}

func TestTransfer(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if result, _ := f.svc.Transfer(ctx, 1, 2, 2, 10); result.Reason != ReasonSelfTransfer {
		t.Fatalf("expected self transfer rejection, got %+v", result)
	}
	if result, _ := f.svc.Transfer(ctx, 1, 2, 3, 0); result.Reason != ReasonInvalidArgument {
		t.Fatalf("expected invalid amount, got %+v", result)
	}
	if result, _ := f.svc.Transfer(ctx, 1, 2, 3, 5000); result.Reason != ReasonInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %+v", result)
	}

	result, err := f.svc.Transfer(ctx, 1, 2, 3, 250)
	if err != nil || !result.OK {
		t.Fatalf("transfer: %+v err=%v", result, err)
	}
	if result.FromBalance != 750 || result.ToBalance != 1250 {
		t.Fatalf("unexpected balances: %+v", result)
	}
	if f.stored(t, 1, 2).Balance != 750 || f.stored(t, 1, 3).Balance != 1250 {
		t.Fatalf("transfer not persisted")
	}
}

func TestResetAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.svc.Credit(ctx, 1, 2, 900, "gift"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	acct, err := f.svc.ResetAccount(ctx, 1, 2)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if acct.Balance != 1000 || f.stored(t, 1, 2).TotalEarned != 1000 {
		t.Fatalf("expected starting state, got %+v", acct)
	}
}

func TestConcurrentCreditsAreSerialized(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Credit(ctx, 1, 2, 4, "tip"); err != nil {
				t.Errorf("credit: %v", err)
			}
		}()
	}
	wg.Wait()

	if acct := f.stored(t, 1, 2); acct.Balance != 1100 {
		t.Fatalf("expected 1100, got %d", acct.Balance)
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	f := newFixture(t, func(cfg *config.EconomyConfig) {
		cfg.StartingBalance = 50
	})
	f.svc.WithRandom(utils.NewSeededRandom(42))
	ctx := context.Background()
	driver := utils.NewSeededRandom(7)

	for i := 0; i < 300; i++ {
		amount := int64(driver.Intn(120))
		var err error
		switch driver.Intn(6) {
		case 0:
			_, err = f.svc.Debit(ctx, 1, 2, amount, "debit")
		case 1:
			_, err = f.svc.Credit(ctx, 1, 2, -amount, "admin")
		case 2:
			_, err = f.svc.Coinflip(ctx, 1, 2, amount+1, Heads)
		case 3:
			_, err = f.svc.Slots(ctx, 1, 2, amount+1)
		case 4:
			_, err = f.svc.ClaimDaily(ctx, 1, 2)
		case 5:
			_, err = f.svc.Work(ctx, 1, 2, "")
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if acct := f.stored(t, 1, 2); acct.Balance < 0 {
			t.Fatalf("step %d: negative balance %d", i, acct.Balance)
		}
		f.clock.Advance(13 * time.Minute)
	}
}

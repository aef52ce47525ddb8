package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type DailyResult struct {
	OK           bool
	Reason       Reason
	Amount       int64
	Streak       int64
	StreakBroken bool
	Balance      int64
	NextClaim    time.Time
}

type WorkResult struct {
	// OK is false only when the work cooldown is still running.
	OK     bool
	Reason Reason
	// Success reports whether the shift paid out.
	Success    bool
	Job        Job
	BasePay    int64
	Bonus      int64
	Earnings   int64
	Experience int64
	LeveledUp  bool
	Message    string
	Balance    int64
	NextWork   time.Time
}

// DailyReward is base plus the capped streak bonus plus the random roll,
// clamped to max after summing.
func DailyReward(base, streak, step, streakCap, roll, maxReward int64) int64 {
	bonus := streak * step
	if bonus > streakCap {
		bonus = streakCap
	}
	total := base + bonus + roll
	if total > maxReward {
		return maxReward
	}
	return total
}

var (
	experienceDivisor = decimal.NewFromInt(100)
	experienceRate    = decimal.RequireFromString("0.1")
)

// ExperienceBonus is floor(pay * experience/100 * 0.1), never more than pay.
func ExperienceBonus(pay, experience int64) int64 {
	bonus := decimal.NewFromInt(pay).
		Mul(decimal.NewFromInt(experience).Div(experienceDivisor)).
		Mul(experienceRate).
		Floor().
		IntPart()
	if bonus > pay {
		return pay
	}
	if bonus < 0 {
		return 0
	}
	return bonus
}

// randomBetween draws uniformly from [lo, hi].
func (s *Service) randomBetween(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + int64(s.rng.Intn(int(hi-lo+1)))
}

func (s *Service) ClaimDaily(ctx context.Context, guildID, userID uint64) (DailyResult, error) {
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()

	acct, err := s.load(ctx, guildID, userID)
	if err != nil {
		return DailyResult{}, err
	}
	now := s.clock.Now()
	cooldown := seconds(s.cfg.DailyCooldownSeconds)
	if left := remaining(acct.LastDaily, now, cooldown); left > 0 {
		return DailyResult{
			Reason:    ReasonCooldown,
			Streak:    acct.DailyStreak,
			Balance:   acct.Balance,
			NextClaim: now.Add(left),
		}, nil
	}

	broken := false
	if !acct.LastDaily.IsZero() && now.Sub(acct.LastDaily) > seconds(s.cfg.StreakBreakSeconds) {
		acct.DailyStreak = 0
		broken = true
	}
	acct.DailyStreak++
	acct.LastDaily = now

	roll := s.randomBetween(0, s.cfg.DailyRandomMax)
	amount := DailyReward(s.cfg.DailyBase, acct.DailyStreak, s.cfg.DailyStreakStep, s.cfg.DailyStreakCap, roll, s.cfg.DailyMax)
	applyCredit(&acct, amount)

	if err := s.save(ctx, acct); err != nil {
		return DailyResult{}, err
	}
	s.record(ctx, acct, amount, "Daily reward")
	return DailyResult{
		OK:           true,
		Amount:       amount,
		Streak:       acct.DailyStreak,
		StreakBroken: broken,
		Balance:      acct.Balance,
		NextClaim:    now.Add(cooldown),
	}, nil
}

// Work runs one shift. jobID may be empty or unknown, in which case the
// member's current job (or a random one) is used.
func (s *Service) Work(ctx context.Context, guildID, userID uint64, jobID string) (WorkResult, error) {
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()

	acct, err := s.load(ctx, guildID, userID)
	if err != nil {
		return WorkResult{}, err
	}
	now := s.clock.Now()
	cooldown := seconds(s.cfg.WorkCooldownSeconds)
	if left := remaining(acct.LastWork, now, cooldown); left > 0 {
		return WorkResult{
			Reason:   ReasonCooldown,
			Message:  "You're still tired from your last job!",
			Balance:  acct.Balance,
			NextWork: now.Add(left),
		}, nil
	}

	job := s.resolveJob(jobID, acct.Job)
	acct.LastWork = now

	if s.rng.Float64() > job.SuccessRate {
		if err := s.save(ctx, acct); err != nil {
			return WorkResult{}, err
		}
		return WorkResult{
			OK:         true,
			Job:        job,
			Experience: acct.JobExperience[job.ID],
			Message:    fmt.Sprintf("Your %s shift didn't go well. Better luck next time!", job.Name),
			Balance:    acct.Balance,
			NextWork:   now.Add(cooldown),
		}, nil
	}

	pay := s.randomBetween(job.MinPay, job.MaxPay)
	bonus := ExperienceBonus(pay, acct.JobExperience[job.ID])
	total := pay + bonus

	acct.JobExperience[job.ID]++
	experience := acct.JobExperience[job.ID]
	acct.Job = job.ID
	applyCredit(&acct, total)

	if err := s.save(ctx, acct); err != nil {
		return WorkResult{}, err
	}
	s.record(ctx, acct, total, "Work: "+job.Name)
	return WorkResult{
		OK:         true,
		Success:    true,
		Job:        job,
		BasePay:    pay,
		Bonus:      bonus,
		Earnings:   total,
		Experience: experience,
		LeveledUp:  experience%s.cfg.JobLevelEvery == 0,
		Message:    fmt.Sprintf("Great job! You earned %d coins working as a %s!", total, job.Name),
		Balance:    acct.Balance,
		NextWork:   now.Add(cooldown),
	}, nil
}

package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"guild-ledger/internal/economy"
)

func relativeTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func (b *Bot) cmdBalance(ctx context.Context, req request) (reply, error) {
	target, ok := req.userArg("user")
	if !ok {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	acct, err := b.services.Economy.GetAccount(ctx, req.guildID, target)
	if err != nil {
		return reply{}, err
	}
	job := "None"
	if acct.Job != "" {
		job = acct.Job
	}
	return reply{embed: b.infoEmbed("💰 Balance", mention(target),
		field("Wallet", coins(acct.Balance)),
		field("Bank", coins(acct.Bank)),
		field("Total earned", coins(acct.TotalEarned)),
		field("Daily streak", acct.DailyStreak),
		field("Job", job),
	)}, nil
}

func (b *Bot) cmdDaily(ctx context.Context, req request) (reply, error) {
	result, err := b.services.Economy.ClaimDaily(ctx, req.guildID, req.userID)
	if err != nil {
		return reply{}, err
	}
	if !result.OK {
		return reply{embed: b.warningEmbed("⏰ Daily already claimed",
			"You can claim again "+relativeTime(result.NextClaim)+"."), ephemeral: true}, nil
	}
	description := fmt.Sprintf("You received %s!", coins(result.Amount))
	if result.StreakBroken {
		description += "\nYour streak was reset because you missed a day."
	}
	return reply{embed: b.successEmbed("🎁 Daily reward", description,
		field("Streak", fmt.Sprintf("%d 🔥", result.Streak)),
		field("Balance", coins(result.Balance)),
	)}, nil
}

func (b *Bot) cmdWork(ctx context.Context, req request) (reply, error) {
	result, err := b.services.Economy.Work(ctx, req.guildID, req.userID, req.arg("job"))
	if err != nil {
		return reply{}, err
	}
	if !result.OK {
		return reply{embed: b.warningEmbed("😴 Too tired",
			result.Message+"\nYou can work again "+relativeTime(result.NextWork)+"."), ephemeral: true}, nil
	}
	if !result.Success {
		return reply{embed: b.warningEmbed("💼 "+result.Job.Name, result.Message,
			field("Balance", coins(result.Balance)),
		)}, nil
	}
	fields := []*discordgo.MessageEmbedField{
		field("Pay", coins(result.BasePay)),
		field("Experience bonus", coins(result.Bonus)),
		field("Shifts worked", result.Experience),
		field("Balance", coins(result.Balance)),
	}
	description := result.Message
	if result.LeveledUp {
		description += fmt.Sprintf("\n⭐ You've mastered another rank as %s!", result.Job.Name)
	}
	return reply{embed: b.successEmbed("💼 "+result.Job.Name, description, fields...)}, nil
}

func (b *Bot) cmdJobs(_ context.Context, _ request) (reply, error) {
	var lines []string
	for _, job := range b.services.Economy.Jobs() {
		lines = append(lines, fmt.Sprintf("**%s** (`%s`): %d-%d coins, %.0f%% success",
			job.Name, job.ID, job.MinPay, job.MaxPay, job.SuccessRate*100))
	}
	return reply{embed: b.infoEmbed("💼 Jobs", strings.Join(lines, "\n"))}, nil
}

func (b *Bot) cmdCoinflip(ctx context.Context, req request) (reply, error) {
	bet, _, err := req.intArg("bet")
	if err != nil {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	result, err := b.services.Economy.Coinflip(ctx, req.guildID, req.userID, bet, req.arg("side"))
	if err != nil {
		return reply{}, err
	}
	switch result.Reason {
	case economy.ReasonNone:
	case economy.ReasonInsufficientFunds:
		return reply{embed: b.errorEmbed("Not enough coins", "Your balance is "+coins(result.Balance)+"."), ephemeral: true}, nil
	default:
		return b.usageReply(req, b.commands[req.name]), nil
	}
	title, color := "🪙 You lost!", b.cfg.EmbedColors.Error
	if result.Won {
		title, color = "🪙 You won!", b.cfg.EmbedColors.Success
	}
	return reply{embed: b.embed(title, fmt.Sprintf("The coin landed on **%s**.", result.Outcome), color,
		field("Change", fmt.Sprintf("%+d", result.Delta)),
		field("Balance", coins(result.Balance)),
	)}, nil
}

func (b *Bot) cmdSlots(ctx context.Context, req request) (reply, error) {
	bet, _, err := req.intArg("bet")
	if err != nil {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	result, err := b.services.Economy.Slots(ctx, req.guildID, req.userID, bet)
	if err != nil {
		return reply{}, err
	}
	switch result.Reason {
	case economy.ReasonNone:
	case economy.ReasonInsufficientFunds:
		return reply{embed: b.errorEmbed("Not enough coins", "Your balance is "+coins(result.Balance)+"."), ephemeral: true}, nil
	default:
		return b.usageReply(req, b.commands[req.name]), nil
	}
	reels := strings.Join(result.Reels[:], " | ")
	fields := []*discordgo.MessageEmbedField{
		field("Winnings", coins(result.Winnings)),
		field("Balance", coins(result.Balance)),
	}
	if result.Winnings > 0 {
		return reply{embed: b.successEmbed("🎰 "+reels, result.Message, fields...)}, nil
	}
	return reply{embed: b.warningEmbed("🎰 "+reels, result.Message, fields...)}, nil
}

func (b *Bot) cmdShop(_ context.Context, req request) (reply, error) {
	var lines []string
	for _, item := range b.services.Economy.Shop() {
		lines = append(lines, fmt.Sprintf("%s **%s** (`%s`): %s\n%s", item.Emoji, item.Name, item.ID, coins(item.Price), item.Description))
	}
	lines = append(lines, fmt.Sprintf("\nBuy with `%sbuy <item>`.", req.prefix))
	return reply{embed: b.infoEmbed("🛒 Shop", strings.Join(lines, "\n"))}, nil
}

func (b *Bot) cmdBuy(ctx context.Context, req request) (reply, error) {
	result, err := b.services.Economy.BuyItem(ctx, req.guildID, req.userID, req.arg("item"))
	if err != nil {
		return reply{}, err
	}
	if !result.OK {
		return reply{embed: b.errorEmbed("Purchase failed", result.Message), ephemeral: true}, nil
	}
	return reply{embed: b.successEmbed("🛍️ Purchase complete", result.Message,
		field("Owned", result.Quantity),
		field("Balance", coins(result.Balance)),
	)}, nil
}

func (b *Bot) cmdInventory(ctx context.Context, req request) (reply, error) {
	target, ok := req.userArg("user")
	if !ok {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	entries, err := b.services.Economy.Inventory(ctx, req.guildID, target)
	if err != nil {
		return reply{}, err
	}
	if len(entries) == 0 {
		return reply{embed: b.infoEmbed("🎒 Inventory", mention(target)+" owns nothing yet.")}, nil
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s **%s** × %d", entry.Item.Emoji, entry.Item.Name, entry.Quantity))
	}
	return reply{embed: b.infoEmbed("🎒 Inventory", mention(target)+"\n"+strings.Join(lines, "\n"))}, nil
}

func (b *Bot) cmdGive(ctx context.Context, req request) (reply, error) {
	target, ok := req.userArg("user")
	amount, _, err := req.intArg("amount")
	if !ok || err != nil {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	result, err := b.services.Economy.Transfer(ctx, req.guildID, req.userID, target, amount)
	if err != nil {
		return reply{}, err
	}
	switch result.Reason {
	case economy.ReasonNone:
		return reply{embed: b.successEmbed("💸 Transfer complete",
			fmt.Sprintf("%s gave %s to %s.", mention(req.userID), coins(amount), mention(target)),
			field("Your balance", coins(result.FromBalance)),
		)}, nil
	case economy.ReasonSelfTransfer:
		return reply{embed: b.errorEmbed("Transfer failed", "You cannot give coins to yourself."), ephemeral: true}, nil
	case economy.ReasonInsufficientFunds:
		return reply{embed: b.errorEmbed("Not enough coins", "Your balance is "+coins(result.FromBalance)+"."), ephemeral: true}, nil
	default:
		return reply{embed: b.errorEmbed("Transfer failed", "The amount must be positive and fit the recipient's balance."), ephemeral: true}, nil
	}
}

func (b *Bot) cmdLeaderboard(ctx context.Context, req request) (reply, error) {
	category := economy.Category(req.arg("category"))
	if category == "" {
		category = economy.CategoryBalance
	}
	limit, present, err := req.intArg("limit")
	if err != nil {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	if !present {
		limit = int64(b.cfg.Economy.LeaderboardDefaultTop)
	}
	result, err := b.services.Economy.Leaderboard(ctx, req.guildID, category, int(limit))
	if err != nil {
		return reply{}, err
	}
	if !result.OK {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	if len(result.Entries) == 0 {
		return reply{embed: b.infoEmbed("🏆 Leaderboard", "No one has an account yet.")}, nil
	}
	lines := make([]string, 0, len(result.Entries))
	for i, entry := range result.Entries {
		lines = append(lines, fmt.Sprintf("%s %s: %d", rankLabel(i+1), mention(entry.UserID), entry.Value))
	}
	return reply{embed: b.infoEmbed("🏆 Leaderboard: "+string(category), strings.Join(lines, "\n"))}, nil
}

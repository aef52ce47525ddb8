package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guild-ledger/internal/economy"
	"guild-ledger/internal/leveling"
	"guild-ledger/internal/prefix"
	"guild-ledger/internal/storage"
)

func (b *Bot) userAndAmount(req request) (uint64, int64, bool) {
	target, ok := req.userArg("user")
	amount, _, err := req.intArg("amount")
	if !ok || err != nil {
		return 0, 0, false
	}
	return target, amount, true
}

func (b *Bot) cmdAddCoins(ctx context.Context, req request) (reply, error) {
	target, amount, ok := b.userAndAmount(req)
	if !ok || amount <= 0 {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	result, err := b.services.Economy.Credit(ctx, req.guildID, target, amount, "Admin grant by "+storage.FormatID(req.userID))
	if err != nil {
		return reply{}, err
	}
	if !result.OK {
		return reply{embed: b.errorEmbed("Invalid amount",
			fmt.Sprintf("%s cannot hold that many more coins.", mention(target))), ephemeral: true}, nil
	}
	return reply{embed: b.successEmbed("✅ Coins added",
		fmt.Sprintf("Added %s to %s.", coins(amount), mention(target)),
		field("Balance", coins(result.Balance)),
	)}, nil
}

func (b *Bot) cmdRemoveCoins(ctx context.Context, req request) (reply, error) {
	target, amount, ok := b.userAndAmount(req)
	if !ok || amount <= 0 {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	result, err := b.services.Economy.Debit(ctx, req.guildID, target, amount, "Admin removal by "+storage.FormatID(req.userID))
	if err != nil {
		return reply{}, err
	}
	if result.Reason == economy.ReasonInsufficientFunds {
		return reply{embed: b.errorEmbed("Not enough coins",
			fmt.Sprintf("%s only has %s.", mention(target), coins(result.Balance))), ephemeral: true}, nil
	}
	return reply{embed: b.successEmbed("✅ Coins removed",
		fmt.Sprintf("Removed %s from %s.", coins(amount), mention(target)),
		field("Balance", coins(result.Balance)),
	)}, nil
}

func (b *Bot) cmdResetBalance(ctx context.Context, req request) (reply, error) {
	target, ok := req.userArg("user")
	if !ok {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	acct, err := b.services.Economy.ResetAccount(ctx, req.guildID, target)
	if err != nil {
		return reply{}, err
	}
	return reply{embed: b.successEmbed("♻️ Account reset",
		fmt.Sprintf("%s is back to %s.", mention(target), coins(acct.Balance)))}, nil
}

func (b *Bot) cmdAddXP(ctx context.Context, req request) (reply, error) {
	target, amount, ok := b.userAndAmount(req)
	if !ok {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	result, err := b.services.Leveling.AddXP(ctx, req.guildID, target, &amount)
	if err != nil {
		return reply{}, err
	}
	if !result.OK {
		return reply{embed: b.errorEmbed("Invalid amount", "XP amounts must not be negative or push the total past its limit."), ephemeral: true}, nil
	}
	if result.LeveledUp {
		b.onLevelUp(ctx, levelUp{
			guildID:   req.guildID,
			userID:    target,
			channelID: req.channelID,
			username:  mention(target),
			oldLevel:  result.OldLevel,
			newLevel:  result.NewLevel,
		})
	}
	return reply{embed: b.successEmbed("✨ XP granted",
		fmt.Sprintf("Gave %d XP to %s.", result.Awarded, mention(target)),
		field("XP", result.XP),
		field("Level", result.NewLevel),
	)}, nil
}

func (b *Bot) cmdResetWarnings(ctx context.Context, req request) (reply, error) {
	target, ok := req.userArg("user")
	if !ok {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	if err := b.services.Leveling.ResetWarnings(ctx, req.guildID, target); err != nil {
		return reply{}, err
	}
	return reply{embed: b.successEmbed("🧹 Warnings cleared", "Spam warnings for "+mention(target)+" were reset.")}, nil
}

var prefixReasons = map[prefix.Reason]string{
	prefix.ReasonEmpty:        "The prefix must not be empty.",
	prefix.ReasonTooLong:      fmt.Sprintf("The prefix can be at most %d characters.", prefix.MaxLength),
	prefix.ReasonInvalidChars: "The prefix must not contain spaces, `@` or `#`.",
	prefix.ReasonSlash:        "The prefix must not start with `/`.",
}

func (b *Bot) cmdSetPrefix(ctx context.Context, req request) (reply, error) {
	value := req.arg("prefix")
	reason, err := b.services.Prefixes.Set(ctx, req.guildID, value)
	if err != nil {
		return reply{}, err
	}
	if reason != prefix.ReasonNone {
		return reply{embed: b.errorEmbed("Invalid prefix", prefixReasons[reason]), ephemeral: true}, nil
	}
	return reply{embed: b.successEmbed("⌨️ Prefix changed", fmt.Sprintf("Text commands now use `%s`.", value))}, nil
}

func (b *Bot) cmdResetPrefix(ctx context.Context, req request) (reply, error) {
	if err := b.services.Prefixes.Reset(ctx, req.guildID); err != nil {
		return reply{}, err
	}
	return reply{embed: b.successEmbed("⌨️ Prefix reset",
		fmt.Sprintf("Text commands now use `%s`.", b.services.Prefixes.Default()))}, nil
}

func parseToggle(value string) (bool, bool) {
	switch strings.ToLower(value) {
	case "on", "true", "yes", "enable", "enabled":
		return true, true
	case "off", "false", "no", "disable", "disabled":
		return false, true
	}
	return false, false
}

func (b *Bot) cmdLevelConfig(ctx context.Context, req request) (reply, error) {
	value := req.arg("value")
	var update leveling.SettingsUpdate

	switch req.arg("setting") {
	case "show":
		settings, err := b.services.Leveling.Settings(ctx, req.guildID)
		if err != nil {
			return reply{}, err
		}
		return reply{embed: b.settingsEmbed("⚙️ Leveling settings", settings), ephemeral: true}, nil
	case "reset":
		settings, err := b.services.Leveling.ResetSettings(ctx, req.guildID)
		if err != nil {
			return reply{}, err
		}
		return reply{embed: b.settingsEmbed("⚙️ Leveling settings reset", settings)}, nil
	case "xp", "spam":
		on, ok := parseToggle(value)
		if !ok {
			return b.usageReply(req, b.commands[req.name]), nil
		}
		if req.arg("setting") == "xp" {
			update.XPEnabled = &on
		} else {
			update.SpamProtection = &on
		}
	case "channel":
		channel := ""
		if value != "" && !strings.EqualFold(value, "none") {
			id, ok := parseMention(value, "#")
			if !ok {
				return b.usageReply(req, b.commands[req.name]), nil
			}
			channel = storage.FormatID(id)
		}
		update.LevelUpChannelID = &channel
	case "message":
		update.LevelUpMessage = &value
	default:
		return b.usageReply(req, b.commands[req.name]), nil
	}

	result, err := b.services.Leveling.UpdateSettings(ctx, req.guildID, update)
	if err != nil {
		return reply{}, err
	}
	if !result.OK {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	return reply{embed: b.settingsEmbed("⚙️ Leveling settings updated", result.Settings)}, nil
}

func (b *Bot) settingsEmbed(title string, settings storage.LevelSettings) *discordgo.MessageEmbed {
	channel := "Same channel"
	if settings.LevelUpChannelID != "" {
		channel = "<#" + settings.LevelUpChannelID + ">"
	}
	return b.infoEmbed(title, "",
		field("XP", onOff(settings.XPEnabled)),
		field("Spam protection", onOff(settings.SpamProtection)),
		field("Level-up channel", channel),
		&discordgo.MessageEmbedField{Name: "Level-up message", Value: settings.LevelUpMessage},
	)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (b *Bot) cmdLevelRole(ctx context.Context, req request) (reply, error) {
	action := req.arg("action")
	if action == "list" {
		roles, err := b.services.Leveling.LevelRoles(ctx, req.guildID)
		if err != nil {
			return reply{}, err
		}
		if len(roles) == 0 {
			return reply{embed: b.infoEmbed("🎖️ Level roles", "No level roles configured.")}, nil
		}
		lines := make([]string, 0, len(roles))
		for _, role := range roles {
			lines = append(lines, fmt.Sprintf("Level %d: %s", role.Level, roleMention(role.RoleID)))
		}
		return reply{embed: b.infoEmbed("🎖️ Level roles", strings.Join(lines, "\n"))}, nil
	}

	level, present, err := req.intArg("level")
	if err != nil || !present {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	var result leveling.SettingsResult
	switch action {
	case "set":
		roleID, ok := parseMention(req.arg("role"), "@&")
		if !ok {
			return b.usageReply(req, b.commands[req.name]), nil
		}
		result, err = b.services.Leveling.SetLevelRole(ctx, req.guildID, level, storage.FormatID(roleID))
	case "remove":
		result, err = b.services.Leveling.RemoveLevelRole(ctx, req.guildID, level)
	default:
		return b.usageReply(req, b.commands[req.name]), nil
	}
	if err != nil {
		return reply{}, err
	}
	if !result.OK {
		return reply{embed: b.errorEmbed("Level role unchanged",
			fmt.Sprintf("No valid role reward for level %d.", level)), ephemeral: true}, nil
	}
	return reply{embed: b.successEmbed("🎖️ Level roles updated",
		fmt.Sprintf("%d level role(s) configured.", len(result.Settings.LevelRoles)))}, nil
}

func (b *Bot) cmdStats(ctx context.Context, req request) (reply, error) {
	hours, present, err := req.intArg("hours")
	if err != nil || (present && hours <= 0) {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	if !present {
		hours = 24
	}
	econ, err := b.services.Analytics.EconomyReport(ctx, req.guildID)
	if err != nil {
		return reply{}, err
	}
	txs, err := b.services.Analytics.TransactionReport(ctx, req.guildID, time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return reply{}, err
	}

	richest := "Nobody"
	if econ.Users > 0 {
		richest = fmt.Sprintf("%s (%s)", mention(econ.RichestUserID), coins(econ.RichestBalance))
	}
	reasons := make([]string, 0, len(txs.ByReason))
	for reason := range txs.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool {
		return txs.ByReason[reasons[i]].Count > txs.ByReason[reasons[j]].Count ||
			(txs.ByReason[reasons[i]].Count == txs.ByReason[reasons[j]].Count && reasons[i] < reasons[j])
	})
	if len(reasons) > 5 {
		reasons = reasons[:5]
	}
	top := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		total := txs.ByReason[reason]
		top = append(top, fmt.Sprintf("%s: %d× (%+d)", reason, total.Count, total.Sum))
	}

	b.logger.Info("stats requested", zap.Uint64("guild_id", req.guildID), zap.Uint64("user_id", req.userID))
	embed := b.infoEmbed("📈 Economy stats", "",
		field("Members", econ.Users),
		field("In circulation", coins(econ.Circulation)),
		field("Total earned", coins(econ.TotalEarned)),
		field("Richest", richest),
		field("Transactions ("+strconv.FormatInt(hours, 10)+"h)", txs.Total),
		field("Credits / debits", fmt.Sprintf("%d / %d", txs.Credits, txs.Debits)),
	)
	if len(top) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Top reasons", Value: strings.Join(top, "\n")})
	}
	return reply{embed: embed, ephemeral: true}, nil
}

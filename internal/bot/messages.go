package bot

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guild-ledger/internal/leveling"
	"guild-ledger/internal/storage"
)

type chatMessage struct {
	guildID   uint64
	userID    uint64
	channelID string
	username  string
	content   string
}

type levelUp struct {
	guildID   uint64
	userID    uint64
	channelID string
	username  string
	oldLevel  int64
	newLevel  int64
}

// handleChatMessage runs the organic XP path for a non-command message:
// settings gate, length gate, spam guard, XP award and level-up effects.
func (b *Bot) handleChatMessage(ctx context.Context, msg chatMessage) {
	settings, err := b.services.Leveling.Settings(ctx, msg.guildID)
	if err != nil {
		b.logger.Error("load leveling settings", zap.Uint64("guild_id", msg.guildID), zap.Error(err))
		return
	}
	if !settings.XPEnabled {
		return
	}
	if utf8.RuneCountInString(msg.content) < b.cfg.Leveling.MinMessageLength {
		return
	}

	if settings.SpamProtection && b.services.Leveling.CheckSpam(msg.guildID, msg.userID) {
		b.handleSpam(ctx, msg)
		return
	}

	result, err := b.services.Leveling.AddXP(ctx, msg.guildID, msg.userID, nil)
	if err != nil {
		b.logger.Error("add xp", zap.Uint64("guild_id", msg.guildID), zap.Uint64("user_id", msg.userID), zap.Error(err))
		return
	}
	if !result.LeveledUp {
		return
	}
	b.onLevelUp(ctx, levelUp{
		guildID:   msg.guildID,
		userID:    msg.userID,
		channelID: msg.channelID,
		username:  msg.username,
		oldLevel:  result.OldLevel,
		newLevel:  result.NewLevel,
	})
}

func (b *Bot) handleSpam(ctx context.Context, msg chatMessage) {
	warning, err := b.services.Leveling.AddWarning(ctx, msg.guildID, msg.userID)
	if err != nil {
		b.logger.Error("add spam warning", zap.Uint64("guild_id", msg.guildID), zap.Uint64("user_id", msg.userID), zap.Error(err))
		return
	}

	if !warning.ShouldTimeout {
		b.send(msg.channelID, b.warningEmbed("⚠️ Slow down",
			fmt.Sprintf("%s, please stop spamming. Warning %d/%d.", mention(msg.userID), warning.Warnings, b.cfg.Leveling.MaxWarnings)))
		return
	}

	duration := time.Duration(b.cfg.Leveling.TimeoutMinutes) * time.Minute
	guildID, userID := storage.FormatID(msg.guildID), storage.FormatID(msg.userID)
	if err := b.platform.Timeout(guildID, userID, time.Now().Add(duration)); err != nil {
		b.logger.Warn("spam timeout failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		b.send(msg.channelID, b.errorEmbed("⛔ Spam detected",
			fmt.Sprintf("%s reached %d warnings but could not be timed out.", mention(msg.userID), warning.Warnings)))
		return
	}
	b.send(msg.channelID, b.errorEmbed("⛔ Timed out",
		fmt.Sprintf("%s was timed out for %s for spamming.", mention(msg.userID), humanDuration(duration))))
}

// onLevelUp pays the coin bonus, grants role rewards and announces the new
// level once per (guild, user, level) within the debounce TTL.
func (b *Bot) onLevelUp(ctx context.Context, up levelUp) {
	fields := []zap.Field{
		zap.Uint64("guild_id", up.guildID),
		zap.Uint64("user_id", up.userID),
		zap.Int64("level", up.newLevel),
	}

	bonus := up.newLevel * b.cfg.Economy.LevelUpBonus
	if bonus > 0 {
		if _, err := b.services.Economy.Credit(ctx, up.guildID, up.userID, bonus, fmt.Sprintf("Level %d bonus", up.newLevel)); err != nil {
			b.logger.Error("level up bonus", append(fields, zap.Error(err))...)
		}
	}

	roles, err := b.services.Leveling.RolesForLevel(ctx, up.guildID, up.newLevel)
	if err != nil {
		b.logger.Error("level roles", append(fields, zap.Error(err))...)
	}
	guildID, userID := storage.FormatID(up.guildID), storage.FormatID(up.userID)
	for _, role := range roles {
		if role.Level <= up.oldLevel {
			continue
		}
		if err := b.platform.AddRole(guildID, userID, role.RoleID); err != nil {
			b.logger.Warn("grant level role", append(fields, zap.String("role_id", role.RoleID), zap.Error(err))...)
		}
	}

	key := fmt.Sprintf("%s:%s:%d", guildID, userID, up.newLevel)
	if !b.services.Announced.Claim(key) {
		return
	}
	settings, err := b.services.Leveling.Settings(ctx, up.guildID)
	if err != nil {
		b.logger.Error("load leveling settings", append(fields, zap.Error(err))...)
		return
	}
	channelID := up.channelID
	if settings.LevelUpChannelID != "" {
		channelID = settings.LevelUpChannelID
	}
	text := leveling.RenderLevelUp(settings.LevelUpMessage, mention(up.userID), up.username, up.newLevel)
	if bonus > 0 {
		text += fmt.Sprintf("\n+%s level bonus", coins(bonus))
	}
	if err := b.platform.SendText(channelID, text); err != nil {
		b.logger.Warn("level up announcement", append(fields, zap.Error(err))...)
	}
}

func (b *Bot) send(channelID string, embed *discordgo.MessageEmbed) {
	if err := b.platform.SendEmbed(channelID, embed); err != nil {
		b.logger.Warn("send embed failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

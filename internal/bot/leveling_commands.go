package bot

import (
	"context"
	"fmt"
	"strings"

	"guild-ledger/internal/leveling"
)

func progressBar(into, needed int64) string {
	const width = 10
	filled := 0
	if needed > 0 {
		filled = int(into * width / needed)
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
}

func (b *Bot) cmdRank(ctx context.Context, req request) (reply, error) {
	target, ok := req.userArg("user")
	if !ok {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	acct, err := b.services.Leveling.GetAccount(ctx, req.guildID, target)
	if err != nil {
		return reply{}, err
	}
	position, err := b.services.Leveling.Rank(ctx, req.guildID, target)
	if err != nil {
		return reply{}, err
	}
	progress := leveling.ProgressFor(acct.XP)
	return reply{embed: b.infoEmbed("📊 Rank", mention(target),
		field("Level", progress.Level),
		field("XP", acct.XP),
		field("Rank", rankLabel(position)),
		field("Messages", acct.TotalMessages),
		field("Progress", fmt.Sprintf("%s %d/%d", progressBar(progress.Into, progress.Needed), progress.Into, progress.Needed)),
	)}, nil
}

func (b *Bot) cmdLevels(ctx context.Context, req request) (reply, error) {
	limit, present, err := req.intArg("limit")
	if err != nil {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	if !present {
		limit = int64(b.cfg.Economy.LeaderboardDefaultTop)
	}
	result, err := b.services.Leveling.Leaderboard(ctx, req.guildID, int(limit))
	if err != nil {
		return reply{}, err
	}
	if !result.OK {
		return b.usageReply(req, b.commands[req.name]), nil
	}
	if len(result.Entries) == 0 {
		return reply{embed: b.infoEmbed("🏆 Levels", "No one has earned XP yet.")}, nil
	}
	lines := make([]string, 0, len(result.Entries))
	for i, entry := range result.Entries {
		lines = append(lines, fmt.Sprintf("%s %s: level %d (%d XP)",
			rankLabel(i+1), mention(entry.UserID), leveling.CalculateLevel(entry.Value), entry.Value))
	}
	return reply{embed: b.infoEmbed("🏆 Levels", strings.Join(lines, "\n"))}, nil
}

func (b *Bot) cmdPrefix(_ context.Context, req request) (reply, error) {
	current := b.services.Prefixes.Get(req.guildID)
	return reply{embed: b.infoEmbed("⌨️ Prefix", fmt.Sprintf("The text command prefix is `%s`.", current))}, nil
}

func (b *Bot) cmdHelp(_ context.Context, req request) (reply, error) {
	var member, admin []string
	for _, name := range b.order {
		spec := b.commands[name]
		line := fmt.Sprintf("`%s`: %s", usage(req.prefix, spec), spec.description)
		if spec.admin {
			admin = append(admin, line)
		} else {
			member = append(member, line)
		}
	}
	description := strings.Join(member, "\n")
	if req.admin {
		description += "\n\n**Admin**\n" + strings.Join(admin, "\n")
	}
	return reply{embed: b.infoEmbed("📖 Commands", description), ephemeral: true}, nil
}

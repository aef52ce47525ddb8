package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guild-ledger/internal/economy"
)

type optionSpec struct {
	name        string
	description string
	kind        discordgo.ApplicationCommandOptionType
	required    bool
	choices     []string
}

type commandSpec struct {
	name        string
	description string
	admin       bool
	options     []optionSpec
	run         func(ctx context.Context, req request) (reply, error)
}

func userOption(name, description string, required bool) optionSpec {
	return optionSpec{name: name, description: description, kind: discordgo.ApplicationCommandOptionUser, required: required}
}

func intOption(name, description string, required bool) optionSpec {
	return optionSpec{name: name, description: description, kind: discordgo.ApplicationCommandOptionInteger, required: required}
}

func stringOption(name, description string, required bool, choices ...string) optionSpec {
	return optionSpec{name: name, description: description, kind: discordgo.ApplicationCommandOptionString, required: required, choices: choices}
}

func (b *Bot) commandTable() []commandSpec {
	jobIDs := make([]string, 0, len(b.cfg.Economy.Jobs))
	for _, job := range b.cfg.Economy.Jobs {
		jobIDs = append(jobIDs, job.ID)
	}
	categories := []string{string(economy.CategoryBalance), string(economy.CategoryTotalEarned), string(economy.CategoryStreak)}

	return []commandSpec{
		{name: "balance", description: "Show a coin balance", options: []optionSpec{userOption("user", "Member to look up", false)}, run: b.cmdBalance},
		{name: "daily", description: "Claim the daily reward", run: b.cmdDaily},
		{name: "work", description: "Work a shift for coins", options: []optionSpec{stringOption("job", "Job to work", false, jobIDs...)}, run: b.cmdWork},
		{name: "jobs", description: "List the available jobs", run: b.cmdJobs},
		{name: "coinflip", description: "Bet coins on a coin flip", options: []optionSpec{
			intOption("bet", "Coins to bet", true),
			stringOption("side", "heads or tails", true, economy.Heads, economy.Tails),
		}, run: b.cmdCoinflip},
		{name: "slots", description: "Spin the slot machine", options: []optionSpec{intOption("bet", "Coins to bet", true)}, run: b.cmdSlots},
		{name: "shop", description: "Browse the shop", run: b.cmdShop},
		{name: "buy", description: "Buy a shop item", options: []optionSpec{stringOption("item", "Item id or emoji", true)}, run: b.cmdBuy},
		{name: "inventory", description: "Show owned items", options: []optionSpec{userOption("user", "Member to look up", false)}, run: b.cmdInventory},
		{name: "give", description: "Give coins to another member", options: []optionSpec{
			userOption("user", "Recipient", true),
			intOption("amount", "Coins to give", true),
		}, run: b.cmdGive},
		{name: "leaderboard", description: "Show the richest members", options: []optionSpec{
			stringOption("category", "Ranking category", false, categories...),
			intOption("limit", "Entries to show", false),
		}, run: b.cmdLeaderboard},
		{name: "rank", description: "Show level and XP", options: []optionSpec{userOption("user", "Member to look up", false)}, run: b.cmdRank},
		{name: "levels", description: "Show the XP leaderboard", options: []optionSpec{intOption("limit", "Entries to show", false)}, run: b.cmdLevels},
		{name: "prefix", description: "Show the text command prefix", run: b.cmdPrefix},
		{name: "help", description: "List commands", run: b.cmdHelp},

		{name: "addcoins", description: "Add coins to a member", admin: true, options: []optionSpec{
			userOption("user", "Member", true),
			intOption("amount", "Coins to add", true),
		}, run: b.cmdAddCoins},
		{name: "removecoins", description: "Remove coins from a member", admin: true, options: []optionSpec{
			userOption("user", "Member", true),
			intOption("amount", "Coins to remove", true),
		}, run: b.cmdRemoveCoins},
		{name: "resetbalance", description: "Reset a member's economy account", admin: true, options: []optionSpec{userOption("user", "Member", true)}, run: b.cmdResetBalance},
		{name: "addxp", description: "Grant XP to a member", admin: true, options: []optionSpec{
			userOption("user", "Member", true),
			intOption("amount", "XP to grant", true),
		}, run: b.cmdAddXP},
		{name: "resetwarnings", description: "Clear a member's spam warnings", admin: true, options: []optionSpec{userOption("user", "Member", true)}, run: b.cmdResetWarnings},
		{name: "setprefix", description: "Change the text command prefix", admin: true, options: []optionSpec{stringOption("prefix", "New prefix (1-5 characters)", true)}, run: b.cmdSetPrefix},
		{name: "resetprefix", description: "Restore the default prefix", admin: true, run: b.cmdResetPrefix},
		{name: "levelconfig", description: "Change leveling settings", admin: true, options: []optionSpec{
			stringOption("setting", "Setting to change", true, "xp", "spam", "channel", "message", "show", "reset"),
			stringOption("value", "New value", false),
		}, run: b.cmdLevelConfig},
		{name: "levelrole", description: "Manage level role rewards", admin: true, options: []optionSpec{
			stringOption("action", "set, remove or list", true, "set", "remove", "list"),
			intOption("level", "Level", false),
			{name: "role", description: "Role to grant", kind: discordgo.ApplicationCommandOptionRole},
		}, run: b.cmdLevelRole},
		{name: "stats", description: "Show economy statistics", admin: true, options: []optionSpec{intOption("hours", "Transaction window in hours", false)}, run: b.cmdStats},
	}
}

func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	for _, name := range b.order {
		spec := b.commands[name]
		if _, err := b.session.ApplicationCommandCreate(appID, "", toApplicationCommand(spec)); err != nil {
			return fmt.Errorf("register /%s: %w", spec.name, err)
		}
	}
	return nil
}

func toApplicationCommand(spec commandSpec) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        spec.name,
		Description: spec.description,
	}
	if spec.admin {
		perms := int64(discordgo.PermissionAdministrator)
		cmd.DefaultMemberPermissions = &perms
	}
	dm := false
	cmd.DMPermission = &dm
	for _, opt := range spec.options {
		option := &discordgo.ApplicationCommandOption{
			Type:        opt.kind,
			Name:        opt.name,
			Description: opt.description,
			Required:    opt.required,
		}
		for _, choice := range opt.choices {
			option.Choices = append(option.Choices, &discordgo.ApplicationCommandOptionChoice{Name: choice, Value: choice})
		}
		cmd.Options = append(cmd.Options, option)
	}
	return cmd
}

// parseArgs maps positional text arguments onto the command's options. The
// last string option takes the rest of the line.
func parseArgs(spec commandSpec, fields []string) map[string]string {
	args := make(map[string]string, len(spec.options))
	for i, opt := range spec.options {
		if i >= len(fields) {
			break
		}
		if i == len(spec.options)-1 && opt.kind == discordgo.ApplicationCommandOptionString {
			args[opt.name] = strings.Join(fields[i:], " ")
			break
		}
		args[opt.name] = fields[i]
	}
	return args
}

func usage(prefix string, spec commandSpec) string {
	parts := []string{prefix + spec.name}
	for _, opt := range spec.options {
		if opt.required {
			parts = append(parts, "<"+opt.name+">")
		} else {
			parts = append(parts, "["+opt.name+"]")
		}
	}
	return strings.Join(parts, " ")
}

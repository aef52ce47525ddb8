package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guild-ledger/internal/storage"
)

// request is a parsed command from either a slash interaction or a prefixed
// text message.
type request struct {
	guildID   uint64
	userID    uint64
	channelID string
	admin     bool
	prefix    string
	name      string
	args      map[string]string
}

type reply struct {
	embed     *discordgo.MessageEmbed
	ephemeral bool
}

func (r request) arg(name string) string {
	return strings.TrimSpace(r.args[name])
}

// intArg reports present=false when the option was omitted.
func (r request) intArg(name string) (value int64, present bool, err error) {
	raw := r.arg(name)
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.ParseInt(raw, 10, 64)
	return value, true, err
}

// userArg resolves a user option, falling back to the caller when omitted.
func (r request) userArg(name string) (uint64, bool) {
	raw := r.arg(name)
	if raw == "" {
		return r.userID, true
	}
	return parseMention(raw, "@!")
}

// parseMention accepts a bare id or a <...> mention whose leading marks
// are drawn from sigils, e.g. "@!" for users.
func parseMention(raw, sigils string) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "<") && strings.HasSuffix(raw, ">") {
		inner := raw[1 : len(raw)-1]
		trimmed := strings.TrimLeft(inner, sigils)
		if trimmed == inner {
			return 0, false
		}
		raw = trimmed
	}
	id, err := storage.ParseID(raw)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (b *Bot) execute(ctx context.Context, req request) reply {
	spec, ok := b.commands[req.name]
	if !ok {
		return reply{embed: b.errorEmbed("Unknown command", fmt.Sprintf("Use `%shelp` to list commands.", req.prefix)), ephemeral: true}
	}
	if spec.admin && !req.admin {
		return reply{embed: b.errorEmbed("Permission denied", "You need the Administrator permission to use this command."), ephemeral: true}
	}
	for _, opt := range spec.options {
		if opt.required && req.arg(opt.name) == "" {
			return b.usageReply(req, spec)
		}
	}

	out, err := spec.run(ctx, req)
	if err != nil {
		b.logger.Error("command failed",
			zap.String("command", req.name),
			zap.Uint64("guild_id", req.guildID),
			zap.Uint64("user_id", req.userID),
			zap.Error(err),
		)
		return reply{embed: b.errorEmbed("Error", "Something went wrong. Please try again later."), ephemeral: true}
	}
	return out
}

func (b *Bot) usageReply(req request, spec commandSpec) reply {
	return reply{embed: b.errorEmbed("Invalid arguments", "Usage: `"+usage(req.prefix, spec)+"`"), ephemeral: true}
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Guild only", "Commands only work inside a server."), true)
		return
	}
	guildID, err := storage.ParseID(interaction.GuildID)
	if err != nil {
		return
	}
	userID, err := storage.ParseID(interaction.Member.User.ID)
	if err != nil {
		return
	}

	data := interaction.ApplicationCommandData()
	req := request{
		guildID:   guildID,
		userID:    userID,
		channelID: interaction.ChannelID,
		admin:     interaction.Member.Permissions&discordgo.PermissionAdministrator != 0,
		prefix:    "/",
		name:      data.Name,
		args:      make(map[string]string, len(data.Options)),
	}
	for _, opt := range data.Options {
		req.args[opt.Name] = optionString(opt)
	}

	out := b.execute(context.Background(), req)
	b.respondEmbed(session, interaction, out.embed, out.ephemeral)
}

func optionString(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	switch opt.Type {
	case discordgo.ApplicationCommandOptionInteger:
		return strconv.FormatInt(opt.IntValue(), 10)
	case discordgo.ApplicationCommandOptionBoolean:
		return strconv.FormatBool(opt.BoolValue())
	default:
		return fmt.Sprint(opt.Value)
	}
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	guildID, err := storage.ParseID(msg.GuildID)
	if err != nil {
		return
	}
	userID, err := storage.ParseID(msg.Author.ID)
	if err != nil {
		return
	}
	ctx := context.Background()

	if text, ok := b.services.Prefixes.Strip(guildID, msg.Content); ok {
		fields := strings.Fields(text)
		req := request{
			guildID:   guildID,
			userID:    userID,
			channelID: msg.ChannelID,
			prefix:    b.services.Prefixes.Get(guildID),
			name:      strings.ToLower(fields[0]),
		}
		if spec, ok := b.commands[req.name]; ok {
			req.args = parseArgs(spec, fields[1:])
			if spec.admin {
				req.admin = b.messageAuthorIsAdmin(msg)
			}
			b.send(msg.ChannelID, b.execute(ctx, req).embed)
			return
		}
	}

	b.handleChatMessage(ctx, chatMessage{
		guildID:   guildID,
		userID:    userID,
		channelID: msg.ChannelID,
		username:  msg.Author.Username,
		content:   msg.Content,
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
	if err != nil {
		b.logger.Warn("interaction response failed", zap.Error(err))
	}
}

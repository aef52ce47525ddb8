// Package bot connects the ledger services to Discord: slash and prefix
// commands, the message XP pipeline and level-up side effects.
package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guild-ledger/internal/analytics"
	"guild-ledger/internal/config"
	"guild-ledger/internal/debounce"
	"guild-ledger/internal/economy"
	"guild-ledger/internal/leveling"
	"guild-ledger/internal/prefix"
)

// Services are the process-scoped objects the bot dispatches to.
type Services struct {
	Economy   *economy.Service
	Leveling  *leveling.Service
	Prefixes  *prefix.Manager
	Analytics *analytics.Service
	Announced *debounce.Cache
}

// platform is the slice of the Discord API the bot needs for side effects.
type platform interface {
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
	SendText(channelID, content string) error
	Timeout(guildID, userID string, until time.Time) error
	AddRole(guildID, userID, roleID string) error
}

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	session  *discordgo.Session
	platform platform
	services Services
	commands map[string]commandSpec
	order    []string
}

func New(cfg config.Config, logger *zap.Logger, services Services) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := newBot(cfg, logger, services, sessionPlatform{session: session})
	b.session = session
	return b, nil
}

func newBot(cfg config.Config, logger *zap.Logger, services Services, p platform) *Bot {
	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		platform: p,
		services: services,
		commands: make(map[string]commandSpec),
	}
	for _, spec := range b.commandTable() {
		b.commands[spec.name] = spec
		b.order = append(b.order, spec.name)
	}
	return b
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	return b.registerCommands()
}

func (b *Bot) Close() {
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)),
	)
}

func (b *Bot) memberForUser(guildID, userID string) *discordgo.Member {
	member, err := b.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = b.session.GuildMember(guildID, userID)
	return member
}

// memberIsAdmin folds the member's role permissions the way Discord does
// for guild-level checks. The owner is always an admin.
func memberIsAdmin(guild *discordgo.Guild, member *discordgo.Member) bool {
	if guild == nil || member == nil || member.User == nil {
		return false
	}
	if guild.OwnerID == member.User.ID {
		return true
	}
	roles := make(map[string]*discordgo.Role, len(guild.Roles))
	var perms int64
	for _, role := range guild.Roles {
		roles[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roles[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (b *Bot) messageAuthorIsAdmin(msg *discordgo.MessageCreate) bool {
	guild, err := b.session.State.Guild(msg.GuildID)
	if err != nil || guild == nil {
		if guild, err = b.session.Guild(msg.GuildID); err != nil {
			return false
		}
	}
	member := msg.Member
	if member == nil {
		member = b.memberForUser(msg.GuildID, msg.Author.ID)
	} else if member.User == nil {
		member.User = msg.Author
	}
	return memberIsAdmin(guild, member)
}

type sessionPlatform struct {
	session *discordgo.Session
}

func (p sessionPlatform) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	_, err := p.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func (p sessionPlatform) SendText(channelID, content string) error {
	_, err := p.session.ChannelMessageSend(channelID, content)
	return err
}

func (p sessionPlatform) Timeout(guildID, userID string, until time.Time) error {
	return p.session.GuildMemberTimeout(guildID, userID, &until)
}

func (p sessionPlatform) AddRole(guildID, userID, roleID string) error {
	return p.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

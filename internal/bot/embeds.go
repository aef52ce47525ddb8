package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"guild-ledger/internal/storage"
)

func (b *Bot) embed(title, description string, color int, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) successEmbed(title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return b.embed(title, description, b.cfg.EmbedColors.Success, fields...)
}

func (b *Bot) infoEmbed(title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return b.embed(title, description, b.cfg.EmbedColors.Info, fields...)
}

func (b *Bot) warningEmbed(title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return b.embed(title, description, b.cfg.EmbedColors.Warning, fields...)
}

func (b *Bot) errorEmbed(title, description string) *discordgo.MessageEmbed {
	return b.embed(title, description, b.cfg.EmbedColors.Error)
}

func field(name string, value any) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: fmt.Sprint(value), Inline: true}
}

func mention(userID uint64) string {
	return "<@" + storage.FormatID(userID) + ">"
}

func roleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

func coins(n int64) string {
	return fmt.Sprintf("%d 🪙", n)
}

// humanDuration renders d as "1h 5m" or "42s". Seconds are dropped once
// hours are shown.
func humanDuration(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	d = d.Round(time.Second)
	if d == 0 {
		d = time.Second
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 && h == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}

var medals = []string{"🥇", "🥈", "🥉"}

func rankLabel(position int) string {
	if position >= 1 && position <= len(medals) {
		return medals[position-1]
	}
	return fmt.Sprintf("#%d", position)
}

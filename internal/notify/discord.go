package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// embedSender is the slice of *discordgo.Session the sink uses.
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts events to a channel through the REST API. No gateway
// connection is opened.
type Discord struct {
	sess      embedSender
	channelID string
}

// NewDiscord returns a sink that posts as the bot identified by token.
func NewDiscord(token, channelID string) (*Discord, error) {
	if channelID == "" {
		return nil, fmt.Errorf("notify: discord channel id is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &Discord{sess: s, channelID: channelID}, nil
}

// Notify posts ev as an embed.
func (d *Discord) Notify(ctx context.Context, ev Event) error {
	if _, err := d.sess.ChannelMessageSendEmbed(d.channelID, discordEmbed(ev), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("notify: discord send: %w", err)
	}
	return nil
}

func discordEmbed(ev Event) *discordgo.MessageEmbed {
	title, body, color := Format(ev)
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: body,
		Color:       hexColor(color),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Subproject", Value: ev.SubprojectID, Inline: true},
			{Name: "Outcome", Value: string(ev.Outcome), Inline: true},
		},
	}
}

// hexColor converts "#rrggbb" to the integer form embeds use.
func hexColor(hex string) int {
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}

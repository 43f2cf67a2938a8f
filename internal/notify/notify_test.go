package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/slack-go/slack"
	"github.com/zulandar/foreman/internal/config"
	"github.com/zulandar/foreman/internal/fault"
)

var okEvent = Event{
	ProjectID:      "p1",
	ProjectName:    "Website",
	SubprojectID:   "s1",
	SubprojectName: "Checkout",
	Outcome:        Succeeded,
	Tasks:          4,
	Duration:       1500 * time.Millisecond,
}

var failedEvent = Event{
	SubprojectID: "s2",
	Outcome:      Failed,
	Kind:         fault.GeneratorUnavailable,
	Message:      "3 attempts failed",
}

func TestFormat(t *testing.T) {
	title, body, color := Format(okEvent)
	if title != "Build plan ready: Website / Checkout" {
		t.Errorf("title = %q", title)
	}
	if body != "PRD and 4 tasks generated (1.5s)" {
		t.Errorf("body = %q", body)
	}
	if color != colorSuccess {
		t.Errorf("color = %q", color)
	}

	title, body, color = Format(failedEvent)
	if title != "Build plan failed: s2" {
		t.Errorf("title = %q", title)
	}
	if body != "generator_unavailable: 3 attempts failed" {
		t.Errorf("body = %q", body)
	}
	if color != colorFailure {
		t.Errorf("color = %q", color)
	}
}

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) Notify(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestMulti(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("down")}
	c := &recorder{}

	err := Multi{a, b, c}.Notify(context.Background(), okEvent)
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Errorf("err = %v, want joined failure", err)
	}
	if len(a.events) != 1 || len(c.events) != 1 {
		t.Error("a failing sink stopped delivery to the others")
	}
	if err := (Multi{}).Notify(context.Background(), okEvent); err != nil {
		t.Errorf("empty Multi: %v", err)
	}
}

func TestSlack_Notify(t *testing.T) {
	var gotURL string
	var gotMsg *slack.WebhookMessage
	s := NewSlack("https://hooks.slack.com/services/T/B/X")
	s.post = func(_ context.Context, url string, msg *slack.WebhookMessage) error {
		gotURL, gotMsg = url, msg
		return nil
	}

	if err := s.Notify(context.Background(), failedEvent); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if gotURL != "https://hooks.slack.com/services/T/B/X" {
		t.Errorf("url = %q", gotURL)
	}
	if len(gotMsg.Attachments) != 1 || gotMsg.Attachments[0].Color != colorFailure {
		t.Errorf("message = %+v", gotMsg)
	}

	s.post = func(context.Context, string, *slack.WebhookMessage) error { return errors.New("410 gone") }
	if err := s.Notify(context.Background(), okEvent); err == nil || !strings.Contains(err.Error(), "slack webhook") {
		t.Errorf("err = %v", err)
	}
}

type fakeSession struct {
	channel string
	embed   *discordgo.MessageEmbed
	err     error
}

func (f *fakeSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel, f.embed = channelID, embed
	return &discordgo.Message{}, f.err
}

func TestDiscord_Notify(t *testing.T) {
	fake := &fakeSession{}
	d := &Discord{sess: fake, channelID: "1234"}

	if err := d.Notify(context.Background(), okEvent); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if fake.channel != "1234" {
		t.Errorf("channel = %q", fake.channel)
	}
	if fake.embed.Color != 0x36a64f {
		t.Errorf("color = %x", fake.embed.Color)
	}
	if fake.embed.Title != "Build plan ready: Website / Checkout" {
		t.Errorf("title = %q", fake.embed.Title)
	}

	fake.err = errors.New("missing access")
	if err := d.Notify(context.Background(), okEvent); err == nil {
		t.Error("expected error")
	}
}

func TestNewDiscord_RequiresChannel(t *testing.T) {
	if _, err := NewDiscord("token", ""); err == nil {
		t.Error("expected error without channel id")
	}
}

func TestHexColor(t *testing.T) {
	if got := hexColor("#d00000"); got != 0xd00000 {
		t.Errorf("hexColor = %x", got)
	}
	if got := hexColor("nope"); got != 0 {
		t.Errorf("hexColor(invalid) = %d", got)
	}
}

func TestFromConfig(t *testing.T) {
	n, err := FromConfig(config.NotifyConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(Nop); !ok {
		t.Errorf("no sinks = %T, want Nop", n)
	}

	n, _ = FromConfig(config.NotifyConfig{SlackWebhookURL: "https://hooks.slack.com/x"})
	if _, ok := n.(*Slack); !ok {
		t.Errorf("slack only = %T", n)
	}

	t.Setenv("FOREMAN_DISCORD", "tok")
	n, err = FromConfig(config.NotifyConfig{
		SlackWebhookURL:    "https://hooks.slack.com/x",
		DiscordBotTokenEnv: "FOREMAN_DISCORD",
		DiscordChannelID:   "42",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m, ok := n.(Multi); !ok || len(m) != 2 {
		t.Errorf("both sinks = %#v", n)
	}

	if _, err := FromConfig(config.NotifyConfig{DiscordBotTokenEnv: "FOREMAN_UNSET_VAR", DiscordChannelID: "1"}); err == nil {
		t.Error("expected error for empty token env")
	}
}

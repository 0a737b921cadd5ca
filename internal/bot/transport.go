package bot

import (
	"github.com/bwmarrin/discordgo"
)

// Transport is the narrow slice of the Discord API the bot needs for
// outbound traffic. The handlers never touch the session directly, so
// tests can swap in a fake.
type Transport interface {
	SendMessage(channelID, content string) (string, error)
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error)
	EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error
	DeleteMessage(channelID, messageID string) error
	AddReaction(channelID, messageID, emoji string) error
	DirectChannel(userID string) (string, error)
}

type discordTransport struct {
	session *discordgo.Session
}

func NewDiscordTransport(session *discordgo.Session) Transport {
	return &discordTransport{session: session}
}

func (t *discordTransport) SendMessage(channelID, content string) (string, error) {
	message, err := t.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return message.ID, nil
}

func (t *discordTransport) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	message, err := t.session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return "", err
	}
	return message.ID, nil
}

func (t *discordTransport) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := t.session.ChannelMessageEditEmbed(channelID, messageID, embed)
	return err
}

func (t *discordTransport) DeleteMessage(channelID, messageID string) error {
	return t.session.ChannelMessageDelete(channelID, messageID)
}

func (t *discordTransport) AddReaction(channelID, messageID, emoji string) error {
	return t.session.MessageReactionAdd(channelID, messageID, emoji)
}

func (t *discordTransport) DirectChannel(userID string) (string, error) {
	channel, err := t.session.UserChannelCreate(userID)
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

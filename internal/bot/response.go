package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type ResponseString struct {
	string
}
type ResponseEmbed struct {
	discordgo.MessageEmbed
}

type Response interface {
	Send(channelid string, transport Transport)
}

func (response ResponseString) Send(channelid string, transport Transport) {
	if _, err := transport.SendMessage(channelid, response.string); err != nil {
		log.Error().Err(err).Msg("Could not send message")
	}
}

func (response ResponseEmbed) Send(channelid string, transport Transport) {
	embed := response.MessageEmbed
	if _, err := transport.SendEmbed(channelid, &embed); err != nil {
		log.Error().Err(err).Msg("Could not send embed")
	}
}

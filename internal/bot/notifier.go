package bot

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Gliger13/bdo-daily-bot-sub001/internal/raid"
)

// Notifier delivers direct messages to the people on a roster. It is a
// thin translation layer: the raid state says who to notify, the
// notifier only carries the message out.
type Notifier struct {
	transport Transport
}

func NewNotifier(transport Transport) *Notifier {
	return &Notifier{transport: transport}
}

// NotifyMembers DMs every joined member and the captain. Delivery
// failures are logged per recipient and do not stop the rest.
func (n *Notifier) NotifyMembers(entry raid.Entry, content string) {
	recipients := make([]raid.MemberRef, 0, len(entry.Members)+1)
	recipients = append(recipients, raid.MemberRef{Nickname: entry.CaptainName, Identity: entry.CaptainIdentity})
	recipients = append(recipients, entry.Members...)

	for _, member := range recipients {
		if err := n.direct(member.Identity, content); err != nil {
			log.Warn().Str("raid", entry.Key()).Str("member", member.Nickname).Err(err).Msg("Could not notify member")
		}
	}
}

// NotifyOne DMs a single identity, used for reaction feedback where the
// bot has no natural place to answer in the channel.
func (n *Notifier) NotifyOne(identity, content string) {
	if err := n.direct(identity, content); err != nil {
		log.Warn().Str("identity", identity).Err(err).Msg("Could not send direct message")
	}
}

func (n *Notifier) direct(identity, content string) error {
	channelID, err := n.transport.DirectChannel(identity)
	if err != nil {
		return fmt.Errorf("open direct channel: %w", err)
	}
	if _, err := n.transport.SendMessage(channelID, content); err != nil {
		return fmt.Errorf("send direct message: %w", err)
	}
	return nil
}

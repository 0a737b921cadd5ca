package bot

// Trigger is an inbound event resolved by the Discord boundary: either a
// typed command or a reaction on one of the bot's messages. Both carry
// the fields the core needs and nothing transport-specific.
type Trigger interface {
	Identity() string
	Channel() string
}

// CommandTrigger is a chat command addressed to the bot.
type CommandTrigger struct {
	identity  string
	channelID string
	content   string
}

func NewCommandTrigger(identity, channelID, content string) CommandTrigger {
	return CommandTrigger{identity: identity, channelID: channelID, content: content}
}

func (t CommandTrigger) Identity() string { return t.identity }
func (t CommandTrigger) Channel() string  { return t.channelID }
func (t CommandTrigger) Content() string  { return t.content }

// ReactionTrigger is a reaction added to or removed from a message.
type ReactionTrigger struct {
	identity  string
	channelID string
	messageID string
	emoji     string
	added     bool
}

func NewReactionTrigger(identity, channelID, messageID, emoji string, added bool) ReactionTrigger {
	return ReactionTrigger{identity: identity, channelID: channelID, messageID: messageID, emoji: emoji, added: added}
}

func (t ReactionTrigger) Identity() string  { return t.identity }
func (t ReactionTrigger) Channel() string   { return t.channelID }
func (t ReactionTrigger) MessageID() string { return t.messageID }
func (t ReactionTrigger) Emoji() string     { return t.emoji }
func (t ReactionTrigger) Added() bool       { return t.added }

package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Gliger13/bdo-daily-bot-sub001/internal/raid"
)

// Use "teal" color for the bot
const color int = 0x008080

// JoinEmoji is the reaction members use on the collection message to
// join or leave the raid.
const JoinEmoji = "⚔️"

func InputNotValid(errorMessage string) []Response {

	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func HelpMessage() []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: color}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`raid create <server> <HH:MM> [reserved]`",
		Value:  "Open a raid departing at the given time, optionally blocking seats for your allies",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`raid remove [HH:MM]`",
		Value:  "Close one of your raids; the time is only needed if you captain several",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`raid join <captain> [HH:MM]`",
		Value:  fmt.Sprintf("Join the captain's raid, same as reacting with %s on its message", JoinEmoji),
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`raid leave <captain> [HH:MM]`",
		Value:  "Leave the captain's raid",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`raid open <places> [HH:MM]` / `raid close <places> [HH:MM]`",
		Value:  "Captain only: open frees reserved seats for joins, close blocks more of them",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`raid show <captain> [HH:MM]`",
		Value:  "Print the roster table of a raid",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`raid register <nickname>`",
		Value:  "Register your game nickname; required before creating or joining raids",
		Inline: false,
	})
	return []Response{ResponseEmbed{embed}}
}

// FailureMessage turns a typed refusal into the text shown to the user.
func FailureMessage(reason raid.FailureReason) []Response {
	return []Response{ResponseString{failureText(reason)}}
}

func failureText(reason raid.FailureReason) string {

	var content string
	switch reason {
	case raid.ReasonRaidExists:
		content = "You already have a raid departing at that time"
	case raid.ReasonRaidNotFound:
		content = "No raid found for that captain and departure time"
	case raid.ReasonNoActiveRaids:
		content = "You have no active raids"
	case raid.ReasonNoAvailableRaids:
		content = "That captain has no raids you could join"
	case raid.ReasonAlreadyInRaid:
		content = "You are already in another raid departing at the same time"
	case raid.ReasonAlreadyInSameRaid:
		content = "You are already in this raid"
	case raid.ReasonUserNotFoundInRaid:
		content = "You are not in this raid"
	case raid.ReasonRaidIsFull:
		content = "The raid is full"
	case raid.ReasonNoAvailableToCloseReservation:
		content = "Fewer places are reserved than you tried to open"
	case raid.ReasonNotCaptain:
		content = "Only the captain can adjust reservations"
	case raid.ReasonValidationError:
		content = "The number of places has to be positive"
	default:
		content = "The operation could not be performed"
	}
	return content
}

func NotRegistered() []Response {
	return []Response{ResponseString{"Register your game nickname first with `raid register <nickname>`"}}
}

func NicknameRegistered(nickname string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Nickname `%s` registered", nickname)}}
}

func OperationFailed() []Response {
	return []Response{ResponseString{"Something went wrong on my side, please try again"}}
}

func RaidCreated(entry raid.Entry) []Response {
	content := fmt.Sprintf("Raid by `%s` created, departing at %s", entry.CaptainName, entry.DepartureTime.Format("15:04"))
	return []Response{ResponseString{content}}
}

func RaidRemoved(entry raid.Entry) []Response {
	content := fmt.Sprintf("Raid by `%s` departing at %s has been closed", entry.CaptainName, entry.DepartureTime.Format("15:04"))
	return []Response{ResponseString{content}}
}

func MemberJoined(entry raid.Entry, change raid.Change) []Response {
	content := fmt.Sprintf("`%s` joined the raid by `%s`, %d places left", change.Member.Nickname, entry.CaptainName, change.PlacesLeft)
	return []Response{ResponseString{content}}
}

func MemberLeft(entry raid.Entry, change raid.Change) []Response {
	content := fmt.Sprintf("`%s` left the raid by `%s`, %d places left", change.Member.Nickname, entry.CaptainName, change.PlacesLeft)
	return []Response{ResponseString{content}}
}

func ReservationChanged(entry raid.Entry, change raid.Change) []Response {
	var verb string
	if change.Kind == raid.ChangeReservationOpened {
		verb = "opened"
	} else {
		verb = "closed"
	}
	content := fmt.Sprintf("%d reserved places %s, %d places left for joins", change.Places, verb, change.PlacesLeft)
	return []Response{ResponseString{content}}
}

// ChooseRaid lists the captain's raids so the caller can repeat the
// command with an explicit departure time.
func ChooseRaid(raids []*raid.Raid) []Response {
	times := make([]string, len(raids))
	for i, r := range raids {
		times[i] = r.DepartureTime().Format("15:04")
	}
	content := fmt.Sprintf("Several raids match, repeat the command with one of the departure times: %s", strings.Join(times, ", "))
	return []Response{ResponseString{content}}
}

// CollectionEmbed is the message members react on to join the raid.
func CollectionEmbed(entry raid.Entry) *discordgo.MessageEmbed {
	embed := discordgo.MessageEmbed{
		Title: fmt.Sprintf("Raid by %s — departs %s", entry.CaptainName, entry.DepartureTime.Format("15:04")),
		Description: fmt.Sprintf("Server: **%s**\nReact with %s to join, remove your reaction to leave",
			entry.GameServer, JoinEmoji),
		Color: color,
	}
	return &embed
}

// TableEmbed renders the membership table: join order, nicknames and
// the seats still open.
func TableEmbed(entry raid.Entry, now time.Time) *discordgo.MessageEmbed {
	embed := discordgo.MessageEmbed{
		Title: fmt.Sprintf("Roster of %s (%s)", entry.CaptainName, entry.GameServer),
		Color: color,
	}

	var members string
	if len(entry.Members) == 0 {
		members = "Nobody yet"
	} else {
		lines := make([]string, len(entry.Members))
		for i, member := range entry.Members {
			lines[i] = fmt.Sprintf("%2d. %s", i+1, member.Nickname)
		}
		members = strings.Join(lines, "\n")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("Members (%d)", len(entry.Members)),
		Value:  members,
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Places left",
		Value:  fmt.Sprintf("%d (%d reserved)", entry.PlacesLeft(), entry.ReservedSlots),
		Inline: true,
	})

	window := raid.NewTimeWindow(entry.DepartureTime)
	var departs string
	if window.Expired(now) {
		departs = "departed"
	} else {
		departs = fmt.Sprintf("in %s", window.TimeUntilDeparture(now).Round(time.Minute))
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Departure",
		Value:  fmt.Sprintf("%s (%s)", entry.DepartureTime.Format("15:04"), departs),
		Inline: true,
	})
	return &embed
}

// DepartureReminder is the direct message sent to members shortly
// before the raid leaves.
func DepartureReminder(entry raid.Entry, now time.Time) string {
	window := raid.NewTimeWindow(entry.DepartureTime)
	return fmt.Sprintf("The raid by `%s` departs in %s from server %s, get ready",
		entry.CaptainName, window.TimeUntilDeparture(now).Round(time.Minute), entry.GameServer)
}

// DepartedNotice is the direct message sent to members once the raid
// has left and its roster is torn down.
func DepartedNotice(entry raid.Entry) string {
	return fmt.Sprintf("The raid by `%s` has departed, see you on %s", entry.CaptainName, entry.GameServer)
}

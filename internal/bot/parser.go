package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const prefix string = "raid"

const (
	COMMAND_CREATE   = iota
	COMMAND_REMOVE   = iota
	COMMAND_OPEN     = iota
	COMMAND_CLOSE    = iota
	COMMAND_JOIN     = iota
	COMMAND_LEAVE    = iota
	COMMAND_SHOW     = iota
	COMMAND_REGISTER = iota
	COMMAND_HELP     = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_NO_BOT_PREFIX          = iota
	PARSEID_NO_COMMAND             = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_INPUT               = iota
	PARSEID_NOT_A_TIME             = iota
	PARSEID_NOT_A_NUMBER           = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` requires an argument",
	PARSEID_NOT_A_TIME:             "Input `%s` is not a departure time, expected HH:MM",
	PARSEID_NOT_A_NUMBER:           "Input `%s` is not a number",
}

// TimeOfDay is a wall-clock departure time as the user typed it. The
// bot resolves it to the next matching instant.
type TimeOfDay struct {
	Hour   int
	Minute int
	Set    bool
}

type CreateArgs struct {
	Server   string
	At       TimeOfDay
	Reserved int
}

type RemoveArgs struct {
	At TimeOfDay
}

type ReserveArgs struct {
	Places int
	At     TimeOfDay
}

type MemberArgs struct {
	Captain string
	At      TimeOfDay
}

type RegisterArgs struct {
	Nickname string
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

// Parse validates a raw chat message against the closed command set.
func Parse(message string) ParseResult {

	noInput := func(command int, commandString string) ParseResult {
		parseid := PARSEID_NO_INPUT
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}

	// The message has to start with the bot prefix
	if !strings.HasPrefix(message, prefix) {
		log.Debug().Msg("Reject message not intended for the bot")
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}

	// Get the command if valid
	words := strings.Fields(strings.TrimSpace(message[len(prefix):]))
	if len(words) == 0 {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString := words[0]
	words = words[1:]

	// Match the command

	switch commandString {
	case "create":
		// raid create <server> <HH:MM> [reserved]
		command := COMMAND_CREATE
		if len(words) < 2 {
			return noInput(command, commandString)
		}
		at, ok := parseTimeOfDay(words[1])
		if !ok {
			return notATime(command, words[1])
		}
		args := CreateArgs{Server: words[0], At: at}
		if len(words) > 2 {
			reserved, err := strconv.Atoi(words[2])
			if err != nil {
				return notANumber(command, words[2])
			}
			args.Reserved = reserved
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
	case "remove":
		// raid remove [HH:MM]
		command := COMMAND_REMOVE
		var args RemoveArgs
		if len(words) > 0 {
			at, ok := parseTimeOfDay(words[0])
			if !ok {
				return notATime(command, words[0])
			}
			args.At = at
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
	case "open", "close":
		// raid open <places> [HH:MM]
		// raid close <places> [HH:MM]
		command := COMMAND_OPEN
		if commandString == "close" {
			command = COMMAND_CLOSE
		}
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		places, err := strconv.Atoi(words[0])
		if err != nil {
			return notANumber(command, words[0])
		}
		args := ReserveArgs{Places: places}
		if len(words) > 1 {
			at, ok := parseTimeOfDay(words[1])
			if !ok {
				return notATime(command, words[1])
			}
			args.At = at
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
	case "join", "leave", "show":
		// raid join <captain> [HH:MM]
		// raid leave <captain> [HH:MM]
		// raid show <captain> [HH:MM]
		var command int
		switch commandString {
		case "join":
			command = COMMAND_JOIN
		case "leave":
			command = COMMAND_LEAVE
		case "show":
			command = COMMAND_SHOW
		}
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		args := MemberArgs{Captain: words[0]}
		if len(words) > 1 {
			at, ok := parseTimeOfDay(words[1])
			if !ok {
				return notATime(command, words[1])
			}
			args.At = at
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
	case "register":
		// raid register <nickname>
		command := COMMAND_REGISTER
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: RegisterArgs{Nickname: words[0]}}
	case "help":
		// raid help
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	default:
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
}

func notATime(command int, word string) ParseResult {
	parseid := PARSEID_NOT_A_TIME
	return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], word)}
}

func notANumber(command int, word string) ParseResult {
	parseid := PARSEID_NOT_A_NUMBER
	return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], word)}
}

func parseTimeOfDay(word string) (TimeOfDay, bool) {
	parts := strings.Split(word, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, false
	}
	return TimeOfDay{Hour: hour, Minute: minute, Set: true}, true
}

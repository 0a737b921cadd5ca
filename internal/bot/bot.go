package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Gliger13/bdo-daily-bot-sub001/internal/raid"
	"github.com/Gliger13/bdo-daily-bot-sub001/internal/scheduler"
)

// Store is the persistence the bot needs: flat raid records plus the
// identity-to-nickname profiles. Implemented by the storage package.
type Store interface {
	SaveRaid(ctx context.Context, entry raid.Entry) error
	DeleteRaid(ctx context.Context, captainName string, departureTime time.Time) (bool, error)
	LoadRaids(ctx context.Context) ([]raid.Entry, error)
	SaveProfile(ctx context.Context, identity, nickname string) error
	Nickname(ctx context.Context, identity string) (string, bool, error)
}

type commandHandler func(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response

// Bot owns the raid registry and wires the Discord boundary to the
// core: commands and reactions come in, pass the eligibility gate,
// mutate a raid and go back out as messages.
type Bot struct {
	token     string
	registry  *raid.Registry
	gate      *raid.Gate
	store     Store
	sched     *scheduler.Scheduler
	transport Transport
	notifier  *Notifier
	handlers  map[int]commandHandler
	selfID    string
	now       func() time.Time
}

func New(token string, store Store, reminderLead time.Duration) *Bot {
	registry := raid.NewRegistry()
	bot := &Bot{
		token:    token,
		registry: registry,
		gate:     raid.NewGate(registry),
		store:    store,
		now:      time.Now,
	}
	bot.sched = scheduler.New(registry, bot, reminderLead, nil)

	// The command table is resolved once here; Receive only ever looks
	// commands up, it never decides what they mean
	bot.handlers = map[int]commandHandler{
		COMMAND_CREATE:   bot.create,
		COMMAND_REMOVE:   bot.remove,
		COMMAND_OPEN:     bot.openReservation,
		COMMAND_CLOSE:    bot.closeReservation,
		COMMAND_JOIN:     bot.join,
		COMMAND_LEAVE:    bot.leave,
		COMMAND_SHOW:     bot.show,
		COMMAND_REGISTER: bot.register,
		COMMAND_HELP:     bot.help,
	}
	return bot
}

// Run opens the Discord session, restores persisted raids and blocks
// until the context is cancelled.
func (bot *Bot) Run(ctx context.Context) error {
	discord, err := discordgo.New("Bot " + bot.token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	bot.transport = NewDiscordTransport(discord)
	bot.notifier = NewNotifier(bot.transport)

	discord.AddHandler(bot.onMessageCreate)
	discord.AddHandler(bot.onReactionAdd)
	discord.AddHandler(bot.onReactionRemove)
	discord.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages

	if err := discord.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	bot.selfID = discord.State.User.ID
	log.Info().Str("user", discord.State.User.Username).Msg("Discord session open")

	if err := bot.restore(ctx); err != nil {
		discord.Close()
		return err
	}

	<-ctx.Done()

	// Tear the timers and the gateway connection down together
	var group errgroup.Group
	group.Go(func() error {
		bot.sched.Shutdown()
		return nil
	})
	group.Go(discord.Close)
	return group.Wait()
}

// restore repopulates the registry from storage at process start.
// Raids whose departure time already passed are dropped from storage
// instead of revived.
func (bot *Bot) restore(ctx context.Context) error {
	entries, err := bot.store.LoadRaids(ctx)
	if err != nil {
		return fmt.Errorf("restore raids: %w", err)
	}
	now := bot.now()
	for _, entry := range entries {
		if raid.NewTimeWindow(entry.DepartureTime).Expired(now) {
			log.Info().Str("raid", entry.Key()).Msg("Dropping raid that departed while the bot was down")
			if _, err := bot.store.DeleteRaid(ctx, entry.CaptainName, entry.DepartureTime); err != nil {
				log.Error().Str("raid", entry.Key()).Err(err).Msg("Could not delete departed raid")
			}
			continue
		}
		r := raid.NewRaid(entry, bot.store)
		if err := bot.registry.Add(r); err != nil {
			log.Warn().Str("raid", entry.Key()).Err(err).Msg("Skipping duplicate stored raid")
			continue
		}
		bot.sched.Track(r)
	}
	log.Info().Int("count", len(bot.registry.All())).Msg("Raids restored from storage")
	return nil
}

func (bot *Bot) onMessageCreate(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject my own messages
	if message.Author.ID == discord.State.User.ID {
		return
	}

	// Ignore messages from private channels
	if message.GuildID == "" {
		log.Debug().Msg("Ignoring private message")
		return
	}

	trigger := NewCommandTrigger(message.Author.ID, message.ChannelID, message.Content)
	bot.Receive(context.Background(), trigger)
}

// Receive parses the trigger and dispatches it through the command
// table.
func (bot *Bot) Receive(ctx context.Context, trigger CommandTrigger) {

	parseResult := Parse(trigger.Content())
	switch parseResult.parseid {
	case PARSEID_NO_BOT_PREFIX:
		return
	case PARSEID_OK:
		log.Debug().Str("content", trigger.Content()).Msg("Command understood")
		handler, ok := bot.handlers[parseResult.command]
		if !ok {
			panic(fmt.Sprintf("command %d has no handler", parseResult.command))
		}
		bot.sendResponses(trigger.Channel(), handler(ctx, trigger, parseResult.arguments))
	default:
		log.Debug().Str("content", trigger.Content()).Str("reason", parseResult.errorMessage).Msg("Wrong input")
		bot.sendResponses(trigger.Channel(), InputNotValid(parseResult.errorMessage))
	}
}

func (bot *Bot) onReactionAdd(discord *discordgo.Session, reaction *discordgo.MessageReactionAdd) {
	bot.HandleReaction(context.Background(), NewReactionTrigger(
		reaction.UserID, reaction.ChannelID, reaction.MessageID, reaction.Emoji.Name, true))
}

func (bot *Bot) onReactionRemove(discord *discordgo.Session, reaction *discordgo.MessageReactionRemove) {
	bot.HandleReaction(context.Background(), NewReactionTrigger(
		reaction.UserID, reaction.ChannelID, reaction.MessageID, reaction.Emoji.Name, false))
}

// HandleReaction resolves a reaction on a collection message into a
// join or leave through the same gate as the commands. Feedback goes
// out as a direct message, the channel stays clean.
func (bot *Bot) HandleReaction(ctx context.Context, trigger ReactionTrigger) {

	// The bot seeds the join emoji on its own messages
	if trigger.Identity() == bot.selfID {
		return
	}
	if trigger.Emoji() != JoinEmoji {
		return
	}
	target := bot.registry.FindByMessageID(trigger.MessageID())
	if target == nil {
		return
	}

	nickname, ok := bot.nicknameFor(ctx, trigger.Identity())
	if !ok {
		bot.notifier.NotifyOne(trigger.Identity(), "Register your game nickname first with `raid register <nickname>`")
		return
	}
	member := raid.MemberRef{Nickname: nickname, Identity: trigger.Identity()}

	if trigger.Added() {
		if decision := bot.gate.CanJoin(target, member); !decision.Accepted() {
			bot.notifier.NotifyOne(trigger.Identity(), failureText(decision.Reason))
			return
		}
		if _, err := target.Join(ctx, member); err != nil {
			if reason := reasonFromError(err); reason != raid.ReasonNone {
				bot.notifier.NotifyOne(trigger.Identity(), failureText(reason))
				return
			}
			log.Warn().Str("raid", snapshotKey(target)).Err(err).Msg("Join via reaction did not persist")
		}
	} else {
		if decision := bot.gate.CanLeave(target, nickname); !decision.Accepted() {
			return
		}
		if _, err := target.Leave(ctx, nickname); err != nil {
			if reasonFromError(err) != raid.ReasonNone {
				return
			}
			log.Warn().Str("raid", snapshotKey(target)).Err(err).Msg("Leave via reaction did not persist")
		}
	}
	bot.RefreshDisplay(target)
}

// RefreshDisplay redraws the roster table message. Also called by the
// scheduler at every display-refresh instant.
func (bot *Bot) RefreshDisplay(r *raid.Raid) {
	channelID, _, tableID := r.Messages()
	if tableID == "" {
		return
	}
	snapshot := r.Snapshot()
	if err := bot.transport.EditEmbed(channelID, tableID, TableEmbed(snapshot, bot.now())); err != nil {
		log.Warn().Str("raid", snapshot.Key()).Err(err).Msg("Could not refresh roster table")
	}
}

// Remind implements the scheduler callback fired shortly before
// departure.
func (bot *Bot) Remind(r *raid.Raid) {
	snapshot := r.Snapshot()
	log.Info().Str("raid", snapshot.Key()).Msg("Sending departure reminder")
	bot.notifier.NotifyMembers(snapshot, DepartureReminder(snapshot, bot.now()))
}

// Expire implements the scheduler callback fired once the departure
// time has passed.
func (bot *Bot) Expire(r *raid.Raid) {
	bot.teardown(context.Background(), r, true)
}

// teardown retires a raid through any path: manual close or expiry.
// The registry removal decides the winner when paths race, so the
// storage delete and the notifications run exactly once.
func (bot *Bot) teardown(ctx context.Context, r *raid.Raid, departed bool) {
	if !bot.registry.Remove(r) {
		return
	}
	bot.sched.Cancel(r)

	snapshot := r.Snapshot()
	if departed {
		bot.notifier.NotifyMembers(snapshot, DepartedNotice(snapshot))
	}
	if _, err := bot.store.DeleteRaid(ctx, snapshot.CaptainName, snapshot.DepartureTime); err != nil {
		log.Error().Str("raid", snapshot.Key()).Err(err).Msg("Could not delete raid from storage")
	}
	channelID, collectionID, tableID := r.Messages()
	for _, messageID := range []string{collectionID, tableID} {
		if messageID == "" {
			continue
		}
		if err := bot.transport.DeleteMessage(channelID, messageID); err != nil {
			log.Warn().Str("raid", snapshot.Key()).Err(err).Msg("Could not delete raid message")
		}
	}
	log.Info().Str("raid", snapshot.Key()).Bool("departed", departed).Msg("Raid torn down")
}

func (bot *Bot) create(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response {
	args := arguments.(CreateArgs)

	nickname, ok := bot.nicknameFor(ctx, trigger.Identity())
	if !ok {
		return NotRegistered()
	}
	if args.Reserved < 0 || args.Reserved > raid.MaxCapacity {
		return FailureMessage(raid.ReasonValidationError)
	}
	departure := bot.resolveTime(args.At)
	if decision := bot.gate.CanCreate(nickname, departure); decision.Reason != raid.ReasonNone {
		return FailureMessage(decision.Reason)
	}

	entry := raid.NewEntry(nickname, trigger.Identity(), args.Server, departure, args.Reserved, bot.now())
	r := raid.NewRaid(entry, bot.store)
	if err := bot.registry.Add(r); err != nil {
		// Lost a race with a concurrent create for the same key
		return FailureMessage(raid.ReasonRaidExists)
	}
	if err := bot.store.SaveRaid(ctx, r.Snapshot()); err != nil {
		log.Error().Str("raid", entry.Key()).Err(err).Msg("Could not persist new raid")
	}

	collectionID, err := bot.transport.SendEmbed(trigger.Channel(), CollectionEmbed(entry))
	if err != nil {
		log.Error().Str("raid", entry.Key()).Err(err).Msg("Could not post collection message")
	} else {
		if err := bot.transport.AddReaction(trigger.Channel(), collectionID, JoinEmoji); err != nil {
			log.Warn().Str("raid", entry.Key()).Err(err).Msg("Could not seed join reaction")
		}
		bot.registry.IndexMessage(collectionID, r)
	}
	tableID, err := bot.transport.SendEmbed(trigger.Channel(), TableEmbed(entry, bot.now()))
	if err != nil {
		log.Error().Str("raid", entry.Key()).Err(err).Msg("Could not post roster table")
	}
	r.AttachMessages(trigger.Channel(), collectionID, tableID)

	bot.sched.Track(r)
	log.Info().Str("raid", entry.Key()).Msg("Raid created")
	return RaidCreated(entry)
}

func (bot *Bot) remove(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response {
	args := arguments.(RemoveArgs)

	nickname, ok := bot.nicknameFor(ctx, trigger.Identity())
	if !ok {
		return NotRegistered()
	}
	var decision raid.Decision
	if args.At.Set {
		decision = bot.gate.CanRemoveRaid(nickname, bot.resolveTime(args.At))
	} else {
		decision = bot.gate.CanRemoveSelfRaid(nickname)
	}
	if decision.NeedsChoice() {
		return ChooseRaid(decision.Choices)
	}
	if !decision.Accepted() {
		return FailureMessage(decision.Reason)
	}

	snapshot := decision.Raid.Snapshot()
	bot.teardown(ctx, decision.Raid, false)
	return RaidRemoved(snapshot)
}

func (bot *Bot) openReservation(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response {
	return bot.adjustReservation(ctx, trigger, arguments.(ReserveArgs), true)
}

func (bot *Bot) closeReservation(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response {
	return bot.adjustReservation(ctx, trigger, arguments.(ReserveArgs), false)
}

func (bot *Bot) adjustReservation(ctx context.Context, trigger CommandTrigger, args ReserveArgs, open bool) []Response {

	nickname, ok := bot.nicknameFor(ctx, trigger.Identity())
	if !ok {
		return NotRegistered()
	}
	var decision raid.Decision
	if args.At.Set {
		decision = bot.gate.CanRemoveRaid(nickname, bot.resolveTime(args.At))
	} else {
		decision = bot.gate.CanRemoveSelfRaid(nickname)
	}
	if decision.NeedsChoice() {
		return ChooseRaid(decision.Choices)
	}
	if !decision.Accepted() {
		return FailureMessage(decision.Reason)
	}
	target := decision.Raid

	if gateDecision := bot.gate.CanAdjustReservation(target, trigger.Identity(), args.Places, false); !gateDecision.Accepted() {
		return FailureMessage(gateDecision.Reason)
	}

	var change raid.Change
	var err error
	if open {
		change, err = target.OpenReservation(ctx, args.Places)
	} else {
		change, err = target.CloseReservation(ctx, args.Places)
	}
	if err != nil {
		if reason := reasonFromError(err); reason != raid.ReasonNone {
			return FailureMessage(reason)
		}
		log.Error().Str("raid", snapshotKey(target)).Err(err).Msg("Reservation change did not persist")
	}
	bot.RefreshDisplay(target)
	return ReservationChanged(target.Snapshot(), change)
}

func (bot *Bot) join(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response {
	args := arguments.(MemberArgs)

	nickname, ok := bot.nicknameFor(ctx, trigger.Identity())
	if !ok {
		return NotRegistered()
	}
	decision := bot.resolveMemberTarget(args)
	if decision.NeedsChoice() {
		return ChooseRaid(decision.Choices)
	}
	if !decision.Accepted() {
		return FailureMessage(decision.Reason)
	}
	target := decision.Raid
	member := raid.MemberRef{Nickname: nickname, Identity: trigger.Identity()}

	if gateDecision := bot.gate.CanJoin(target, member); !gateDecision.Accepted() {
		return FailureMessage(gateDecision.Reason)
	}
	change, err := target.Join(ctx, member)
	if err != nil {
		if reason := reasonFromError(err); reason != raid.ReasonNone {
			return FailureMessage(reason)
		}
		log.Error().Str("raid", snapshotKey(target)).Err(err).Msg("Join did not persist")
	}
	bot.RefreshDisplay(target)
	return MemberJoined(target.Snapshot(), change)
}

func (bot *Bot) leave(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response {
	args := arguments.(MemberArgs)

	nickname, ok := bot.nicknameFor(ctx, trigger.Identity())
	if !ok {
		return NotRegistered()
	}
	decision := bot.resolveMemberTarget(args)
	if decision.NeedsChoice() {
		return ChooseRaid(decision.Choices)
	}
	if !decision.Accepted() {
		return FailureMessage(decision.Reason)
	}
	target := decision.Raid

	if gateDecision := bot.gate.CanLeave(target, nickname); !gateDecision.Accepted() {
		return FailureMessage(gateDecision.Reason)
	}
	change, err := target.Leave(ctx, nickname)
	if err != nil {
		if reason := reasonFromError(err); reason != raid.ReasonNone {
			return FailureMessage(reason)
		}
		log.Error().Str("raid", snapshotKey(target)).Err(err).Msg("Leave did not persist")
	}
	bot.RefreshDisplay(target)
	return MemberLeft(target.Snapshot(), change)
}

func (bot *Bot) show(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response {
	args := arguments.(MemberArgs)

	decision := bot.resolveMemberTarget(args)
	if decision.NeedsChoice() {
		return ChooseRaid(decision.Choices)
	}
	if !decision.Accepted() {
		return FailureMessage(decision.Reason)
	}
	return []Response{ResponseEmbed{*TableEmbed(decision.Raid.Snapshot(), bot.now())}}
}

func (bot *Bot) register(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response {
	args := arguments.(RegisterArgs)

	if err := bot.store.SaveProfile(ctx, trigger.Identity(), args.Nickname); err != nil {
		log.Error().Str("identity", trigger.Identity()).Err(err).Msg("Could not save profile")
		return OperationFailed()
	}
	log.Info().Str("identity", trigger.Identity()).Str("nickname", args.Nickname).Msg("Nickname registered")
	return NicknameRegistered(args.Nickname)
}

func (bot *Bot) help(ctx context.Context, trigger CommandTrigger, arguments interface{}) []Response {
	return HelpMessage()
}

func (bot *Bot) resolveMemberTarget(args MemberArgs) raid.Decision {
	departure := time.Time{}
	if args.At.Set {
		departure = bot.resolveTime(args.At)
	}
	return bot.gate.ResolveForMember(args.Captain, departure)
}

// resolveTime turns a wall-clock HH:MM into the next matching instant:
// today if still ahead, tomorrow otherwise.
func (bot *Bot) resolveTime(at TimeOfDay) time.Time {
	now := bot.now()
	resolved := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !resolved.After(now) {
		resolved = resolved.Add(24 * time.Hour)
	}
	return resolved
}

func (bot *Bot) nicknameFor(ctx context.Context, identity string) (string, bool) {
	nickname, ok, err := bot.store.Nickname(ctx, identity)
	if err != nil {
		log.Error().Str("identity", identity).Err(err).Msg("Could not look up nickname")
		return "", false
	}
	return nickname, ok
}

func (bot *Bot) sendResponses(channelID string, responses []Response) {
	for _, response := range responses {
		response.Send(channelID, bot.transport)
	}
}

func snapshotKey(r *raid.Raid) string {
	entry := r.Snapshot()
	return entry.Key()
}

func reasonFromError(err error) raid.FailureReason {
	switch {
	case errors.Is(err, raid.ErrAlreadyInRaid):
		return raid.ReasonAlreadyInSameRaid
	case errors.Is(err, raid.ErrRaidFull):
		return raid.ReasonRaidIsFull
	case errors.Is(err, raid.ErrMemberNotFound):
		return raid.ReasonUserNotFoundInRaid
	case errors.Is(err, raid.ErrNoReservedToOpen):
		return raid.ReasonNoAvailableToCloseReservation
	case errors.Is(err, raid.ErrInvalidPlaces):
		return raid.ReasonValidationError
	case errors.Is(err, raid.ErrRaidExists):
		return raid.ReasonRaidExists
	default:
		return raid.ReasonNone
	}
}

package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Gliger13/bdo-daily-bot-sub001/internal/raid"
	"github.com/Gliger13/bdo-daily-bot-sub001/internal/scheduler"
)

var testNow = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

type memoryStore struct {
	mu       sync.Mutex
	raids    map[string]raid.Entry
	profiles map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{raids: map[string]raid.Entry{}, profiles: map[string]string{}}
}

func (s *memoryStore) SaveRaid(ctx context.Context, entry raid.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raids[entry.Key()] = entry.Clone()
	return nil
}

func (s *memoryStore) DeleteRaid(ctx context.Context, captainName string, departureTime time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s@%s", captainName, departureTime.Format(time.RFC3339))
	_, ok := s.raids[key]
	delete(s.raids, key)
	return ok, nil
}

func (s *memoryStore) LoadRaids(ctx context.Context) ([]raid.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []raid.Entry
	for _, entry := range s.raids {
		entries = append(entries, entry.Clone())
	}
	return entries, nil
}

func (s *memoryStore) SaveProfile(ctx context.Context, identity, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[identity] = nickname
	return nil
}

func (s *memoryStore) Nickname(ctx context.Context, identity string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nickname, ok := s.profiles[identity]
	return nickname, ok, nil
}

type fakeTransport struct {
	mu         sync.Mutex
	nextID     int
	messages   map[string][]string // channel id -> message contents
	embeds     map[string]*discordgo.MessageEmbed
	edited     map[string]*discordgo.MessageEmbed
	deleted    []string
	reactions  []string
	dmChannels map[string]string // identity -> dm channel id
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		messages:   map[string][]string{},
		embeds:     map[string]*discordgo.MessageEmbed{},
		edited:     map[string]*discordgo.MessageEmbed{},
		dmChannels: map[string]string{},
	}
}

func (t *fakeTransport) SendMessage(channelID, content string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.messages[channelID] = append(t.messages[channelID], content)
	return fmt.Sprintf("msg-%d", t.nextID), nil
}

func (t *fakeTransport) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := fmt.Sprintf("msg-%d", t.nextID)
	t.embeds[id] = embed
	return id, nil
}

func (t *fakeTransport) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.edited[messageID] = embed
	return nil
}

func (t *fakeTransport) DeleteMessage(channelID, messageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted = append(t.deleted, messageID)
	return nil
}

func (t *fakeTransport) AddReaction(channelID, messageID, emoji string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reactions = append(t.reactions, messageID+":"+emoji)
	return nil
}

func (t *fakeTransport) DirectChannel(userID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	channelID, ok := t.dmChannels[userID]
	if !ok {
		channelID = "dm-" + userID
		t.dmChannels[userID] = channelID
	}
	return channelID, nil
}

func (t *fakeTransport) channelContents(channelID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.messages[channelID], "\n")
}

func testBot(t *testing.T) (*Bot, *memoryStore, *fakeTransport) {
	t.Helper()
	store := newMemoryStore()
	transport := newFakeTransport()
	b := New("token", store, 5*time.Minute)
	b.now = func() time.Time { return testNow }
	b.sched = scheduler.New(b.registry, b, 5*time.Minute, b.now)
	b.transport = transport
	b.notifier = NewNotifier(transport)
	b.selfID = "self"
	t.Cleanup(b.sched.Shutdown)
	return b, store, transport
}

func command(b *Bot, identity, content string) {
	b.Receive(context.Background(), NewCommandTrigger(identity, "guild-channel", content))
}

func TestBotCreateFlow(t *testing.T) {
	b, store, transport := testBot(t)

	t.Run("requires a registered nickname", func(t *testing.T) {
		command(b, "cap#1", "raid create Valencia-1 20:00")
		if !strings.Contains(transport.channelContents("guild-channel"), "register") {
			t.Fatal("expected a registration hint")
		}
	})

	command(b, "cap#1", "raid register Cap")

	t.Run("creates and registers the raid", func(t *testing.T) {
		command(b, "cap#1", "raid create Valencia-1 20:00 2")

		raids := b.registry.FindAllByCaptain("Cap")
		if len(raids) != 1 {
			t.Fatalf("registry holds %d raids for Cap, want 1", len(raids))
		}
		r := raids[0]
		if r.DepartureTime().Hour() != 20 {
			t.Fatalf("departure hour = %d, want 20", r.DepartureTime().Hour())
		}
		if r.PlacesLeft() != 18 {
			t.Fatalf("places left = %d, want 18 with 2 reserved", r.PlacesLeft())
		}
		if len(store.raids) != 1 {
			t.Fatalf("stored %d raids, want 1", len(store.raids))
		}
		channelID, collectionID, tableID := r.Messages()
		if channelID != "guild-channel" || collectionID == "" || tableID == "" {
			t.Fatalf("messages not attached: %q %q %q", collectionID, tableID, channelID)
		}
		if b.registry.FindByMessageID(collectionID) != r {
			t.Fatal("collection message not indexed")
		}
		if len(transport.reactions) != 1 || !strings.HasSuffix(transport.reactions[0], JoinEmoji) {
			t.Fatalf("join emoji not seeded: %v", transport.reactions)
		}
	})

	t.Run("second raid at the same time is refused", func(t *testing.T) {
		before := len(b.registry.All())
		command(b, "cap#1", "raid create Valencia-1 20:00")
		if len(b.registry.All()) != before {
			t.Fatal("duplicate create must not register a raid")
		}
	})
}

func TestBotJoinAndLeaveCommands(t *testing.T) {
	b, _, _ := testBot(t)
	command(b, "cap#1", "raid register Cap")
	command(b, "cap#1", "raid create Valencia-1 20:00")
	command(b, "ally#2", "raid register Ally")

	command(b, "ally#2", "raid join Cap")
	r := b.registry.FindAllByCaptain("Cap")[0]
	if !r.HasMember("Ally") {
		t.Fatal("Ally did not join")
	}

	command(b, "ally#2", "raid leave Cap")
	if r.HasMember("Ally") {
		t.Fatal("Ally did not leave")
	}
}

func TestBotReactionJoinAndLeave(t *testing.T) {
	ctx := context.Background()
	b, _, transport := testBot(t)
	command(b, "cap#1", "raid register Cap")
	command(b, "cap#1", "raid create Valencia-1 20:00")
	r := b.registry.FindAllByCaptain("Cap")[0]
	_, collectionID, tableID := r.Messages()

	t.Run("unregistered reactor gets a direct message", func(t *testing.T) {
		b.HandleReaction(ctx, NewReactionTrigger("stranger#9", "guild-channel", collectionID, JoinEmoji, true))
		if transport.channelContents("dm-stranger#9") == "" {
			t.Fatal("expected a registration hint by direct message")
		}
		if len(r.Snapshot().Members) != 0 {
			t.Fatal("unregistered reactor must not join")
		}
	})

	command(b, "ally#2", "raid register Ally")

	t.Run("adding the reaction joins", func(t *testing.T) {
		b.HandleReaction(ctx, NewReactionTrigger("ally#2", "guild-channel", collectionID, JoinEmoji, true))
		if !r.HasMember("Ally") {
			t.Fatal("Ally did not join via reaction")
		}
		transport.mu.Lock()
		_, refreshed := transport.edited[tableID]
		transport.mu.Unlock()
		if !refreshed {
			t.Fatal("roster table was not refreshed")
		}
	})

	t.Run("removing the reaction leaves", func(t *testing.T) {
		b.HandleReaction(ctx, NewReactionTrigger("ally#2", "guild-channel", collectionID, JoinEmoji, false))
		if r.HasMember("Ally") {
			t.Fatal("Ally did not leave via reaction")
		}
	})

	t.Run("the bot's own seed reaction is ignored", func(t *testing.T) {
		b.HandleReaction(ctx, NewReactionTrigger("self", "guild-channel", collectionID, JoinEmoji, true))
		if len(r.Snapshot().Members) != 0 {
			t.Fatal("self reaction must not join anyone")
		}
	})

	t.Run("other emojis are ignored", func(t *testing.T) {
		b.HandleReaction(ctx, NewReactionTrigger("ally#2", "guild-channel", collectionID, "👍", true))
		if len(r.Snapshot().Members) != 0 {
			t.Fatal("unrelated emoji must not join anyone")
		}
	})
}

func TestBotReservationCommands(t *testing.T) {
	b, _, transport := testBot(t)
	command(b, "cap#1", "raid register Cap")
	command(b, "cap#1", "raid create Valencia-1 20:00 3")
	r := b.registry.FindAllByCaptain("Cap")[0]

	command(b, "cap#1", "raid open 2")
	if got := r.Snapshot().ReservedSlots; got != 1 {
		t.Fatalf("reserved = %d after open 2, want 1", got)
	}

	command(b, "cap#1", "raid close 4")
	if got := r.Snapshot().ReservedSlots; got != 5 {
		t.Fatalf("reserved = %d after close 4, want 5", got)
	}

	t.Run("only the captain may adjust", func(t *testing.T) {
		// Same nickname, different identity: resolves the raid but is
		// not its captain
		command(b, "ally#2", "raid register Cap")
		command(b, "ally#2", "raid open 1 20:00")
		if !strings.Contains(transport.channelContents("guild-channel"), "captain") {
			t.Fatal("expected a not-captain refusal")
		}
		if got := r.Snapshot().ReservedSlots; got != 5 {
			t.Fatalf("reserved changed by a non-captain: %d", got)
		}
	})

	t.Run("opening more than reserved is refused", func(t *testing.T) {
		command(b, "cap#1", "raid open 9")
		if got := r.Snapshot().ReservedSlots; got != 5 {
			t.Fatalf("reserved = %d after refused open, want 5", got)
		}
	})
}

func TestBotRemoveCommand(t *testing.T) {
	b, store, transport := testBot(t)
	command(b, "cap#1", "raid register Cap")
	command(b, "cap#1", "raid create Valencia-1 20:00")
	r := b.registry.FindAllByCaptain("Cap")[0]
	_, collectionID, tableID := r.Messages()

	command(b, "cap#1", "raid remove")

	if len(b.registry.All()) != 0 {
		t.Fatal("raid still registered after remove")
	}
	if len(store.raids) != 0 {
		t.Fatal("raid still stored after remove")
	}
	transport.mu.Lock()
	deleted := strings.Join(transport.deleted, ",")
	transport.mu.Unlock()
	if !strings.Contains(deleted, collectionID) || !strings.Contains(deleted, tableID) {
		t.Fatalf("raid messages not deleted: %s", deleted)
	}

	t.Run("removing again reports no active raids", func(t *testing.T) {
		command(b, "cap#1", "raid remove")
		if !strings.Contains(transport.channelContents("guild-channel"), "no active raids") {
			t.Fatal("expected a no-active-raids refusal")
		}
	})
}

func TestBotRemoveDisambiguation(t *testing.T) {
	b, _, transport := testBot(t)
	command(b, "cap#1", "raid register Cap")
	command(b, "cap#1", "raid create Valencia-1 20:00")
	command(b, "cap#1", "raid create Valencia-1 21:00")

	command(b, "cap#1", "raid remove")
	if len(b.registry.All()) != 2 {
		t.Fatal("an ambiguous remove must not tear anything down")
	}
	contents := transport.channelContents("guild-channel")
	if !strings.Contains(contents, "20:00") || !strings.Contains(contents, "21:00") {
		t.Fatalf("expected both departure times offered, got: %s", contents)
	}

	command(b, "cap#1", "raid remove 20:00")
	raids := b.registry.FindAllByCaptain("Cap")
	if len(raids) != 1 || raids[0].DepartureTime().Hour() != 21 {
		t.Fatal("explicit time must remove exactly the 20:00 raid")
	}
}

func TestBotRestore(t *testing.T) {
	store := newMemoryStore()
	live := raid.NewEntry("Cap", "cap#1", "Valencia-1", testNow.Add(3*time.Hour), 1, testNow.Add(-time.Hour))
	departed := raid.NewEntry("Old", "old#1", "Valencia-1", testNow.Add(-time.Hour), 0, testNow.Add(-5*time.Hour))
	store.raids[live.Key()] = live
	store.raids[departed.Key()] = departed

	transport := newFakeTransport()
	b := New("token", store, 5*time.Minute)
	b.now = func() time.Time { return testNow }
	b.sched = scheduler.New(b.registry, b, 5*time.Minute, b.now)
	b.transport = transport
	b.notifier = NewNotifier(transport)
	t.Cleanup(b.sched.Shutdown)

	if err := b.restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(b.registry.All()) != 1 {
		t.Fatalf("restored %d raids, want only the live one", len(b.registry.All()))
	}
	if b.registry.FindByCaptainAndTime("Cap", live.DepartureTime) == nil {
		t.Fatal("live raid not restored")
	}
	if _, ok := store.raids[departed.Key()]; ok {
		t.Fatal("departed raid must be dropped from storage on restore")
	}
}

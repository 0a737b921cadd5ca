package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gliger13/bdo-daily-bot-sub001/internal/raid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "raidbot.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRaids(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	departure := time.Date(2025, time.June, 10, 20, 0, 0, 0, time.UTC)

	entry := raid.NewEntry("Cap", "cap#1", "Kamasylvia-2", departure, 2, departure.Add(-time.Hour))
	entry.Members = []raid.MemberRef{
		{Nickname: "alice", Identity: "a#1"},
		{Nickname: "bob", Identity: "b#2"},
	}

	t.Run("save and load", func(t *testing.T) {
		if err := store.SaveRaid(ctx, entry); err != nil {
			t.Fatalf("save: %v", err)
		}
		entries, err := store.LoadRaids(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("loaded %d entries, want 1", len(entries))
		}
		got := entries[0]
		if got.CaptainName != "Cap" || !got.DepartureTime.Equal(departure) {
			t.Fatalf("wrong key loaded: %s", got.Key())
		}
		if got.ReservedSlots != 2 || len(got.Members) != 2 {
			t.Fatalf("attributes lost: reserved=%d members=%d", got.ReservedSlots, len(got.Members))
		}
		if got.Members[0].Nickname != "alice" || got.Members[1].Nickname != "bob" {
			t.Fatal("member order lost")
		}
	})

	t.Run("save again replaces the record", func(t *testing.T) {
		entry.ReservedSlots = 5
		if err := store.SaveRaid(ctx, entry); err != nil {
			t.Fatalf("save: %v", err)
		}
		entries, err := store.LoadRaids(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(entries) != 1 || entries[0].ReservedSlots != 5 {
			t.Fatalf("expected 1 entry with 5 reserved, got %d entries", len(entries))
		}
	})

	t.Run("delete reports presence", func(t *testing.T) {
		deleted, err := store.DeleteRaid(ctx, "Cap", departure)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if !deleted {
			t.Fatal("expected the record to be deleted")
		}
		deleted, err = store.DeleteRaid(ctx, "Cap", departure)
		if err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if deleted {
			t.Fatal("second delete must report absence")
		}
	})
}

func TestStoreProfiles(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, ok, err := store.Nickname(ctx, "cap#1"); err != nil || ok {
		t.Fatalf("unregistered identity: ok=%v err=%v", ok, err)
	}
	if err := store.SaveProfile(ctx, "cap#1", "CaptainCap"); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if err := store.SaveProfile(ctx, "cap#1", "CapRenamed"); err != nil {
		t.Fatalf("overwrite profile: %v", err)
	}
	nickname, ok, err := store.Nickname(ctx, "cap#1")
	if err != nil {
		t.Fatalf("nickname: %v", err)
	}
	if !ok || nickname != "CapRenamed" {
		t.Fatalf("got %q ok=%v, want CapRenamed", nickname, ok)
	}
}

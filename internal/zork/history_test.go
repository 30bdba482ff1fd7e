package zork

import (
	"testing"

	"github.com/zork-argento/gateway/internal/assistant"
)

func TestBuildHistory_PairsUserWithFollowingReply(t *testing.T) {
	t.Parallel()

	msgs := []assistant.Message{
		{Role: "user", Text: "hola", CreatedAt: 100},
		{Role: "assistant", Text: "Bienvenido.", CreatedAt: 101},
		{Role: "user", Text: "mirar", CreatedAt: 102},
		{Role: "assistant", Text: "Ves un buzón.", CreatedAt: 103},
	}

	got := BuildHistory(msgs)
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	if got[0].User != "hola" || got[0].ZorkMaster != "Bienvenido." {
		t.Fatalf("exchange[0]=%+v", got[0])
	}
	if got[1].User != "mirar" || got[1].ZorkMaster != "Ves un buzón." {
		t.Fatalf("exchange[1]=%+v", got[1])
	}
	if got[0].Timestamp == "" {
		t.Fatalf("missing timestamp")
	}
}

func TestBuildHistory_TrailingUserMessageHasNoReply(t *testing.T) {
	t.Parallel()

	msgs := []assistant.Message{
		{Role: "user", Text: "hola", CreatedAt: 100},
		{Role: "assistant", Text: "Bienvenido.", CreatedAt: 101},
		{Role: "user", Text: "abrir buzón", CreatedAt: 102},
	}

	got := BuildHistory(msgs)
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	if got[1].User != "abrir buzón" || got[1].ZorkMaster != "" {
		t.Fatalf("trailing exchange=%+v, want empty reply", got[1])
	}
}

func TestBuildHistory_OpeningNarrationWithoutUser(t *testing.T) {
	t.Parallel()

	msgs := []assistant.Message{
		{Role: "assistant", Text: "Estás al oeste de una casa blanca.", CreatedAt: 100},
		{Role: "user", Text: "entrar", CreatedAt: 101},
		{Role: "assistant", Text: "La puerta está tapiada.", CreatedAt: 102},
	}

	got := BuildHistory(msgs)
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	if got[0].User != "" || got[0].ZorkMaster != "Estás al oeste de una casa blanca." {
		t.Fatalf("exchange[0]=%+v", got[0])
	}
}

func TestBuildHistory_Empty(t *testing.T) {
	t.Parallel()

	if got := BuildHistory(nil); len(got) != 0 {
		t.Fatalf("len=%d, want 0", len(got))
	}
}

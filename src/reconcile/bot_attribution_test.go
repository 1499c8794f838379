package reconcile

import (
	"testing"
	"time"
)

func TestLiveRegistryTakesPrecedence(t *testing.T) {
	reg := NewBotRegistry(234000, 300000)
	if _, err := reg.Register("bot_alpha", "Alpha", "rsi", 250123); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	got := AttributeBot(250123, "TradePulse_bot_other_1", reg, testRules)
	if got == nil || got.BotID != "bot_alpha" || got.BotName != "Alpha" {
		t.Fatalf("expected live registry match, got %+v", got)
	}
}

func TestCommentPatternThenRange(t *testing.T) {
	got := AttributeBot(1, "TradePulse_bot_42_BUY", nil, testRules)
	if got == nil || got.BotID != "bot_42" || got.BotName != "Bot 42" {
		t.Fatalf("expected comment match, got %+v", got)
	}

	got = AttributeBot(260000, "manual", nil, testRules)
	if got == nil || got.BotID != "unknown" || got.BotName != "TradePulse Bot" {
		t.Fatalf("expected range match, got %+v", got)
	}

	if got = AttributeBot(12, "manual", nil, testRules); got != nil {
		t.Fatalf("expected nil for manual trade, got %+v", got)
	}
	if got = AttributeBot(300000, "", nil, testRules); got == nil {
		t.Fatalf("expected inclusive upper bound")
	}
}

func TestGenerateMagicNumberRange(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	m := GenerateMagicNumber("bot_1", at, 234000, 300000)
	if m < 234000 || m >= 300000 {
		t.Fatalf("magic %d out of range", m)
	}
	if again := GenerateMagicNumber("bot_1", at, 234000, 300000); again != m {
		t.Fatalf("expected deterministic magic, got %d and %d", m, again)
	}
}

func TestRegistryUnregisterAndCollisions(t *testing.T) {
	reg := NewBotRegistry(234000, 300000)
	reg.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	a, err := reg.Register("bot_1", "", "", 0)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := reg.Register("bot_2", "", "", a.MagicNumber); err == nil {
		t.Fatalf("expected error on explicit duplicate magic")
	}
	if a.Name != "Bot 1" {
		t.Fatalf("expected default name, got %q", a.Name)
	}

	if !reg.Unregister("bot_1") {
		t.Fatalf("expected unregister to succeed")
	}
	if _, _, ok := reg.LookupMagic(a.MagicNumber); ok {
		t.Fatalf("expected magic released")
	}
	if len(reg.List()) != 0 {
		t.Fatalf("expected empty registry")
	}
}

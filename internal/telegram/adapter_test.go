package telegram

import (
	"strings"
	"testing"

	"github.com/parleyhq/parley/internal/domain"
)

func TestSplitMessageShort(t *testing.T) {
	parts := splitMessage("hello")
	if len(parts) != 1 || parts[0] != "hello" {
		t.Errorf("expected single part, got %v", parts)
	}
}

func TestSplitMessageLong(t *testing.T) {
	text := strings.Repeat("a", maxTelegramMessage+100)
	parts := splitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != maxTelegramMessage {
		t.Errorf("first part length = %d", len(parts[0]))
	}
	if len(parts[1]) != 100 {
		t.Errorf("second part length = %d", len(parts[1]))
	}
}

func TestChannelKeyRoundTrip(t *testing.T) {
	key := channelKey(987654)
	if key != "telegram:987654" {
		t.Fatalf("key = %s", key)
	}
	chatID, err := chatIDFromKey(key)
	if err != nil {
		t.Fatal(err)
	}
	if chatID != 987654 {
		t.Errorf("chatID = %d", chatID)
	}
}

func TestChatIDFromKeyMalformed(t *testing.T) {
	for _, key := range []string{"webhook:org:cust", "telegram:notanumber", "telegram"} {
		if _, err := chatIDFromKey(domain.ChannelKey(key)); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

package transactions

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestOrderNumberRoundTrip(t *testing.T) {
	orderID := uuid.New()
	token := NewOrderNumber(orderID, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

	parsed, err := ParseOrderNumber(token)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if parsed != orderID {
		t.Fatalf("expected %s, got %s", orderID, parsed)
	}
}

func TestParseOrderNumberInvalid(t *testing.T) {
	cases := []string{
		"",
		"AGM-",
		"AGM-not-a-uuid-1700000000",
		"XYZ-" + uuid.NewString() + "-1700000000",
		"AGM-" + uuid.NewString(),
		"AGM-" + uuid.NewString() + "-notatimestamp",
	}
	for _, token := range cases {
		if _, err := ParseOrderNumber(token); err == nil {
			t.Errorf("expected error for %q", token)
		}
	}
}

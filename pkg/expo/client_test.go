package expo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrimarket/agrimarket-backend/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ExpoConfig{BaseURL: srv.URL, AccessToken: "expo-token"}, WithHTTPClient(srv.Client()))
}

func TestSend(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/--/api/v2/push/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer expo-token" {
			t.Errorf("missing bearer token")
		}

		var batch []Message
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(batch) != 1 || batch[0].To != "ExponentPushToken[abc]" {
			t.Errorf("unexpected batch %+v", batch)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"status": "ok"}},
		})
	})

	err := client.Send(context.Background(), Message{
		To:    "ExponentPushToken[abc]",
		Title: "Order dispatched",
		Body:  "Your order is on its way.",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
}

func TestSendRejectedReceipt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"status": "error", "message": "DeviceNotRegistered"}},
		})
	})

	if err := client.Send(context.Background(), Message{To: "ExponentPushToken[abc]", Title: "t", Body: "b"}); err == nil {
		t.Fatal("expected error for rejected receipt")
	}
}

func TestSendRequiresToken(t *testing.T) {
	client := NewClient(config.ExpoConfig{})
	if err := client.Send(context.Background(), Message{Title: "t", Body: "b"}); err == nil {
		t.Fatal("expected error for empty push token")
	}
}

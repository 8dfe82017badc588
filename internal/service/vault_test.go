package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openclaw/gateway/internal/adapter/vaultproxy"
	"github.com/openclaw/gateway/internal/domain/vault"
)

func testVaultKey() []byte {
	return []byte("0123456789012345678901234567890123456789")[:32]
}

func TestVaultGetConfig_DefaultsWhenUnset(t *testing.T) {
	store := newFakeStore()
	svc := NewVaultService(store, vaultproxy.New(0), testVaultKey())

	view, err := svc.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if view.HasAPIKey {
		t.Fatal("expected has_api_key=false before any key is configured")
	}
	if view.BaseURL != vault.DefaultBaseURL || view.Model != vault.DefaultModel || view.MaxTokensPerRequest != vault.DefaultMaxTokensPerRequest {
		t.Fatalf("expected documented defaults, got %+v", view)
	}
}

func TestVaultUpdateConfig_RetainsCiphertextWhenAPIKeyOmitted(t *testing.T) {
	store := newFakeStore()
	svc := NewVaultService(store, vaultproxy.New(0), testVaultKey())
	ctx := context.Background()

	key := "sk-test-key-123"
	_, err := svc.UpdateConfig(ctx, vault.ConfigUpdateRequest{
		APIKey: &key, BaseURL: "https://upstream.example.com", Model: "m1", MaxTokensPerRequest: 4096,
	})
	if err != nil {
		t.Fatalf("update config: %v", err)
	}
	firstCiphertext := store.vaultCfg.APIKeyCiphertext
	if firstCiphertext == "" {
		t.Fatal("expected a non-empty ciphertext")
	}
	if strings.Contains(firstCiphertext, key) {
		t.Fatal("ciphertext must not contain the plaintext key")
	}

	// Update again without supplying api_key: ciphertext must be retained.
	_, err = svc.UpdateConfig(ctx, vault.ConfigUpdateRequest{
		BaseURL: "https://upstream2.example.com", Model: "m2", MaxTokensPerRequest: 2048,
	})
	if err != nil {
		t.Fatalf("second update config: %v", err)
	}
	if store.vaultCfg.APIKeyCiphertext != firstCiphertext {
		t.Fatal("expected ciphertext to be retained when api_key is omitted")
	}
	if store.vaultCfg.BaseURL != "https://upstream2.example.com" {
		t.Fatal("expected base_url to be updated")
	}
}

func TestVaultStatus_SwallowsErrorsWhenNoAPIKey(t *testing.T) {
	store := newFakeStore()
	svc := NewVaultService(store, vaultproxy.New(0), testVaultKey())

	status := svc.Status(context.Background())
	if status.Connected {
		t.Fatal("expected connected=false when no api key is configured")
	}
}

func TestVaultComplete_ClampsMaxTokensToConfiguredCeiling(t *testing.T) {
	var gotMaxTokens int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			MaxTokens int `json:"max_tokens"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotMaxTokens = body.MaxTokens
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","model":"m1","content":[{"type":"text","text":"ok"}]}`))
	}))
	defer upstream.Close()

	store := newFakeStore()
	svc := NewVaultService(store, vaultproxy.New(0), testVaultKey())
	ctx := context.Background()

	key := "sk-test"
	_, err := svc.UpdateConfig(ctx, vault.ConfigUpdateRequest{
		APIKey: &key, BaseURL: upstream.URL, Model: "m1", MaxTokensPerRequest: 500,
	})
	if err != nil {
		t.Fatalf("update config: %v", err)
	}

	_, err = svc.Complete(ctx, vault.CompletionRequest{MaxTokens: 999999, Messages: []vault.CompletionMessage{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if gotMaxTokens != 500 {
		t.Fatalf("expected max_tokens clamped to 500, got %d", gotMaxTokens)
	}
}

package stripe

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront/pkg/config"
)

func TestNewClientValidatesKeyAgainstEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{"missing key", config.StripeConfig{Env: "test"}, true},
		{"bad env", config.StripeConfig{APIKey: "sk_test_1", Env: "staging"}, true},
		{"live key in test", config.StripeConfig{APIKey: "sk_live_1", Env: "test"}, true},
		{"test key in live", config.StripeConfig{APIKey: "sk_test_1", Env: "live"}, true},
		{"restricted test key", config.StripeConfig{APIKey: "rk_test_1"}, false},
		{"live key", config.StripeConfig{APIKey: "sk_live_1", Env: "LIVE"}, false},
	}
	for _, tt := range tests {
		_, err := NewClient(context.Background(), tt.cfg, nil)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: expected error=%v got %v", tt.name, tt.wantErr, err)
		}
	}
}

func TestClientDefaultsCurrency(t *testing.T) {
	c, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Currency() != "usd" || c.Environment() != "test" {
		t.Fatalf("unexpected defaults currency=%q env=%q", c.Currency(), c.Environment())
	}

	var nilClient *Client
	if nilClient.Currency() != "" {
		t.Fatal("nil client accessors should be empty")
	}
}

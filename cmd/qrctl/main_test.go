package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`server:
  mode: debug
log:
  dir: %q
database:
  driver: sqlite
  dsn: %q
redis:
  enabled: false
queue:
  enabled: false
storage:
  driver: local
  local:
    dir: %q
claim:
  cooldown_seconds: 0
  public_base_url: "https://rewards.example.com"
`, filepath.Join(dir, "logs"), filepath.Join(dir, "qrewards.db"), filepath.Join(dir, "uploads"))
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	want := map[string][]string{
		"check": {"db", "redis", "smtp", "sms", "s3"},
		"card":  {"create", "show"},
	}
	for parent, children := range want {
		cmd, _, err := rootCmd.Find([]string{parent})
		require.NoError(t, err)
		for _, child := range children {
			sub, _, err := cmd.Find([]string{child})
			require.NoError(t, err, "%s %s", parent, child)
			require.Equal(t, child, sub.Name())
		}
	}
}

func TestDemoCardsAreValid(t *testing.T) {
	now := time.Now().UTC()
	for _, input := range demoCards(now) {
		require.NotEmpty(t, input.Header)
		require.Positive(t, input.Quantity)
		if input.ExpiresAt != nil {
			require.True(t, input.ExpiresAt.After(now))
		}
	}
}

func TestCardCreateShowAndClaim(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "--config", cfgPath, "check", "db")
	require.NoError(t, err, out)
	require.Contains(t, out, "db ok")

	out, err = execute(t, "--config", cfgPath, "card", "create", "--business", "Corner Cafe", "--header", "Free espresso", "--quantity", "1")
	require.NoError(t, err, out)
	var card struct {
		ID                uint   `json:"id"`
		Code              string `json:"code"`
		RemainingQuantity int    `json:"remaining_quantity"`
		ClaimURL          string `json:"claim_url"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &card), out)
	require.Equal(t, 1, card.RemainingQuantity)
	require.Contains(t, card.ClaimURL, "https://rewards.example.com")

	out, err = execute(t, "--config", cfgPath, "card", "show", card.Code)
	require.NoError(t, err, out)
	require.Contains(t, out, fmt.Sprintf(`"id": %d`, card.ID))

	out, err = execute(t, "--config", cfgPath, "claim", card.Code, "--contact", "guest@example.com")
	require.NoError(t, err, out)
	require.Contains(t, out, `"claim_no"`)

	// 数量已用完
	_, err = execute(t, "--config", cfgPath, "claim", card.Code, "--contact", "late@example.com")
	require.Error(t, err)

	out, err = execute(t, "--config", cfgPath, "card", "show", fmt.Sprint(card.ID))
	require.NoError(t, err, out)
	require.Contains(t, out, `"remaining_quantity": 0`)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetrent/internal/infra"
	"fleetrent/internal/paygate"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQuoteCmd(t *testing.T) {
	out, err := execute(t, "quote",
		"--daily", "500", "--weekly", "3000", "--monthly", "10000", "--addon-per-day", "100",
		"--pickup", "2024-01-01T10:00:00Z", "--return", "2024-02-15T10:00:00Z")
	require.NoError(t, err)

	var q struct {
		Months       int    `json:"months"`
		Weeks        int    `json:"weeks"`
		Days         int    `json:"days"`
		TotalDays    int    `json:"total_days"`
		RentalAmount string `json:"rental_amount"`
		AddonAmount  string `json:"addon_amount"`
		Total        string `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, 45, q.TotalDays)
	assert.Equal(t, []int{1, 2, 1}, []int{q.Months, q.Weeks, q.Days})
	assert.Equal(t, "16500", q.RentalAmount)
	assert.Equal(t, "4500", q.AddonAmount)
	assert.Equal(t, "21000", q.Total)
}

func TestQuoteCmd_RejectsReturnBeforePickup(t *testing.T) {
	_, err := execute(t, "quote", "--daily", "500",
		"--pickup", "2024-01-02T10:00:00Z", "--return", "2024-01-01T10:00:00Z")
	assert.Error(t, err)
}

func TestQuoteCmd_BadRate(t *testing.T) {
	_, err := execute(t, "quote", "--daily", "five hundred",
		"--pickup", "2024-01-01T10:00:00Z", "--return", "2024-01-02T10:00:00Z")
	assert.ErrorContains(t, err, "--daily")
}

func TestSignAndVerify(t *testing.T) {
	out, err := execute(t, "sign", "--secret", "whsec_test", "--order", "order_1", "--payment", "pay_1")
	require.NoError(t, err)
	sig := strings.TrimSpace(out)
	assert.Equal(t, paygate.Sign("whsec_test", "order_1", "pay_1"), sig)

	out, err = execute(t, "verify-signature", "--secret", "whsec_test", "--order", "order_1", "--payment", "pay_1", "--signature", sig)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = execute(t, "verify-signature", "--secret", "whsec_test", "--order", "order_2", "--payment", "pay_1", "--signature", sig)
	assert.EqualError(t, err, "signature mismatch")
}

func TestTokenCmd(t *testing.T) {
	out, err := execute(t, "token", "--secret", "dev", "--uid", "staff-7", "--role", "staff")
	require.NoError(t, err)

	tok, err := infra.NewJWTVerifier("dev").VerifyIDToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "staff-7", tok.UID)
	assert.Equal(t, "staff", tok.Role())
}

func TestSummarize(t *testing.T) {
	var out bytes.Buffer
	ok := []Result{{Status: statusPass}, {Status: statusSkip}}
	assert.NoError(t, summarize(&out, ok, false))
	assert.Contains(t, out.String(), "PASS=1 FAIL=0 SKIP=1")
	assert.Error(t, summarize(&out, ok, true))
	assert.Error(t, summarize(&out, []Result{{Status: statusFail}}, false))
}

func TestExtractTables(t *testing.T) {
	dir := t.TempDir()
	sql := "CREATE TABLE IF NOT EXISTS hubs (id TEXT);\ncreate table if not exists vehicles (id TEXT);\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_init.sql"), []byte(sql), 0o644))

	tables, err := extractTables(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"hubs", "vehicles"}, tables)
}

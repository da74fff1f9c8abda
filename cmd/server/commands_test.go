package main

import (
	"bytes"
	"testing"
	"time"

	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintReport_NoRollupYet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, service.GenerateReport(nil)))
	assert.Contains(t, buf.String(), "run `sync` first")
}

func TestPrintReport(t *testing.T) {
	r := domain.ZeroRollup()
	r.ComputedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	r.Financial.NetProfit = 250

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, service.GenerateReport(r)))

	out := buf.String()
	assert.Contains(t, out, "Report as of")
	assert.Contains(t, out, "net 250")
	assert.Contains(t, out, "financial health:      yes")
	assert.Contains(t, out, "content active:        no")
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "sync", "report", "seed"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, syncCmd.Flags().Lookup("force"))
}

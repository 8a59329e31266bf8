package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const importCSV = `id,symbol,side,quantity,lot_size,entry_price,stop_loss,take_profit,entry_time,fees,exit_price,exit_time,pnl,exit_reason,notes,asian_session,open_line,fibo62,average_line,moving_average3,moving_average4
t-win,EURUSD,buy,10,1,100,95,110,2024-01-10T08:00:00Z,2,110,2024-01-10T12:00:00Z,98,take_profit,,true,true,false,false,true,false
t-loss,EURUSD,sell,5,2,100,105,90,2024-02-03T08:00:00Z,1,105,2024-02-03T09:00:00Z,-51,stop_loss,,false,false,false,false,false,false
t-open,GBPUSD,buy,1,1,100,95,110,2024-03-01T08:00:00Z,0,,,,,,false,false,false,false,false,false
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestJournalctl_Workflow(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("API_PREFIX", "")
	dir := t.TempDir()
	db := filepath.Join(dir, "journal.db")
	src := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(src, []byte(importCSV), 0o644))

	out, err := runCLI(t, "import", src, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 of 3 trades")

	out, err = runCLI(t, "metrics", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "3 (1 open, 2 closed)")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "2024-01")
	assert.Contains(t, out, "2024-02")
	assert.Contains(t, out, "A=1")

	out, err = runCLI(t, "close", "t-open", "200", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "take_profit")
	assert.Contains(t, out, "P&L 10.00")

	_, err = runCLI(t, "close", "t-open", "105", "--db", db)
	assert.Error(t, err)

	_, err = runCLI(t, "close", "t-open", "abc", "--db", db)
	assert.Error(t, err)

	exported := filepath.Join(dir, "out.csv")
	out, err = runCLI(t, "export", exported, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 trades")
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, 4, len(strings.Split(strings.TrimSpace(string(data)), "\n")))

	chart := filepath.Join(dir, "chart.html")
	_, err = runCLI(t, "chart", chart, "--db", db)
	require.NoError(t, err)
	info, err := os.Stat(chart)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

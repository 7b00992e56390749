package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) string {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), errOut.String())

	return out.String()
}

func genTape(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "day.tape")
	out := runCmd(t, "gen", "--tape", path, "--location", "UTC", "--log-level", "error",
		"--tickers", "2", "--msgs", "60", "--seed", "7", "--start", "20240315 09:30:00")
	require.Contains(t, out, "wrote 60 messages for 2 tickers")

	return path
}

func TestInfo(t *testing.T) {
	path := genTape(t)

	out := runCmd(t, "info", "-t", path, "--location", "UTC", "--log-level", "error")
	require.Contains(t, out, "records:   2 of")
	require.Contains(t, out, "messages:  60")
	require.Contains(t, out, "BID")
	require.Contains(t, out, "TRDTIM_1")
}

func TestTickers(t *testing.T) {
	path := genTape(t)

	out := runCmd(t, "tickers", "-t", path, "--location", "UTC", "--log-level", "error")
	require.Contains(t, out, "SERVICE")
	require.Contains(t, out, "SYM000.O")
	require.Contains(t, out, "SYM001.O")
}

func TestDump(t *testing.T) {
	path := genTape(t)

	t.Run("all", func(t *testing.T) {
		out := runCmd(t, "dump", "-t", path, "--location", "UTC", "--log-level", "error")
		require.Contains(t, out, "Stream Complete, 60 records")
		require.Contains(t, out, "2024-03-15 09:30:00.000 IDN/")
		require.Contains(t, out, "Image")
	})

	t.Run("limit", func(t *testing.T) {
		out := runCmd(t, "dump", "-t", path, "--location", "UTC", "--log-level", "error", "--limit", "3")
		require.Contains(t, out, "Stream terminated")
	})

	t.Run("ticker and window", func(t *testing.T) {
		out := runCmd(t, "dump", "-t", path, "--location", "UTC", "--log-level", "error",
			"--tkr", "SYM001.O", "--start", "09:30:05", "--end", "09:30:10")
		require.Contains(t, out, "Stream Complete")
		require.NotContains(t, out, "SYM000.O")
		require.NotContains(t, out, "09:30:04")
		require.NotContains(t, out, "09:30:11")
	})

	t.Run("dead ticker", func(t *testing.T) {
		out := runCmd(t, "dump", "-t", path, "--location", "UTC", "--log-level", "error", "--tkr", "NOPE.O")
		require.Contains(t, out, "IDN/NOPE.O: non-existent item")
	})
}

func TestSample(t *testing.T) {
	path := genTape(t)

	out := runCmd(t, "sample", "-t", path, "--location", "UTC", "--log-level", "error",
		"--interval", "5s", "--fields", "BID,ASK")
	require.Contains(t, out, "Update")
	require.Contains(t, out, "BID=")
	require.NotContains(t, out, "TRDPRC_1=")
	require.Contains(t, out, "Stream Complete")
}

func TestPage(t *testing.T) {
	path := genTape(t)

	out := runCmd(t, "page", "-t", path, "--location", "UTC", "--log-level", "error", "--count", "20")
	require.Equal(t, 20, strings.Count(out, " IDN/"))
	require.NotContains(t, out, "next offset: 0\n")

	out = runCmd(t, "page", "-t", path, "--location", "UTC", "--log-level", "error", "--count", "100")
	require.Equal(t, 60, strings.Count(out, " IDN/"))
	require.Contains(t, out, "next offset: 0\n")
}

func TestMissingTape(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"info"})
	require.Error(t, cmd.Execute())
}

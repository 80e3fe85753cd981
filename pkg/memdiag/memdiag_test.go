package memdiag

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestHeapGrowth(t *testing.T) {
	require.Equal(t, uint64(50), HeapGrowth(Stats{HeapAlloc: 100}, Stats{HeapAlloc: 150}))
	require.Zero(t, HeapGrowth(Stats{HeapAlloc: 150}, Stats{HeapAlloc: 100}))
}

func TestReadReportsHeap(t *testing.T) {
	s := Read()
	require.Positive(t, s.HeapAlloc)
	require.Positive(t, s.Sys)
}

func TestDisabledTrackerIsSilent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(DefaultConfig(), zerolog.New(&buf).Level(zerolog.DebugLevel))
	require.False(t, tr.Enabled())

	tr.Start()
	tr.SetPhase("insert")
	tr.LogWithBudget("loaded", 1, 2)
	tr.Stop()

	require.Empty(t, buf.String())
	require.Zero(t, tr.PeakHeap())
}

func TestEnabledTrackerLogs(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	tr := NewTracker(Config{Enabled: true, LogInterval: time.Hour}, log)

	tr.Start()
	tr.SetPhase("lookup")
	tr.LogWithBudget("keys_loaded", 1024, 4096)
	tr.Stop()

	out := buf.String()
	require.Contains(t, out, `"phase":"lookup"`)
	require.Contains(t, out, "memory stats with budget")
	require.Contains(t, out, `"reason":"shutdown"`)
	require.Positive(t, tr.PeakHeap())
	require.Equal(t, 1, strings.Count(out, "memory diagnostics enabled"))
}

func TestTrackerWithPprofStopsCleanly(t *testing.T) {
	tr := NewTracker(Config{Enabled: true, PprofAddr: "127.0.0.1:0", LogInterval: time.Hour}, zerolog.Nop())
	tr.Start()
	tr.Start()
	tr.Stop()
	tr.Stop()
	require.Positive(t, tr.PeakHeap())
}

func TestLogWithBudgetWarnsWhenHeapDwarfsReservation(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(Config{Enabled: true}, zerolog.New(&buf))

	tr.LogWithBudget("keys_loaded", heapWarnFloor+1, heapWarnFloor*4)
	require.NotContains(t, buf.String(), "significantly exceeds")

	buf.Reset()
	ballast := make([]byte, 3*heapWarnFloor)
	tr.LogWithBudget("keys_loaded", heapWarnFloor+1, heapWarnFloor*4)
	runtime.KeepAlive(ballast)
	require.Contains(t, buf.String(), "significantly exceeds")
}

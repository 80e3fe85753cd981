package kvbench

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/eunmann/urlcorpus/internal/logctx"
	"github.com/eunmann/urlcorpus/pkg/benchutil"
	"github.com/eunmann/urlcorpus/pkg/memdiag"
)

func TestRunScenarioOrdering(t *testing.T) {
	keys := benchutil.GenerateKeys(5000, "default")

	table, err := Run(context.Background(), keys, Config{
		Implementations: Implementations(),
		Runs:            3,
		Scan:            true,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(table.RunID)
	require.NoError(t, err)
	// Only the radix store is ordered, so only it gets scan rows.
	require.Len(t, table.Rows, (len(Implementations())*(len(Operations)-1)+1)*len(Scenarios))

	for _, impl := range Implementations() {
		for _, op := range Operations {
			if op == OpScan && impl != ImplRadix {
				_, ok := table.Seconds(impl, "5E3", op, ScenarioBest)
				require.False(t, ok, "%s has no scan", impl)
				continue
			}
			best, ok := table.Seconds(impl, "5E3", op, ScenarioBest)
			require.True(t, ok, "%s %s best", impl, op)
			worst, ok := table.Seconds(impl, "5E3", op, ScenarioWorst)
			require.True(t, ok)
			avg, ok := table.Seconds(impl, "5E3", op, ScenarioAvg)
			require.True(t, ok)

			require.LessOrEqual(t, best, avg, "%s %s", impl, op)
			require.LessOrEqual(t, avg, worst, "%s %s", impl, op)
			require.GreaterOrEqual(t, best, 0.0)
		}
	}
	for _, r := range table.Rows {
		require.Equal(t, table.RunID, r.RunID)
	}
}

func TestRunCustomScale(t *testing.T) {
	keys := benchutil.GenerateKeys(100, "short")
	table, err := Run(context.Background(), keys, Config{
		Implementations: []string{ImplMap},
		Runs:            1,
		Scale:           "file",
	})
	require.NoError(t, err)
	for _, r := range table.Rows {
		require.Equal(t, "file", r.Scale)
		require.Equal(t, ImplMap, r.Implementation)
	}

	// A single run makes every scenario the same sample.
	best, _ := table.Seconds(ImplMap, "file", OpInsert, ScenarioBest)
	worst, _ := table.Seconds(ImplMap, "file", OpInsert, ScenarioWorst)
	require.Equal(t, best, worst)
}

func TestRunScanDisabled(t *testing.T) {
	keys := benchutil.GenerateKeys(200, "default")
	table, err := Run(context.Background(), keys, Config{Implementations: []string{ImplRadix}, Runs: 1, RunID: "fixed"})
	require.NoError(t, err)
	require.Equal(t, "fixed", table.RunID)
	require.Len(t, table.Rows, (len(Operations)-1)*len(Scenarios))
	_, ok := table.Seconds(ImplRadix, "2E2", OpScan, ScenarioAvg)
	require.False(t, ok)
}

type skippingScanner struct{ keys []string }

func (s skippingScanner) Scan(from string, fn func(string) bool) {
	for _, k := range s.keys {
		if k > from && !fn(k) {
			return
		}
	}
}

func TestTimeScanDetectsMisplacedStart(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e", "f"}
	_, err := timeScan(skippingScanner{keys: keys}, keys)
	require.ErrorIs(t, err, ErrScanMiss)

	st, err := NewStore(ImplRadix, keys)
	require.NoError(t, err)
	for _, k := range keys {
		st.Insert(k)
	}
	_, err = timeScan(st.(Scanner), keys)
	require.NoError(t, err)
}

func TestRunInvalidConfig(t *testing.T) {
	ctx := context.Background()
	keys := []string{"https://a.com/b"}

	_, err := Run(ctx, keys, Config{Implementations: []string{ImplMap}, Runs: 0})
	require.Error(t, err)

	_, err = Run(ctx, keys, Config{Runs: 1})
	require.Error(t, err)

	_, err = Run(ctx, keys, Config{Implementations: []string{"nope"}, Runs: 1})
	require.ErrorContains(t, err, "unknown implementation")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, []string{"https://a.com/b"}, DefaultConfig())
	require.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	best, worst, avg := summarize([]float64{0.3, 0.1, 0.2})
	require.Equal(t, 0.1, best)
	require.Equal(t, 0.3, worst)
	require.InDelta(t, 0.2, avg, 1e-12)

	best, worst, avg = summarize(nil)
	require.Zero(t, best)
	require.Zero(t, worst)
	require.Zero(t, avg)
}

func TestScaleLabel(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{10_000_000, "1E7"},
		{50_000_000, "5E7"},
		{5000, "5E3"},
		{1, "1E0"},
		{12345, "1.2345E4"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ScaleLabel(tt.n), "n=%d", tt.n)
	}
}

func sampleTable() *Table {
	tb := &Table{RunID: "11111111-2222-3333-4444-555555555555"}
	tb.add(ImplMap, "1E7", OpInsert, ScenarioBest, 1.5)
	tb.add(ImplSwiss, "1E7", OpLookup, ScenarioAvg, 0.25)
	return tb
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().WriteCSV(&buf))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, csvHeader, recs[0])
	require.Equal(t, []string{"11111111-2222-3333-4444-555555555555", "map", "1E7", "insert", "best", "1.5"}, recs[1])
	require.Equal(t, "0.25", recs[2][5])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().WriteJSON(&buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "11111111-2222-3333-4444-555555555555", got["run_id"])
	rows := got["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	require.Equal(t, "insert", first["operation"])
	require.Equal(t, "best", first["scenario"])
	require.InDelta(t, 1.5, first["seconds"], 0)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().WriteText(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "IMPL"))
	require.Contains(t, lines[1], "map")
	require.Contains(t, lines[2], "0.250000")
}

func TestMerge(t *testing.T) {
	a := sampleTable()
	b := &Table{RunID: "other"}
	b.add(ImplMPHF, "1E3", OpRemove, ScenarioWorst, 2)
	a.Merge(b)
	require.Len(t, a.Rows, 3)
	require.Equal(t, "other", a.Rows[2].RunID)
}

func TestRunWithMemTracker(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logctx.WithLogger(context.Background(), log)
	tr := memdiag.NewTracker(memdiag.Config{Enabled: true, LogInterval: time.Hour}, log)

	keys := benchutil.GenerateKeys(2000, "default")
	_, err := Run(ctx, keys, Config{Implementations: []string{ImplSwiss}, Runs: 1, Mem: tr})
	require.NoError(t, err)

	require.Contains(t, buf.String(), "store memory")
	require.Contains(t, buf.String(), `"phase":"swiss"`)
}

package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/btree-query-bench/bplus/index"
	"github.com/btree-query-bench/bplus/index/bplustree"
	"github.com/btree-query-bench/bplus/index/listindex"
	"github.com/btree-query-bench/bplus/index/lsm"
	"github.com/cockroachdb/errors"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var benchConfig struct {
	keys    int
	ops     int
	slots   []int
	list    bool
	lsm     bool
	shuffle bool
	seed    int64
	out     string
	plot    string
	graph   bool
	verbose bool
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "run the load, OLTP, OLAP, delete and range workloads against every backend",
	Long:  ``,
	Args:  cobra.ExactArgs(0),
	RunE:  runBench,
}

const (
	minLatency = time.Nanosecond
	maxLatency = 10 * time.Second
	// loadBuckets is the number of points in the load latency series.
	loadBuckets = 100
)

// ─── Latency histograms ───────────────────────────────────────────────────────

type latencyHistogram struct {
	h *hdrhistogram.Histogram
}

func newLatencyHistogram() *latencyHistogram {
	return &latencyHistogram{h: hdrhistogram.New(minLatency.Nanoseconds(), maxLatency.Nanoseconds(), 2)}
}

func (l *latencyHistogram) Record(elapsed time.Duration) {
	if elapsed < minLatency {
		elapsed = minLatency
	} else if elapsed > maxLatency {
		elapsed = maxLatency
	}
	if err := l.h.RecordValue(elapsed.Nanoseconds()); err != nil {
		// Values are clamped to the histogram range above.
		panic(fmt.Sprintf("recording value: %s", err))
	}
}

// BenchResult is one row of the results: the latency distribution of one
// workload against one backend configuration.
type BenchResult struct {
	Name      string
	Config    string
	Operation string
	Ops       int64
	MeanNs    float64
	P50Ns     int64
	P99Ns     int64
	MaxNs     int64
	MemMB     uint64
	Objects   uint64
}

func newResult(name, config string, op WorkloadType, l *latencyHistogram) BenchResult {
	return BenchResult{
		Name:      name,
		Config:    config,
		Operation: string(op),
		Ops:       l.h.TotalCount(),
		MeanNs:    l.h.Mean(),
		P50Ns:     l.h.ValueAtQuantile(50),
		P99Ns:     l.h.ValueAtQuantile(99),
		MaxNs:     l.h.Max(),
	}
}

type MemoryStats struct {
	AllocMB      uint64
	TotalAllocMB uint64
	HeapObjects  uint64
}

// GetDetailedMem measures live heap after a forced GC.
func GetDetailedMem() MemoryStats {
	var m runtime.MemStats
	// Force GC to ensure we measure actual live data, not garbage
	runtime.GC()
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
	}
}

var csvHeader = []string{
	"Structure", "Config", "TestType", "Ops", "MeanNs", "P50Ns", "P99Ns", "MaxNs", "MemMB", "HeapObjects",
}

// Record writes one result row.
func Record(w *csv.Writer, res BenchResult) error {
	return w.Write([]string{
		res.Name,
		res.Config,
		res.Operation,
		strconv.FormatInt(res.Ops, 10),
		strconv.FormatFloat(res.MeanNs, 'f', 1, 64),
		strconv.FormatInt(res.P50Ns, 10),
		strconv.FormatInt(res.P99Ns, 10),
		strconv.FormatInt(res.MaxNs, 10),
		strconv.FormatUint(res.MemMB, 10),
		strconv.FormatUint(res.Objects, 10),
	})
}

// renderTable prints the results as a terminal table.
func renderTable(w io.Writer, results []BenchResult) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Structure", "Config", "Workload", "Ops", "Mean", "P50", "P99", "Max", "MemMB"})
	for _, r := range results {
		tbl.Append([]string{
			r.Name,
			r.Config,
			r.Operation,
			strconv.FormatInt(r.Ops, 10),
			time.Duration(r.MeanNs).String(),
			time.Duration(r.P50Ns).String(),
			time.Duration(r.P99Ns).String(),
			time.Duration(r.MaxNs).String(),
			strconv.FormatUint(r.MemMB, 10),
		})
	}
	tbl.Render()
}

// loadSeries is the mean insert latency of consecutive slices of the
// initial load, in nanoseconds.
type loadSeries struct {
	label  string
	points []float64
}

func asciiLoadGraph(s loadSeries) string {
	return asciigraph.Plot(s.points,
		asciigraph.Height(10),
		asciigraph.Caption(s.label+": mean insert latency (ns) over the load"))
}

// ─── Backends ─────────────────────────────────────────────────────────────────

// backend is one index configuration to benchmark. open receives a scratch
// directory that is removed after the run. verify is nil for backends
// without structural invariants.
type backend struct {
	name   string
	config string
	open   func(dir string) (index.Index, error)
	verify func(index.Index) error
}

func backends() []backend {
	var out []backend
	for _, s := range benchConfig.slots {
		s := s
		config := "default"
		if s != 0 {
			config = fmt.Sprintf("slots=%d", s)
		}
		out = append(out, backend{
			name:   "BPlusTree",
			config: config,
			open: func(string) (index.Index, error) {
				opts := &bplustree.Options{LeafSlots: s, InnerSlots: s, Debug: benchConfig.verbose}
				return bplustree.NewBPlusTree(opts)
			},
			verify: func(idx index.Index) error {
				return idx.(*bplustree.BPlusTree).Tree().CheckInvariants()
			},
		})
	}
	if benchConfig.list {
		out = append(out, backend{
			name:   "SortedList",
			config: "-",
			open:   func(string) (index.Index, error) { return listindex.NewListIndex(), nil },
		})
	}
	if benchConfig.lsm {
		out = append(out, backend{
			name:   "LSM-Tree",
			config: "pebble",
			open:   lsmOpen,
		})
	}
	return out
}

func lsmOpen(dir string) (index.Index, error) { return lsm.Open(dir) }

// ─── Suite ────────────────────────────────────────────────────────────────────

func runBench(cmd *cobra.Command, args []string) error {
	if benchConfig.keys <= 0 {
		return errors.Newf("--keys must be positive, got %d", benchConfig.keys)
	}
	ops := benchConfig.ops
	if ops <= 0 {
		ops = max(1, benchConfig.keys/2)
	}

	f, err := os.Create(benchConfig.out)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	var results []BenchResult
	var series []loadSeries
	for _, b := range backends() {
		log.Printf("Testing %s (Config: %s)", b.name, b.config)
		res, load, err := runSuite(b, benchConfig.keys, ops, rand.New(rand.NewSource(benchConfig.seed)))
		if err != nil {
			return errors.Wrapf(err, "%s %s", b.name, b.config)
		}
		for _, r := range res {
			if err := Record(w, r); err != nil {
				return err
			}
		}
		results = append(results, res...)
		series = append(series, load)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	renderTable(cmd.OutOrStdout(), results)
	if benchConfig.graph {
		for _, s := range series {
			fmt.Fprintln(cmd.OutOrStdout(), asciiLoadGraph(s))
		}
	}
	if benchConfig.plot != "" {
		if err := savePlot(benchConfig.plot, series); err != nil {
			return err
		}
		log.Printf("plot written to %s", benchConfig.plot)
	}
	log.Printf("Benchmark complete. Results in %s", benchConfig.out)
	return nil
}

func runSuite(b backend, n, ops int, rng *rand.Rand) ([]BenchResult, loadSeries, error) {
	dir, err := os.MkdirTemp("", "bmark")
	if err != nil {
		return nil, loadSeries{}, err
	}
	defer os.RemoveAll(dir)
	idx, err := b.open(dir)
	if err != nil {
		return nil, loadSeries{}, err
	}
	defer idx.Close()

	// 1. Initial load, timing every insert.
	keys := make([]int, n)
	for i := range keys {
		keys[i] = i
	}
	if benchConfig.shuffle {
		rng.Shuffle(n, func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	}
	load := newLatencyHistogram()
	series := loadSeries{label: b.name + " " + b.config}
	bucket := max(1, n/loadBuckets)
	var bucketTotal time.Duration
	for i, k := range keys {
		start := time.Now()
		err := idx.Insert(int64(k), uint64(k))
		elapsed := time.Since(start)
		if err != nil {
			return nil, series, err
		}
		load.Record(elapsed)
		bucketTotal += elapsed
		if (i+1)%bucket == 0 {
			series.points = append(series.points, float64(bucketTotal.Nanoseconds())/float64(bucket))
			bucketTotal = 0
		}
	}

	// Measure memory immediately after load but before workloads.
	stats := GetDetailedMem()
	res := newResult(b.name, b.config, "Load", load)
	res.MemMB, res.Objects = stats.AllocMB, stats.HeapObjects
	results := []BenchResult{res}

	// 2. Mixed workloads.
	for _, wType := range []WorkloadType{OLTP, OLAP, DeleteHeavy, Reporting} {
		wOps := ops
		if wType == Reporting {
			wOps = max(1, ops/rangeWidth)
		}
		h := newLatencyHistogram()
		if err := ExecuteWorkload(idx, wType, wOps, n, rng, h); err != nil {
			return nil, series, err
		}
		res := newResult(b.name, b.config, wType, h)
		res.MemMB = GetDetailedMem().AllocMB
		results = append(results, res)
	}

	if b.verify != nil {
		if err := b.verify(idx); err != nil {
			return nil, series, errors.Wrap(err, "verify after workloads")
		}
	}
	return results, series, nil
}

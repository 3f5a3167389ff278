package main

import (
	"bytes"
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btree-query-bench/bplus/index"
	"github.com/btree-query-bench/bplus/index/bplustree"
	"github.com/btree-query-bench/bplus/index/listindex"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestWorkloadsMatchBaseline(t *testing.T) {
	bt, err := bplustree.NewBPlusTree(&bplustree.Options{LeafSlots: 4, InnerSlots: 4})
	require.NoError(t, err)
	list := listindex.NewListIndex()

	for _, idx := range []index.Index{bt, list} {
		for k := int64(0); k < 500; k++ {
			require.NoError(t, idx.Insert(k, uint64(k)))
		}
		rng := rand.New(rand.NewSource(7))
		for _, w := range []WorkloadType{OLTP, OLAP, DeleteHeavy, Reporting} {
			h := newLatencyHistogram()
			require.NoError(t, ExecuteWorkload(idx, w, 300, 500, rng, h))
			require.Equal(t, int64(300), h.h.TotalCount())
		}
	}
	require.NoError(t, bt.Tree().CheckInvariants())

	// Same seed, same operations: both backends end with the same contents.
	require.Equal(t, len(list.Data), bt.Tree().Len())
	for _, d := range list.Data {
		v, err := bt.Get(d.Key)
		require.NoError(t, err)
		require.Equal(t, d.Val, v)
	}
}

func TestRunSuite(t *testing.T) {
	benchConfig.slots = []int{4}
	benchConfig.list = true
	benchConfig.lsm = false
	benchConfig.shuffle = true
	defer func() { benchConfig.slots, benchConfig.list = nil, false }()

	bs := backends()
	require.Len(t, bs, 2)
	for _, b := range bs {
		res, load, err := runSuite(b, 1000, 200, rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		require.Len(t, res, 5)
		require.Equal(t, "Load", res[0].Operation)
		require.Equal(t, int64(1000), res[0].Ops)
		require.Equal(t, int64(2), res[4].Ops)
		require.Len(t, load.points, loadBuckets)

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		for _, r := range res {
			require.NoError(t, Record(w, r))
		}
		w.Flush()
		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 5)
		for _, row := range rows {
			require.Len(t, row, len(csvHeader))
		}
	}
}

func TestDumpInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.bpt")
	dotPath := filepath.Join(dir, "tree.dot")

	dumpConfig.keys = 2000
	dumpConfig.leafSlots = 6
	dumpConfig.innerSlots = 5
	dumpConfig.dups = true
	dumpConfig.compress = true
	require.NoError(t, runDump(dumpCmd, []string{path}))

	var out bytes.Buffer
	inspectCmd.SetOut(&out)
	inspectConfig.dot = dotPath
	inspectConfig.levels = true
	require.NoError(t, runInspect(inspectCmd, []string{path}))
	require.Contains(t, out.String(), "compressed=true duplicates=true")
	require.Contains(t, out.String(), "items=2000 ")
	require.Contains(t, out.String(), "slots=6/5")
	require.Contains(t, out.String(), "L0: [")

	dot, err := os.ReadFile(dotPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(dot), "digraph BPlusTree {"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.True(t, errors.Is(runInspect(inspectCmd, []string{path}), bplustree.ErrCorruption))
}

package main

import (
	"cmp"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/btree-query-bench/bplus/index/bplustree"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var dumpConfig struct {
	keys       int
	leafSlots  int
	innerSlots int
	dups       bool
	compress   bool
	seed       int64
}

var inspectConfig struct {
	dot    string
	levels bool
}

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "build a random int64 -> uint64 B+ tree and write its dump",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "restore a dump, verify it and print its shape",
	Long: `
Restores an int64 -> uint64 dump using the slot counts and duplicate policy
recorded in its header, checks the structural invariants of the result and
prints node statistics.
`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runDump(cmd *cobra.Command, args []string) error {
	opts := &bplustree.Options{
		LeafSlots:  dumpConfig.leafSlots,
		InnerSlots: dumpConfig.innerSlots,
	}
	if dumpConfig.dups {
		opts.Duplicates = bplustree.AllowDuplicates
	}
	t, err := bplustree.NewOrdered[int64, uint64](opts)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(dumpConfig.seed))
	for i := 0; i < dumpConfig.keys; i++ {
		t.Insert(rng.Int63n(int64(4*dumpConfig.keys+1)), rng.Uint64())
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := t.DumpWith(f, bplustree.DumpOptions{Compress: dumpConfig.compress}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("%s: %s", args[0], t.Stats())
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := bplustree.ReadDumpInfo(f)
	if err != nil {
		return errors.Wrapf(err, "%s", args[0])
	}
	if info.KeySize != 8 || info.ValueSize != 8 {
		return errors.Newf("%s: key/value size %d/%d, only int64 -> uint64 dumps can be inspected",
			args[0], info.KeySize, info.ValueSize)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	t, err := bplustree.New[int64, uint64](cmp.Compare[int64], info.Options())
	if err != nil {
		return err
	}
	if err := t.Restore(f); err != nil {
		return errors.Wrapf(err, "%s", args[0])
	}

	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "compressed=%t duplicates=%t\n", info.Compressed, info.Duplicates)
	fmt.Fprintln(stdout, t.Stats())
	if inspectConfig.levels {
		fmt.Fprint(stdout, t.String())
	}
	if inspectConfig.dot != "" {
		out, err := os.Create(inspectConfig.dot)
		if err != nil {
			return err
		}
		if err := t.WriteDOT(out); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
	return nil
}

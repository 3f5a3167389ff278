// Command bmark benchmarks the in-memory B+ tree against the sorted-slice
// baseline and Pebble, and writes or inspects B+ tree dump files.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bmark [command] (flags)",
	Short: "B+ tree benchmarking/introspection tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		benchCmd,
		dumpCmd,
		inspectCmd,
	)

	benchCmd.Flags().IntVarP(
		&benchConfig.keys, "keys", "n", 100000, "number of keys loaded before the workloads")
	benchCmd.Flags().IntVar(
		&benchConfig.ops, "ops", 0, "operations per workload (0 means keys/2)")
	benchCmd.Flags().IntSliceVar(
		&benchConfig.slots, "slots", []int{0, 16, 64},
		"B+ tree slot counts to sweep; leaf and inner nodes use the same value, 0 derives them from the key size")
	benchCmd.Flags().BoolVar(
		&benchConfig.list, "list", true, "include the sorted-slice baseline")
	benchCmd.Flags().BoolVar(
		&benchConfig.lsm, "lsm", true, "include the Pebble LSM backend")
	benchCmd.Flags().BoolVar(
		&benchConfig.shuffle, "shuffle", true, "load keys in random order instead of ascending")
	benchCmd.Flags().Int64Var(
		&benchConfig.seed, "seed", 1, "random seed for key order and workloads")
	benchCmd.Flags().StringVarP(
		&benchConfig.out, "out", "o", "results.csv", "CSV output path")
	benchCmd.Flags().StringVar(
		&benchConfig.plot, "plot", "", "write a PNG plot of load latency to this path")
	benchCmd.Flags().BoolVar(
		&benchConfig.graph, "graph", false, "print an ASCII graph of load latency per backend")
	benchCmd.Flags().BoolVarP(
		&benchConfig.verbose, "verbose", "v", false, "trace B+ tree splits and merges")

	dumpCmd.Flags().IntVarP(
		&dumpConfig.keys, "keys", "n", 10000, "number of random keys")
	dumpCmd.Flags().IntVar(
		&dumpConfig.leafSlots, "leaf-slots", 0, "leaf capacity (0 derives it from the key size)")
	dumpCmd.Flags().IntVar(
		&dumpConfig.innerSlots, "inner-slots", 0, "inner node capacity (0 derives it from the key size)")
	dumpCmd.Flags().BoolVar(
		&dumpConfig.dups, "dups", false, "allow duplicate keys")
	dumpCmd.Flags().BoolVarP(
		&dumpConfig.compress, "compress", "z", false, "snappy-compress the dump body")
	dumpCmd.Flags().Int64Var(
		&dumpConfig.seed, "seed", 1, "random seed")

	inspectCmd.Flags().StringVar(
		&inspectConfig.dot, "dot", "", "write a Graphviz rendering of the tree to this path")
	inspectCmd.Flags().BoolVar(
		&inspectConfig.levels, "levels", false, "print the keys of every level")

	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}

package bplustree

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
)

func TestTreeDataDriven(t *testing.T) {
	var tr *Tree[int, int]

	formatPos := func(it Iterator[int, int]) string {
		if !it.Valid() {
			return "end"
		}
		return fmt.Sprintf("%d:%d", it.Key(), it.Value())
	}
	scanKey := func(t *testing.T, td *datadriven.TestData) int {
		var key int
		td.ScanArgs(t, "key", &key)
		return key
	}

	datadriven.RunTest(t, "testdata/tree", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "new":
			opts := &Options{SelfVerify: true}
			td.ScanArgs(t, "leaf", &opts.LeafSlots)
			td.ScanArgs(t, "inner", &opts.InnerSlots)
			if td.HasArg("dups") {
				var dups string
				td.ScanArgs(t, "dups", &dups)
				switch dups {
				case "allow":
					opts.Duplicates = AllowDuplicates
				case "overwrite":
					opts.Duplicates = OverwriteDuplicates
				default:
					td.Fatalf(t, "unknown duplicate policy %q", dups)
				}
			}
			var err error
			tr, err = NewOrdered[int, int](opts)
			require.NoError(t, err)
			return "ok"

		case "insert":
			for _, f := range strings.Fields(td.Input) {
				k, v, hasValue := strings.Cut(f, ":")
				key, err := strconv.Atoi(k)
				require.NoError(t, err)
				value := key
				if hasValue {
					value, err = strconv.Atoi(v)
					require.NoError(t, err)
				}
				tr.Insert(key, value)
			}
			return strings.TrimSpace(tr.String())

		case "erase", "erase-one":
			key := scanKey(t, td)
			var n int
			if td.Cmd == "erase" {
				n = tr.Erase(key)
			} else if tr.EraseOne(key) {
				n = 1
			}
			return fmt.Sprintf("erased %d\n%s", n, strings.TrimSpace(tr.String()))

		case "find":
			return formatPos(tr.Find(scanKey(t, td)))

		case "lower-bound":
			return formatPos(tr.LowerBound(scanKey(t, td)))

		case "upper-bound":
			return formatPos(tr.UpperBound(scanKey(t, td)))

		case "count":
			return strconv.Itoa(tr.Count(scanKey(t, td)))

		case "scan":
			var parts []string
			for k, v := range tr.All() {
				parts = append(parts, fmt.Sprintf("%d:%d", k, v))
			}
			return strings.Join(parts, " ")

		case "stats":
			return tr.Stats().String()

		default:
			return fmt.Sprintf("unknown command: %s", td.Cmd)
		}
	})
}

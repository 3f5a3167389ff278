package main

import (
	"math/rand"
	"time"

	"github.com/btree-query-bench/bplus/index"
	"github.com/cockroachdb/errors"
)

type WorkloadType string

const (
	OLTP        WorkloadType = "OLTP (90/10)"
	OLAP        WorkloadType = "OLAP (10/90)"
	DeleteHeavy WorkloadType = "Delete (50/30/20)"
	Reporting   WorkloadType = "Reporting (Range)"
)

// rangeWidth is the key span of one Reporting scan.
const rangeWidth = 100

// ExecuteWorkload runs a mixed distribution of ops over keys in [0, keys)
// and records the latency of every operation in h.
func ExecuteWorkload(
	idx index.Index, wType WorkloadType, ops, keys int, rng *rand.Rand, h *latencyHistogram,
) error {
	for i := 0; i < ops; i++ {
		choice := rng.Intn(100)
		key := int64(rng.Intn(keys))
		value := uint64(rng.Int63())

		start := time.Now()
		var err error
		switch wType {
		case OLTP:
			if choice < 90 {
				_, err = idx.Get(key)
			} else {
				err = idx.Insert(key, value)
			}
		case OLAP:
			if choice < 10 {
				_, err = idx.Get(key)
			} else {
				err = idx.Insert(key, value)
			}
		case DeleteHeavy:
			switch {
			case choice < 50:
				err = idx.Delete(key)
			case choice < 80:
				err = idx.Insert(key, value)
			default:
				_, err = idx.Get(key)
			}
		case Reporting:
			err = scan(idx, key, key+rangeWidth)
		default:
			return errors.Newf("unknown workload %q", wType)
		}
		h.Record(time.Since(start))

		if err != nil && !errors.Is(err, index.ErrNotFound) {
			return errors.Wrapf(err, "%s op %d", wType, i)
		}
	}
	return nil
}

func scan(idx index.Index, start, end int64) error {
	it, err := idx.Range(start, end)
	if err != nil {
		return err
	}
	for it.Next() {
	}
	if err := it.Error(); err != nil {
		it.Close()
		return err
	}
	return it.Close()
}

package bplustree

import (
	"fmt"
	"log"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
)

const (
	// nodeBudget is the approximate number of bytes a node's slot arrays
	// should occupy when the slot counts are derived from the key and value
	// sizes.
	nodeBudget = 128
	// minDefaultSlots is the floor for derived slot counts.
	minDefaultSlots = 8
	// minSlots is the smallest explicit slot count accepted by Validate.
	minSlots = 3
)

// ErrInvalidOptions is returned by New when the options fail validation.
var ErrInvalidOptions = errors.New("bplustree: invalid options")

// DuplicatePolicy controls what Insert does with a key that is already
// present.
type DuplicatePolicy int

const (
	// RejectDuplicates leaves the existing slot untouched and reports that
	// nothing was inserted.
	RejectDuplicates DuplicatePolicy = iota
	// OverwriteDuplicates replaces the value of the existing slot.
	OverwriteDuplicates
	// AllowDuplicates always inserts. Equal keys are kept in insertion order.
	AllowDuplicates
)

func (p DuplicatePolicy) String() string {
	switch p {
	case RejectDuplicates:
		return "reject"
	case OverwriteDuplicates:
		return "overwrite"
	case AllowDuplicates:
		return "allow"
	default:
		return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
	}
}

// Logger defines an interface for writing log messages.
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger struct{}

// Infof implements the Logger.Infof interface.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
}

// Fatalf implements the Logger.Fatalf interface.
func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Options holds the per-tree configuration. The zero value is usable: slot
// counts are derived from the key and value sizes, duplicates are rejected and
// both debugging aids are off.
type Options struct {
	// LeafSlots is the maximum number of key/value slots in a leaf. Zero
	// derives it from the key and value sizes.
	LeafSlots int
	// InnerSlots is the maximum number of separator keys in an inner node
	// (an inner node has up to InnerSlots+1 children). Zero derives it from
	// the key size.
	InnerSlots int

	Duplicates DuplicatePolicy

	// SelfVerify runs Verify at the end of every mutating operation. This is
	// expensive and meant for tests and debugging.
	SelfVerify bool
	// Debug traces splits, merges and redistributions through Logger.
	Debug bool

	Logger Logger
}

// ensureDefaults fills in the slot counts and logger if they are unset,
// using the sizes of K and V. It returns o, or a fresh Options if o is nil.
func ensureDefaults[K, V any](o *Options) *Options {
	if o == nil {
		o = &Options{}
	}
	var k K
	var v V
	if o.LeafSlots == 0 {
		o.LeafSlots = defaultSlots(unsafe.Sizeof(k) + unsafe.Sizeof(v))
	}
	if o.InnerSlots == 0 {
		var p *int
		o.InnerSlots = defaultSlots(unsafe.Sizeof(k) + unsafe.Sizeof(p))
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
	return o
}

func defaultSlots(slotBytes uintptr) int {
	if slotBytes == 0 {
		return minDefaultSlots * 2
	}
	return max(minDefaultSlots, int(nodeBudget/slotBytes))
}

// Validate checks that the options describe a usable tree.
func (o *Options) Validate() error {
	if o.LeafSlots < minSlots {
		return errors.Wrapf(ErrInvalidOptions, "leaf slots %d below minimum %d", o.LeafSlots, minSlots)
	}
	if o.InnerSlots < minSlots {
		return errors.Wrapf(ErrInvalidOptions, "inner slots %d below minimum %d", o.InnerSlots, minSlots)
	}
	if o.LeafSlots > maxSlots || o.InnerSlots > maxSlots {
		return errors.Wrapf(ErrInvalidOptions, "slot counts %d/%d exceed maximum %d",
			o.LeafSlots, o.InnerSlots, maxSlots)
	}
	switch o.Duplicates {
	case RejectDuplicates, OverwriteDuplicates, AllowDuplicates:
	default:
		return errors.Wrapf(ErrInvalidOptions, "unknown duplicate policy %s", o.Duplicates)
	}
	return nil
}

// maxSlots bounds explicit slot counts; the dump format stores counts as
// u32 and restore refuses images with larger nodes.
const maxSlots = 1 << 16

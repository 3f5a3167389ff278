package index

type Iterator interface {
	Next() bool
	Key() int64
	Value() uint64
	Error() error
	Close() error
}

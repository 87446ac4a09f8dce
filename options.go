package doublehash

import "go.uber.org/zap"

const (
	defaultCapacity = 32

	// innerHash divides by capacity-1.
	minCapacity = 2

	maxCapacity = 1 << 30
)

type options struct {
	capacity    int
	maxCapacity int
	logger   *zap.Logger
	hashFunc hashFunc
}

// Option configures a Map created by New.
type Option func(*options)

// WithCapacity sets the number of slots in the initial table.
// Values below 2 are raised to 2.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n < minCapacity {
			n = minCapacity
		}
		if n > maxCapacity {
			n = maxCapacity
		}
		o.capacity = n
	}
}

// WithLogger sets the logger used to report resizes. By default nothing is logged.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// withHashFunc replaces the base hash, letting tests control slot placement.
func withHashFunc(hf hashFunc) Option {
	return func(o *options) {
		o.hashFunc = hf
	}
}

// withMaxCapacity lowers the largest table a Map may grow to.
func withMaxCapacity(n int) Option {
	return func(o *options) {
		o.maxCapacity = n
	}
}

func defaultOptions() options {
	return options{
		capacity:    defaultCapacity,
		maxCapacity: maxCapacity,
		logger:      zap.NewNop(),
		hashFunc:    hashInt32,
	}
}

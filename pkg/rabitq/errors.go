package rabitq

import "errors"

// Configuration errors, reported fatal to the call that triggered them.
var (
	ErrUnsupportedMetric = errors.New("rabitq: only squared L2 is supported")
	ErrZeroDimension     = errors.New("rabitq: dim must be > 0")
	ErrZeroCapacity      = errors.New("rabitq: capacity must be > 0")
	ErrCapacityExceeded  = errors.New("rabitq: fit called with N > capacity")
	ErrUnsupportedOp     = errors.New("rabitq: insert/remove not supported on an RBQ space")
	ErrNilSpace          = errors.New("rabitq: nil space")
	ErrNilGraph          = errors.New("rabitq: nil graph")
	ErrBadNeighborCount  = errors.New("rabitq: edges must have exactly D entries")
)

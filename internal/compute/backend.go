package compute

// Kernel accumulates the contribution of items [start, end) into acc.
type Kernel func(start, end int, acc *Accumulator)

type Backend interface {
	Name() string
	Available() bool
	// Reduce evaluates fn over n items and returns the merged accumulator
	// for nBead beads in dim dimensions.
	Reduce(n, nBead, dim int, fn Kernel) *Accumulator
	Cleanup()
}

var activeBackend Backend = NewCPUBackend()

func SetBackend(b Backend) {
	if activeBackend != nil {
		activeBackend.Cleanup()
	}
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}

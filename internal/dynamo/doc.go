// Package dynamo provides the primitives shared by every fibrilsim package.
//
// It defines the bead coordinate array and the error taxonomy used across
// the numeric core:
//
//   - [Positions]: N rows of 2 or 3 coordinates
//   - [TopologyError]: malformed bond or van-der-Waals matrix
//   - [IndexError]: index list entry outside the bead range
//   - [GrowthError]: exhausted fibril growth budget
//
// All typed errors unwrap to a package sentinel, so callers can branch with
// errors.Is and recover the context with errors.As:
//
//	var ge *dynamo.GrowthError
//	if errors.As(err, &ge) {
//		fmt.Println("failed fibril", ge.Fibril)
//	}
//
// # Parallelism
//
// [ParallelFor] splits an index range across GOMAXPROCS goroutines and is
// used for the embarrassingly parallel distance and force loops. Callers
// must only write to memory owned by their chunk.
package dynamo

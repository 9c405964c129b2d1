package models

import "time"

// FutureState is the poll outcome of future_wait, distinguishing "still
// running" from a real completion so callers never block past what they ask
// for.
type FutureState uint8

const (
	FutureStatePending FutureState = iota
	FutureStateCompleted
)

// WaitOutcome is returned by a Controller's FutureWait.
type WaitOutcome struct {
	State  FutureState
	Result ResultCode // only meaningful when State == FutureStateCompleted
}

// InfiniteTimeout tells FutureWait to block until completion, used only
// during teardown per the concurrency model (§5): the core otherwise always
// polls with a zero timeout.
const InfiniteTimeout time.Duration = -1

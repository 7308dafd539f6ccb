package playback

import (
	"fmt"
	"time"
)

// Outcome is the terminal state of a run.
type Outcome uint8

const (
	Completed Outcome = iota + 1
	Interrupted
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// Result describes how a run ended. Err is set only for Failed.
type Result struct {
	Outcome    Outcome
	Err        error
	Dispatched int
	Skipped    int
	Iterations int
	Elapsed    time.Duration
}

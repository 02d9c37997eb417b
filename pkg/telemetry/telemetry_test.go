package telemetry

import (
	"testing"
	"time"
)

func TestTraceStepsCoverTotal(t *testing.T) {
	tr := Track("test.op")
	time.Sleep(2 * time.Millisecond)
	tr.Mark("first")
	time.Sleep(2 * time.Millisecond)
	tr.Finish()

	if len(tr.Steps) < 1 || tr.Steps[0].Name != "first" {
		t.Fatalf("unexpected steps %+v", tr.Steps)
	}
	var sum float64
	for _, s := range tr.Steps {
		sum += s.Duration
	}
	if sum < tr.TotalMS-0.01 {
		t.Errorf("steps sum %.3f < total %.3f", sum, tr.TotalMS)
	}
}

func TestFinishTwiceIsNoop(t *testing.T) {
	tr := Track("test.twice")
	tr.Finish()
	n := len(tr.Steps)
	tr.Finish()
	if len(tr.Steps) != n {
		t.Errorf("second Finish changed steps")
	}
}

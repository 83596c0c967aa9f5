package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

func TestSimpleProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewLabelledProgress(&buf, "Evaluating")
	p.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 250*time.Millisecond)

	p.Start(4)
	p.Update(2)
	p.Finish()

	out := buf.String()
	for _, want := range []string{
		"\rEvaluating: [" + strings.Repeat("░", 30) + "]   0.0% (0/4) 250ms",
		"\rEvaluating: [" + strings.Repeat("█", 15) + strings.Repeat("░", 15) + "]  50.0% (2/4) 500ms",
		"\rEvaluating: [" + strings.Repeat("█", 30) + "] 100.0% (4/4) 750ms\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%q", want, out)
		}
	}
}

func TestSimpleProgressClampsOverflow(t *testing.T) {
	var buf bytes.Buffer
	p := NewLabelledProgress(&buf, "Pruning")
	p.Start(2)
	p.Update(7)
	if !strings.Contains(buf.String(), "(2/2)") {
		t.Errorf("update beyond total not clamped: %q", buf.String())
	}
}

func TestSimpleProgressZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(0)
	p.Update(0)
	p.Finish()

	if buf.Len() != 0 {
		t.Errorf("zero total should render nothing, got %q", buf.String())
	}
}

func TestSimpleProgressError(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(100)
	p.Error(errors.New("model load failed"))

	if !strings.Contains(buf.String(), "✗ Error: model load failed") {
		t.Errorf("error output = %q", buf.String())
	}
}

func TestSimpleProgressConcurrent(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)
	p.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Update(int64(start*100 + j))
			}
		}(i)
	}
	wg.Wait()
	p.Finish()

	out := buf.String()
	last := out[strings.LastIndex(out, "\r"):]
	if !strings.Contains(last, "(1000/1000)") || !strings.HasSuffix(last, "\n") {
		t.Errorf("final render = %q", last)
	}
}

func TestNewProgressReporterNilWriter(t *testing.T) {
	p := NewProgressReporter(nil).(*SimpleProgress)
	if p.writer == nil {
		t.Fatal("nil writer should default to stderr")
	}
}

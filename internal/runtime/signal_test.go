package runtime

import (
	"bytes"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestSignalContextCancelsOnSigterm(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx, stop := SignalContext(NewLoggerTo(buf, "test"))
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after SIGTERM")
	}
	if !strings.Contains(buf.String(), "shutdown signal received") {
		t.Fatalf("missing shutdown record, logs: %s", buf.String())
	}
}

func TestSignalContextStopReleases(t *testing.T) {
	ctx, stop := SignalContext(NewLoggerTo(&bytes.Buffer{}, "test"))
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop should cancel the context")
	}
}

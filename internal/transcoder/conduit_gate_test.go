package transcoder

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestCommitReaderWaitsForExit(t *testing.T) {
	gate := newExitGate()
	r := &commitReader{ctx: context.Background(), r: strings.NewReader("abc"), gate: gate}

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(r)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("ReadAll() returned before the producer exited")
	case <-time.After(50 * time.Millisecond):
	}

	gate.set(nil)
	if err := <-done; err != nil {
		t.Errorf("ReadAll() error = %v, want nil", err)
	}
}

func TestCommitReaderProducerFailure(t *testing.T) {
	gate := newExitGate()
	gate.set(errors.New("exit status 1"))
	r := &commitReader{ctx: context.Background(), r: strings.NewReader("partial"), gate: gate}

	data, err := io.ReadAll(r)
	if err == nil {
		t.Fatal("ReadAll() error = nil, want producer failure")
	}
	if string(data) != "partial" {
		t.Errorf("data = %q", data)
	}
}

func TestCommitReaderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &commitReader{ctx: ctx, r: strings.NewReader(""), gate: newExitGate()}

	if _, err := r.Read(make([]byte, 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

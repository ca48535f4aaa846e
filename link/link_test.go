package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"mavrouter/internal/mavio"
	"mavrouter/queue"
)

type fakeTransport struct {
	readCh   chan mavio.Frame
	written  []mavio.Frame
	writeErr error
	closed   bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{readCh: make(chan mavio.Frame, 16)}
}

func (f *fakeTransport) ReadFrame(ctx context.Context) (mavio.Frame, error) {
	select {
	case fr, ok := <-f.readCh:
		if !ok {
			return mavio.Frame{}, errors.New("closed")
		}
		return fr, nil
	case <-ctx.Done():
		return mavio.Frame{}, ctx.Err()
	}
}

func (f *fakeTransport) WriteFrame(ctx context.Context, fr mavio.Frame) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, fr)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestBase_EnqueueOutboundRespectsUpFlag(t *testing.T) {
	b := NewBase(Info{ID: 1}, newFakeTransport(), 4, time.Second, 0)
	b.SetUp(false)
	if b.EnqueueOutbound(mavio.Frame{MsgID: 1}) {
		t.Fatalf("enqueue should fail while link is down")
	}
}

func TestBase_EnqueueOutboundDropsWhenFull(t *testing.T) {
	b := NewBase(Info{ID: 1}, newFakeTransport(), 1, time.Second, 0)
	if !b.EnqueueOutbound(mavio.Frame{MsgID: 1}) {
		t.Fatalf("first enqueue should succeed")
	}
	if b.EnqueueOutbound(mavio.Frame{MsgID: 2}) {
		t.Fatalf("enqueue into a full outbound queue should drop")
	}
}

func TestBase_SeenSysIDAfterReader(t *testing.T) {
	ft := newFakeTransport()
	b := NewBase(Info{ID: 1}, ft, 4, time.Minute, 0)
	inbound := queue.NewInbound(4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.RunReader(ctx, inbound)
		close(done)
	}()

	ft.readCh <- mavio.Frame{SysID: 9, Seq: 0}
	item, ok := inbound.Pop()
	if !ok || item.Frame.SysID != 9 {
		t.Fatalf("expected sysid 9 frame on inbound queue, got %+v %v", item, ok)
	}
	if !b.SeenSysID(9) {
		t.Fatalf("expected sysid 9 to be marked seen after reader observed it")
	}

	cancel()
	<-done
}

// The kill switch trips on the error after the threshold: errorcount
// going from threshold to threshold+1, not on the threshold itself.
func TestBase_KillThresholdTripsWhenExceeded(t *testing.T) {
	ft := newFakeTransport()
	ft.writeErr = errors.New("boom")
	b := NewBase(Info{ID: 1}, ft, 8, time.Second, 3)

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 3; i++ {
		b.out.Push(mavio.Frame{MsgID: uint32(i)})
	}
	b.out.Shutdown()
	b.RunWriter(ctx)
	if b.IsKill() {
		t.Fatalf("link must survive exactly threshold consecutive errors")
	}

	b.recordIOError(errors.New("boom"))
	cancel()

	if !b.IsKill() {
		t.Fatalf("expected link to be killed once the error count exceeded the threshold")
	}
}

func TestBase_KillIsMonotonic(t *testing.T) {
	b := NewBase(Info{ID: 1}, newFakeTransport(), 4, time.Second, 1)
	b.recordIOError(errors.New("boom"))
	b.recordIOError(errors.New("boom"))
	if !b.IsKill() {
		t.Fatalf("expected kill switch to trip")
	}
	b.resetIOErrors()
	if !b.IsKill() {
		t.Fatalf("kill switch must not clear once tripped")
	}
}

func TestBase_ReaderCountsDropWhenInboundFull(t *testing.T) {
	ft := newFakeTransport()
	b := NewBase(Info{ID: 1}, ft, 4, time.Minute, 0)
	inbound := queue.NewInbound(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.RunReader(ctx, inbound)
		close(done)
	}()

	ft.readCh <- mavio.Frame{SysID: 9, Seq: 0}
	ft.readCh <- mavio.Frame{SysID: 9, Seq: 1}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if b.Stats().Snapshot()[9].PacketsDropped == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if got := b.Stats().Snapshot()[9].PacketsDropped; got != 1 {
		t.Fatalf("second frame should have been dropped against sysid 9, got %d drops", got)
	}
	if inbound.Depth() != 1 {
		t.Fatalf("inbound depth = %d, want 1", inbound.Depth())
	}

	cancel()
	<-done
}

package shell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mavrouter/internal/mavio"
	"mavrouter/link"
	"mavrouter/queue"
	"mavrouter/router"
)

type noopTransport struct{}

func (noopTransport) ReadFrame(ctx context.Context) (mavio.Frame, error) {
	<-ctx.Done()
	return mavio.Frame{}, ctx.Err()
}
func (noopTransport) WriteFrame(ctx context.Context, fr mavio.Frame) error { return nil }
func (noopTransport) Close() error                                        { return nil }

func newTestShell() *Shell {
	l := link.NewBase(link.Info{ID: 1, Name: "A", Kind: "udp-client"}, noopTransport{}, 4, time.Minute, 0)
	rtr := router.New([]*link.Base{l}, queue.NewInbound(4), false, nil)
	return New(rtr)
}

func TestListLinks(t *testing.T) {
	s := newTestShell()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/links/")
	if err != nil {
		t.Fatalf("GET /links/: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var links []linkSummary
	if err := json.NewDecoder(resp.Body).Decode(&links); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(links) != 1 || links[0].Name != "A" {
		t.Fatalf("unexpected link list: %+v", links)
	}
}

func TestSetDropRate(t *testing.T) {
	s := newTestShell()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/links/1/drop_rate", "application/json", strings.NewReader(`{"probability":0.5}`))
	if err != nil {
		t.Fatalf("POST drop_rate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	l := s.rtr.Links()[0]
	if l.DropPolicy().Probability() != 0.5 {
		t.Fatalf("drop probability = %v, want 0.5", l.DropPolicy().Probability())
	}
}

func TestSetUp(t *testing.T) {
	s := newTestShell()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/links/1/up", "application/json", strings.NewReader(`{"up":false}`))
	if err != nil {
		t.Fatalf("POST up: %v", err)
	}
	defer resp.Body.Close()

	l := s.rtr.Links()[0]
	if l.Up() {
		t.Fatalf("expected link to be marked down")
	}
}

func TestFindLink_UnknownIDReturns404(t *testing.T) {
	s := newTestShell()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/links/99/quality")
	if err != nil {
		t.Fatalf("GET quality: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

package profile

import (
	"fmt"
	"testing"
	"time"

	"JackpotWheel/internal/model"
)

type fakeService struct {
	calls    int
	profiles map[string]*model.Profile
	err      error
}

func (f *fakeService) GetProfile(account string) (*model.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[account], nil
}

func newTestCache(svc Service) (*Cache, *time.Time) {
	c := NewCache(svc, 72*time.Hour, 30*time.Second)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGet_CachesWithinTTL(t *testing.T) {
	svc := &fakeService{profiles: map[string]*model.Profile{
		"alice": {Account: "alice", DisplayName: "Alice"},
	}}
	c, now := newTestCache(svc)

	if p := c.Get("alice"); p == nil || p.DisplayName != "Alice" {
		t.Fatalf("expected Alice, got %+v", p)
	}
	*now = now.Add(time.Hour)
	c.Get("alice")
	if svc.calls != 1 {
		t.Errorf("expected 1 fetch within TTL, got %d", svc.calls)
	}

	*now = now.Add(72 * time.Hour)
	c.Get("alice")
	if svc.calls != 2 {
		t.Errorf("expected refetch after TTL, got %d calls", svc.calls)
	}
}

func TestGet_ThrottlesStaleRefetch(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("boom")}
	c, now := newTestCache(svc)

	c.Get("bob")
	c.Get("bob")
	if svc.calls != 1 {
		t.Errorf("expected throttle to suppress second fetch, got %d calls", svc.calls)
	}

	*now = now.Add(31 * time.Second)
	c.Get("bob")
	if svc.calls != 2 {
		t.Errorf("expected refetch after throttle window, got %d calls", svc.calls)
	}
}

func TestGet_NegativeResultCached(t *testing.T) {
	svc := &fakeService{profiles: map[string]*model.Profile{}}
	c, now := newTestCache(svc)

	if p := c.Get("ghost"); p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}
	*now = now.Add(time.Minute)
	c.Get("ghost")
	c.Get("ghost")
	if svc.calls != 1 {
		t.Errorf("negative result should be cached under TTL, got %d calls", svc.calls)
	}
}

func TestGet_FailureKeepsLastValue(t *testing.T) {
	svc := &fakeService{profiles: map[string]*model.Profile{
		"carol": {Account: "carol", DisplayName: "Carol"},
	}}
	c, now := newTestCache(svc)

	c.Get("carol")
	*now = now.Add(80 * time.Hour) // expire TTL
	svc.err = fmt.Errorf("network down")
	if p := c.Get("carol"); p == nil || p.DisplayName != "Carol" {
		t.Errorf("expected stale value on fetch failure, got %+v", p)
	}
}

// gatedService blocks every fetch until the gate opens, signalling started
// once per call.
type gatedService struct {
	fakeService
	started chan struct{}
	gate    chan struct{}
}

func (g *gatedService) GetProfile(account string) (*model.Profile, error) {
	select {
	case g.started <- struct{}{}:
	default:
	}
	<-g.gate
	return g.fakeService.GetProfile(account)
}

func TestGet_SlowFetchDoesNotBlockOtherAccounts(t *testing.T) {
	svc := &gatedService{
		fakeService: fakeService{profiles: map[string]*model.Profile{
			"alice": {Account: "alice", DisplayName: "Alice"},
		}},
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	c := NewCache(svc, 72*time.Hour, 30*time.Second)
	c.entries["bob"] = &cacheEntry{
		profile:   &model.Profile{Account: "bob", DisplayName: "Bob"},
		fetchedAt: time.Now(),
	}

	done := make(chan struct{})
	go func() {
		c.Get("alice")
		close(done)
	}()
	<-svc.started

	got := make(chan *model.Profile, 1)
	go func() { got <- c.Get("bob") }()
	select {
	case p := <-got:
		if p == nil || p.DisplayName != "Bob" {
			t.Fatalf("expected cached Bob, got %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("cached lookup waited behind an in-flight fetch")
	}

	close(svc.gate)
	<-done
	if p := c.Get("alice"); p == nil || p.DisplayName != "Alice" {
		t.Errorf("expected Alice after fetch completed, got %+v", p)
	}
}

func TestGet_NilService(t *testing.T) {
	c, _ := newTestCache(nil)
	if p := c.Get("anyone"); p != nil {
		t.Errorf("expected nil with no service, got %+v", p)
	}
}

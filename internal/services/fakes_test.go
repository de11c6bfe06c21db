package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/icedoutskay/grainlify/internal/config"
	"github.com/icedoutskay/grainlify/internal/events"
	"github.com/icedoutskay/grainlify/internal/repositories/memory"
	"go.uber.org/zap"
)

// fakeClock returns a settable unix timestamp.
type fakeClock struct {
	now int64
}

func (c *fakeClock) Now() int64 { return c.now }

// fakeTokenClient records transfers against in-memory balances.
type fakeTokenClient struct {
	mu        sync.Mutex
	balances  map[string]int64
	transfers []fakeTransfer
	failNext  bool
}

type fakeTransfer struct {
	from, to string
	amount   int64
}

func newFakeTokenClient() *fakeTokenClient {
	return &fakeTokenClient{balances: make(map[string]int64)}
}

func (c *fakeTokenClient) Transfer(ctx context.Context, from, to string, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		c.failNext = false
		return fmt.Errorf("transfer rejected")
	}
	c.balances[from] -= amount
	c.balances[to] += amount
	c.transfers = append(c.transfers, fakeTransfer{from: from, to: to, amount: amount})
	return nil
}

func (c *fakeTokenClient) BalanceOf(ctx context.Context, account string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[account], nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// env bundles everything a service test needs.
type env struct {
	store     *memory.Store
	token     *fakeTokenClient
	publisher *recordingPublisher
	clock     *fakeClock
	cfg       *config.Config

	escrow   *EscrowService
	schedule *ScheduleService
	program  *ProgramService
}

const (
	testAdmin     = "EQAdminAddress"
	testDepositor = "EQDepositorAddress"
	testCustody   = "EQCustodyWallet"
	testToken     = "EQTokenContract"
)

func newEnv() *env {
	store := memory.NewStore()
	token := newFakeTokenClient()
	publisher := &recordingPublisher{}
	clock := &fakeClock{now: 1_000_000}
	cfg := &config.Config{
		CustodyWalletAddress: testCustody,
		SchedulerPrincipal:   "scheduler",
	}
	log := zap.NewNop()

	return &env{
		store:     store,
		token:     token,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		escrow: NewEscrowService(store, store.Escrows(), store.Audit(),
			token, publisher, clock, cfg, log),
		schedule: NewScheduleService(store, store.Escrows(), store.Schedules(), store.Audit(),
			token, publisher, clock, cfg, log),
		program: NewProgramService(store.Programs(), store.Audit(),
			token, publisher, clock, cfg, log),
	}
}

// initEscrow initializes the config singleton, failing the caller on error.
func (e *env) mustInit(t interface{ Fatalf(string, ...any) }) {
	if err := e.escrow.Init(context.Background(), testAdmin, testToken); err != nil {
		t.Fatalf("init: %v", err)
	}
}

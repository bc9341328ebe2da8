package coordinator

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"JackpotWheel/internal/degen"
	"JackpotWheel/internal/entries"
	"JackpotWheel/internal/ledger"
	"JackpotWheel/internal/model"
	"JackpotWheel/internal/notifier"
	"JackpotWheel/internal/optimistic"
	"JackpotWheel/internal/poller"
	"JackpotWheel/internal/profile"
	"JackpotWheel/internal/recorder"
	"JackpotWheel/internal/server"
	"JackpotWheel/internal/wheel"
)

const defaultTick = 500 * time.Millisecond

// Options bundles the coordinator's collaborators.
type Options struct {
	Client    ledger.Client
	Poller    *poller.Poller
	Entries   *entries.Cache
	Profiles  *profile.Cache
	Recorder  recorder.Recorder
	Notifier  *notifier.TelegramNotifier
	Analyzer  *degen.Analyzer
	Wheel     wheel.Config
	Account   string
	TickEvery time.Duration
}

// Coordinator is the single consumer of poller events and the only writer to
// the wheel machine. One goroutine processes events and the presentation
// tick, so settlements for a round are handled exactly once and in order.
type Coordinator struct {
	ctx        context.Context
	client     ledger.Client
	poller     *poller.Poller
	entries    *entries.Cache
	profiles   *profile.Cache
	reconciler *optimistic.Reconciler
	machine    *wheel.Machine
	analyzer   *degen.Analyzer
	recorder   recorder.Recorder
	notifier   *notifier.TelegramNotifier
	cron       *cron.Cron
	account    string
	tickEvery  time.Duration

	refreshing atomic.Bool

	mu           sync.Mutex
	settledToday int
	deferred     []deferredRound
}

// deferredRound is a paid round whose entry list was unavailable at
// settlement; analytics are retried on later refreshes.
type deferredRound struct {
	round    *model.Round
	attempts int
}

// maxAnalyticsAttempts bounds retries for a deferred round before it is
// recorded without its entries.
const maxAnalyticsAttempts = 10

// New wires a coordinator. The wheel machine is owned here; its round-done
// callback purges the settled round's entries so memory does not grow with
// round history.
func New(ctx context.Context, opts Options) *Coordinator {
	c := &Coordinator{
		ctx:        ctx,
		client:     opts.Client,
		poller:     opts.Poller,
		entries:    opts.Entries,
		profiles:   opts.Profiles,
		reconciler: optimistic.NewReconciler(),
		analyzer:   opts.Analyzer,
		recorder:   opts.Recorder,
		notifier:   opts.Notifier,
		cron:       cron.New(cron.WithSeconds()),
		account:    opts.Account,
		tickEvery:  opts.TickEvery,
	}
	if c.tickEvery <= 0 {
		c.tickEvery = defaultTick
	}
	c.machine = wheel.NewMachine(opts.Wheel, c.onRoundDone)
	return c
}

// RegisterJobs installs the scheduled tasks: window housekeeping and the
// daily summary message.
func (c *Coordinator) RegisterJobs(housekeepCron, summaryCron string) error {
	if _, err := c.cron.AddFunc(housekeepCron, func() {
		c.analyzer.Housekeep()
		log.Println("[INFO] degen housekeeping ran")
	}); err != nil {
		return fmt.Errorf("register housekeeping: %w", err)
	}
	if _, err := c.cron.AddFunc(summaryCron, c.dailySummary); err != nil {
		return fmt.Errorf("register daily summary: %w", err)
	}
	return nil
}

// Start launches the cron jobs.
func (c *Coordinator) Start() {
	c.cron.Start()
	log.Println("[INFO] coordinator jobs started")
}

// Stop stops the cron jobs.
func (c *Coordinator) Stop() {
	c.cron.Stop()
	log.Println("[INFO] coordinator jobs stopped")
}

// Run consumes poller events and drives the presentation tick until the
// context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] coordinator stopped")
			return
		case ev := <-c.poller.Events():
			c.handleEvent(ev)
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Coordinator) handleEvent(ev poller.Event) {
	switch ev.Type {
	case poller.RoundBecameActive:
		log.Printf("[INFO] round %d is now active", ev.Round.ID)
		// Pending submits belong to the old round now; drop them.
		c.reconciler.Reset()
		c.tick()
	case poller.RoundSettled:
		// Settlement fetches the entry list over the network; run it off the
		// event loop so a slow ledger cannot stall ticks. The machine,
		// analyzer and recorder are internally locked and replay-safe.
		go c.settle(ev.Round)
	}
}

// settle processes one settled round: record, analyze, spin, announce.
func (c *Coordinator) settle(round *model.Round) {
	log.Printf("[INFO] round %d settled: status=%s winner=%s prize=%.4f",
		round.ID, round.Status, round.Winner, round.Prize)

	c.mu.Lock()
	c.settledToday++
	c.mu.Unlock()

	ents := c.entries.Get(round.ID, round.EntriesCount)
	if round.Status == model.RoundPaid && round.PotTotal > 0 && len(ents) == 0 {
		log.Printf("[WARN] entries for paid round %d unavailable, deferring analytics", round.ID)
		c.mu.Lock()
		c.deferred = append(c.deferred, deferredRound{round: round})
		c.mu.Unlock()
	} else {
		c.recordAndAnalyze(round, ents)
	}

	if round.Winner != "" {
		winnerName := c.displayName(round.Winner)
		c.machine.StartSpin(round, c.tilesFor(ents))
		var stake float64
		for _, e := range ents {
			if e.Player == round.Winner {
				stake += e.Amount
			}
		}
		c.notify(notifier.FormatSettlement(round, winnerName, stake))
	} else {
		// Cancelled round: nothing to present, just drop its cache.
		c.entries.Purge(round.ID)
	}
}

// recordAndAnalyze feeds one settled round through the analyzer and the
// recorder, announcing a new degen record if one was set.
func (c *Coordinator) recordAndAnalyze(round *model.Round, ents []model.Entry) {
	becameRecord := c.analyzer.ProcessSettledRound(round, ents)

	if err := c.recorder.RecordSettledRound(round, ents); err != nil {
		log.Printf("[ERROR] record settled round %d: %v", round.ID, err)
	}

	if becameRecord {
		rec := c.analyzer.Record()
		if rec.Current != nil {
			if err := c.recorder.RecordDegenUpdate(rec.Current); err != nil {
				log.Printf("[ERROR] record degen update: %v", err)
			}
			c.notify(notifier.FormatDegenRecord(rec.Current, c.displayName(rec.Current.Account)))
		}
	}
}

// retryDeferred re-runs analytics for rounds whose entries were missing at
// settlement. Runs on the background refresh goroutine, never on the event
// loop. A round that stays empty past the attempt cap is recorded as-is so
// the ledger row exists even without its entry list.
func (c *Coordinator) retryDeferred() {
	c.mu.Lock()
	pending := c.deferred
	c.deferred = nil
	c.mu.Unlock()

	for _, d := range pending {
		ents := c.entries.Get(d.round.ID, d.round.EntriesCount)
		if len(ents) == 0 {
			d.attempts++
			if d.attempts < maxAnalyticsAttempts {
				c.mu.Lock()
				c.deferred = append(c.deferred, d)
				c.mu.Unlock()
				continue
			}
			log.Printf("[ERROR] entries for paid round %d never arrived after %d attempts, recording without them",
				d.round.ID, d.attempts)
		}
		c.recordAndAnalyze(d.round, ents)
	}
}

// tick advances the wheel and kicks off a tile refresh from the latest
// snapshot. The refresh touches the network, so it runs on its own
// goroutine; at most one is in flight, and the tick itself never waits.
func (c *Coordinator) tick() {
	c.machine.Advance()

	snap := c.poller.Snapshot()
	if snap.Generation == 0 {
		return
	}
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.refreshing.Store(false)
		c.retryDeferred()
		c.refreshTiles(snap)
	}()
}

// refreshTiles rebuilds the machine's tile list for the active round.
func (c *Coordinator) refreshTiles(snap model.RoundSnapshot) {
	active := snap.Active
	ents := c.entries.Get(active.ID, active.EntriesCount)

	if confirmed := c.reconciler.Reconcile(ents); len(confirmed) > 0 {
		log.Printf("[INFO] %d optimistic entries confirmed", len(confirmed))
		// Force a refetch next tick so the list reflects the ledger's view.
		c.entries.Invalidate(active.ID)
	}

	// Optimistic tiles lead the list so a fresh submission is visible at the
	// head before the ledger confirms it.
	tiles := append(c.reconciler.Tiles(), c.tilesFor(ents)...)
	c.machine.SetEntries(&active, tiles)
}

// tilesFor turns authoritative entries into display tiles, enriched with
// cached profiles.
func (c *Coordinator) tilesFor(ents []model.Entry) []model.Tile {
	tiles := make([]model.Tile, 0, len(ents))
	for _, e := range ents {
		t := model.Tile{
			Key:     fmt.Sprintf("entry-%d-%d", e.RoundID, e.Index),
			Account: e.Player,
			Amount:  e.Amount,
		}
		if p := c.profiles.Get(e.Player); p != nil {
			t.DisplayName = p.DisplayName
			t.AvatarURL = p.AvatarURL
		}
		tiles = append(tiles, t)
	}
	return tiles
}

// onRoundDone runs when the wheel returns to ACTIVE after presenting a
// settled round. Invoked under the machine lock, so it only touches caches.
func (c *Coordinator) onRoundDone(roundID int64) {
	log.Printf("[INFO] presentation for round %d finished, purging caches", roundID)
	c.entries.Purge(roundID)
}

// Submit places an optimistic entry and submits it to the ledger in the
// background, returning the pending id. The tile shows immediately; a failed
// submit removes it.
func (c *Coordinator) Submit(amount float64) (string, error) {
	if c.account == "" {
		return "", fmt.Errorf("no player account configured")
	}
	if amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}
	pendingID := c.reconciler.Submit(c.account, amount)
	go func() {
		if err := c.client.SubmitEntry(amount, uuid.NewString()); err != nil {
			log.Printf("[WARN] entry submit failed, removing optimistic tile: %v", err)
			c.reconciler.Fail(pendingID)
		}
	}()
	return pendingID, nil
}

// CurrentTiles returns the tiles the wheel is presenting right now.
func (c *Coordinator) CurrentTiles() []model.Tile {
	return c.machine.Tiles()
}

// CurrentPhase returns the wheel's presentation phase.
func (c *Coordinator) CurrentPhase() wheel.Phase {
	return c.machine.Phase()
}

// DegenOfDay returns a copy of the current degen record.
func (c *Coordinator) DegenOfDay() *model.DegenRecord {
	return c.analyzer.Record()
}

// WheelState implements server.StateProvider.
func (c *Coordinator) WheelState() server.WheelState {
	snap := c.poller.Snapshot()
	state := server.WheelState{
		Phase:     string(c.machine.Phase()),
		Tiles:     c.machine.Tiles(),
		StopIndex: c.machine.StopIndex(),
		Snapshot:  time.Now(),
	}
	switch id := c.machine.DisplayRound(); {
	case snap.Generation == 0:
	case id == snap.Active.ID:
		active := snap.Active
		state.Round = &active
	case snap.Previous != nil && snap.Previous.ID == id:
		state.Round = snap.Previous
	}
	if rec := c.analyzer.Record(); rec != nil {
		state.Degen = rec.Current
	}
	return state
}

// HandleCommand processes a chat command and returns a reply.
func (c *Coordinator) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return commandHelp
	}
	switch fields[0] {
	case "/round":
		return notifier.FormatRoundStatus(c.poller.Snapshot(), string(c.machine.Phase()))
	case "/degen":
		return notifier.FormatDegenStatus(c.analyzer.Record())
	case "/phase":
		return fmt.Sprintf("Wheel phase: %s (round #%d)", c.machine.Phase(), c.machine.DisplayRound())
	case "/bet":
		return c.handleBet(fields)
	default:
		return commandHelp
	}
}

const commandHelp = "Commands:\n• /round\n• /degen\n• /phase\n• /bet <amount>"

func (c *Coordinator) handleBet(fields []string) string {
	if len(fields) != 2 {
		return "Usage: /bet <amount>"
	}
	amount, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return "Usage: /bet <amount>"
	}
	id, err := c.Submit(amount)
	if err != nil {
		return fmt.Sprintf("Bet rejected: %v", err)
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("Entry of %.4f ◎ submitted (ref %s)", amount, id)
}

func (c *Coordinator) dailySummary() {
	c.mu.Lock()
	count := c.settledToday
	c.settledToday = 0
	c.mu.Unlock()
	c.notify(notifier.FormatDailySummary(c.analyzer.Record(), count))
}

func (c *Coordinator) displayName(account string) string {
	if p := c.profiles.Get(account); p != nil {
		return p.DisplayName
	}
	return ""
}

func (c *Coordinator) notify(text string) {
	if c.notifier == nil {
		return
	}
	go func() {
		if err := c.notifier.SendWithRetry(c.ctx, text, 3); err != nil {
			log.Printf("[ERROR] send notification: %v", err)
		}
	}()
}

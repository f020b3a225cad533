// Package pipeline runs polling cycles: fetch one feed, normalize its records,
// and alert every eligible subscriber at most once per event.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rajasatyajit/QuakeAlert/config"
	"github.com/rajasatyajit/QuakeAlert/internal/classifier"
	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
	"github.com/rajasatyajit/QuakeAlert/internal/guard"
	"github.com/rajasatyajit/QuakeAlert/internal/logger"
	"github.com/rajasatyajit/QuakeAlert/internal/metrics"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
	"github.com/rajasatyajit/QuakeAlert/internal/publisher"
	"github.com/rajasatyajit/QuakeAlert/internal/push"
	"github.com/rajasatyajit/QuakeAlert/internal/seismic"
)

// SubscriberStore is the subscriber read side used by a cycle
type SubscriberStore interface {
	ListSubscribers(ctx context.Context) ([]models.Subscriber, error)
	GetPreference(ctx context.Context, token string) (models.Preference, error)
}

// Ledger records delivered alerts
type Ledger interface {
	Exists(ctx context.Context, eventID, token string) (bool, error)
	Record(ctx context.Context, rec models.NotificationRecord) error
}

// Classifier decides eligibility for one (quake, subscriber) pair
type Classifier interface {
	Classify(q models.Quake, s models.Subscriber) classifier.Decision
}

// Status is the per-subscriber result of one event fan-out.
type Status string

const (
	StatusDelivered       Status = "delivered"
	StatusFiltered        Status = "filtered"
	StatusAlreadyNotified Status = "already_notified"
	StatusIneligible      Status = "ineligible"
	StatusFailed          Status = "failed"
)

// Outcome is what happened to one subscriber for one event.
type Outcome struct {
	Token      string
	Status     Status
	Reason     models.Reason
	DistanceKm float64
	Err        error
}

// Dependencies are the collaborators a Pipeline needs. Publisher, Guard and
// Clock are optional.
type Dependencies struct {
	Adapters    map[models.Source]seismic.Adapter
	Subscribers SubscriberStore
	Ledger      Ledger
	Classifier  Classifier
	Sender      push.Sender
	Publisher   publisher.Publisher
	Guard       guard.Guard
	Clock       clockwork.Clock
}

// Pipeline coordinates fetching, eligibility and concurrent delivery
type Pipeline struct {
	adapters    map[models.Source]seismic.Adapter
	subscribers SubscriberStore
	ledger      Ledger
	classifier  Classifier
	sender      push.Sender
	publisher   publisher.Publisher
	guard       guard.Guard
	clock       clockwork.Clock
	window      time.Duration
	cfg         config.DispatchConfig
	sem         *semaphore.Weighted
	publishes   sync.WaitGroup
	mu          sync.RWMutex
	running     bool
}

const defaultPublishTimeout = 5 * time.Second

// New creates a new pipeline instance. The worker semaphore is shared by all
// sources, so concurrent cycles together never exceed cfg.WorkerCount sends.
func New(deps Dependencies, window time.Duration, cfg config.DispatchConfig) *Pipeline {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	p := &Pipeline{
		adapters:    deps.Adapters,
		subscribers: deps.Subscribers,
		ledger:      deps.Ledger,
		classifier:  deps.Classifier,
		sender:      deps.Sender,
		publisher:   deps.Publisher,
		guard:       deps.Guard,
		clock:       deps.Clock,
		window:      window,
		cfg:         cfg,
		sem:         semaphore.NewWeighted(int64(cfg.WorkerCount)),
	}
	if p.publisher == nil {
		p.publisher = publisher.NoOp{}
	}
	if p.guard == nil {
		p.guard = guard.NewLocalGuard()
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}

	logger.Info("Pipeline initialized",
		"sources", len(p.adapters),
		"window", window,
		"workers", cfg.WorkerCount,
	)

	return p
}

// RunCycle executes one polling cycle for sourceKey.
//
// The returned result is always populated. A non-nil error accompanies it for
// an unknown source (errors.ErrUnknownSource), a cycle skipped because the
// previous one for the same source is still running (errors.ErrCycleInFlight),
// a feed failure (errors.FetchError) and a subscriber load failure.
func (p *Pipeline) RunCycle(ctx context.Context, sourceKey string) (models.CycleResult, error) {
	src, err := models.ParseSource(sourceKey)
	if err != nil {
		return models.CycleResult{
			Success: false,
			Message: fmt.Sprintf("unknown source %q", sourceKey),
			Error:   apperrors.ErrUnknownSource.Error(),
		}, fmt.Errorf("%w: %s", apperrors.ErrUnknownSource, sourceKey)
	}
	adapter, ok := p.adapters[src]
	if !ok {
		return models.CycleResult{
			Success: false,
			Source:  src,
			Message: fmt.Sprintf("source %s is not configured", src),
			Error:   apperrors.ErrUnknownSource.Error(),
		}, fmt.Errorf("%w: %s", apperrors.ErrUnknownSource, src)
	}

	release, err := p.guard.TryAcquire(ctx, string(src))
	switch {
	case errors.Is(err, apperrors.ErrCycleInFlight):
		metrics.RecordCycle(string(src), "skipped", 0)
		return models.CycleResult{
			Success: false,
			Source:  src,
			Message: fmt.Sprintf("%s: previous cycle still running, skipped", src),
			Error:   err.Error(),
		}, err
	case err != nil:
		logger.Warn("Cycle guard unavailable, continuing without it", "source", src, "error", err)
	default:
		defer release()
	}

	if p.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CycleTimeout)
		defer cancel()
	}

	c := &cycle{
		p:       p,
		adapter: adapter,
		source:  src,
		id:      uuid.NewString(),
		started: p.clock.Now(),
	}
	c.log = logger.With("cycle_id", c.id, "source", string(src))

	result, err := c.run(ctx)
	result.CycleID = c.id

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	metrics.RecordCycle(string(src), outcome, p.clock.Since(c.started))
	c.log.Info("Cycle finished",
		"success", result.Success,
		"events_found", result.TotalEventsFound,
		"events_with_deliveries", result.EventsWithDeliveries,
		"delivered", result.TotalDelivered,
		"duration_ms", p.clock.Since(c.started).Milliseconds(),
	)

	return result, err
}

// IsRunning returns whether the scheduler is currently running
func (p *Pipeline) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// cycle carries the state of one RunCycle invocation.
type cycle struct {
	p       *Pipeline
	adapter seismic.Adapter
	source  models.Source
	id      string
	started time.Time
	log     *slog.Logger
}

func (c *cycle) run(ctx context.Context) (models.CycleResult, error) {
	result := models.CycleResult{Source: c.source}
	name := c.source.DisplayName()

	// FETCHING
	end := c.p.clock.Now()
	q := c.adapter.BuildQuery(end.Add(-c.p.window), end)
	body, err := c.adapter.Fetch(ctx, q)
	if err != nil {
		metrics.RecordFetchError(string(c.source))
		ferr := apperrors.FetchError{Source: string(c.source), Err: err}
		c.log.Error("Feed fetch failed", "url", q.URL, "error", err)
		result.Message = fmt.Sprintf("%s: feed request failed", name)
		result.Error = ferr.Error()
		return result, ferr
	}

	// NORMALIZING
	raws := c.adapter.ExtractList(body)
	quakes := make([]models.Quake, 0, len(raws))
	for i, raw := range raws {
		quake, err := c.adapter.Normalize(raw)
		if err != nil {
			c.log.Warn("Skipping malformed record", "index", i, "error", err)
			continue
		}
		quakes = append(quakes, quake)
	}
	result.TotalEventsFound = len(quakes)
	metrics.RecordEventsFound(string(c.source), len(quakes))

	if len(quakes) == 0 {
		result.Success = true
		result.Message = fmt.Sprintf("%s: no events found in the last %s", name, c.p.window)
		return result, nil
	}

	c.p.publishInBackground(ctx, c.log, quakes)

	// LOADING_SUBSCRIBERS
	subs, err := c.p.subscribers.ListSubscribers(ctx)
	if err != nil {
		c.log.Error("Loading subscribers failed", "error", err)
		result.Message = fmt.Sprintf("%s: could not load subscribers", name)
		result.Error = err.Error()
		return result, fmt.Errorf("load subscribers: %w", err)
	}
	if len(subs) == 0 {
		c.log.Warn("No subscribers registered")
		result.Success = true
		result.Message = fmt.Sprintf("%s: no subscribers registered", name)
		return result, nil
	}
	subs = c.resolvePreferences(ctx, subs)

	// FANNING_OUT, one event at a time
	processed := 0
	for _, quake := range quakes {
		if ctx.Err() != nil {
			c.log.Warn("Cycle deadline reached", "processed", processed, "remaining", len(quakes)-processed)
			break
		}
		outcomes := c.p.DispatchEvent(ctx, quake, subs)
		processed++

		delivered := 0
		for _, o := range outcomes {
			if o.Status == StatusDelivered {
				delivered++
			}
		}
		if delivered > 0 {
			result.EventsWithDeliveries++
			result.TotalDelivered += delivered
			c.log.Info("Event delivered",
				"event_id", quake.ID,
				"location", quake.Location,
				"magnitude", quake.Magnitude,
				"delivered", delivered,
			)
		}
	}

	// AGGREGATING
	result.Success = true
	result.Message = fmt.Sprintf("%s: %d events processed, %d notifications sent",
		name, result.EventsWithDeliveries, result.TotalDelivered)
	if processed < len(quakes) {
		result.Message += fmt.Sprintf(" (stopped after %d of %d events)", processed, len(quakes))
		result.Error = apperrors.ErrTimeout.Error()
	}
	return result, nil
}

// publishInBackground hands quakes to the event stream without holding up
// delivery. The write gets its own deadline and outlives the cycle context.
func (p *Pipeline) publishInBackground(ctx context.Context, log *slog.Logger, quakes []models.Quake) {
	timeout := p.cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	p.publishes.Add(1)
	go func() {
		defer p.publishes.Done()
		defer cancel()
		if err := p.publisher.PublishQuakes(pctx, quakes); err != nil {
			log.Warn("Publishing events failed", "count", len(quakes), "error", err)
		}
	}()
}

// WaitPublishes blocks until every background publish has returned.
func (p *Pipeline) WaitPublishes() {
	p.publishes.Wait()
}

// resolvePreferences looks up each token's source preference at most once
// per cycle. A failed lookup is treated as no preference.
func (c *cycle) resolvePreferences(ctx context.Context, subs []models.Subscriber) []models.Subscriber {
	resolved := make([]models.Subscriber, len(subs))
	copy(resolved, subs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.p.cfg.WorkerCount)
	for i := range resolved {
		s := &resolved[i]
		if s.SelectedSource != nil {
			continue
		}
		g.Go(func() error {
			pref, err := c.p.subscribers.GetPreference(gctx, s.Token)
			if err != nil {
				c.log.Debug("Preference lookup failed, assuming none", "error", err)
				return nil
			}
			s.SelectedSource = pref.SelectedSource
			return nil
		})
	}
	_ = g.Wait()

	return resolved
}

// DispatchEvent fans one event out to subs and joins every per-subscriber
// outcome before returning. outcomes[i] belongs to subs[i].
func (p *Pipeline) DispatchEvent(ctx context.Context, q models.Quake, subs []models.Subscriber) []Outcome {
	outcomes := make([]Outcome, len(subs))
	var wg sync.WaitGroup

	for i, s := range subs {
		if s.Token == "" || !s.Accepts(q.Source) {
			outcomes[i] = Outcome{Token: s.Token, Status: StatusFiltered}
			continue
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = Outcome{Token: s.Token, Status: StatusFailed, Err: err}
			continue
		}

		wg.Add(1)
		go func(i int, s models.Subscriber) {
			defer wg.Done()
			defer p.sem.Release(1)
			outcomes[i] = p.deliver(ctx, q, s)
		}(i, s)
	}

	wg.Wait()
	return outcomes
}

// deliver runs ledger check, eligibility, send and ledger write for one
// subscriber. The ledger is only written after the transport accepts the send.
func (p *Pipeline) deliver(ctx context.Context, q models.Quake, s models.Subscriber) (out Outcome) {
	out.Token = s.Token
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Token: s.Token, Status: StatusFailed, Err: fmt.Errorf("panic during delivery: %v", r)}
			logger.Error("Recovered from delivery panic", "event_id", q.ID, "panic", r)
		}
	}()

	exists, err := p.ledger.Exists(ctx, q.ID, s.Token)
	if err != nil {
		out.Status, out.Err = StatusFailed, err
		logger.Warn("Ledger lookup failed", "event_id", q.ID, "error", err)
		return out
	}
	if exists {
		out.Status = StatusAlreadyNotified
		return out
	}

	decision := p.classifier.Classify(q, s)
	if !decision.Eligible {
		out.Status = StatusIneligible
		return out
	}
	out.Reason, out.DistanceKm = decision.Reason, decision.DistanceKm

	msg := push.BuildMessage(q, s.Token, decision.Reason, decision.DistanceKm)
	if err := p.sender.Send(ctx, msg); err != nil {
		metrics.RecordDelivery(string(q.Source), string(decision.Reason), "failed")
		out.Status, out.Err = StatusFailed, err
		logger.Warn("Push delivery failed", "event_id", q.ID, "source", q.Source, "error", err)
		return out
	}
	metrics.RecordDelivery(string(q.Source), string(decision.Reason), "sent")
	out.Status = StatusDelivered

	rec := models.NotificationRecord{
		EventID:    q.ID,
		Token:      s.Token,
		Location:   q.Location,
		Magnitude:  q.Magnitude,
		DistanceKm: decision.DistanceKm,
		OccurredAt: q.OccurredAt,
		Source:     q.Source,
		Reason:     decision.Reason,
		SentAt:     p.clock.Now().UTC(),
	}
	// The send already happened, so a failed write still counts as delivered.
	if err := p.ledger.Record(context.WithoutCancel(ctx), rec); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Debug("Ledger entry already present", "event_id", q.ID)
		} else {
			logger.Error("Recording notification failed", "event_id", q.ID, "error", err)
		}
	}

	return out
}

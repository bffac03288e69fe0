package query

import (
	"context"
	"sync"
	"time"

	"reader-go/internal/model"
	"reader-go/internal/service/lookup"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultTimeout = 10 * time.Second

// PhraseSource is the owner of the phrase list. ApplyQuery must only apply
// the result when a phrase with phraseID still exists and report whether it
// did. A nil query advances PreviousText without recording a round.
type PhraseSource interface {
	Phrases() []model.Phrase
	ApplyQuery(phraseID, text string, q *model.DictionaryQuery) bool
}

// Orchestrator looks up the words each phrase gained since its last round.
// At most one round per phrase is in flight, and the text a round applied
// is remembered per phrase id so a pass working from an older phrase list
// does not repeat it.
type Orchestrator struct {
	source  PhraseSource
	dict    lookup.Dictionary
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	applied  map[string]string
	wg       sync.WaitGroup
}

func NewOrchestrator(source PhraseSource, dict lookup.Dictionary, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{
		source:   source,
		dict:     dict,
		timeout:  timeout,
		logger:   logger,
		inflight: make(map[string]struct{}),
		applied:  make(map[string]string),
	}
}

// Pass starts a round for every phrase with unqueried words and returns the
// number of rounds started.
func (o *Orchestrator) Pass(ctx context.Context) int {
	started := 0
	phrases := o.source.Phrases()
	o.prune(phrases)
	for _, p := range phrases {
		if !p.Pending() || !o.acquire(p.ID, p.Text) {
			continue
		}

		delta := Delta(p.PreviousText, p.Text)
		if delta == "" {
			o.source.ApplyQuery(p.ID, p.Text, nil)
			o.release(p.ID, p.Text)
			continue
		}

		started++
		o.wg.Add(1)
		go o.round(ctx, p, delta)
	}
	return started
}

// Run performs a pass whenever changes fires, and every retryEvery so that
// failed rounds are retried. It returns when ctx is done; in-flight rounds
// are not waited for.
func (o *Orchestrator) Run(ctx context.Context, changes <-chan struct{}, retryEvery time.Duration) {
	var tick <-chan time.Time
	if retryEvery > 0 {
		ticker := time.NewTicker(retryEvery)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			o.Pass(ctx)
		case <-tick:
			o.Pass(ctx)
		}
	}
}

// Wait blocks until all started rounds have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) round(ctx context.Context, p model.Phrase, delta string) {
	defer o.wg.Done()
	applied := ""
	defer func() { o.release(p.ID, applied) }()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var (
		entries []model.DictionaryEntry
		seen    []model.SeenContentOccurrence
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = o.dict.LookupDictionary(gctx, delta, p.Context)
		return err
	})
	g.Go(func() error {
		var err error
		seen, err = o.dict.LookupSeenContent(gctx, delta)
		return err
	})
	if err := g.Wait(); err != nil {
		o.logger.Warn("Phrase lookup failed, will retry",
			zap.String("phrase_id", p.ID),
			zap.String("query", delta),
			zap.Error(err))
		return
	}

	q := &model.DictionaryQuery{Query: delta, Entries: entries, SeenContent: seen}
	if !o.source.ApplyQuery(p.ID, p.Text, q) {
		o.logger.Debug("Discarding lookup for removed phrase",
			zap.String("phrase_id", p.ID),
			zap.String("query", delta))
		return
	}
	applied = p.Text
	o.logger.Info("Phrase lookup completed",
		zap.String("phrase_id", p.ID),
		zap.String("query", delta),
		zap.Int("entries", len(entries)),
		zap.Int("seen_content", len(seen)))
}

func (o *Orchestrator) acquire(id, text string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[id]; busy {
		return false
	}
	if done, ok := o.applied[id]; ok && done == text {
		return false
	}
	o.inflight[id] = struct{}{}
	return true
}

// release ends the round for id. A non-empty text records what was applied.
func (o *Orchestrator) release(id, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, id)
	if text != "" {
		o.applied[id] = text
	}
}

func (o *Orchestrator) prune(phrases []model.Phrase) {
	live := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		live[p.ID] = struct{}{}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for id := range o.applied {
		if _, ok := live[id]; !ok {
			delete(o.applied, id)
		}
	}
}

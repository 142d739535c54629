// Package crawler implements the dual-queue worker pool (spec §4.6, C7):
// one worker per credential, first draining the time-slice queue (Queue-S)
// to discover repositories, then draining the repository queue (Queue-R)
// to fetch and index their content, grounded on the original's
// modules/search/worker.py SearchWorker.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/countpkg/internal/ghclient"
	"github.com/sevigo/countpkg/internal/model"
	"github.com/sevigo/countpkg/internal/planner"
	"github.com/sevigo/countpkg/internal/store"
	"github.com/sevigo/countpkg/internal/walker"
)

// WorkerStats is a point-in-time progress snapshot for one worker
// (SPEC_FULL.md "Progress reporting").
type WorkerStats struct {
	Name        string
	SlicesDone  int
	SlicesTotal int
	ReposDone   int
	ReposTotal  int
}

// WorkerError pairs a worker's name with a terminal error it raised,
// grounded on the original's exc_queue.
type WorkerError struct {
	Worker string
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("crawler: worker %q failed: %v", e.Worker, e.Err)
}

// SearchSpec is the fixed (non-time-slice) part of every repository
// search request (spec §6), grounded on SearchWorker's class-level
// `_keyword`/`_sort`/`_order`/`_qualifiers`/`_per_page`.
type SearchSpec struct {
	Keyword    string
	Sort       string
	Order      string
	PerPage    int
	Qualifiers map[string]string
}

// Pool is the dual-queue worker pool: N workers share Queue-S (time
// slices) and Queue-R (repository names), running until Stop is called
// or the context is canceled.
type Pool struct {
	store   *store.Store
	spec    SearchSpec
	slices  *planner.Queue[string]
	repos   *planner.Queue[string]
	logger  *slog.Logger
	running atomic.Bool

	mu      sync.Mutex
	workers map[string]*WorkerStats

	// searchDone is a barrier: every worker Adds one count before Run
	// starts them and Done's it exactly once, right after its own
	// searchRepos returns. No worker proceeds to retrieveFiles until every
	// sibling has stopped discovering repositories, so Queue-R's non-
	// blocking Get can never race a still-pending Put (spec §4.6).
	searchDone sync.WaitGroup

	errCh chan WorkerError
}

// New builds a Pool ready to Run with one worker per credential.
func New(st *store.Store, spec SearchSpec, timeSlices []string, logger *slog.Logger) *Pool {
	return &Pool{
		store:   st,
		spec:    spec,
		slices:  planner.NewQueue(timeSlices),
		repos:   planner.NewQueue[string](nil),
		logger:  logger,
		workers: map[string]*WorkerStats{},
		errCh:   make(chan WorkerError, 16),
	}
}

func (p *Pool) updateStats(name string, fn func(*WorkerStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.workers[name]; ok {
		fn(s)
	}
}

// Stats returns a snapshot of every worker's progress.
func (p *Pool) Stats() []WorkerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]WorkerStats, 0, len(p.workers))
	for _, s := range p.workers {
		out = append(out, *s)
	}
	return out
}

// QueueDepth reports Queue-S and Queue-R progress for dashboards.
func (p *Pool) QueueDepth() (slicesDone, slicesTotal, reposDone, reposTotal int) {
	slicesDone, slicesTotal = p.slices.Status()
	reposDone, reposTotal = p.repos.Status()
	return
}

// Run starts one worker per credential and blocks until every worker has
// drained both queues, ctx is canceled, or a worker reports a fatal error —
// whichever happens first. Once any worker's error arrives on errCh, the
// pool stops every other worker at its next checkpoint and Run returns that
// first error once all workers have unwound (spec §4.6/§7: "pool shuts
// down... error is re-raised by the caller-facing wait_until_finish
// operation"), grounded on the original's Crawl.raise_worker_exceptions.
func (p *Pool) Run(ctx context.Context, credentials []ghclient.Credential) error {
	p.running.Store(true)
	defer p.running.Store(false)

	var workers []*worker
	for _, cred := range credentials {
		w, err := p.newWorker(cred)
		if err != nil {
			p.logger.Error("failed to build worker", "worker", cred.Name(), "error", err)
			continue
		}
		workers = append(workers, w)
	}

	p.searchDone.Add(len(workers))

	var wg sync.WaitGroup
	wg.Add(len(workers))
	for _, w := range workers {
		go func(w *worker) {
			defer wg.Done()
			w.run(ctx)
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var firstErr error
	for {
		select {
		case werr := <-p.errCh:
			p.logger.Error("worker failed", "worker", werr.Worker, "error", werr.Err)
			if firstErr == nil {
				e := werr
				firstErr = &e
				p.Stop()
			}
		case <-done:
			return firstErr
		}
	}
}

// Stop signals every running worker to exit at its next checkpoint.
func (p *Pool) Stop() { p.running.Store(false) }

func (p *Pool) isRunning() bool { return p.running.Load() }

type worker struct {
	pool   *Pool
	name   string
	client *ghclient.Client
	walk   *walker.Walker
	stats  *WorkerStats
}

func (p *Pool) newWorker(cred ghclient.Credential) (*worker, error) {
	client, err := ghclient.New(cred, p.logger)
	if err != nil {
		return nil, err
	}
	stats := &WorkerStats{Name: cred.Name()}
	p.mu.Lock()
	p.workers[cred.Name()] = stats
	p.mu.Unlock()

	return &worker{
		pool:   p,
		name:   cred.Name(),
		client: client,
		walk:   walker.New(client),
		stats:  stats,
	}, nil
}

func (w *worker) run(ctx context.Context) {
	logger := w.pool.logger.With("worker", w.name)
	logger.Info("worker started")

	searchErr := w.searchRepos(ctx, logger)
	w.pool.searchDone.Done()
	if searchErr != nil {
		w.reportError(searchErr)
		return
	}

	// Wait for every sibling to finish draining Queue-S before touching
	// Queue-R: a worker that empties Queue-S early must not race ahead and
	// see a transiently-empty Queue-R before a slower sibling has Put the
	// repos it just discovered.
	w.pool.searchDone.Wait()

	if err := w.retrieveFiles(ctx, logger); err != nil {
		w.reportError(err)
		return
	}
	logger.Info("worker stopped")
}

func (w *worker) reportError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	select {
	case w.pool.errCh <- WorkerError{Worker: w.name, Err: err}:
	default:
	}
}

func (w *worker) searchRepos(ctx context.Context, logger *slog.Logger) error {
	for w.pool.isRunning() {
		slice, ok := w.pool.slices.Get()
		if !ok {
			return nil
		}
		if err := w.searchSlice(ctx, logger, slice); err != nil {
			return err
		}
		w.pool.slices.TaskDone()
		done, total := w.pool.slices.Status()
		w.pool.updateStats(w.name, func(s *WorkerStats) { s.SlicesDone, s.SlicesTotal = done, total })
	}
	return ctx.Err()
}

func (w *worker) searchSlice(ctx context.Context, logger *slog.Logger, timeSlice string) error {
	logger.Info("searching time slice", "slice", timeSlice)

	qualifiers := map[string]string{"created": timeSlice}
	for k, v := range w.pool.spec.Qualifiers {
		qualifiers[k] = v
	}

	page := 0
	for {
		if !w.pool.isRunning() {
			return ctx.Err()
		}
		result, err := w.client.SearchRepositories(ctx, ghclient.SearchParams{
			Keyword:    w.pool.spec.Keyword,
			Qualifiers: qualifiers,
			Sort:       w.pool.spec.Sort,
			Order:      w.pool.spec.Order,
			PerPage:    w.pool.spec.PerPage,
			Page:       page,
		})
		if err != nil {
			return err
		}

		for _, repo := range result.Repositories {
			if err := w.recordFoundRepo(ctx, logger, repo); err != nil {
				return err
			}
		}

		if !result.HasNext {
			return nil
		}
		page = result.NextPage
	}
}

func (w *worker) recordFoundRepo(ctx context.Context, logger *slog.Logger, repo *github.Repository) error {
	name := repo.GetFullName()
	exists, err := w.pool.store.Exists(ctx, "repo", name)
	if err != nil {
		return err
	}
	if exists {
		logger.Info("repository already known", "repo", name)
		return nil
	}
	logger.Info("repository found", "repo", name, "id", repo.GetID())

	newRepo := model.NewRepository(name)
	newRepo.SetID(repo.GetID())
	newRepo.SetURL(repo.GetURL())
	newRepo.SetContentsURL(repo.GetContentsURL())
	if err := w.pool.store.CommitChanges(ctx, newRepo.Record(), newRepo); err != nil {
		return err
	}

	w.pool.repos.Put(name)
	return nil
}

func (w *worker) retrieveFiles(ctx context.Context, logger *slog.Logger) error {
	logger.Info("retrieving repository contents")
	for w.pool.isRunning() {
		name, ok := w.pool.repos.Get()
		if !ok {
			return nil
		}
		if err := w.retrieveRepo(ctx, logger, name); err != nil {
			return err
		}
		w.pool.repos.TaskDone()
		done, total := w.pool.repos.Status()
		w.pool.updateStats(w.name, func(s *WorkerStats) { s.ReposDone, s.ReposTotal = done, total })
	}
	return ctx.Err()
}

func (w *worker) retrieveRepo(ctx context.Context, logger *slog.Logger, name string) error {
	repo := model.NewRepository(name)
	if err := w.pool.store.Load(ctx, repo.Record(), repo); err != nil {
		return err
	}

	if repo.Retrieved() {
		logger.Info("repository already retrieved", "repo", name)
		return nil
	}
	if repo.ContentsURL() == "" {
		logger.Info("repository has no contents url", "repo", name)
		return nil
	}

	logger.Info("retrieving repository", "repo", name)
	owner, repoName := splitFullName(name)

	added := false
	walkErr := w.walk.Walk(ctx, owner, repoName, func(entry ghclient.ContentEntry) error {
		if !model.ExpectsFile(entry.Path) {
			logger.Debug("skipping file", "path", entry.Path)
			return nil
		}
		content, err := w.walk.FetchContent(ctx, owner, repoName, entry)
		if err != nil {
			return err
		}
		if repo.AddFile(entry.Path, content) {
			added = true
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	if added {
		logger.Info("finding packages", "repo", name)
		refs := repo.FindPackageRefs()
		if err := w.commitPackageRefs(ctx, name, refs); err != nil {
			return err
		}
	} else {
		logger.Info("no expected files found", "repo", name)
	}

	repo.SetRetrieved(true)
	return w.pool.store.CommitChanges(ctx, repo.Record(), repo)
}

func splitFullName(name string) (owner, repo string) {
	owner, repo, _ = strings.Cut(name, "/")
	return owner, repo
}

func (w *worker) commitPackageRefs(ctx context.Context, repoName string, refs []model.PackageRef) error {
	for _, ref := range refs {
		pkg := model.NewPackage(ref.Name)
		if err := w.pool.store.Load(ctx, pkg.Record(), pkg); err != nil {
			return err
		}
		for _, path := range ref.Files {
			pkg.AddPyfile(repoName, path)
		}
		if ref.HasVersion {
			pkg.AddPkgver(repoName, ref.Version)
		}
		if err := w.pool.store.CommitChanges(ctx, pkg.Record(), pkg); err != nil {
			return err
		}
	}
	return nil
}

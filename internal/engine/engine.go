// Package engine installs, updates and removes the mod in a game directory.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/adamancini/ersc/internal/download"
	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/policy"
	"github.com/adamancini/ersc/internal/types"
)

// LockFile is the cross-process lock taken inside the game directory.
const LockFile = ".ersc.lock"

// Fetcher downloads and verifies an artifact.
type Fetcher interface {
	Fetch(ctx context.Context, req download.Request, dst string) error
}

// Snapshotter saves the protected files of a game directory before an
// install touches it and returns the snapshot id.
type Snapshotter interface {
	Snapshot(modDir string, paths []string, version, note string) (string, error)
}

// Options configures an Engine.
type Options struct {
	Downloader     Fetcher         // defaults to download.NewHTTPDownloader
	Cache          *download.Cache // optional, reused across installs
	Policy         *policy.Policy  // defaults to policy.Default
	Backups        Snapshotter     // optional
	ManagerVersion string          // recorded in the marker
	TempDir        string          // staging parent, defaults to os.TempDir
}

// Engine performs installs. It is safe for concurrent use; installs against
// the same root are serialized.
type Engine struct {
	downloader     Fetcher
	cache          *download.Cache
	policy         *policy.Policy
	backups        Snapshotter
	managerVersion string
	tempDir        string

	mu        sync.Mutex
	locks     map[string]chan struct{}
	observers []func(Event)

	// beforeWrite runs before each file write. Tests use it to inject faults.
	beforeWrite func(relPath string) error
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		downloader:     opts.Downloader,
		cache:          opts.Cache,
		policy:         opts.Policy,
		backups:        opts.Backups,
		managerVersion: opts.ManagerVersion,
		tempDir:        opts.TempDir,
		locks:          make(map[string]chan struct{}),
	}
	if e.downloader == nil {
		e.downloader = download.NewHTTPDownloader()
	}
	if e.policy == nil {
		e.policy = policy.Default()
	}
	return e
}

// Policy returns the protected-file policy in use.
func (e *Engine) Policy() *policy.Policy {
	return e.policy
}

// Observe registers fn to receive every phase transition. Callbacks run on
// the installing goroutine and must not block.
func (e *Engine) Observe(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	observers := append([]func(Event){}, e.observers...)
	e.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}

// run tracks the phase of one operation.
type run struct {
	e       *Engine
	phase   types.Phase
	version string
	start   time.Time
}

func (e *Engine) newRun(version string) *run {
	return &run{e: e, phase: types.PhaseIdle, version: version, start: time.Now()}
}

func (r *run) moveTo(to types.Phase) {
	if !r.phase.CanTransition(to) {
		log.Errorf("illegal install transition %s -> %s", r.phase, to)
		return
	}
	from := r.phase
	r.phase = to
	log.Debugf("install %s: %s -> %s", r.version, from, to)
	r.e.emit(Event{From: from, To: to, Version: r.version})
}

// fail moves to PhaseFailed and builds the InstallError.
func (r *run) fail(kind types.InstallErrorKind, report *Report, err error) error {
	if report != nil {
		report.Duration = time.Since(r.start)
	}
	if r.phase.CanTransition(types.PhaseFailed) {
		from := r.phase
		r.phase = types.PhaseFailed
		r.e.emit(Event{From: from, To: types.PhaseFailed, Version: r.version, Err: err})
	}
	return &InstallError{Kind: kind, Report: report, Err: err}
}

// lock serializes work on root within the process and across processes.
// Waiting honours ctx; the returned func releases both locks.
func (e *Engine) lock(ctx context.Context, root locate.InstallRoot) (func(), error) {
	key := filepath.Clean(string(root))

	e.mu.Lock()
	ch, ok := e.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		e.locks[key] = ch
	}
	e.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	fl := flock.New(filepath.Join(root.ModDir(), LockFile))
	locked, err := fl.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil || !locked {
		<-ch
		if err == nil {
			err = fmt.Errorf("could not lock %s", fl.Path())
		}
		return nil, fmt.Errorf("failed to lock game directory: %w", err)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			log.Warnf("failed to release %s: %v", fl.Path(), err)
		}
		<-ch
	}, nil
}

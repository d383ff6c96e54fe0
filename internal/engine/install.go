package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/adamancini/ersc/internal/archive"
	"github.com/adamancini/ersc/internal/catalog"
	"github.com/adamancini/ersc/internal/fsutil"
	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/plan"
	"github.com/adamancini/ersc/internal/state"
	"github.com/adamancini/ersc/internal/types"
)

// staged is an artifact downloaded and extracted into a private directory.
type staged struct {
	dir      string
	files    string
	artifact string
	entries  []archive.Entry
}

func (s *staged) cleanup() {
	if err := os.RemoveAll(s.dir); err != nil {
		log.Debugf("failed to remove staging directory %s: %v", s.dir, err)
	}
}

// Install moves root from current to target. Only the download, extract and
// backup failures leave root untouched; a failure while writing returns kind
// partial with the files handled so far.
func (e *Engine) Install(ctx context.Context, root locate.InstallRoot, target catalog.Release, current *state.InstalledState) (*Report, error) {
	r := e.newRun(target.Tag)
	report := newReport(target, current)

	if err := root.Validate(); err != nil {
		r.moveTo(types.PhaseDownloading)
		return nil, r.fail(types.InstallDownload, report, fmt.Errorf("invalid install root: %w", err))
	}

	st, kind, err := e.stage(ctx, r, target)
	if err != nil {
		return nil, r.fail(kind, report, err)
	}
	defer st.cleanup()

	return e.apply(ctx, r, root, target, st, current, nil, report)
}

// Prepared is a release downloaded and extracted ahead of an install, with
// the plan computed against the state seen at that time. Close removes the
// staged files.
type Prepared struct {
	Target  catalog.Release
	Current *state.InstalledState
	Plan    *plan.Plan

	st *staged
}

// Close removes the staged files. It is safe to call more than once.
func (p *Prepared) Close() {
	if p.st != nil {
		p.st.cleanup()
		p.st = nil
	}
}

// Prepare downloads and extracts target and plans the install without
// locking or modifying root. Pass the result to InstallPrepared.
func (e *Engine) Prepare(ctx context.Context, root locate.InstallRoot, target catalog.Release, current *state.InstalledState) (*Prepared, error) {
	r := e.newRun(target.Tag)

	st, kind, err := e.stage(ctx, r, target)
	if err != nil {
		return nil, &InstallError{Kind: kind, Err: err}
	}

	p, err := plan.Compute(plan.Input{
		ModDir:     root.ModDir(),
		StagingDir: st.files,
		Entries:    st.entries,
		Current:    current,
		Target:     target.Tag,
		Policy:     e.policy,
	})
	if err != nil {
		st.cleanup()
		return nil, &InstallError{Kind: types.InstallExtract, Err: fmt.Errorf("failed to plan install: %w", err)}
	}
	return &Prepared{Target: target, Current: current, Plan: p, st: st}, nil
}

// Plan returns what Install would do, without locking or modifying root.
func (e *Engine) Plan(ctx context.Context, root locate.InstallRoot, target catalog.Release, current *state.InstalledState) (*plan.Plan, error) {
	prep, err := e.Prepare(ctx, root, target, current)
	if err != nil {
		return nil, err
	}
	defer prep.Close()
	return prep.Plan, nil
}

// InstallPrepared installs a release staged by Prepare without downloading
// or extracting it again. The plan is recomputed under the lock; when the
// game directory changed since Prepare, the recomputed plan is applied and a
// warning is logged.
func (e *Engine) InstallPrepared(ctx context.Context, root locate.InstallRoot, prep *Prepared) (*Report, error) {
	r := e.newRun(prep.Target.Tag)
	report := newReport(prep.Target, prep.Current)

	r.moveTo(types.PhaseDownloading)
	if prep.st == nil {
		return nil, r.fail(types.InstallDownload, report, errors.New("prepared release was closed"))
	}
	if err := root.Validate(); err != nil {
		return nil, r.fail(types.InstallDownload, report, fmt.Errorf("invalid install root: %w", err))
	}
	r.moveTo(types.PhaseExtracting)

	return e.apply(ctx, r, root, prep.Target, prep.st, prep.Current, prep.Plan, report)
}

func newReport(target catalog.Release, current *state.InstalledState) *Report {
	report := &Report{Version: target.Tag}
	if current != nil {
		report.From = current.Version
	}
	return report
}

// apply runs the locked part of an install from a staged artifact: plan,
// backup, write and marker. shown is the plan the caller saw, if any.
func (e *Engine) apply(ctx context.Context, r *run, root locate.InstallRoot, target catalog.Release, st *staged, current *state.InstalledState, shown *plan.Plan, report *Report) (*Report, error) {
	r.moveTo(types.PhaseDiffing)

	if err := ctx.Err(); err != nil {
		return nil, r.fail(types.InstallExtract, report, err)
	}
	unlock, err := e.lock(ctx, root)
	if err != nil {
		return nil, r.fail(types.InstallExtract, report, err)
	}
	defer unlock()

	// Another install may have finished while this one waited for the lock.
	if fresh := state.NewInspector().Inspect(root); fresh != nil && fresh.MarkerValid {
		current = fresh
		report.From = fresh.Version
	}

	p, err := plan.Compute(plan.Input{
		ModDir:     root.ModDir(),
		StagingDir: st.files,
		Entries:    st.entries,
		Current:    current,
		Target:     target.Tag,
		Policy:     e.policy,
	})
	if err != nil {
		return nil, r.fail(types.InstallExtract, report, fmt.Errorf("failed to plan install: %w", err))
	}
	if shown != nil && !samePlan(shown, p) {
		log.Warnf("the game directory changed since the plan was shown; applying the current plan for %s", target.Tag)
	}

	if e.backups != nil {
		id, err := e.backup(root, p, current, "before install "+target.Tag)
		if err != nil {
			return nil, r.fail(types.InstallBackup, report, err)
		}
		report.BackupID = id
	}

	r.moveTo(types.PhaseWriting)
	if err := e.execute(root, p, report); err != nil {
		e.recordInterrupted(root, current, target.Tag, report)
		return nil, r.fail(types.InstallPartial, report, err)
	}

	r.moveTo(types.PhaseFinalizing)
	report.InstallID = uuid.NewString()
	marker := state.Marker{
		Version:        target.Tag,
		Files:          p.Installed(),
		InstalledAt:    time.Now().UTC(),
		InstallID:      report.InstallID,
		Artifact:       st.artifact,
		ManagerVersion: e.managerVersion,
	}
	if err := state.WriteMarker(root, marker); err != nil {
		return nil, r.fail(types.InstallPartial, report, err)
	}

	report.Duration = time.Since(r.start)
	r.moveTo(types.PhaseDone)
	log.Infof("installed %s (%d written, %d unchanged, %d preserved, %d removed)",
		target.Tag, len(report.FilesWritten), len(report.FilesUnchanged), len(report.FilesPreserved), len(report.FilesRemoved))
	return report, nil
}

// samePlan reports whether a and b take the same action on the same paths.
func samePlan(a, b *plan.Plan) bool {
	if a.From != b.From || len(a.Steps) != len(b.Steps) {
		return false
	}
	for i := range a.Steps {
		if a.Steps[i].Path != b.Steps[i].Path || a.Steps[i].Action != b.Steps[i].Action {
			return false
		}
	}
	return true
}

// stage downloads and extracts the release artifact. On error the staging
// directory is already removed.
func (e *Engine) stage(ctx context.Context, r *run, target catalog.Release) (*staged, types.InstallErrorKind, error) {
	r.moveTo(types.PhaseDownloading)

	artifact := target.Artifact()
	if artifact.URL == "" {
		return nil, types.InstallDownload, fmt.Errorf("release %s has no downloadable artifact", target.Tag)
	}

	dir, err := os.MkdirTemp(e.tempDir, "ersc-staging-"+uuid.NewString()+"-")
	if err != nil {
		return nil, types.InstallDownload, fmt.Errorf("failed to create staging directory: %w", err)
	}
	st := &staged{dir: dir, files: filepath.Join(dir, "files"), artifact: artifact.Name}

	archivePath, err := e.fetch(ctx, target.Tag, artifact, dir)
	if err != nil {
		st.cleanup()
		return nil, types.InstallDownload, fmt.Errorf("failed to download %s: %w", artifact.Name, err)
	}

	r.moveTo(types.PhaseExtracting)
	entries, err := archive.Extract(ctx, archivePath, st.files)
	if err != nil {
		st.cleanup()
		return nil, types.InstallExtract, fmt.Errorf("failed to extract %s: %w", artifact.Name, err)
	}
	st.entries = entries
	return st, "", nil
}

func (e *Engine) fetch(ctx context.Context, tag string, artifact catalog.Artifact, stagingDir string) (string, error) {
	req := artifact.Request()
	if e.cache != nil {
		return e.cache.Get(ctx, tag, req)
	}

	name := filepath.Base(filepath.FromSlash(artifact.Name))
	if name == "." || name == string(filepath.Separator) {
		name = "artifact.zip"
	}
	dst := filepath.Join(stagingDir, name)
	if err := e.downloader.Fetch(ctx, req, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// execute applies removals then writes. Each write replaces its target
// atomically. The report is filled as steps complete.
func (e *Engine) execute(root locate.InstallRoot, p *plan.Plan, report *Report) error {
	modDir := root.ModDir()

	for _, step := range p.Steps {
		if err := plan.Guard(step, modDir, e.policy); err != nil {
			return err
		}

		dst := filepath.Join(modDir, filepath.FromSlash(step.Path))
		switch step.Action {
		case types.ActionRemove:
			if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to remove %s: %w", step.Path, err)
			}
			removeEmptyParents(filepath.Dir(dst), modDir)
			report.FilesRemoved = append(report.FilesRemoved, step.Path)

		case types.ActionWrite:
			if e.beforeWrite != nil {
				if err := e.beforeWrite(step.Path); err != nil {
					return fmt.Errorf("failed to write %s: %w", step.Path, err)
				}
			}
			mode := step.Mode
			if mode == 0 {
				mode = 0644
			}
			if err := fsutil.CopyFileAtomic(step.Source, dst, mode); err != nil {
				return err
			}
			report.FilesWritten = append(report.FilesWritten, step.Path)

		case types.ActionUnchanged:
			report.FilesUnchanged = append(report.FilesUnchanged, step.Path)

		case types.ActionPreserve:
			report.FilesPreserved = append(report.FilesPreserved, step.Path)
		}
	}
	return nil
}

// recordInterrupted rewrites the previous marker after a failed write phase.
// It keeps the previous version and adds the files already written for tag,
// so the next install or an uninstall removes them. Without a previous
// marker nothing is recorded.
func (e *Engine) recordInterrupted(root locate.InstallRoot, current *state.InstalledState, tag string, report *Report) {
	if current == nil || !current.MarkerValid {
		return
	}

	removed := make(map[string]bool, len(report.FilesRemoved))
	for _, rel := range report.FilesRemoved {
		removed[rel] = true
	}
	var files []string
	for _, rel := range current.Files {
		if !removed[rel] {
			files = append(files, rel)
		}
	}
	files = append(files, report.FilesWritten...)

	err := state.WriteMarker(root, state.Marker{
		Version:        current.Version,
		Files:          files,
		InstalledAt:    current.InstalledAt,
		InstallID:      current.InstallID,
		Artifact:       current.Artifact,
		ManagerVersion: e.managerVersion,
		Interrupted:    tag,
	})
	if err != nil {
		log.Warnf("failed to record interrupted install of %s: %v", tag, err)
	}
}

// backup snapshots every protected file that exists before writing.
func (e *Engine) backup(root locate.InstallRoot, p *plan.Plan, current *state.InstalledState, note string) (string, error) {
	paths := e.protectedFiles(root, p.Paths(types.ActionPreserve))
	if len(paths) == 0 {
		return "", nil
	}

	version := ""
	if current != nil {
		version = current.Version
	}
	id, err := e.backups.Snapshot(root.ModDir(), paths, version, note)
	if err != nil {
		return "", fmt.Errorf("failed to back up protected files: %w", err)
	}
	log.Debugf("backed up %d protected files as %s", len(paths), id)
	return id, nil
}

// protectedFiles lists existing protected files under the mod subfolder plus
// the extra paths given, sorted and without duplicates.
func (e *Engine) protectedFiles(root locate.InstallRoot, extra []string) []string {
	modDir := root.ModDir()
	seen := make(map[string]bool)
	var out []string

	add := func(rel string) {
		if !seen[rel] && e.policy.Protected(rel) {
			seen[rel] = true
			out = append(out, rel)
		}
	}

	_ = filepath.WalkDir(filepath.Join(modDir, state.ModSubdir), func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(modDir, path)
		if err != nil {
			return nil
		}
		add(filepath.ToSlash(rel))
		return nil
	})
	for _, rel := range extra {
		if _, err := os.Stat(filepath.Join(modDir, filepath.FromSlash(rel))); err == nil {
			add(rel)
		}
	}

	sort.Strings(out)
	return out
}

// removeEmptyParents deletes empty directories from dir up to, but not
// including, stop.
func removeEmptyParents(dir, stop string) {
	stop = filepath.Clean(stop)
	for dir = filepath.Clean(dir); dir != stop && len(dir) > len(stop); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}

package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/adamancini/ersc/internal/archive"
	"github.com/adamancini/ersc/internal/fsutil"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/policy"
	"github.com/adamancini/ersc/internal/state"
	"github.com/adamancini/ersc/internal/types"
)

// Input describes one transition.
type Input struct {
	ModDir     string                // game directory receiving the files
	StagingDir string                // where the artifact was extracted
	Entries    []archive.Entry       // extracted files
	Current    *state.InstalledState // nil when nothing is installed
	Target     string                // version being installed
	Policy     *policy.Policy
}

// Compute decides, for every extracted file, whether to write it, leave it
// because the content already matches, or preserve an existing protected
// copy. When a different version with a known file list is installed, files
// it owned that the target no longer ships are removed. Protected files are
// never written over or removed once they exist.
func Compute(in Input) (*Plan, error) {
	pol := in.Policy
	if pol == nil {
		pol = policy.Default()
	}

	p := &Plan{To: in.Target}
	if in.Current != nil {
		p.From = in.Current.Version
	}

	shipped := make(map[string]bool, len(in.Entries))
	var files []Step

	for _, e := range in.Entries {
		rel := policy.Normalize(e.Path)
		if rel == "" {
			return nil, fmt.Errorf("invalid artifact path %q", e.Path)
		}
		if rel == state.MarkerRelPath {
			log.Debugf("ignoring %s shipped in the artifact", rel)
			continue
		}
		shipped[rel] = true

		src := filepath.Join(in.StagingDir, filepath.FromSlash(rel))
		dst := filepath.Join(in.ModDir, filepath.FromSlash(rel))
		step := Step{Path: rel, Source: src, Mode: e.Mode}

		switch {
		case pol.Protected(rel) && exists(dst):
			step.Action = types.ActionPreserve
		default:
			same, err := fsutil.SameContent(src, dst)
			if err != nil {
				return nil, fmt.Errorf("failed to compare %s: %w", rel, err)
			}
			if same {
				step.Action = types.ActionUnchanged
			} else {
				step.Action = types.ActionWrite
			}
		}
		files = append(files, step)
	}

	var removals []Step
	// Files left by an interrupted install go even when the recorded
	// version is reinstalled.
	if in.Current != nil && in.Current.MarkerValid && (in.Current.Version != in.Target || in.Current.Interrupted != "") {
		for _, rel := range in.Current.Files {
			if shipped[rel] || pol.Protected(rel) || rel == state.MarkerRelPath {
				continue
			}
			if !exists(filepath.Join(in.ModDir, filepath.FromSlash(rel))) {
				continue
			}
			removals = append(removals, Step{Path: rel, Action: types.ActionRemove})
		}
	}

	sort.Slice(removals, func(i, j int) bool { return removals[i].Path < removals[j].Path })
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	p.Steps = append(removals, files...)
	return p, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Package snapshot reads a directory of per-commit checkouts, one repository
// per first-parent commit, and serves it to the lineage builder.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
)

// Sentinel errors for snapshot discovery.
var (
	ErrBadSnapshotName = errors.New("snapshot directory name does not match {depth}#{revision}")
	ErrDuplicateDepth  = errors.New("two snapshot directories share a depth")
	ErrNoSnapshots     = errors.New("no snapshot directories found")
)

// Discover lists the snapshot directories below root, ordered oldest first.
// Every sub-directory must be named {depth}#{revision}; regular files are ignored.
func Discover(root string) ([]lineage.Snapshot, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read snapshot root: %w", err)
	}

	snapshots := make([]lineage.Snapshot, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		depth, _, parseErr := lineage.ParseDirName(entry.Name())
		if parseErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadSnapshotName, entry.Name(), parseErr)
		}

		snapshots = append(snapshots, lineage.Snapshot{
			Ref:   filepath.Join(root, entry.Name()),
			Depth: depth,
		})
	}

	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSnapshots, root)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Depth < snapshots[j].Depth
	})

	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].Depth == snapshots[i-1].Depth {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateDepth, snapshots[i-1].Ref, snapshots[i].Ref)
		}
	}

	return snapshots, nil
}

package lineage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Separator splits the depth and the revision in a snapshot directory name.
// It must not appear in either part.
const Separator = "#"

// Sentinel errors for snapshot addressing.
var (
	ErrBadDirName         = errors.New("malformed snapshot directory name")
	ErrReservedSeparator  = errors.New("revision contains reserved separator")
	ErrNegativeSnapshotNo = errors.New("negative snapshot depth")
)

// DirName returns the snapshot directory name "{depth}#{revision}".
func DirName(depth int, revision string) string {
	return strconv.Itoa(depth) + Separator + revision
}

// ParseDirName splits a snapshot directory name or path into depth and revision.
func ParseDirName(nameOrPath string) (int, string, error) {
	name := filepath.Base(nameOrPath)

	depthPart, revision, found := strings.Cut(name, Separator)
	if !found || depthPart == "" || revision == "" {
		return 0, "", fmt.Errorf("%w: %q", ErrBadDirName, name)
	}

	if strings.Contains(revision, Separator) {
		return 0, "", fmt.Errorf("%w: %q", ErrReservedSeparator, name)
	}

	depth, err := strconv.Atoi(depthPart)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q: %w", ErrBadDirName, name, err)
	}

	if depth < 0 {
		return 0, "", fmt.Errorf("%w: %q", ErrNegativeSnapshotNo, name)
	}

	return depth, revision, nil
}

// checkRevision rejects revisions that would break content addressing.
func checkRevision(revision string) error {
	if strings.Contains(revision, Separator) {
		return fmt.Errorf("%w: %q", ErrReservedSeparator, revision)
	}

	return nil
}

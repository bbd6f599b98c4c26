package lineage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sentinel errors for lineage reconstruction. All of them abort the build.
var (
	ErrNoSnapshots        = errors.New("no snapshots to replay")
	ErrBuilderUsed        = errors.New("lineage builder already used")
	ErrRevisionMismatch   = errors.New("revision mismatch")
	ErrSequenceLength     = errors.New("authoritative sequence length differs from snapshot count")
	ErrUnknownPath        = errors.New("change refers to a path that is not live")
	ErrDuplicatePath      = errors.New("change would overwrite a live path")
	ErrInvalidChange      = errors.New("invalid change record")
	ErrNonMonotonicDepths = errors.New("snapshot depths are not increasing")
)

// Snapshot is one checked-out state of the tracked repository.
type Snapshot struct {
	// Ref identifies the snapshot for the Source (usually its directory).
	Ref string
	// Depth is the ordinal of the snapshot in the replay sequence.
	Depth int
}

// Change is a single per-path change record between two snapshots.
type Change struct {
	OldPath  string
	NewPath  string
	Kind     ChangeKind
	Revision string
}

// Source supplies tracked files, revisions and pairwise diffs of snapshots.
type Source interface {
	// ListTrackedFiles returns every tracked path of the snapshot.
	ListTrackedFiles(ctx context.Context, snap Snapshot) ([]string, error)
	// Diff returns the change records that turn prev into curr.
	Diff(ctx context.Context, prev, curr Snapshot) ([]Change, error)
	// RevisionOf returns the revision identifier checked out in the snapshot.
	RevisionOf(ctx context.Context, snap Snapshot) (string, error)
	// PreviousRevisionOf returns the revision the snapshot's commit was made on top of.
	PreviousRevisionOf(ctx context.Context, snap Snapshot) (string, error)
}

// MismatchError reports two identifiers that were required to be equal.
type MismatchError struct {
	What     string
	Ref      string
	Expected string
	Actual   string
}

// Error implements error.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s at %s: expected %s, got %s", e.What, e.Ref, e.Expected, e.Actual)
}

// Unwrap makes errors.Is(err, ErrRevisionMismatch) hold.
func (e *MismatchError) Unwrap() error {
	return ErrRevisionMismatch
}

// Options configures a Builder.
type Options struct {
	// TrackPaths is the path-prefix allow-list. Empty keeps every file.
	TrackPaths []string
	// Languages restricts files to the given linguist languages. Empty keeps every file.
	Languages []string
	// Authoritative is the expected revision sequence, oldest first. Nil disables cross-validation.
	Authoritative []string
	// Logger receives progress and soft warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

// Lineage is the result of a build: live files and deleted files, each sorted
// by descending history length.
type Lineage struct {
	Live    []*VersionedFile `json:"live"`
	Deleted []*VersionedFile `json:"deleted"`
}

// File returns the live file currently at path, or nil.
func (l *Lineage) File(path string) *VersionedFile {
	for _, f := range l.Live {
		if f.Path == path {
			return f
		}
	}

	return nil
}

// ResolveLocations resolves content locations of every version below root.
func (l *Lineage) ResolveLocations(root string) {
	for _, f := range l.Live {
		f.ResolveLocations(root)
	}

	for _, f := range l.Deleted {
		f.ResolveLocations(root)
	}
}

// Builder replays snapshot diffs into a Lineage. A Builder owns its indices
// exclusively and is good for a single Build call.
type Builder struct {
	source Source
	opts   Options
	logger *slog.Logger

	live    map[string]*VersionedFile
	deleted []*VersionedFile
	used    bool
}

// NewBuilder creates a builder reading from source.
func NewBuilder(source Source, opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{
		source: source,
		opts:   opts,
		logger: logger,
		live:   make(map[string]*VersionedFile),
	}
}

// Build replays the snapshots, oldest first, and returns the filtered and
// ordered lineage. Any error aborts the build and no partial lineage is returned.
func (b *Builder) Build(ctx context.Context, snapshots []Snapshot) (*Lineage, error) {
	if b.used {
		return nil, ErrBuilderUsed
	}

	b.used = true

	if len(snapshots) == 0 {
		return nil, ErrNoSnapshots
	}

	err := checkDepths(snapshots)
	if err != nil {
		return nil, err
	}

	if b.opts.Authoritative != nil && len(b.opts.Authoritative) != len(snapshots) {
		return nil, fmt.Errorf("%w: authoritative %d, snapshots %d",
			ErrSequenceLength, len(b.opts.Authoritative), len(snapshots))
	}

	revisions := make([]string, len(snapshots))

	for i, snap := range snapshots {
		revision, revErr := b.source.RevisionOf(ctx, snap)
		if revErr != nil {
			return nil, fmt.Errorf("revision of %s: %w", snap.Ref, revErr)
		}

		revErr = checkRevision(revision)
		if revErr != nil {
			return nil, revErr
		}

		revisions[i] = revision
	}

	err = b.initialize(ctx, snapshots[0], revisions[0])
	if err != nil {
		return nil, err
	}

	for i := range snapshots {
		err = b.validateAuthoritative(i, snapshots[i], revisions[i])
		if err != nil {
			return nil, err
		}

		if i+1 == len(snapshots) {
			break
		}

		err = b.replayPair(ctx, snapshots[i], snapshots[i+1], revisions[i])
		if err != nil {
			return nil, err
		}
	}

	return b.finish(), nil
}

// initialize registers every tracked file of the oldest snapshot as Added.
func (b *Builder) initialize(ctx context.Context, snap Snapshot, revision string) error {
	paths, err := b.source.ListTrackedFiles(ctx, snap)
	if err != nil {
		return fmt.Errorf("list tracked files of %s: %w", snap.Ref, err)
	}

	b.logger.Info("initializing lineage", "snapshot", snap.Ref, "files", len(paths))

	for _, path := range paths {
		err = b.apply(Change{NewPath: path, Kind: Added, Revision: revision}, snap.Depth)
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) validateAuthoritative(i int, snap Snapshot, revision string) error {
	if b.opts.Authoritative == nil {
		return nil
	}

	b.logger.Debug("validating snapshot", "index", i+1, "total", len(b.opts.Authoritative))

	if b.opts.Authoritative[i] != revision {
		return &MismatchError{
			What:     "authoritative revision",
			Ref:      snap.Ref,
			Expected: b.opts.Authoritative[i],
			Actual:   revision,
		}
	}

	return nil
}

// replayPair applies the diff between prev and curr.
func (b *Builder) replayPair(ctx context.Context, prev, curr Snapshot, prevRevision string) error {
	parent, err := b.source.PreviousRevisionOf(ctx, curr)
	if err != nil {
		return fmt.Errorf("previous revision of %s: %w", curr.Ref, err)
	}

	if parent != prevRevision {
		return &MismatchError{
			What:     "previous revision of " + curr.Ref + " vs revision of " + prev.Ref,
			Ref:      curr.Ref,
			Expected: prevRevision,
			Actual:   parent,
		}
	}

	b.logger.Info("diff", "prev", prev.Ref, "curr", curr.Ref)

	changes, err := b.source.Diff(ctx, prev, curr)
	if err != nil {
		return fmt.Errorf("diff %s..%s: %w", prev.Ref, curr.Ref, err)
	}

	if len(changes) == 0 {
		b.logger.Warn("empty diff between snapshots", "prev", prev.Ref, "curr", curr.Ref)
	}

	for _, change := range changes {
		err = b.apply(change, curr.Depth)
		if err != nil {
			return fmt.Errorf("replay %s..%s: %w", prev.Ref, curr.Ref, err)
		}
	}

	return nil
}

// apply performs one state transition on the live/deleted indices.
func (b *Builder) apply(change Change, depth int) error {
	version := &FileVersion{
		Revision: change.Revision,
		OldPath:  change.OldPath,
		NewPath:  change.NewPath,
		Kind:     change.Kind,
		Depth:    depth,
	}

	switch change.Kind {
	case Added:
		if change.NewPath == "" {
			return fmt.Errorf("%w: added without new path at %s", ErrInvalidChange, change.Revision)
		}

		if _, exists := b.live[change.NewPath]; exists {
			return fmt.Errorf("%w: %s at %s", ErrDuplicatePath, change.NewPath, change.Revision)
		}

		b.live[change.NewPath] = &VersionedFile{
			Path:    change.NewPath,
			AddedAt: Marker{Depth: depth, Revision: change.Revision},
			History: []*FileVersion{version},
		}

	case Deleted:
		file, err := b.lookup(change)
		if err != nil {
			return err
		}

		file.append(version)
		file.DeletedAt = &Marker{Depth: depth, Revision: change.Revision}

		delete(b.live, change.OldPath)
		b.deleted = append(b.deleted, file)

	case Modified, Renamed:
		if change.NewPath == "" {
			return fmt.Errorf("%w: %s without new path at %s", ErrInvalidChange, change.Kind, change.Revision)
		}

		file, err := b.lookup(change)
		if err != nil {
			return err
		}

		if change.NewPath != change.OldPath {
			if _, exists := b.live[change.NewPath]; exists {
				return fmt.Errorf("%w: %s -> %s at %s", ErrDuplicatePath, change.OldPath, change.NewPath, change.Revision)
			}

			delete(b.live, change.OldPath)
			b.live[change.NewPath] = file
			file.Path = change.NewPath
		}

		file.append(version)

	default:
		return fmt.Errorf("%w: kind %q at %s", ErrInvalidChange, change.Kind, change.Revision)
	}

	return nil
}

func (b *Builder) lookup(change Change) (*VersionedFile, error) {
	file, ok := b.live[change.OldPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q at %s", ErrUnknownPath, change.Kind, change.OldPath, change.Revision)
	}

	return file, nil
}

// finish filters and orders both collections and hands them to the caller.
func (b *Builder) finish() *Lineage {
	keep := NewPathFilter(b.opts.TrackPaths, b.opts.Languages)

	live := make([]*VersionedFile, 0, len(b.live))

	for _, f := range b.live {
		if keep(f.Path) {
			live = append(live, f)
		}
	}

	deleted := make([]*VersionedFile, 0, len(b.deleted))

	for _, f := range b.deleted {
		if keep(f.Path) {
			deleted = append(deleted, f)
		}
	}

	SortByHistory(live)
	SortByHistory(deleted)

	b.logger.Info("lineage built", "live", len(live), "deleted", len(deleted))

	b.live = nil
	b.deleted = nil

	return &Lineage{Live: live, Deleted: deleted}
}

func checkDepths(snapshots []Snapshot) error {
	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].Depth <= snapshots[i-1].Depth {
			return fmt.Errorf("%w: %s (%d) after %s (%d)", ErrNonMonotonicDepths,
				snapshots[i].Ref, snapshots[i].Depth, snapshots[i-1].Ref, snapshots[i-1].Depth)
		}
	}

	return nil
}

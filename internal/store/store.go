// Package store implements the reactive, single-writer state document:
// an in-memory, versioned State,
// mutated only through typed operations, persisted to disk on every
// commit and broadcast to subscribers with monotonic, coalescing
// delivery.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
	"go.uber.org/zap"
)

// Snapshot pairs a State with the version it was committed as. Version 0
// is the empty initial state before any mutation.
type Snapshot struct {
	Version uint64
	State   *State
}

// Store is a single-writer / many-reader resource: writers serialize on
// lock, compute state N+1 from state N, persist it, then publish it to
// every subscriber. Readers only ever observe whole, well-formed
// snapshots.
type Store struct {
	log *zap.Logger

	lock    chan struct{} // buffered(1) mutex substitute: acquire() can select on a caller's ctx
	state   *State
	version uint64

	subMu sync.Mutex
	subs  map[int]chan Snapshot
	nextS int

	persistPath string
	persistCh   chan Snapshot // capacity 1, coalescing
}

// New constructs a Store backed by persistPath. If persistPath already
// contains a state document, it is loaded synchronously; on load, status
// fields are reset to Offline (the reconciler and hook dispatcher will
// re-populate them once real processes report in). A missing file starts
// the store empty, not an error.
func New(log *zap.Logger, persistPath string) (*Store, error) {
	s := &Store{
		log:         log.Named("store"),
		lock:        make(chan struct{}, 1),
		state:       &State{},
		subs:        make(map[int]chan Snapshot),
		persistPath: persistPath,
		persistCh:   make(chan Snapshot, 1),
	}

	if persistPath != "" {
		loaded, err := loadState(persistPath)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		if loaded != nil {
			resetStatuses(loaded)
			s.state = loaded
		}
	}

	go s.persistLoop()
	return s, nil
}

// Snapshot returns the current committed state, as of the moment of the
// call. The returned State is a private copy; mutating it has no effect.
func (s *Store) Snapshot() Snapshot {
	_ = s.acquire(context.Background())
	defer s.release()
	return Snapshot{Version: s.version, State: s.state.clone()}
}

// acquire takes the write lock, or returns ctx's error if ctx is done
// first without ever acquiring it.
func (s *Store) acquire(ctx context.Context) error {
	// select picks at random among ready cases, so an already-done ctx is
	// checked first rather than racing a free lock.
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() { <-s.lock }

// Subscribe attaches a new subscriber and returns a channel that receives
// the current version immediately, then every subsequent committed
// version. The channel has capacity 1: a slow subscriber's stale pending
// value is replaced by newer ones rather than blocking the committing
// writer or any other subscriber (§5, §9).
//
// Cancel ctx to detach; the returned channel is then closed.
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	id := s.nextS
	s.nextS++
	s.subs[id] = ch
	s.subMu.Unlock()

	// Prime with the current snapshot so new subscribers see state
	// immediately without waiting for the next mutation.
	ch <- s.Snapshot()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
		close(ch)
	}()

	return ch
}

// commit runs fn with exclusive write access to a mutable clone of the
// current state, under a background context that never cancels: the
// call always waits for the lock. See commitCtx for the cancellable
// form.
func (s *Store) commit(fn func(draft *State) (Result, error)) (Result, error) {
	return s.commitCtx(context.Background(), fn)
}

// commitCtx is commit's context-aware form: if ctx is done before the
// write lock can be acquired, it returns ctx.Err() without ever calling
// fn. Once fn is running, ctx is no longer consulted — fn must not block
// on I/O regardless, since no task may hold this lock across a
// suspension point (§5).
//
// If fn returns Applied, the clone becomes the new version, is queued
// for persistence and broadcast to subscribers. Any other result (or a
// non-nil error) discards the clone; the state is unchanged.
func (s *Store) commitCtx(ctx context.Context, fn func(draft *State) (Result, error)) (Result, error) {
	if err := s.acquire(ctx); err != nil {
		return NoChange, err
	}

	draft := s.state.clone()
	res, err := fn(draft)
	if err != nil || res != Applied {
		s.release()
		return res, err
	}

	s.version++
	s.state = draft
	snap := Snapshot{Version: s.version, State: s.state.clone()}
	s.release()

	s.publish(snap)
	return Applied, nil
}

// publish coalesces snap into every subscriber's mailbox and queues it for
// persistence. It never blocks: a full mailbox has its stale value drained
// and replaced, so producers make progress regardless of subscriber speed.
func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	s.subMu.Unlock()

	if s.persistPath == "" {
		return
	}
	select {
	case s.persistCh <- snap:
	default:
		select {
		case <-s.persistCh:
		default:
		}
		select {
		case s.persistCh <- snap:
		default:
		}
	}
}

// persistLoop drains the coalescing persist queue and writes each snapshot
// to disk atomically. Persistence failures are logged, never fatal: the
// in-memory state remains authoritative and the next commit retries (§7).
func (s *Store) persistLoop() {
	for snap := range s.persistCh {
		if err := saveState(s.persistPath, snap.State); err != nil {
			s.log.Warn("persist state failed", zap.Error(err), zap.Uint64("version", snap.Version))
		}
	}
}

// loadState reads and parses the state file at path. A missing file
// returns (nil, nil): the store starts empty.
func loadState(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &st, nil
}

// saveState writes st to path via write-to-temp-then-rename, so readers
// (and the process itself, on restart) never observe a partial write.
func saveState(path string, st *State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// resetStatuses clears every persisted status field to Offline: status is
// live-process-derived and never trustworthy across a restart.
func resetStatuses(st *State) {
	for ri := range st.Restreams {
		resetInputStatuses(&st.Restreams[ri].Input)
		for oi := range st.Restreams[ri].Outputs {
			st.Restreams[ri].Outputs[oi].Status = 0
			for mi := range st.Restreams[ri].Outputs[oi].Mixins {
				st.Restreams[ri].Outputs[oi].Mixins[mi].Status = 0
			}
		}
	}
}

func resetInputStatuses(in *restream.Input) {
	for ei := range in.Endpoints {
		in.Endpoints[ei].Status = 0
	}
	for ci := range in.Failover {
		resetInputStatuses(&in.Failover[ci])
	}
}

package uitree

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
)

// HookEnv names the environment variable carrying the file descriptor an
// instrumented application writes its snapshots to.
const HookEnv = "UIDRIVER_HOOK_FD"

// maxSnapshotSize bounds a single newline-delimited snapshot.
const maxSnapshotSize = 8 << 20

// Emitter publishes snapshots from inside the application under test.
// A nil *Emitter is valid and discards everything, so applications can
// call Publish unconditionally.
type Emitter struct {
	mu   sync.Mutex
	w    io.Writer
	app  string
	seq  uint64
	last []byte
}

// NewEmitter returns an Emitter writing newline-delimited JSON to w.
func NewEmitter(w io.Writer, app string) *Emitter {
	return &Emitter{w: w, app: app}
}

// NewEmitterFromEnv opens the hook descriptor named by [HookEnv]. It
// returns (nil, nil) when the variable is unset, i.e. the application was
// not launched by the harness.
func NewEmitterFromEnv(app string) (*Emitter, error) {
	v := os.Getenv(HookEnv)
	if v == "" {
		return nil, nil
	}
	fd, err := strconv.Atoi(v)
	if err != nil || fd < 0 {
		return nil, fmt.Errorf("invalid %s value %q", HookEnv, v)
	}
	f := os.NewFile(uintptr(fd), "uidriver-hook")
	if f == nil {
		return nil, fmt.Errorf("%s: descriptor %d is not open", HookEnv, fd)
	}
	return NewEmitter(f, app), nil
}

// Publish writes root as the next snapshot. Consecutive identical trees
// are written once.
func (e *Emitter) Publish(root *Node) error {
	if e == nil {
		return nil
	}
	body, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if bytes.Equal(body, e.last) {
		return nil
	}
	e.last = body
	e.seq++

	line, err := json.Marshal(struct {
		Seq  uint64          `json:"seq"`
		App  string          `json:"app"`
		Root json.RawMessage `json:"root"`
	}{e.seq, e.app, body})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	line = append(line, '\n')
	if _, err := e.w.Write(line); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying writer if it is an io.Closer.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	if c, ok := e.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reader consumes snapshots on the harness side and keeps the latest one.
type Reader struct {
	mu      sync.RWMutex
	latest  *Snapshot
	err     error
	ready   chan struct{}
	done    chan struct{}
	once    sync.Once
	changed chan struct{}
	logger  *slog.Logger
	maxLine int
}

// NewReader starts draining r in a background goroutine. The goroutine
// exits when r returns an error (including io.EOF). Lines longer than the
// snapshot size limit are discarded without stalling the writer.
func NewReader(r io.Reader, logger *slog.Logger) *Reader {
	return newReader(r, logger, maxSnapshotSize)
}

func newReader(r io.Reader, logger *slog.Logger, maxLine int) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	rd := &Reader{
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		changed: make(chan struct{}),
		logger:  logger,
		maxLine: maxLine,
	}
	go rd.loop(r)
	return rd
}

func (r *Reader) loop(src io.Reader) {
	defer close(r.done)

	br := bufio.NewReaderSize(src, 64<<10)
	var (
		line     []byte
		skipping bool
		skipped  int
	)
	for {
		chunk, err := br.ReadSlice('\n')
		switch {
		case skipping:
			skipped += len(chunk)
		case len(line)+len(chunk) > r.maxLine:
			skipping = true
			skipped = len(line) + len(chunk)
			line = line[:0]
		default:
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			if !errors.Is(err, os.ErrClosed) {
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
			}
			return
		}

		if skipping {
			r.logger.Warn("discarding oversized snapshot",
				slog.Int("bytes", skipped),
				slog.Int("limit", r.maxLine))
			skipping = false
		} else {
			r.handle(line)
		}
		line = line[:0]

		if err != nil {
			return
		}
	}
}

func (r *Reader) handle(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	var snap Snapshot
	if err := json.Unmarshal(line, &snap); err != nil {
		r.logger.Warn("discarding malformed snapshot", slog.Any("error", err))
		return
	}
	if snap.Root == nil {
		r.logger.Warn("discarding snapshot without root", slog.Uint64("seq", snap.Seq))
		return
	}
	r.store(&snap)
}

func (r *Reader) store(snap *Snapshot) {
	r.mu.Lock()
	if r.latest != nil && snap.Seq <= r.latest.Seq {
		r.mu.Unlock()
		return
	}
	r.latest = snap
	changed := r.changed
	r.changed = make(chan struct{})
	r.mu.Unlock()

	close(changed)
	r.once.Do(func() { close(r.ready) })
}

// Latest returns the most recent snapshot, or nil before the first one.
// The result must be treated as read-only.
func (r *Reader) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Changed returns a channel closed on the next snapshot after the call.
func (r *Reader) Changed() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.changed
}

// Ready is closed once the first snapshot has arrived.
func (r *Reader) Ready() <-chan struct{} {
	return r.ready
}

// Done is closed when the hook stream ends.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Err returns the read error that ended the stream, if any. A clean EOF
// is not an error.
func (r *Reader) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

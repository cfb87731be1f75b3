package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/stacklok/toolhive-assetsync/internal/checker"
	"github.com/stacklok/toolhive-assetsync/internal/files"
	"github.com/stacklok/toolhive-assetsync/internal/git"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/otel"
	"github.com/stacklok/toolhive-assetsync/internal/store"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
	"github.com/stacklok/toolhive-assetsync/internal/telemetry"
	"github.com/stacklok/toolhive-assetsync/internal/verify"
)

const (
	opOpen     = "open"
	opDownload = "download"
	opUpdate   = "update"
	opCheck    = "check"
	opRemove   = "remove"
	opList     = "list"
	opRead     = "read"

	outcomeSuccess = "success"
)

// Config contains the settings of one engine
type Config struct {
	// Remote is the URL of the bundle repository
	Remote string

	// DataDir holds working copies, revision records and locks
	DataDir string

	// ExportDir receives content-addressed copies of files; optional
	ExportDir string

	// Auth contains optional HTTP basic authentication for the remote
	Auth *git.AuthConfig
}

// Validate checks that the required settings are present
func (c *Config) Validate() error {
	if c.Remote == "" {
		return syncerr.New(syncerr.CodeValidation, opOpen, "", "remote is required")
	}
	if c.DataDir == "" {
		return syncerr.New(syncerr.CodeValidation, opOpen, "", "data directory is required")
	}
	return nil
}

// Option configures an Engine
type Option func(*Engine)

// WithTransport replaces the go-git transport
func WithTransport(transport git.Transport) Option {
	return func(e *Engine) {
		e.transport = transport
	}
}

// WithSyncMetrics records operation metrics into m
func WithSyncMetrics(m *telemetry.SyncMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithStoreOptions configures the store of the data directory
func WithStoreOptions(opts ...store.Option) Option {
	return func(e *Engine) {
		e.storeOpts = append(e.storeOpts, opts...)
	}
}

// WithTracerProvider creates operation spans from provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(e *Engine) {
		if provider != nil {
			e.tracer = provider.Tracer(telemetry.EngineTracerName)
		}
	}
}

// Engine downloads, updates and reads the working copies of one data directory
type Engine struct {
	cfg       Config
	transport git.Transport
	store     *store.Store
	checker   *checker.Checker
	verifier  *verify.Verifier
	files     *files.Facade
	metrics   *telemetry.SyncMetrics
	tracer    trace.Tracer
	storeOpts []store.Option

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// Open prepares the data directory and returns a ready engine.
// Revision records that disagree with the working copies on disk are repaired first.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		tracer: noop.NewTracerProvider().Tracer(telemetry.EngineTracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.transport == nil {
		e.transport = git.NewDefaultClient()
	}

	s, err := store.New(cfg.DataDir, e.storeOpts...)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeStorage, opOpen, "", err, "failed to open data directory")
	}
	if err := s.Reconcile(e.transport.Head); err != nil {
		return nil, syncerr.Wrap(syncerr.CodeStorage, opOpen, "", err, "failed to reconcile revision records")
	}

	e.store = s
	e.checker = checker.New(e.transport, s, cfg.Remote, cfg.Auth)
	e.verifier = verify.New(s)
	e.files = files.New(s, cfg.ExportDir)

	records, err := s.List()
	if err != nil {
		return nil, err
	}
	e.metrics.RecordWorkingCopies(ctx, len(records))

	slog.Info("Sync engine opened",
		"data_dir", s.Root(),
		"remote", cfg.Remote,
		"working_copies", len(records))
	return e, nil
}

// Close waits for in-flight operations and rejects new ones. Calling it again is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.inflight.Wait()
	slog.Info("Sync engine closed", "data_dir", e.store.Root())
	return nil
}

// Remote returns the bundle repository URL
func (e *Engine) Remote() string {
	return e.cfg.Remote
}

// DataDir returns the absolute data directory
func (e *Engine) DataDir() string {
	return e.store.Root()
}

// begin registers an in-flight operation; the returned func must be called when it ends
func (e *Engine) begin(op string) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, syncerr.New(syncerr.CodeNotStarted, op, "", "engine is closed")
	}
	e.inflight.Add(1)
	return e.inflight.Done, nil
}

// Download clones the branch of (locale, typ) into a new working copy and records its revision.
// It fails with an exists error when the resource already has a working copy; use Update instead.
func (e *Engine) Download(ctx context.Context, locale, typ string, onProgress git.ProgressFunc) (err error) {
	done, err := e.begin(opDownload)
	if err != nil {
		return err
	}
	defer done()

	key, branch, err := resolve(opDownload, locale, typ)
	if err != nil {
		return err
	}

	ctx, o := e.startOperation(ctx, opDownload, key)
	defer func() { o.finish(outcomeSuccess, err) }()

	unlock, err := e.store.Lock(ctx, key)
	if err != nil {
		return syncerr.Wrap(syncerr.CodeBusy, opDownload, key.String(), err, "failed to lock resource")
	}
	defer unlock()

	if e.store.Exists(key) {
		return syncerr.New(syncerr.CodeExists, opDownload, key.String(), "working copy already exists")
	}

	staging, err := e.store.NewStagingDir()
	if err != nil {
		return syncerr.Wrap(syncerr.CodeStorage, opDownload, key.String(), err, "failed to create staging directory")
	}
	// After a successful adopt the staging directory is gone and this is a no-op
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			slog.Warn("Failed to remove staging directory", "path", staging, "error", rmErr)
		}
	}()

	revision, err := e.transport.Clone(ctx, &git.CloneOptions{
		URL:        e.cfg.Remote,
		Branch:     branch,
		Directory:  staging,
		Auth:       e.cfg.Auth,
		OnProgress: o.progress(onProgress),
	})
	if err != nil {
		return syncerr.Wrap(syncerr.CodeNetwork, opDownload, key.String(), err, "clone failed")
	}

	if _, err := e.store.Adopt(key, e.cfg.Remote, staging, revision); err != nil {
		return syncerr.Wrap(syncerr.CodeStorage, opDownload, key.String(), err, "failed to adopt clone")
	}
	o.revision = revision
	return nil
}

// Update fetches the branch of (locale, typ) and checks out its tip when it moved.
// The resource must already have a working copy. A cancelled transfer leaves the working copy untouched.
func (e *Engine) Update(
	ctx context.Context, locale, typ string, onProgress git.ProgressFunc,
) (status UpdateStatus, err error) {
	done, err := e.begin(opUpdate)
	if err != nil {
		return UpdateStatusFailed, err
	}
	defer done()

	key, branch, err := resolve(opUpdate, locale, typ)
	if err != nil {
		return UpdateStatusFailed, err
	}

	ctx, o := e.startOperation(ctx, opUpdate, key)
	defer func() { o.finish(status.String(), err) }()

	unlock, err := e.store.Lock(ctx, key)
	if err != nil {
		return UpdateStatusFailed, syncerr.Wrap(syncerr.CodeBusy, opUpdate, key.String(), err, "failed to lock resource")
	}
	defer unlock()

	if !e.store.Exists(key) {
		return UpdateStatusFailed, syncerr.New(syncerr.CodeNotFound, opUpdate, key.String(), "no working copy; download first")
	}

	previous, err := e.store.Revision(key)
	if err != nil {
		return UpdateStatusFailed, syncerr.Wrap(syncerr.CodeStorage, opUpdate, key.String(), err, "failed to read revision")
	}

	tip, err := e.transport.Fetch(ctx, &git.FetchOptions{
		URL:        e.cfg.Remote,
		Branch:     branch,
		Directory:  e.store.WorkingCopyPath(key),
		Auth:       e.cfg.Auth,
		OnProgress: o.progress(onProgress),
	})
	if err != nil {
		return UpdateStatusFailed, syncerr.Wrap(syncerr.CodeNetwork, opUpdate, key.String(), err, "fetch failed")
	}

	o.revision = tip
	if tip == previous {
		return UpdateStatusUpToDate, nil
	}

	_, err = e.store.Commit(key, e.cfg.Remote, func(dir string) (string, error) {
		if err := e.transport.Checkout(dir, tip); err != nil {
			if previous != "" {
				if rbErr := e.transport.Checkout(dir, previous); rbErr != nil {
					slog.Error("Failed to restore previous revision",
						"resource", key.String(),
						"revision", previous,
						"error", rbErr)
				}
			}
			return "", err
		}
		return tip, nil
	}, func(dir string) error {
		if previous == "" {
			return nil
		}
		return e.transport.Checkout(dir, previous)
	})
	if err != nil {
		return UpdateStatusFailed, syncerr.Wrap(syncerr.CodeStorage, opUpdate, key.String(), err, "checkout failed")
	}
	return UpdateStatusUpdated, nil
}

// Sync downloads (locale, typ) when it has no working copy and updates it otherwise.
// A fresh download reports UpdateStatusUpdated.
func (e *Engine) Sync(ctx context.Context, locale, typ string, onProgress git.ProgressFunc) (UpdateStatus, error) {
	key, err := naming.NewResourceKey(locale, typ)
	if err != nil {
		return UpdateStatusFailed, syncerr.Wrap(syncerr.CodeValidation, "sync", "", err, "invalid resource key")
	}
	if !e.store.Exists(key) {
		err := e.Download(ctx, locale, typ, onProgress)
		if err == nil {
			return UpdateStatusUpdated, nil
		}
		// Another process downloaded it first
		if !errors.Is(err, syncerr.ErrExists) {
			return UpdateStatusFailed, err
		}
	}
	return e.Update(ctx, locale, typ, onProgress)
}

// CheckForUpdate compares the recorded revision of (locale, typ) with the remote branch tip
func (e *Engine) CheckForUpdate(ctx context.Context, locale, typ string) (result *checker.Result, err error) {
	done, err := e.begin(opCheck)
	if err != nil {
		return nil, err
	}
	defer done()

	key, _, err := resolve(opCheck, locale, typ)
	if err != nil {
		return nil, err
	}

	ctx, o := e.startOperation(ctx, opCheck, key)
	defer func() { o.finish(outcomeSuccess, err) }()

	result, err = e.checker.Check(ctx, locale, typ)
	if err != nil {
		return nil, err
	}
	o.revision = result.RemoteSHA
	e.metrics.RecordUpdateCheck(ctx, key.String(), result.IsUpdateAvailable)
	return result, nil
}

// Remove deletes the working copy and record of (locale, typ)
func (e *Engine) Remove(ctx context.Context, locale, typ string) (err error) {
	done, err := e.begin(opRemove)
	if err != nil {
		return err
	}
	defer done()

	key, _, err := resolve(opRemove, locale, typ)
	if err != nil {
		return err
	}

	ctx, o := e.startOperation(ctx, opRemove, key)
	defer func() { o.finish(outcomeSuccess, err) }()

	unlock, err := e.store.Lock(ctx, key)
	if err != nil {
		return syncerr.Wrap(syncerr.CodeBusy, opRemove, key.String(), err, "failed to lock resource")
	}
	defer unlock()

	if !e.store.Exists(key) {
		return syncerr.New(syncerr.CodeNotFound, opRemove, key.String(), "no working copy")
	}
	if err := e.store.Remove(key); err != nil {
		return syncerr.Wrap(syncerr.CodeStorage, opRemove, key.String(), err, "failed to remove working copy")
	}
	return nil
}

// List returns the record of every working copy, sorted by resource key
func (e *Engine) List(ctx context.Context) ([]*store.Record, error) {
	done, err := e.begin(opList)
	if err != nil {
		return nil, err
	}
	defer done()

	records, err := e.store.List()
	if err != nil {
		return nil, err
	}
	e.metrics.RecordWorkingCopies(ctx, len(records))
	return records, nil
}

// Record returns the record of (locale, typ), or nil when it has no working copy
func (e *Engine) Record(locale, typ string) (*store.Record, error) {
	done, err := e.begin(opRead)
	if err != nil {
		return nil, err
	}
	defer done()

	key, _, err := resolve(opRead, locale, typ)
	if err != nil {
		return nil, err
	}
	return e.store.Record(key)
}

// FileHash returns the SHA-256 digest of a file in the working copy of (locale, typ)
func (e *Engine) FileHash(path, locale, typ string) (digest.Digest, error) {
	done, err := e.begin("hash")
	if err != nil {
		return "", err
	}
	defer done()
	return e.verifier.FileHash(path, locale, typ)
}

// Verify checks a file in the working copy of (locale, typ) against an expected digest
func (e *Engine) Verify(path, locale, typ string, expected digest.Digest) error {
	done, err := e.begin("verify")
	if err != nil {
		return err
	}
	defer done()
	return e.verifier.Verify(path, locale, typ, expected)
}

// FileExists reports whether path exists in the working copy of (locale, typ)
func (e *Engine) FileExists(path, locale, typ string) bool {
	done, err := e.begin(opRead)
	if err != nil {
		return false
	}
	defer done()
	return e.files.FileExists(path, locale, typ)
}

// ContentsOfDirectory lists a directory in the working copy of (locale, typ)
func (e *Engine) ContentsOfDirectory(path, locale, typ string) ([]string, error) {
	done, err := e.begin(opRead)
	if err != nil {
		return nil, err
	}
	defer done()
	return e.files.ContentsOfDirectory(path, locale, typ)
}

// FileData returns the bytes of a file in the working copy of (locale, typ)
func (e *Engine) FileData(path, locale, typ string) ([]byte, error) {
	done, err := e.begin(opRead)
	if err != nil {
		return nil, err
	}
	defer done()
	return e.files.FileData(path, locale, typ)
}

// ExportFile copies a file of (locale, typ) into the export directory under its content digest
func (e *Engine) ExportFile(path, locale, typ string) (string, error) {
	done, err := e.begin("export")
	if err != nil {
		return "", err
	}
	defer done()
	return e.files.ExportFile(path, locale, typ)
}

func resolve(op, locale, typ string) (naming.ResourceKey, naming.BranchName, error) {
	key, err := naming.NewResourceKey(locale, typ)
	if err != nil {
		return naming.ResourceKey{}, "", syncerr.Wrap(syncerr.CodeValidation, op, "", err, "invalid resource key")
	}
	branch, err := key.Branch()
	if err != nil {
		return naming.ResourceKey{}, "", syncerr.Wrap(syncerr.CodeValidation, op, key.String(), err, "invalid branch")
	}
	return key, branch, nil
}

// operation carries the logging, tracing and metrics context of one engine call
type operation struct {
	ctx      context.Context
	engine   *Engine
	span     trace.Span
	name     string
	key      naming.ResourceKey
	id       string
	started  time.Time
	received atomic.Uint64
	revision string
}

func (e *Engine) startOperation(ctx context.Context, name string, key naming.ResourceKey) (context.Context, *operation) {
	ctx, span := otel.StartSpan(ctx, e.tracer, "engine."+name,
		trace.WithAttributes(
			otel.AttrOperation.String(name),
			otel.AttrResource.String(key.String()),
			otel.AttrLocale.String(key.Locale),
			otel.AttrType.String(key.Type),
		))

	o := &operation{
		ctx:     ctx,
		engine:  e,
		span:    span,
		name:    name,
		key:     key,
		id:      uuid.NewString(),
		started: time.Now(),
	}
	slog.Debug("Starting operation",
		"operation", name,
		"operation_id", o.id,
		"resource", key.String())
	return ctx, o
}

// progress wraps the caller's callback so the operation sees the transferred byte count
func (o *operation) progress(onProgress git.ProgressFunc) git.ProgressFunc {
	return func(p git.Progress) bool {
		o.received.Store(p.ReceivedBytes)
		if onProgress == nil {
			return true
		}
		return onProgress(p)
	}
}

// finish logs the outcome, records metrics and ends the span. A non-nil err overrides outcome with its code.
func (o *operation) finish(outcome string, err error) {
	duration := time.Since(o.started)
	resource := o.key.String()

	if err != nil {
		code := syncerr.CodeOf(err)
		outcome = code.String()
		otel.RecordError(o.span, err)

		logFn := slog.Error
		if code == syncerr.CodeCancelled {
			logFn = slog.Info
		}
		logFn("Operation failed",
			"operation", o.name,
			"operation_id", o.id,
			"resource", resource,
			"duration", duration,
			"error", err)
	} else {
		o.span.SetAttributes(otel.AttrRevision.String(o.revision))
		slog.Info("Operation completed",
			"operation", o.name,
			"operation_id", o.id,
			"resource", resource,
			"outcome", outcome,
			"revision", o.revision,
			"received_bytes", o.received.Load(),
			"duration", duration)
	}

	o.span.SetAttributes(otel.AttrOutcome.String(outcome))
	o.engine.metrics.RecordOperation(o.ctx, o.name, resource, outcome, duration)
	o.engine.metrics.RecordReceivedBytes(o.ctx, o.name, resource, o.received.Load())
	o.span.End()
}

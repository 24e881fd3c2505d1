package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ctxengine/internal/audit"
	"ctxengine/internal/config"
	"ctxengine/internal/errors"
	"ctxengine/internal/index"
	"ctxengine/internal/logging"
	"ctxengine/internal/paths"
	"ctxengine/internal/project"
	"ctxengine/internal/query"
	"ctxengine/internal/storage"
)

// session bundles everything a command needs against one resolved
// project: its identity, configuration, open store, and the query
// layer built on top of it. Commands that write (init/scan/watch) also
// hold the cross-process writer lock for the session's lifetime.
type session struct {
	proj   *project.Project
	cfg    *config.Config
	db     *storage.DB
	engine *query.Engine
	logger *logging.Logger
	lock   *index.Lock
}

func newLogger() *logging.Logger {
	format := logging.HumanFormat
	if jsonFlag {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{Format: format, Level: logging.InfoLevel, Output: os.Stderr})
}

// openSession resolves the project, opens its store, and builds the
// query engine. withLock also acquires the cross-process writer lock
// (spec.md §5/§6 scenario 6), releasing it when Close is called.
func openSession(withLock bool) (*session, error) {
	root, err := resolveProjectRoot()
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "resolve project root", err)
	}

	proj, err := project.Load(root)
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "load project", err)
	}

	cfg, err := config.Load(proj.CanonicalRoot)
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "load config", err)
	}

	logger := newLogger()

	dataDir, err := paths.DataDir(proj.Hash)
	if err != nil {
		return nil, errors.Wrap(errors.Io, "resolve data directory", err).WithPath(dataDir)
	}

	var lock *index.Lock
	if withLock {
		lock, err = index.AcquireLock(dataDir,
			time.Duration(cfg.Lock.TimeoutMs)*time.Millisecond,
			time.Duration(cfg.Lock.RetryIntervalMs)*time.Millisecond)
		if err != nil {
			return nil, err
		}
	}

	db, err := storage.Open(proj.Hash, cfg.Lock.TimeoutMs, logger)
	if err != nil {
		if lock != nil {
			lock.Release()
		}
		return nil, err
	}

	return &session{
		proj:   proj,
		cfg:    cfg,
		db:     db,
		engine: query.New(db, proj.CanonicalRoot),
		logger: logger,
		lock:   lock,
	}, nil
}

// Close releases the store connection and, if held, the writer lock.
func (s *session) Close() {
	s.db.Close()
	if s.lock != nil {
		s.lock.Release()
	}
}

// recordActivity appends one activity.jsonl entry for the invocation.
// Failures resolving the data directory are swallowed: the journal is
// diagnostic, not load-bearing for the command's own result.
func (s *session) recordActivity(tool string, args []string) {
	dataDir, err := paths.DataDir(s.proj.Hash)
	if err != nil {
		return
	}
	audit.Record(paths.ActivityLogPath(dataDir), "cli", tool, s.proj.CanonicalRoot, args)
}

// errorEnvelope is the `{error: {kind, message, path?}}` machine
// document spec.md §7 requires for --json failures.
type errorEnvelope struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
		Path    string `json:"path,omitempty"`
	} `json:"error"`
}

// fail reports err in the active output format and exits with the code
// spec.md §6's table maps its errors.Code to.
func fail(err error) {
	code := errors.CodeOf(err)

	if jsonFlag {
		var env errorEnvelope
		env.Error.Kind = string(code)
		env.Error.Message = err.Error()
		if ee, ok := err.(*errors.EngineError); ok {
			env.Error.Path = ee.Path
		}
		data, _ := json.MarshalIndent(env, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	os.Exit(errors.ExitCode(code))
}

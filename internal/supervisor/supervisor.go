// Package supervisor owns the lifecycle of the development server subprocess.
// At most one child is live for the lifetime of a Supervisor. It is spawned on
// the first Start call and signalled on Stop or when the parent receives SIGTERM.
package supervisor

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// DefaultCommand and DefaultArgs run the project's start script with the
// development flag, binding all interfaces and allowing cross-origin requests.
var (
	DefaultCommand = "npm"
	DefaultArgs    = []string{"run", "start", "--", "--dev", "--host", "0.0.0.0", "--cors"}
)

var ErrNoCommand = errors.New("supervisor: no command configured")

// Process is a running child that can be signalled.
type Process interface {
	Signal(sig os.Signal) error
	Pid() int
}

// Spawner starts a child with stdin disconnected and stdout/stderr inherited.
type Spawner interface {
	Spawn(name string, args []string) (Process, error)
}

// NotifyFunc matches signal.Notify.
type NotifyFunc func(c chan<- os.Signal, sig ...os.Signal)

type Option func(*Supervisor)

// WithSpawner replaces the os/exec based spawner.
func WithSpawner(s Spawner) Option {
	return func(sup *Supervisor) {
		sup.spawner = s
	}
}

// WithCommand overrides the command and arguments used to start the server.
func WithCommand(name string, args ...string) Option {
	return func(sup *Supervisor) {
		sup.command = name
		sup.args = args
	}
}

// WithNotify replaces signal.Notify when registering the termination hook.
func WithNotify(fn NotifyFunc) Option {
	return func(sup *Supervisor) {
		sup.notify = fn
	}
}

// Supervisor holds the optional handle to the dev server. Start and Stop are
// its only mutating operations.
type Supervisor struct {
	command string
	args    []string
	spawner Spawner
	notify  NotifyFunc

	mu      sync.Mutex
	proc    Process
	failed  error
	hooked  bool
	signals chan os.Signal
}

func New(opts ...Option) *Supervisor {
	sup := &Supervisor{
		command: DefaultCommand,
		args:    append([]string(nil), DefaultArgs...),
		spawner: &ExecSpawner{},
		notify:  signal.Notify,
	}

	for _, opt := range opts {
		opt(sup)
	}

	return sup
}

// Start spawns the dev server unless one is already running. There is no
// readiness check, the server counts as running once the spawn succeeds.
// A failed spawn is final: later calls return the same error without spawning.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		return nil
	}

	if s.failed != nil {
		return s.failed
	}

	if s.command == "" {
		s.failed = ErrNoCommand
		return s.failed
	}

	proc, err := s.spawner.Spawn(s.command, s.args)
	if err != nil {
		s.failed = err
		return err
	}
	s.proc = proc

	log.Info().
		Str("command", s.command).
		Strs("args", s.args).
		Int("pid", proc.Pid()).
		Msg("Started dev server")

	s.registerHooks()

	return nil
}

// Stop sends SIGTERM to the dev server if one was started. It does not wait
// for the child to exit and ignores delivery errors.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		return
	}

	if err := s.proc.Signal(syscall.SIGTERM); err != nil {
		log.Debug().Err(err).Int("pid", s.proc.Pid()).Msg("Dev server already gone")
		return
	}

	log.Info().Int("pid", s.proc.Pid()).Msg("Stopped dev server")
}

// Running reports whether a dev server has been spawned.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// PID returns the child's process id, or 0 when none was spawned.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.Pid()
}

// registerHooks must be called with s.mu held.
func (s *Supervisor) registerHooks() {
	if s.hooked {
		return
	}
	s.hooked = true

	s.signals = make(chan os.Signal, 1)
	s.notify(s.signals, syscall.SIGTERM)

	go func() {
		for range s.signals {
			s.Stop()
		}
	}()
}

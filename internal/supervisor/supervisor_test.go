package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	mu      sync.Mutex
	pid     int
	signals []os.Signal
	err     error
}

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, sig)
	return p.err
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) received() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]os.Signal(nil), p.signals...)
}

type spawnCall struct {
	name string
	args []string
}

type fakeSpawner struct {
	calls []spawnCall
	proc  *fakeProcess
	err   error
}

func (f *fakeSpawner) Spawn(name string, args []string) (Process, error) {
	f.calls = append(f.calls, spawnCall{name: name, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return f.proc, nil
}

type fakeNotify struct {
	mu       sync.Mutex
	channels []chan<- os.Signal
	signals  [][]os.Signal
}

func (n *fakeNotify) Notify(c chan<- os.Signal, sig ...os.Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, c)
	n.signals = append(n.signals, sig)
}

func newTestSupervisor(t *testing.T) (*Supervisor, *fakeSpawner, *fakeNotify) {
	t.Helper()
	spawner := &fakeSpawner{proc: &fakeProcess{pid: 4242}}
	notify := &fakeNotify{}
	return New(WithSpawner(spawner), WithNotify(notify.Notify)), spawner, notify
}

func TestSupervisor_Start(t *testing.T) {
	sup, spawner, notify := newTestSupervisor(t)

	require.False(t, sup.Running())
	require.NoError(t, sup.Start())
	require.True(t, sup.Running())
	require.Equal(t, 4242, sup.PID())

	require.Len(t, spawner.calls, 1)
	require.Equal(t, "npm", spawner.calls[0].name)
	require.Equal(t, []string{"run", "start", "--", "--dev", "--host", "0.0.0.0", "--cors"}, spawner.calls[0].args)

	require.Len(t, notify.signals, 1)
	require.Equal(t, []os.Signal{syscall.SIGTERM}, notify.signals[0])
}

func TestSupervisor_StartIdempotent(t *testing.T) {
	sup, spawner, notify := newTestSupervisor(t)

	require.NoError(t, sup.Start())
	require.NoError(t, sup.Start())
	require.NoError(t, sup.Start())

	require.Len(t, spawner.calls, 1)
	require.Len(t, notify.channels, 1)
}

func TestSupervisor_StartConcurrent(t *testing.T) {
	sup, spawner, _ := newTestSupervisor(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- sup.Start()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, spawner.calls, 1)
}

func TestSupervisor_StartError(t *testing.T) {
	spawnErr := errors.New("exec: \"npm\": executable file not found in $PATH")
	spawner := &fakeSpawner{err: spawnErr}
	notify := &fakeNotify{}
	sup := New(WithSpawner(spawner), WithNotify(notify.Notify))

	err := sup.Start()
	require.ErrorIs(t, err, spawnErr)
	require.False(t, sup.Running())
	require.Empty(t, notify.channels)
	require.Len(t, spawner.calls, 1)
}

func TestSupervisor_StartErrorIsFinal(t *testing.T) {
	spawnErr := errors.New("exec: \"npm\": executable file not found in $PATH")
	spawner := &fakeSpawner{err: spawnErr}
	sup := New(WithSpawner(spawner), WithNotify((&fakeNotify{}).Notify))

	for range 3 {
		require.ErrorIs(t, sup.Start(), spawnErr)
	}

	require.Len(t, spawner.calls, 1)
	require.False(t, sup.Running())
	require.Zero(t, sup.PID())
}

func TestSupervisor_NoCommand(t *testing.T) {
	spawner := &fakeSpawner{}
	sup := New(WithCommand(""), WithSpawner(spawner))
	require.ErrorIs(t, sup.Start(), ErrNoCommand)
	require.ErrorIs(t, sup.Start(), ErrNoCommand)
	require.Empty(t, spawner.calls)
}

func TestSupervisor_WithCommand(t *testing.T) {
	spawner := &fakeSpawner{proc: &fakeProcess{pid: 1}}
	sup := New(WithSpawner(spawner), WithNotify((&fakeNotify{}).Notify), WithCommand("pnpm", "start"))

	require.NoError(t, sup.Start())
	require.Equal(t, "pnpm", spawner.calls[0].name)
	require.Equal(t, []string{"start"}, spawner.calls[0].args)
}

func TestSupervisor_Stop(t *testing.T) {
	sup, spawner, _ := newTestSupervisor(t)

	require.NoError(t, sup.Start())
	sup.Stop()

	require.Equal(t, []os.Signal{syscall.SIGTERM}, spawner.proc.received())
}

func TestSupervisor_StopWithoutProcess(t *testing.T) {
	sup, spawner, _ := newTestSupervisor(t)

	require.NotPanics(t, sup.Stop)
	require.Empty(t, spawner.proc.received())
	require.Equal(t, 0, sup.PID())
}

func TestSupervisor_StopAlreadyExited(t *testing.T) {
	sup, spawner, _ := newTestSupervisor(t)
	spawner.proc.err = os.ErrProcessDone

	require.NoError(t, sup.Start())
	require.NotPanics(t, sup.Stop)
	require.Len(t, spawner.proc.received(), 1)
}

func TestSupervisor_TerminationSignal(t *testing.T) {
	sup, spawner, notify := newTestSupervisor(t)

	require.NoError(t, sup.Start())
	require.Len(t, notify.channels, 1)

	notify.channels[0] <- syscall.SIGTERM

	require.Eventually(t, func() bool {
		return len(spawner.proc.received()) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, syscall.SIGTERM, spawner.proc.received()[0])
}

func TestExecSpawner(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	sup := New(WithCommand("sleep", "30"), WithNotify((&fakeNotify{}).Notify))
	require.NoError(t, sup.Start())
	require.NotZero(t, sup.PID())

	proc, err := os.FindProcess(sup.PID())
	require.NoError(t, err)

	sup.Stop()

	require.Eventually(t, func() bool {
		return proc.Signal(syscall.Signal(0)) != nil
	}, 5*time.Second, 20*time.Millisecond)

	// a second stop after exit is harmless
	require.NotPanics(t, sup.Stop)
}

func TestExecSpawner_missingExecutable(t *testing.T) {
	_, err := (&ExecSpawner{}).Spawn("spabundle-no-such-binary", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, exec.ErrNotFound)
}

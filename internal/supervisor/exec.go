package supervisor

import (
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// ExecSpawner starts children with os/exec. Output streams are inherited so
// the server's logs interleave with the bundler's.
type ExecSpawner struct {
	// Dir is the working directory of the child, the current directory when empty.
	Dir string
}

func (e *ExecSpawner) Spawn(name string, args []string) (Process, error) {
	// #nosec G204 - command comes from the operator's own configuration
	cmd := exec.Command(name, args...)
	cmd.Dir = e.Dir
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	// reap the child so it does not linger as a zombie
	go func() {
		err := cmd.Wait()
		log.Debug().Err(err).Int("pid", cmd.Process.Pid).Msg("Dev server exited")
	}()

	return &execProcess{proc: cmd.Process}, nil
}

type execProcess struct {
	proc *os.Process
}

func (p *execProcess) Signal(sig os.Signal) error {
	return p.proc.Signal(sig)
}

func (p *execProcess) Pid() int {
	return p.proc.Pid
}

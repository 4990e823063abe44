package ndt

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// DefaultStopTimeout is how long Stop waits for the process group to exit
// after SIGTERM before escalating to SIGKILL.
const DefaultStopTimeout = 5 * time.Second

// Supervisor launches the external localizer command in its own process
// group, streams its combined stdout/stderr line by line through the
// sanitizer, and delivers classified lines and the terminal exit
// notification over the bridge. At most one process is active at a time.
type Supervisor struct {
	command string
	workDir string
	bridge  *Bridge

	// lifecycle serializes Start and Stop. A Stop issued mid-spawn must wait
	// for the spawn to finish; before then there is no pgid to signal.
	lifecycle sync.Mutex

	mu      sync.Mutex
	state   ProcState
	cmd     *exec.Cmd
	pgid    int
	done    chan struct{}
	stopReq bool
}

// NewSupervisor creates a supervisor for the given shell command. workDir
// may be empty to inherit the current directory.
func NewSupervisor(command, workDir string, bridge *Bridge) *Supervisor {
	return &Supervisor{
		command: command,
		workDir: workDir,
		bridge:  bridge,
		state:   ProcNotStarted,
	}
}

// State returns the current lifecycle state
func (s *Supervisor) State() ProcState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done returns a channel closed once the current process has fully exited
// and its read loop has drained. Nil when no process has been started.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Start spawns the command via `sh -c` in a new process group and begins
// streaming its output. Starting while a process is active is rejected with
// ErrAlreadyRunning. A missing working directory or spawn failure moves the
// supervisor to ProcFailed and emits a single terminal notification; there
// is no automatic retry.
func (s *Supervisor) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	switch s.state {
	case ProcStarting, ProcRunning, ProcStopping:
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = ProcStarting
	s.stopReq = false
	s.mu.Unlock()

	if s.workDir != "" {
		if info, err := os.Stat(s.workDir); err != nil || !info.IsDir() {
			return s.failStart(fmt.Errorf("%w: %s", ErrPathNotFound, s.workDir))
		}
	}

	cmd := exec.Command("sh", "-c", s.command)
	cmd.Dir = s.workDir
	cmd.SysProcAttr = sysProcAttr()

	// Combined stdout+stderr through one pipe so ordering between the two
	// streams is preserved the way a terminal would show it.
	pr, pw, err := os.Pipe()
	if err != nil {
		return s.failStart(fmt.Errorf("%w: %v", ErrSpawnFailure, err))
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return s.failStart(fmt.Errorf("%w: %v", ErrSpawnFailure, err))
	}
	// Child owns the write end now; closing ours lets the scanner see EOF
	// when the whole process group is gone.
	pw.Close()

	done := make(chan struct{})

	s.mu.Lock()
	s.cmd = cmd
	s.pgid = cmd.Process.Pid
	s.done = done
	s.state = ProcRunning
	s.mu.Unlock()

	log.Printf("[supervisor] localizer started (pid %d)", cmd.Process.Pid)

	go s.readLoop(pr, cmd, done)
	return nil
}

// failStart records a spawn-phase failure and emits the one terminal event
func (s *Supervisor) failStart(err error) error {
	s.mu.Lock()
	s.state = ProcFailed
	s.mu.Unlock()
	log.Printf("[supervisor] start failed: %v", err)
	s.bridge.PushExit(ExitEvent{OK: false, Err: err})
	return err
}

// readLoop drains the output pipe, then reaps the process. It is the only
// writer of the terminal exit notification for a successfully spawned
// process.
func (s *Supervisor) readLoop(r *os.File, cmd *exec.Cmd, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := Sanitize(scanner.Text())
		if text == "" {
			continue
		}
		s.bridge.PushLine(LineEvent{Text: text, Severity: Classify(text)})
	}
	r.Close()

	err := cmd.Wait()

	s.mu.Lock()
	if err == nil || s.stopReq {
		s.state = ProcStopped
	} else {
		s.state = ProcFailed
	}
	s.cmd = nil
	s.mu.Unlock()

	if err != nil {
		log.Printf("[supervisor] localizer exited: %v", err)
	} else {
		log.Printf("[supervisor] localizer exited cleanly")
	}
	s.bridge.PushExit(ExitEvent{OK: err == nil, Err: err})
}

// Stop sends SIGTERM to the process group, waits up to timeout for exit,
// then escalates to SIGKILL. It blocks until the read loop has fully
// drained. Stop waits for an in-flight Start before acting; calling it
// when nothing is running is a no-op.
func (s *Supervisor) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	// pgid 0 would address our own process group; never signal it.
	if s.state != ProcRunning || s.pgid <= 0 {
		s.mu.Unlock()
		return nil
	}
	s.state = ProcStopping
	s.stopReq = true
	pgid := s.pgid
	done := s.done
	s.mu.Unlock()

	log.Printf("[supervisor] stopping localizer (pgid %d)", pgid)
	// Negative pid signals the whole process group.
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("[supervisor] localizer did not exit within %v, sending SIGKILL", timeout)
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		<-done
	}
	return nil
}

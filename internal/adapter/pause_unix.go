//go:build unix

package adapter

import (
	"os"
	"syscall"
)

var errProcessDone = os.ErrProcessDone

func suspend(p *os.Process) error {
	return p.Signal(syscall.SIGSTOP)
}

func resume(p *os.Process) error {
	return p.Signal(syscall.SIGCONT)
}

//go:build !unix

package adapter

import "os"

var errProcessDone = os.ErrProcessDone

func suspend(p *os.Process) error {
	return ErrPauseUnsupported
}

func resume(p *os.Process) error {
	return ErrPauseUnsupported
}

//go:build !windows

package commands

import (
	"os"
	"os/signal"
	"syscall"
)

func notifyToggle(c chan<- os.Signal) {
	signal.Notify(c, syscall.SIGUSR1)
}

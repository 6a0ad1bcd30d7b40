package commands

import "os"

// Windows has no user signals; the headless session runs until interrupted.
func notifyToggle(c chan<- os.Signal) {}

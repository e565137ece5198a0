package utils

import (
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/crosslock/CrossChain-Solver/params"
)

var (
	clientIdentifier string
	gitCommit        string
	gitDate          string
)

var (
	// TopWaitGroup wait group of the top level background jobs
	TopWaitGroup = new(sync.WaitGroup)
	// CleanupChan is closed when the process is asked to shut down
	CleanupChan = make(chan struct{})

	cleanupOnce sync.Once
)

// NewApp creates an app with sane defaults.
func NewApp(identifier, gitcommit, gitdate, usage string) *cli.App {
	clientIdentifier = identifier
	gitCommit = gitcommit
	gitDate = gitdate
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Version = params.VersionWithCommit(gitCommit, gitDate)
	app.Usage = usage
	return app
}

// WatchAndCleanup wait for an interrupt signal, then close CleanupChan
// and wait for the background jobs to drain.
func WatchAndCleanup() {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	<-signalChan
	log.Info("receive exit signal, cleanup and exit")
	Cleanup()
}

// Cleanup close CleanupChan once and wait for the jobs
func Cleanup() {
	cleanupOnce.Do(func() {
		close(CleanupChan)
	})
	TopWaitGroup.Wait()
}

// IsCleanuping whether shutdown was requested
func IsCleanuping() bool {
	select {
	case <-CleanupChan:
		return true
	default:
		return false
	}
}

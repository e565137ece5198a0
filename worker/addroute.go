package worker

import (
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/crosslock/CrossChain-Solver/cmd/utils"
	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/crosslock/CrossChain-Solver/params"
)

// AddRoutesDynamically watch the routes dir for new or rewritten route
// files and activate them without a restart.
func AddRoutesDynamically() {
	routesDir := params.GetConfig().RoutesDir
	if routesDir == "" {
		log.Info("routes dir is empty, dynamic routes disabled")
		return
	}

	watch, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("fsnotify.NewWatcher failed", "err", err)
		return
	}

	err = watch.Add(routesDir)
	if err != nil {
		log.Error("watch.Add routes dir failed", "dir", routesDir, "err", err)
		return
	}

	utils.TopWaitGroup.Add(1)
	go startRouteWatcher(watch)
}

func startRouteWatcher(watch *fsnotify.Watcher) {
	log.Info("start routes fsnotify watch")
	defer func() {
		log.Info("stop routes fsnotify watch")
		_ = watch.Close()
		utils.TopWaitGroup.Done()
	}()

	ops := []fsnotify.Op{
		fsnotify.Create,
		fsnotify.Write,
	}

	for {
		select {
		case <-utils.CleanupChan:
			return
		case ev, ok := <-watch.Events:
			if !ok {
				continue
			}
			log.Trace("routes fsnotify watch event", "event", ev)
			for _, op := range ops {
				if ev.Op&op == op {
					err := addRouteFile(ev.Name)
					if err != nil {
						log.Info("addRouteFile error", "configFile", ev.Name, "err", err)
					}
					break
				}
			}
		case werr, ok := <-watch.Errors:
			if !ok {
				continue
			}
			log.Warn("routes fsnotify watch error", "err", werr)
		}
	}
}

func addRouteFile(fileName string) error {
	if !strings.HasSuffix(fileName, ".toml") {
		return nil
	}
	fileStat, _ := os.Stat(fileName)
	// ignore if file is not exist, or is directory, or is empty file
	if fileStat == nil || fileStat.IsDir() || fileStat.Size() == 0 {
		return nil
	}
	added, err := params.AddRouteFile(fileName)
	if err != nil {
		return err
	}
	log.Info("addRouteFile success", "configFile", fileName, "added", added)
	return nil
}

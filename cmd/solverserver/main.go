package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/crosslock/CrossChain-Solver/cmd/utils"
	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/crosslock/CrossChain-Solver/mongodb"
	"github.com/crosslock/CrossChain-Solver/params"
	rpcserver "github.com/crosslock/CrossChain-Solver/rpc/server"
	"github.com/crosslock/CrossChain-Solver/worker"
)

var (
	clientIdentifier = "solverserver"
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app = utils.NewApp(clientIdentifier, gitCommit, gitDate, "the solverserver command line interface")
)

func initApp() {
	// Initialize the CLI app and start action
	app.Action = solverserver
	app.HideVersion = true // we have a command to print the version
	app.Commands = []*cli.Command{
		utils.VersionCommand,
	}
	app.Flags = []cli.Flag{
		utils.ConfigFileFlag,
		utils.LogFileFlag,
		utils.LogRotationFlag,
		utils.LogMaxAgeFlag,
		utils.VerbosityFlag,
		utils.JSONFormatFlag,
		utils.ColorFormatFlag,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
}

func main() {
	initApp()
	if err := app.Run(os.Args); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func solverserver(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	if ctx.NArg() > 0 {
		return fmt.Errorf("invalid command: %q", ctx.Args().Get(0))
	}
	configFile := utils.GetConfigFilePath(ctx)
	config := params.LoadConfig(configFile)

	dbConfig := config.MongoDB
	mongodb.MongoServerInit([]string{dbConfig.DBURL}, dbConfig.DBName, dbConfig.UserName, dbConfig.Password)

	worker.StartWork()
	time.Sleep(100 * time.Millisecond)
	rpcserver.StartAPIServer()

	utils.WatchAndCleanup()
	return nil
}

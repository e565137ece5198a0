// Package worker runs the solver's background jobs: the per-network
// event listener, the swap saga steppers, the refund sweep and the
// dynamic route watcher. Jobs poll mongodb for due work, execute one
// step and persist the new state before moving on, so a restart resumes
// exactly where the previous process stopped.
package worker

import (
	"time"

	"github.com/crosslock/CrossChain-Solver/leveldb"
	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/crosslock/CrossChain-Solver/nonces"
	"github.com/crosslock/CrossChain-Solver/params"
	"github.com/crosslock/CrossChain-Solver/processor"
	"github.com/crosslock/CrossChain-Solver/rpc/client"
	"github.com/crosslock/CrossChain-Solver/signer"
	"github.com/crosslock/CrossChain-Solver/tokens"
	"github.com/crosslock/CrossChain-Solver/tokens/evm"
)

const interval = 10 * time.Millisecond

// StartWork start solver work
func StartWork() {
	logWorker("worker", "start solver worker")

	client.InitHTTPClient()
	tokens.RegisterAdapter(evm.NewAdapter())

	signerConfig := params.GetConfig().Signer
	signer.Init(signerConfig.APIPrefix, signerConfig.RPCTimeout)

	initProcessor()

	go StartScanJob()
	time.Sleep(interval)

	go StartSwapJob()
	time.Sleep(interval)

	go StartRefundJob()
	time.Sleep(interval)

	go AddRoutesDynamically()
}

func initProcessor() {
	dbPath := params.GetConfig().LevelDB.DataDir
	db, err := leveldb.New(dbPath, 16, 16)
	if err != nil {
		log.Fatal("open leveldb failed", "path", dbPath, "err", err)
	}
	nonceCtrl := nonces.NewController(
		nonces.NewMongoStore(),
		nonces.NewLevelDBCache(db, nonces.DefaultCounterExpiry),
		getPoolNonce,
	)
	txProcessor = processor.New(nonceCtrl, processor.NewMongoPersist(), processor.DefaultOptions())
}

func getPoolNonce(networkName, address string) (uint64, error) {
	network, adapter, err := tokens.GetNetworkAdapter(networkName)
	if err != nil {
		return 0, err
	}
	return adapter.GetPoolNonce(network, address)
}

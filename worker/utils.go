package worker

import (
	"time"

	"github.com/crosslock/CrossChain-Solver/log"
)

var (
	maxSwapLifetime = int64(10 * 24 * 3600)

	restIntervalInSwapJob    = 3 * time.Second
	restIntervalInRefundJob  = 60 * time.Second
	restIntervalInAlertCheck = 10 * time.Minute
)

func now() int64 {
	return time.Now().Unix()
}

func logWorker(job, subject string, context ...interface{}) {
	log.Info("["+job+"] "+subject, context...)
}

func logWorkerError(job, subject string, err error, context ...interface{}) {
	fields := []interface{}{"err", err}
	fields = append(fields, context...)
	log.Error("["+job+"] "+subject, fields...)
}

func logWorkerTrace(job, subject string, context ...interface{}) {
	log.Trace("["+job+"] "+subject, context...)
}

func getSepTimeInFind(dist int64) int64 {
	return now() - dist
}

func restInJob(duration time.Duration) {
	time.Sleep(duration)
}

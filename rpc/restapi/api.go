// Package restapi maps the status API onto plain GET endpoints, plus
// one POST for the depositor's lock submission request.
package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/crosslock/CrossChain-Solver/internal/swapapi"
	"github.com/crosslock/CrossChain-Solver/params"
)

func writeResponse(w http.ResponseWriter, resp interface{}, err error) {
	if err == nil {
		jsonData, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jsonData)
	} else {
		fmt.Fprintln(w, err.Error())
	}
}

// ServerInfoHandler server info handler
func ServerInfoHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	res, err := swapapi.GetServerInfo()
	writeResponse(w, res, err)
}

// VersionInfoHandler version info handler
func VersionInfoHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	writeResponse(w, params.VersionWithMeta, nil)
}

// GetSwapHandler get swap with its actions by commit id
func GetSwapHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	w.WriteHeader(http.StatusOK)
	res, err := swapapi.GetSwap(vars["commitid"])
	writeResponse(w, res, err)
}

// GetRouteLimitHandler accepted amount bounds of a route
func GetRouteLimitHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	w.WriteHeader(http.StatusOK)
	res, err := swapapi.GetRouteLimit(
		vars["srcnetwork"], vars["srctoken"], vars["dstnetwork"], vars["dsttoken"])
	writeResponse(w, res, err)
}

// RegisterLockSigHandler ask the solver to submit the depositor's
// pre-authorized source lock
func RegisterLockSigHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	w.WriteHeader(http.StatusOK)
	timelock, err := strconv.ParseInt(vars["timelock"], 10, 64)
	if err != nil {
		writeResponse(w, nil, fmt.Errorf("wrong timelock '%v'", vars["timelock"]))
		return
	}
	res, err := swapapi.RegisterLockSig(vars["commitid"], timelock)
	writeResponse(w, res, err)
}

// GetScanStatusHandler listener cursor of a network
func GetScanStatusHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	w.WriteHeader(http.StatusOK)
	res, err := swapapi.GetScanStatus(vars["network"])
	writeResponse(w, res, err)
}

// Package server serves the read-only status API.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	rpcjson "github.com/gorilla/rpc/v2/json2"

	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/crosslock/CrossChain-Solver/params"
	"github.com/crosslock/CrossChain-Solver/rpc/restapi"
	"github.com/crosslock/CrossChain-Solver/rpc/rpcapi"
)

const defaultMaxRequestsLimit = 10

// StartAPIServer start api server
func StartAPIServer() {
	router := initRouter()

	apiPort := params.GetAPIPort()
	apiServer := params.GetConfig().APIServer

	var allowedOrigins []string
	if apiServer != nil {
		allowedOrigins = apiServer.AllowedOrigins
	}
	corsOptions := []handlers.CORSOption{
		handlers.AllowedMethods([]string{"GET", "POST"}),
	}
	if len(allowedOrigins) != 0 {
		corsOptions = append(corsOptions,
			handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type"}),
			handlers.AllowedOrigins(allowedOrigins),
		)
	}

	log.Info("JSON RPC service listen and serving", "port", apiPort, "allowedOrigins", allowedOrigins)
	svr := http.Server{
		Addr:         fmt.Sprintf(":%v", apiPort),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		Handler:      handlers.CORS(corsOptions...)(router),
	}
	go func() {
		if err := svr.ListenAndServe(); err != nil {
			log.Error("ListenAndServe error", "err", err)
		}
	}()
}

func initRouter() *mux.Router {
	r := mux.NewRouter()

	rpcserver := rpc.NewServer()
	rpcserver.RegisterCodec(rpcjson.NewCodec(), "application/json")
	_ = rpcserver.RegisterService(new(rpcapi.RPCAPI), "swap")

	lmt := newRateLimiter()
	r.Handle("/rpc", tollbooth.LimitHandler(lmt, rpcserver))
	r.HandleFunc("/serverinfo", limited(lmt, restapi.ServerInfoHandler)).Methods("GET")
	r.HandleFunc("/versioninfo", limited(lmt, restapi.VersionInfoHandler)).Methods("GET")
	r.HandleFunc("/swap/{commitid}", limited(lmt, restapi.GetSwapHandler)).Methods("GET")
	r.HandleFunc("/routelimit/{srcnetwork}/{srctoken}/{dstnetwork}/{dsttoken}", limited(lmt, restapi.GetRouteLimitHandler)).Methods("GET")
	r.HandleFunc("/scanstatus/{network}", limited(lmt, restapi.GetScanStatusHandler)).Methods("GET")
	r.HandleFunc("/swap/{commitid}/locksig/{timelock}", limited(lmt, restapi.RegisterLockSigHandler)).Methods("POST")

	methodsExcluesGet := []string{"POST", "HEAD", "PUT", "DELETE", "CONNECT", "OPTIONS", "TRACE", "PATCH"}
	methodsExcluesPost := []string{"GET", "HEAD", "PUT", "DELETE", "CONNECT", "OPTIONS", "TRACE", "PATCH"}
	r.HandleFunc("/serverinfo", warnHandler).Methods(methodsExcluesGet...)
	r.HandleFunc("/versioninfo", warnHandler).Methods(methodsExcluesGet...)
	r.HandleFunc("/swap/{commitid}", warnHandler).Methods(methodsExcluesGet...)
	r.HandleFunc("/routelimit/{srcnetwork}/{srctoken}/{dstnetwork}/{dsttoken}", warnHandler).Methods(methodsExcluesGet...)
	r.HandleFunc("/scanstatus/{network}", warnHandler).Methods(methodsExcluesGet...)
	r.HandleFunc("/swap/{commitid}/locksig/{timelock}", warnHandler).Methods(methodsExcluesPost...)

	return r
}

func newRateLimiter() *limiter.Limiter {
	maxLimit := defaultMaxRequestsLimit
	apiServer := params.GetConfig().APIServer
	if apiServer != nil && apiServer.MaxRequestsLimit > 0 {
		maxLimit = apiServer.MaxRequestsLimit
	}
	return tollbooth.NewLimiter(float64(maxLimit), &limiter.ExpirableOptions{
		DefaultExpirationTTL: 600 * time.Second,
	})
}

func limited(lmt *limiter.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return tollbooth.LimitFuncHandler(lmt, next).ServeHTTP
}

func warnHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Forbid '%v' on '%v'\n", r.Method, r.RequestURI)
}

// Package params loads and validates the solver configuration from a
// TOML file. Configuration is loaded once at startup, route files may
// additionally be watched for dynamic additions.
package params

import (
	"encoding/json"
	"math/big"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/crosslock/CrossChain-Solver/quote"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

const (
	defaultAPIPort = 11556
)

var (
	solverConfig      *SolverConfig
	loadConfigStarter sync.Once
)

// SolverConfig config items (decode from toml file)
type SolverConfig struct {
	Identifier string

	MongoDB   *MongoDBConfig
	APIServer *APIServerConfig `toml:",omitempty" json:",omitempty"`
	Signer    *SignerConfig
	LevelDB   *LevelDBConfig
	Scan      *ScanConfig  `toml:",omitempty" json:",omitempty"`
	Alert     *AlertConfig `toml:",omitempty" json:",omitempty"`
	Networks  []*NetworkConfig
	Routes    []*RouteConfig

	// RoutesDir optional directory watched for dynamic route additions
	RoutesDir string `toml:",omitempty" json:",omitempty"`
}

// MongoDBConfig mongodb config
type MongoDBConfig struct {
	DBURL    string
	DBName   string
	UserName string `json:"-"`
	Password string `json:"-"`
}

// APIServerConfig status api service config
type APIServerConfig struct {
	Port             int
	AllowedOrigins   []string
	MaxRequestsLimit int
}

// SignerConfig external signer service config
type SignerConfig struct {
	APIPrefix  string
	RPCTimeout uint64
}

// LevelDBConfig local kv cache config
type LevelDBConfig struct {
	DataDir string
}

// ScanConfig event listener tunables
type ScanConfig struct {
	ChunkSize       uint64
	IntervalSeconds uint64
}

// AlertConfig email alerting of the refund sweep
type AlertConfig struct {
	Server       string
	Port         int
	From         string
	FromPassword string `json:"-"`
	To           []string
	Subject      string `toml:",omitempty" json:",omitempty"`
}

// NetworkConfig a configured blockchain
type NetworkConfig struct {
	Name            string
	Family          string
	NativeToken     string
	Gateways        []string
	HTLCContract    string `toml:",omitempty" json:",omitempty"`
	Confirmations   uint64
	InitialHeight   uint64
	Tokens          []*TokenConfig
	ManagedAccounts []*ManagedAccountConfig
}

// TokenConfig an asset on a network
type TokenConfig struct {
	Symbol          string
	Decimals        uint8
	ContractAddress string `toml:",omitempty" json:",omitempty"`
}

// ManagedAccountConfig an address the solver controls on a network
type ManagedAccountConfig struct {
	Address string
	Role    string
}

// RouteConfig a directed swap path. Amounts are decimal strings so the
// toml file never carries floats.
type RouteConfig struct {
	SrcNetwork string
	SrcToken   string
	DstNetwork string
	DstToken   string

	RateNumerator   uint64
	RateDenominator uint64
	FeeRatePerMille uint64
	MinFee          string `toml:",omitempty" json:",omitempty"`
	MinAmount       string
	MaxAmount       string
	// LockReward in destination token units, paid on top of the locked
	// amount as the counterpart's incentive to respond promptly.
	// RewardWindowSeconds bounds how long the reward stays claimable.
	LockReward          string `toml:",omitempty" json:",omitempty"`
	RewardWindowSeconds int64  `toml:",omitempty" json:",omitempty"`
	Enabled             bool
}

// GetConfig get solver config
func GetConfig() *SolverConfig {
	return solverConfig
}

// SetConfig set solver config
func SetConfig(config *SolverConfig) {
	solverConfig = config
}

// GetIdentifier get identifier
func GetIdentifier() string {
	return GetConfig().Identifier
}

// GetAPIPort get status api service port
func GetAPIPort() int {
	if GetConfig().APIServer == nil || GetConfig().APIServer.Port == 0 {
		return defaultAPIPort
	}
	return GetConfig().APIServer.Port
}

// GetScanChunkSize block range chunk size of the event listener
func GetScanChunkSize() uint64 {
	if GetConfig().Scan == nil || GetConfig().Scan.ChunkSize == 0 {
		return 100
	}
	return GetConfig().Scan.ChunkSize
}

// GetScanIntervalSeconds poll interval of the event listener
func GetScanIntervalSeconds() uint64 {
	if GetConfig().Scan == nil || GetConfig().Scan.IntervalSeconds == 0 {
		return 10
	}
	return GetConfig().Scan.IntervalSeconds
}

// LoadConfig load config only once
func LoadConfig(configFile string) *SolverConfig {
	loadConfigStarter.Do(func() {
		if configFile == "" {
			log.Fatalf("LoadConfig error: no config file specified")
		}
		log.Println("Config file is", configFile)
		if !common.FileExist(configFile) {
			log.Fatalf("LoadConfig error: config file %v not exist", configFile)
		}
		config := &SolverConfig{}
		if _, err := toml.DecodeFile(configFile, &config); err != nil {
			log.Fatalf("LoadConfig error (toml DecodeFile): %v", err)
		}
		SetConfig(config)
		var bs []byte
		if log.JSONFormat {
			bs, _ = json.Marshal(config)
		} else {
			bs, _ = json.MarshalIndent(config, "", "  ")
		}
		log.Println("LoadConfig finished.", string(bs))
		if err := CheckConfig(); err != nil {
			log.Fatalf("Check config failed. %v", err)
		}
		applyConfig(config)
	})
	return solverConfig
}

// applyConfig push the validated config into the runtime registries
func applyConfig(config *SolverConfig) {
	networks := make([]*tokens.Network, 0, len(config.Networks))
	for _, n := range config.Networks {
		networks = append(networks, n.ToNetwork())
	}
	tokens.SetNetworks(networks)

	routes := make([]*quote.Route, 0, len(config.Routes))
	for _, r := range config.Routes {
		routes = append(routes, r.ToRoute())
	}
	quote.SetRoutes(routes)
}

// ToNetwork convert to the runtime network type
func (n *NetworkConfig) ToNetwork() *tokens.Network {
	network := &tokens.Network{
		Name:          n.Name,
		Family:        tokens.ChainFamily(n.Family),
		NativeToken:   n.NativeToken,
		Gateways:      n.Gateways,
		HTLCContract:  n.HTLCContract,
		Confirmations: n.Confirmations,
		InitialHeight: n.InitialHeight,
	}
	for _, t := range n.Tokens {
		network.Tokens = append(network.Tokens, &tokens.Token{
			Symbol:          t.Symbol,
			Decimals:        t.Decimals,
			ContractAddress: t.ContractAddress,
		})
	}
	for _, acc := range n.ManagedAccounts {
		network.ManagedAccounts = append(network.ManagedAccounts, &tokens.ManagedAccount{
			Address: acc.Address,
			Role:    tokens.AccountRole(acc.Role),
		})
	}
	return network
}

// ToRoute convert to the runtime route type. Amount strings were
// validated by CheckConfig before this is called.
func (r *RouteConfig) ToRoute() *quote.Route {
	route := &quote.Route{
		SrcNetwork:      r.SrcNetwork,
		SrcToken:        r.SrcToken,
		DstNetwork:      r.DstNetwork,
		DstToken:        r.DstToken,
		RateNumerator:   r.RateNumerator,
		RateDenominator: r.RateDenominator,
		FeeRatePerMille: r.FeeRatePerMille,
		MinAmount:       mustBigInt(r.MinAmount),
		MaxAmount:       mustBigInt(r.MaxAmount),
		Enabled:         r.Enabled,
	}
	if r.MinFee != "" {
		route.MinFee = mustBigInt(r.MinFee)
	}
	if r.LockReward != "" {
		route.LockReward = mustBigInt(r.LockReward)
		route.RewardWindow = r.RewardWindowSeconds
	}
	return route
}

// AddRouteFile decode a toml file holding extra '[[Routes]]' entries,
// validate them against the configured networks and make them active.
func AddRouteFile(fileName string) (added int, err error) {
	var extra struct {
		Routes []*RouteConfig
	}
	if _, err = toml.DecodeFile(fileName, &extra); err != nil {
		return 0, err
	}
	config := GetConfig()
	for _, r := range extra.Routes {
		if err = r.CheckConfig(config); err != nil {
			return 0, err
		}
	}
	config.Routes = append(config.Routes, extra.Routes...)
	routes := make([]*quote.Route, 0, len(config.Routes))
	for _, r := range config.Routes {
		routes = append(routes, r.ToRoute())
	}
	quote.SetRoutes(routes)
	return len(extra.Routes), nil
}

func mustBigInt(str string) *big.Int {
	bi, err := common.GetBigIntFromStr(str)
	if err != nil {
		log.Fatalf("wrong big int string '%v' in config: %v", str, err)
	}
	return bi
}

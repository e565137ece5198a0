package tokens

import (
	"math/big"
	"strings"
	"sync"
)

// ChainAdapter is the per-family translation layer the core drives.
// Implementations encode chain-native calls and talk to node gateways,
// they hold no swap state of their own.
type ChainAdapter interface {
	// Family the chain family this adapter serves
	Family() ChainFamily

	// BuildTransaction turn typed prepare-arguments into a chain-native
	// unsigned transaction. Pure and replayable, no side effects.
	BuildTransaction(network *Network, args *BuildTxArgs) (rawTx interface{}, err error)

	// EstimateFee estimate the fee of the unsigned transaction
	EstimateFee(network *Network, rawTx interface{}) (*Fee, error)

	// GetBalance balance of address in asset (token symbol)
	GetBalance(network *Network, address, asset string) (*big.Int, error)

	// SignTransaction sign through the external signer service keyed by
	// network family and from address
	SignTransaction(network *Network, rawTx interface{}, from string) (signedTx interface{}, txHash string, err error)

	// SendTransaction publish the signed transaction
	SendTransaction(network *Network, signedTx interface{}) (txHash string, err error)

	// GetTransactionReceipt receipt of a published transaction,
	// ErrTxNotFound when not (yet) mined
	GetTransactionReceipt(network *Network, txHash string) (*TxReceipt, error)

	// GetLatestBlockNumber current chain head height
	GetLatestBlockNumber(network *Network) (uint64, error)

	// GetBlockEvents decode this solver's protocol events of one block
	GetBlockEvents(network *Network, height uint64) (*BlockEvents, error)

	// GetPoolNonce the network's view of the next account nonce
	GetPoolNonce(network *Network, address string) (uint64, error)
}

var (
	adapterRegistry   = make(map[ChainFamily]ChainAdapter)
	adapterRegistryMu sync.RWMutex

	networksConfig   = make(map[string]*Network)
	networksConfigMu sync.RWMutex
)

// RegisterAdapter register the adapter of a chain family.
// Registering a family twice is a programming error.
func RegisterAdapter(adapter ChainAdapter) {
	adapterRegistryMu.Lock()
	defer adapterRegistryMu.Unlock()
	family := adapter.Family()
	if _, exist := adapterRegistry[family]; exist {
		panic("duplicate adapter registration for family " + string(family))
	}
	adapterRegistry[family] = adapter
}

// GetAdapter get the adapter of a chain family
func GetAdapter(family ChainFamily) (ChainAdapter, error) {
	adapterRegistryMu.RLock()
	defer adapterRegistryMu.RUnlock()
	adapter, exist := adapterRegistry[family]
	if !exist {
		return nil, ErrFamilyNotSupported
	}
	return adapter, nil
}

// GetNetworkAdapter get the adapter serving a configured network
func GetNetworkAdapter(networkName string) (*Network, ChainAdapter, error) {
	network := GetNetwork(networkName)
	if network == nil {
		return nil, nil, ErrNetworkNotSupported
	}
	adapter, err := GetAdapter(network.Family)
	if err != nil {
		return nil, nil, err
	}
	return network, adapter, nil
}

// SetNetworks set the configured networks, called once at startup
// after the config check passed.
func SetNetworks(networks []*Network) {
	networksConfigMu.Lock()
	defer networksConfigMu.Unlock()
	networksConfig = make(map[string]*Network, len(networks))
	for _, network := range networks {
		networksConfig[strings.ToLower(network.Name)] = network
	}
}

// GetNetwork get network by name, nil if not configured
func GetNetwork(name string) *Network {
	networksConfigMu.RLock()
	defer networksConfigMu.RUnlock()
	return networksConfig[strings.ToLower(name)]
}

// GetAllNetworks all configured networks
func GetAllNetworks() []*Network {
	networksConfigMu.RLock()
	defer networksConfigMu.RUnlock()
	networks := make([]*Network, 0, len(networksConfig))
	for _, network := range networksConfig {
		networks = append(networks, network)
	}
	return networks
}

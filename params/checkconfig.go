package params

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crosslock/CrossChain-Solver/quote"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

// CheckConfig check config, misconfiguration fails loudly at startup
// instead of surfacing as runtime errors mid-swap.
func CheckConfig() (err error) {
	config := GetConfig()
	if config.Identifier == "" {
		return errors.New("must config non empty 'Identifier'")
	}
	if config.MongoDB == nil {
		return errors.New("must config 'MongoDB'")
	}
	if err = config.MongoDB.CheckConfig(); err != nil {
		return err
	}
	if config.Signer == nil {
		return errors.New("must config 'Signer'")
	}
	if err = config.Signer.CheckConfig(); err != nil {
		return err
	}
	if config.LevelDB == nil || config.LevelDB.DataDir == "" {
		return errors.New("must config 'LevelDB.DataDir'")
	}
	if len(config.Networks) == 0 {
		return errors.New("must config at least one network in 'Networks'")
	}
	for _, n := range config.Networks {
		if err = n.CheckConfig(); err != nil {
			return err
		}
	}
	if len(config.Routes) == 0 {
		return errors.New("must config at least one route in 'Routes'")
	}
	for _, r := range config.Routes {
		if err = r.CheckConfig(config); err != nil {
			return err
		}
	}
	if config.Alert != nil {
		if err = config.Alert.CheckConfig(); err != nil {
			return err
		}
	}
	return nil
}

// CheckConfig check mongodb config
func (c *MongoDBConfig) CheckConfig() error {
	if c.DBURL == "" {
		return errors.New("must config 'MongoDB.DBURL'")
	}
	if c.DBName == "" {
		return errors.New("must config 'MongoDB.DBName'")
	}
	return nil
}

// CheckConfig check signer config
func (c *SignerConfig) CheckConfig() error {
	if c.APIPrefix == "" {
		return errors.New("must config 'Signer.APIPrefix'")
	}
	if c.RPCTimeout == 0 {
		return errors.New("must config 'Signer.RPCTimeout'")
	}
	return nil
}

// CheckConfig check network config
func (c *NetworkConfig) CheckConfig() error {
	if c.Name == "" {
		return errors.New("network must config 'Name'")
	}
	switch tokens.ChainFamily(c.Family) {
	case tokens.FamilyEVM, tokens.FamilySolana, tokens.FamilyStarknet, tokens.FamilyFuel:
	default:
		return fmt.Errorf("network %v has unknown family '%v'", c.Name, c.Family)
	}
	if len(c.Gateways) == 0 {
		return fmt.Errorf("network %v must config 'Gateways'", c.Name)
	}
	if c.NativeToken == "" {
		return fmt.Errorf("network %v must config 'NativeToken'", c.Name)
	}
	if c.Confirmations == 0 {
		return fmt.Errorf("network %v must config nonzero 'Confirmations'", c.Name)
	}
	if len(c.ManagedAccounts) == 0 {
		return fmt.Errorf("network %v must config 'ManagedAccounts'", c.Name)
	}
	hasPrimary := false
	for _, acc := range c.ManagedAccounts {
		if acc.Address == "" {
			return fmt.Errorf("network %v has managed account without address", c.Name)
		}
		switch tokens.AccountRole(acc.Role) {
		case tokens.RolePrimary:
			hasPrimary = true
		case tokens.RoleLiquidity:
		default:
			return fmt.Errorf("network %v managed account %v has unknown role '%v'", c.Name, acc.Address, acc.Role)
		}
	}
	if !hasPrimary {
		return fmt.Errorf("network %v must config a managed account with role 'primary'", c.Name)
	}
	hasNative := false
	for _, t := range c.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("network %v has token without symbol", c.Name)
		}
		if strings.EqualFold(t.Symbol, c.NativeToken) {
			if t.ContractAddress != "" {
				return fmt.Errorf("network %v native token %v must not have a contract address", c.Name, t.Symbol)
			}
			hasNative = true
		}
	}
	if !hasNative {
		return fmt.Errorf("network %v must config its native token %v in 'Tokens'", c.Name, c.NativeToken)
	}
	return nil
}

// CheckConfig check route config against the configured networks
func (r *RouteConfig) CheckConfig(config *SolverConfig) error {
	for _, amountStr := range []string{r.MinAmount, r.MaxAmount} {
		if amountStr == "" {
			return fmt.Errorf("route %v:%v -> %v:%v must config 'MinAmount' and 'MaxAmount'",
				r.SrcNetwork, r.SrcToken, r.DstNetwork, r.DstToken)
		}
	}
	route := r.ToRoute()
	if err := quote.CheckRoute(route); err != nil {
		return fmt.Errorf("route %v:%v -> %v:%v is invalid: %w",
			r.SrcNetwork, r.SrcToken, r.DstNetwork, r.DstToken, err)
	}
	srcOK, dstOK := false, false
	for _, n := range config.Networks {
		if strings.EqualFold(n.Name, r.SrcNetwork) {
			srcOK = hasToken(n, r.SrcToken)
		}
		if strings.EqualFold(n.Name, r.DstNetwork) {
			dstOK = hasToken(n, r.DstToken)
		}
	}
	if !srcOK {
		return fmt.Errorf("route source %v:%v is not a configured network token", r.SrcNetwork, r.SrcToken)
	}
	if !dstOK {
		return fmt.Errorf("route destination %v:%v is not a configured network token", r.DstNetwork, r.DstToken)
	}
	return nil
}

func hasToken(n *NetworkConfig, symbol string) bool {
	for _, t := range n.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return true
		}
	}
	return false
}

// CheckConfig check alert config
func (c *AlertConfig) CheckConfig() error {
	if c.Server == "" || c.Port == 0 {
		return errors.New("must config 'Alert.Server' and 'Alert.Port'")
	}
	if c.From == "" || len(c.To) == 0 {
		return errors.New("must config 'Alert.From' and 'Alert.To'")
	}
	return nil
}

package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"evmlogindexer/internal/storage"
)

// DescriptorLoader returns the parsed descriptor of a contract kind.
type DescriptorLoader interface {
	Load(kind string) (abi.ABI, error)
}

// Dependencies are shared by every handler built by a Registry.
type Dependencies struct {
	// ChainID labels records produced by handlers.
	ChainID uint64
	// Pools is optional. When nil, discovered pools are only logged.
	Pools  storage.PoolStore
	Logger *zap.Logger
}

// Factory builds a handler for a contract at address.
type Factory func(address common.Address, descriptor abi.ABI, deps Dependencies) (Handler, error)

var factories = map[string]Factory{
	UniswapV3FactoryKind: func(address common.Address, descriptor abi.ABI, deps Dependencies) (Handler, error) {
		return NewUniswapV3Factory(address, descriptor, deps)
	},
}

// Registry maps contract addresses to handlers.
type Registry struct {
	contracts map[string]string
	loader    DescriptorLoader
	deps      Dependencies
	factories map[string]Factory
}

// NewRegistry builds a registry from an address to contract kind mapping.
func NewRegistry(contracts map[string]string, loader DescriptorLoader, deps Dependencies) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	normalized := make(map[string]string, len(contracts))
	for address, kind := range contracts {
		normalized[normalizeAddress(address)] = kind
	}
	return &Registry{
		contracts: normalized,
		loader:    loader,
		deps:      deps,
		factories: factories,
	}
}

// Kinds lists the contract kinds with a registered handler.
func Kinds() []string {
	out := make([]string, 0, len(factories))
	for kind := range factories {
		out = append(out, kind)
	}
	return out
}

// GetProcessor builds the handler for the contract emitting at address.
func (r *Registry) GetProcessor(address common.Address) (Handler, error) {
	key := normalizeAddress(address.Hex())
	kind, ok := r.contracts[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddress, key)
	}
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContract, kind)
	}
	descriptor, err := r.loader.Load(kind)
	if err != nil {
		return nil, err
	}
	return factory(address, descriptor, r.deps)
}

func normalizeAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}
	return address
}

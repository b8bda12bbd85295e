package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"evmlogindexer/internal/model"
	"evmlogindexer/internal/storage"
)

const UniswapV3FactoryKind = "uniswap_v3_factory"

const poolCreatedEvent = "PoolCreated"

// UniswapV3Factory handles logs of a Uniswap V3 style pool factory.
type UniswapV3Factory struct {
	address     common.Address
	descriptor  abi.ABI
	topicToName map[common.Hash]string
	chainID     uint64
	pools       storage.PoolStore
	logger      *zap.Logger
}

// NewUniswapV3Factory builds a factory handler from its descriptor.
func NewUniswapV3Factory(address common.Address, descriptor abi.ABI, deps Dependencies) (*UniswapV3Factory, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	topicToName := make(map[common.Hash]string, len(descriptor.Events))
	for _, event := range descriptor.Events {
		// only the first declared overload keeps its raw name as map key
		if event.Name != event.RawName {
			continue
		}
		topicToName[event.ID] = event.RawName
	}

	return &UniswapV3Factory{
		address:     address,
		descriptor:  descriptor,
		topicToName: topicToName,
		chainID:     deps.ChainID,
		pools:       deps.Pools,
		logger:      logger.Named(UniswapV3FactoryKind),
	}, nil
}

func (h *UniswapV3Factory) Kind() string {
	return UniswapV3FactoryKind
}

func (h *UniswapV3Factory) EventSignatureToName(signature common.Hash) (string, error) {
	name, ok := h.topicToName[signature]
	if !ok {
		return "", fmt.Errorf("%w: `%s`: `%s`", ErrMissingEvent, UniswapV3FactoryKind, strings.ToLower(signature.Hex()))
	}
	return name, nil
}

func (h *UniswapV3Factory) HandleEvent(ctx context.Context, name string, log types.Log) error {
	switch name {
	case poolCreatedEvent:
		pool, err := h.decodePoolCreated(log)
		if err != nil {
			return err
		}
		h.logger.Info("pool created",
			zap.String("factory", pool.Factory),
			zap.String("pool", pool.Address),
			zap.String("token0", pool.Token0),
			zap.String("token1", pool.Token1),
			zap.Uint32("fee", pool.Fee),
			zap.Int32("tick_spacing", pool.TickSpacing),
			zap.Uint64("block", pool.FirstSeenBlock),
		)
		if h.pools == nil {
			return nil
		}
		if err := h.pools.UpsertPools(ctx, []model.Pool{pool}); err != nil {
			return fmt.Errorf("record pool %s: %w", pool.Address, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: `%s`: `%s`", ErrMissingEventHandler, UniswapV3FactoryKind, name)
	}
}

func (h *UniswapV3Factory) Process(ctx context.Context, record model.LogRecord) error {
	name, err := h.EventSignatureToName(record.EventSignature)
	if err != nil {
		return err
	}
	log, err := record.ToLog()
	if err != nil {
		return err
	}
	return h.HandleEvent(ctx, name, log)
}

func (h *UniswapV3Factory) decodePoolCreated(log types.Log) (model.Pool, error) {
	event, ok := h.descriptor.Events[poolCreatedEvent]
	if !ok {
		return model.Pool{}, fmt.Errorf("%w: `%s`: `%s`", ErrMissingEvent, UniswapV3FactoryKind, poolCreatedEvent)
	}

	if err := checkTopicCount(event, log.Topics); err != nil {
		return model.Pool{}, err
	}
	indexed := make(map[string]interface{})
	if err := abi.ParseTopicsIntoMap(indexed, indexedArguments(event.Inputs), log.Topics[1:]); err != nil {
		return model.Pool{}, fmt.Errorf("parse %s topics: %w", poolCreatedEvent, err)
	}

	values := make(map[string]interface{})
	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, log.Data); err != nil {
		return model.Pool{}, fmt.Errorf("unpack %s: %w", poolCreatedEvent, err)
	}

	token0, err := asAddress(indexed["token0"])
	if err != nil {
		return model.Pool{}, err
	}
	token1, err := asAddress(indexed["token1"])
	if err != nil {
		return model.Pool{}, err
	}
	fee, err := asBigInt(indexed["fee"])
	if err != nil {
		return model.Pool{}, err
	}
	if !fee.IsUint64() || fee.Uint64() > 1<<24-1 {
		return model.Pool{}, fmt.Errorf("uint24 overflow: %s", fee.String())
	}
	tickSpacingRaw, err := asBigInt(values["tickSpacing"])
	if err != nil {
		return model.Pool{}, err
	}
	tickSpacing, err := int24FromBig(tickSpacingRaw)
	if err != nil {
		return model.Pool{}, err
	}
	poolAddress, err := asAddress(values["pool"])
	if err != nil {
		return model.Pool{}, err
	}

	return model.Pool{
		ChainID:        h.chainID,
		Address:        strings.ToLower(poolAddress.Hex()),
		Factory:        strings.ToLower(log.Address.Hex()),
		Token0:         strings.ToLower(token0.Hex()),
		Token1:         strings.ToLower(token1.Hex()),
		Fee:            uint32(fee.Uint64()),
		TickSpacing:    tickSpacing,
		FirstSeenBlock: log.BlockNumber,
	}, nil
}

func checkTopicCount(event abi.Event, topics []common.Hash) error {
	want := len(indexedArguments(event.Inputs)) + 1
	if len(topics) != want {
		return fmt.Errorf("%s: expected %d topics, got %d", event.Name, want, len(topics))
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported integer type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}

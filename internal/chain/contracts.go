package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// Backend is the slice of Client the contract wrappers need. Narrowing it to
// an interface keeps the wrappers exercisable with fakes.
type Backend interface {
	Call(ctx context.Context, contract common.Address, data []byte) ([]byte, error)
	SendTransaction(ctx context.Context, contract common.Address, data []byte, gasLimit uint64, gasPrice *big.Int) (common.Hash, error)
}

const rewardAdapterABIJSON = `[
	{"type":"function","name":"getPendingRewards","stateMutability":"view","inputs":[{"name":"source","type":"address"},{"name":"claimant","type":"address"}],"outputs":[{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"compound","stateMutability":"nonpayable","inputs":[{"name":"source","type":"address"}],"outputs":[{"name":"harvested","type":"uint256"}]}
]`

const leverageManagerABIJSON = `[
	{"type":"function","name":"getHealthFactor","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"ratio","type":"uint256"}]},
	{"type":"function","name":"getPositionHealth","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"healthFactor","type":"uint256"},{"name":"collateralValue","type":"uint256"},{"name":"borrowValue","type":"uint256"},{"name":"isHealthy","type":"bool"}]},
	{"type":"function","name":"rebalance","stateMutability":"nonpayable","inputs":[{"name":"user","type":"address"}],"outputs":[]}
]`

const pausableABIJSON = `[
	{"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	abiOnce            sync.Once
	rewardAdapterABI   abi.ABI
	leverageManagerABI abi.ABI
	pausableABI        abi.ABI
)

func mustABIs() {
	abiOnce.Do(func() {
		var err error
		if rewardAdapterABI, err = abi.JSON(strings.NewReader(rewardAdapterABIJSON)); err != nil {
			panic("chain: reward adapter abi: " + err.Error())
		}
		if leverageManagerABI, err = abi.JSON(strings.NewReader(leverageManagerABIJSON)); err != nil {
			panic("chain: leverage manager abi: " + err.Error())
		}
		if pausableABI, err = abi.JSON(strings.NewReader(pausableABIJSON)); err != nil {
			panic("chain: pausable abi: " + err.Error())
		}
	})
}

// wadFloat converts an 1e18-scaled contract value to a float64.
func wadFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), weiPerEthFloat()).Float64()
	return f
}

func weiPerEthFloat() *big.Float {
	return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// RewardAdapter wraps one reward adapter contract.
type RewardAdapter struct {
	backend Backend
	addr    common.Address
}

// NewRewardAdapter creates a wrapper for the adapter at the given address.
func NewRewardAdapter(backend Backend, addr string) *RewardAdapter {
	mustABIs()
	return &RewardAdapter{backend: backend, addr: common.HexToAddress(addr)}
}

// PendingRewards returns the claimable amount for (source, claimant) in the
// reward token's base units.
func (r *RewardAdapter) PendingRewards(ctx context.Context, source, claimant string) (*big.Int, error) {
	data, err := rewardAdapterABI.Pack("getPendingRewards", common.HexToAddress(source), common.HexToAddress(claimant))
	if err != nil {
		return nil, fmt.Errorf("chain: pack getPendingRewards: %w", err)
	}

	out, err := r.backend.Call(ctx, r.addr, data)
	if err != nil {
		return nil, err
	}

	vals, err := rewardAdapterABI.Unpack("getPendingRewards", out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack getPendingRewards: %w", err)
	}
	return abi.ConvertType(vals[0], new(big.Int)).(*big.Int), nil
}

// Compound submits a compound transaction for the given source. gasLimit of 0
// lets the client estimate with its buffer.
func (r *RewardAdapter) Compound(ctx context.Context, source string, gasLimit uint64, gasPrice *big.Int) (common.Hash, error) {
	data, err := rewardAdapterABI.Pack("compound", common.HexToAddress(source))
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: pack compound: %w", err)
	}
	return r.backend.SendTransaction(ctx, r.addr, data, gasLimit, gasPrice)
}

// LeverageManager wraps the leverage manager contract.
type LeverageManager struct {
	backend Backend
	addr    common.Address
}

// NewLeverageManager creates a wrapper for the manager at the given address.
func NewLeverageManager(backend Backend, addr string) *LeverageManager {
	mustABIs()
	return &LeverageManager{backend: backend, addr: common.HexToAddress(addr)}
}

// HealthFactor returns the user's health factor. Zero-borrow positions are
// reported as maximally healthy rather than a division fault.
func (m *LeverageManager) HealthFactor(ctx context.Context, user string) (float64, error) {
	health, err := m.PositionHealth(ctx, user)
	if err != nil {
		return 0, err
	}
	return health.HealthFactor, nil
}

// PositionHealth returns a fresh snapshot of the user's leveraged position.
func (m *LeverageManager) PositionHealth(ctx context.Context, user string) (domain.PositionHealth, error) {
	data, err := leverageManagerABI.Pack("getPositionHealth", common.HexToAddress(user))
	if err != nil {
		return domain.PositionHealth{}, fmt.Errorf("chain: pack getPositionHealth: %w", err)
	}

	out, err := m.backend.Call(ctx, m.addr, data)
	if err != nil {
		return domain.PositionHealth{}, err
	}

	vals, err := leverageManagerABI.Unpack("getPositionHealth", out)
	if err != nil {
		return domain.PositionHealth{}, fmt.Errorf("chain: unpack getPositionHealth: %w", err)
	}

	health := domain.PositionHealth{
		Owner:           user,
		HealthFactor:    wadFloat(abi.ConvertType(vals[0], new(big.Int)).(*big.Int)),
		CollateralValue: wadFloat(abi.ConvertType(vals[1], new(big.Int)).(*big.Int)),
		BorrowValue:     wadFloat(abi.ConvertType(vals[2], new(big.Int)).(*big.Int)),
		Healthy:         vals[3].(bool),
	}
	if health.BorrowValue == 0 {
		health.HealthFactor = domain.MaxHealthFactor
	}
	return health, nil
}

// Rebalance submits a rebalance transaction for the given user.
func (m *LeverageManager) Rebalance(ctx context.Context, user string, gasLimit uint64, gasPrice *big.Int) (common.Hash, error) {
	data, err := leverageManagerABI.Pack("rebalance", common.HexToAddress(user))
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: pack rebalance: %w", err)
	}
	return m.backend.SendTransaction(ctx, m.addr, data, gasLimit, gasPrice)
}

// Paused reads the pause flag of a Pausable contract.
func Paused(ctx context.Context, backend Backend, contract string) (bool, error) {
	mustABIs()
	data, err := pausableABI.Pack("paused")
	if err != nil {
		return false, fmt.Errorf("chain: pack paused: %w", err)
	}

	out, err := backend.Call(ctx, common.HexToAddress(contract), data)
	if err != nil {
		return false, err
	}

	vals, err := pausableABI.Unpack("paused", out)
	if err != nil {
		return false, fmt.Errorf("chain: unpack paused: %w", err)
	}
	return vals[0].(bool), nil
}

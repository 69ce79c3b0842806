package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const vaultABIJSON = `[
	{"type":"event","name":"Deposit","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"assets","type":"uint256","indexed":false},{"name":"shares","type":"uint256","indexed":false}]},
	{"type":"event","name":"Withdraw","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"assets","type":"uint256","indexed":false},{"name":"shares","type":"uint256","indexed":false},{"name":"mature","type":"bool","indexed":false},{"name":"penalty","type":"uint256","indexed":false}]}
]`

var (
	vaultABIOnce sync.Once
	vaultABI     abi.ABI
)

func mustVaultABI() abi.ABI {
	vaultABIOnce.Do(func() {
		var err error
		if vaultABI, err = abi.JSON(strings.NewReader(vaultABIJSON)); err != nil {
			panic("chain: vault abi: " + err.Error())
		}
	})
	return vaultABI
}

// DepositEvent is one observed vault deposit.
type DepositEvent struct {
	Owner    string
	Assets   float64
	Shares   float64
	TxRef    string
	At       time.Time
	Block    uint64
	LogIndex uint
}

// WithdrawEvent is one observed vault withdrawal.
type WithdrawEvent struct {
	Owner    string
	Assets   float64
	Shares   float64
	Mature   bool
	Penalty  float64
	TxRef    string
	At       time.Time
	Block    uint64
	LogIndex uint
}

// LogSource is the slice of Client the vault watcher needs.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockTime(ctx context.Context, block uint64) (time.Time, error)
}

// BlockTime returns the timestamp of the given block.
func (c *Client) BlockTime(ctx context.Context, block uint64) (time.Time, error) {
	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(block))
	if err != nil {
		return time.Time{}, fmt.Errorf("chain: header %d: %w", block, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// Vault reads Deposit/Withdraw events from one share vault contract.
type Vault struct {
	source LogSource
	addr   common.Address
}

// NewVault creates a reader for the vault at the given address.
func NewVault(source LogSource, addr string) *Vault {
	mustVaultABI()
	return &Vault{source: source, addr: common.HexToAddress(addr)}
}

// Address returns the vault's contract address in canonical hex form.
func (v *Vault) Address() string {
	return v.addr.Hex()
}

// Events returns the deposit and withdrawal events in [from, to], ordered as
// the chain emitted them. Block timestamps are resolved once per distinct
// block.
func (v *Vault) Events(ctx context.Context, from, to uint64) ([]DepositEvent, []WithdrawEvent, error) {
	vaultABI := mustVaultABI()
	depositID := vaultABI.Events["Deposit"].ID
	withdrawID := vaultABI.Events["Withdraw"].ID

	logs, err := v.source.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{v.addr},
		Topics:    [][]common.Hash{{depositID, withdrawID}},
	})
	if err != nil {
		return nil, nil, err
	}

	blockTimes := make(map[uint64]time.Time)
	at := func(block uint64) (time.Time, error) {
		if ts, ok := blockTimes[block]; ok {
			return ts, nil
		}
		ts, err := v.source.BlockTime(ctx, block)
		if err != nil {
			return time.Time{}, err
		}
		blockTimes[block] = ts
		return ts, nil
	}

	var deposits []DepositEvent
	var withdrawals []WithdrawEvent

	for _, lg := range logs {
		if len(lg.Topics) < 2 {
			continue
		}
		owner := common.BytesToAddress(lg.Topics[1].Bytes()).Hex()
		txRef := fmt.Sprintf("%s:%d", lg.TxHash.Hex(), lg.Index)

		ts, err := at(lg.BlockNumber)
		if err != nil {
			return nil, nil, err
		}

		switch lg.Topics[0] {
		case depositID:
			vals, err := vaultABI.Unpack("Deposit", lg.Data)
			if err != nil {
				return nil, nil, fmt.Errorf("chain: unpack Deposit: %w", err)
			}
			deposits = append(deposits, DepositEvent{
				Owner:    owner,
				Assets:   wadFloat(abi.ConvertType(vals[0], new(big.Int)).(*big.Int)),
				Shares:   wadFloat(abi.ConvertType(vals[1], new(big.Int)).(*big.Int)),
				TxRef:    txRef,
				At:       ts,
				Block:    lg.BlockNumber,
				LogIndex: lg.Index,
			})
		case withdrawID:
			vals, err := vaultABI.Unpack("Withdraw", lg.Data)
			if err != nil {
				return nil, nil, fmt.Errorf("chain: unpack Withdraw: %w", err)
			}
			withdrawals = append(withdrawals, WithdrawEvent{
				Owner:    owner,
				Assets:   wadFloat(abi.ConvertType(vals[0], new(big.Int)).(*big.Int)),
				Shares:   wadFloat(abi.ConvertType(vals[1], new(big.Int)).(*big.Int)),
				Mature:   vals[2].(bool),
				Penalty:  wadFloat(abi.ConvertType(vals[3], new(big.Int)).(*big.Int)),
				TxRef:    txRef,
				At:       ts,
				Block:    lg.BlockNumber,
				LogIndex: lg.Index,
			})
		}
	}

	return deposits, withdrawals, nil
}

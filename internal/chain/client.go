// Package chain wraps the Ethereum JSON-RPC client with the small set of
// operations the keepers need: gas sampling, reads, contract calls, signed
// transaction submission, and receipt waiting. The client holds no mutable
// per-call state beyond the connection, so agents can share one instance.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// receiptPollInterval is how often WaitForReceipt re-queries the node.
const receiptPollInterval = 3 * time.Second

// ClientConfig holds connection and signing parameters.
type ClientConfig struct {
	RPCURL         string
	ChainID        int64
	Confirmations  uint64
	ReceiptTimeout time.Duration
	// PrivateKeyHex is the keeper wallet key. Optional for read-only modes;
	// transaction submission fails without it.
	PrivateKeyHex string
}

// Client is the concrete chain RPC client.
type Client struct {
	eth            *ethclient.Client
	chainID        *big.Int
	key            *ecdsa.PrivateKey
	keeper         common.Address
	confirmations  uint64
	receiptTimeout time.Duration
}

// New dials the RPC endpoint, verifies the chain ID, and optionally loads the
// keeper signing key.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: query chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("chain: endpoint reports chain id %d, config expects %d", chainID.Int64(), cfg.ChainID)
	}

	c := &Client{
		eth:            eth,
		chainID:        chainID,
		confirmations:  max(cfg.Confirmations, 1),
		receiptTimeout: cfg.ReceiptTimeout,
	}
	if c.receiptTimeout <= 0 {
		c.receiptTimeout = 2 * time.Minute
	}

	if cfg.PrivateKeyHex != "" {
		key, err := ethcrypto.HexToECDSA(trim0x(cfg.PrivateKeyHex))
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("chain: parse keeper key: %w", err)
		}
		c.key = key
		c.keeper = ethcrypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Keeper returns the keeper wallet address, or the zero address in read-only
// mode.
func (c *Client) Keeper() common.Address {
	return c.keeper
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}

// BlockNumber returns the latest block height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain: block number: %w", err)
	}
	return n, nil
}

// Balance returns the native-token balance of an address in wei.
func (c *Client) Balance(ctx context.Context, addr string) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balance of %s: %w", addr, err)
	}
	return bal, nil
}

// SuggestGasPrice samples the node's current gas price in wei.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: suggest gas price: %w", err)
	}
	return price, nil
}

// Call performs a read-only contract call with pre-packed calldata and
// returns the raw return bytes.
func (c *Client) Call(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", contract.Hex(), err)
	}
	return out, nil
}

// EstimateGas estimates the gas usage of a state-changing call from the
// keeper wallet.
func (c *Client) EstimateGas(ctx context.Context, contract common.Address, data []byte) (uint64, error) {
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.keeper,
		To:   &contract,
		Data: data,
	})
	if err != nil {
		return 0, fmt.Errorf("chain: estimate gas for %s: %w", contract.Hex(), err)
	}
	return gas, nil
}

// SendTransaction signs and submits a transaction from the keeper wallet and
// returns its hash. gasLimit of 0 triggers estimation with a 20% buffer.
func (c *Client) SendTransaction(ctx context.Context, contract common.Address, data []byte, gasLimit uint64, gasPrice *big.Int) (common.Hash, error) {
	if c.key == nil {
		return common.Hash{}, fmt.Errorf("chain: no keeper key configured")
	}

	if gasLimit == 0 {
		estimated, err := c.EstimateGas(ctx, contract, data)
		if err != nil {
			return common.Hash{}, err
		}
		gasLimit = estimated + estimated/5
	}

	if gasPrice == nil {
		price, err := c.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		gasPrice = price
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.keeper)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: pending nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: sign tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("chain: send tx: %w", err)
	}
	return signed.Hash(), nil
}

// WaitForReceipt polls for a transaction receipt until it is mined with the
// configured number of confirmations, the receipt timeout elapses, or ctx is
// cancelled. A mined-but-reverted transaction returns the receipt together
// with domain.ErrTxReverted.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			head, headErr := c.eth.BlockNumber(ctx)
			if headErr == nil && head >= receipt.BlockNumber.Uint64()+c.confirmations-1 {
				if receipt.Status != types.ReceiptStatusSuccessful {
					return receipt, fmt.Errorf("chain: tx %s: %w", txHash.Hex(), domain.ErrTxReverted)
				}
				return receipt, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("chain: waiting for receipt %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// FilterLogs queries contract logs within a block range.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	logs, err := c.eth.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("chain: filter logs: %w", err)
	}
	return logs, nil
}

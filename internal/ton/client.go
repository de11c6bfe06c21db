package ton

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"go.uber.org/zap"
)

// ConnectConfig selects how the lite client connects to the TON network.
type ConnectConfig struct {
	Network        string // mainnet/testnet
	LiteServerHost string
	LiteServerPort int
	LiteServerKey  string
}

// Connect establishes a lite client connection. With an explicit lite server
// configured it connects there; otherwise it auto-discovers servers from the
// global network config.
func Connect(ctx context.Context, cfg ConnectConfig, log *zap.Logger) (ton.APIClientWrapped, error) {
	client := liteclient.NewConnectionPool()

	if cfg.LiteServerHost != "" && cfg.LiteServerKey != "" {
		addr := fmt.Sprintf("%s:%d", cfg.LiteServerHost, cfg.LiteServerPort)
		log.Info("connecting to lite server", zap.String("addr", addr))
		if err := client.AddConnection(ctx, addr, cfg.LiteServerKey); err != nil {
			return nil, fmt.Errorf("connect to lite server %s: %w", addr, err)
		}
	} else {
		var configURL string
		switch strings.ToLower(cfg.Network) {
		case "mainnet":
			configURL = "https://ton.org/global.config.json"
		default:
			configURL = "https://ton.org/testnet-global.config.json"
		}
		log.Info("connecting via global config", zap.String("url", configURL), zap.String("network", cfg.Network))
		if err := client.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
			return nil, fmt.Errorf("connect via config %s: %w", configURL, err)
		}
	}

	proofPolicy := ton.ProofCheckPolicyFast
	if strings.ToLower(cfg.Network) == "mainnet" {
		proofPolicy = ton.ProofCheckPolicySecure
	}

	return ton.NewAPIClient(client, proofPolicy).WithRetry(), nil
}

// Client signs outgoing transfers from the custody wallet and reads account
// balances. It implements the service layer's token capability; incoming
// transfers are observed separately by the deposit watcher.
type Client struct {
	api ton.APIClientWrapped
	w   *wallet.Wallet
	log *zap.Logger
}

// NewClient opens the custody wallet from its seed phrase.
func NewClient(api ton.APIClientWrapped, seed string, log *zap.Logger) (*Client, error) {
	words := strings.Fields(seed)
	if len(words) == 0 {
		return nil, fmt.Errorf("custody wallet seed is empty")
	}

	w, err := wallet.FromSeed(api, words, wallet.V4R2)
	if err != nil {
		return nil, fmt.Errorf("open custody wallet: %w", err)
	}

	return &Client{api: api, w: w, log: log}, nil
}

// Address returns the custody wallet address.
func (c *Client) Address() string {
	return c.w.WalletAddress().String()
}

// Transfer sends amount (nano) from the custody wallet to the destination.
// The from argument is informational: the custody wallet is the only account
// this client can sign for, and a mismatch is rejected.
func (c *Client) Transfer(ctx context.Context, from, to string, amount int64) error {
	if from != "" && from != c.Address() {
		return fmt.Errorf("cannot sign for %s, custody wallet is %s", from, c.Address())
	}

	dst, err := address.ParseAddr(to)
	if err != nil {
		return fmt.Errorf("parse destination %s: %w", to, err)
	}

	coins := tlb.FromNanoTON(big.NewInt(amount))
	tx, _, err := c.w.TransferWaitTransaction(ctx, dst, coins, "")
	if err != nil {
		return fmt.Errorf("transfer %s to %s: %w", coins.String(), to, err)
	}

	c.log.Info("transfer confirmed",
		zap.String("to", to),
		zap.Int64("amount_nano", amount),
		zap.Uint64("tx_lt", tx.LT),
	)
	return nil
}

// BalanceOf returns the account's balance in nano.
func (c *Client) BalanceOf(ctx context.Context, account string) (int64, error) {
	addr, err := address.ParseAddr(account)
	if err != nil {
		return 0, fmt.Errorf("parse address %s: %w", account, err)
	}

	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("get master block: %w", err)
	}

	acc, err := c.api.GetAccount(ctx, block, addr)
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	if acc == nil || !acc.IsActive {
		return 0, nil
	}
	return acc.State.Balance.Nano().Int64(), nil
}

// ExtractComment parses a text comment from an internal message body.
// TON text comments carry opcode 0x00000000 followed by UTF-8 text.
func ExtractComment(inMsg *tlb.InternalMessage) string {
	body := inMsg.Body
	if body == nil {
		return ""
	}

	slice := body.BeginParse()
	if slice.BitsLeft() < 32 {
		return ""
	}

	op, err := slice.LoadUInt(32)
	if err != nil || op != 0 {
		return ""
	}

	remaining := slice.BitsLeft()
	if remaining < 8 {
		return ""
	}

	data, err := slice.LoadSlice(remaining)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// Package spltoken executes delegated transfers from the treasury token
// account to investor and creator accounts of the same mint.
package spltoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/cascadelabs/feerouter/utils/pkg/retry"
)

// ErrTransferFailure wraps a failed token transfer. For investor
// payouts the caller skips the payout and routes the amount to dust.
var ErrTransferFailure = errors.New("token transfer failed")

type ClientConfig struct {
	Logger *slog.Logger
	RPC    *solanarpc.Client
	// Authority signs treasury debits; it must be the delegate of the
	// treasury token account.
	Authority solana.PrivateKey
	Retry     retry.Config
}

func (cfg *ClientConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.RPC == nil {
		return errors.New("rpc client is required")
	}
	if cfg.Authority == nil {
		return errors.New("authority is required")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

type Client struct {
	log *slog.Logger
	cfg ClientConfig
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// AccountExists reports whether a token account exists on chain.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	var out *solanarpc.GetAccountInfoResult
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		var err error
		out, err = c.cfg.RPC.GetAccountInfo(ctx, account)
		return err
	})
	if errors.Is(err, solanarpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: failed to inspect %s: %v", ErrTransferFailure, account, err)
	}
	return out.Value != nil, nil
}

// Transfer moves amount quote units from source to dest.
func (c *Client) Transfer(ctx context.Context, source, dest solana.PublicKey, amount uint64) error {
	inst := token.NewTransferInstruction(
		amount,
		source,
		dest,
		c.cfg.Authority.PublicKey(),
		nil,
	).Build()

	recent, err := c.cfg.RPC.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("%w: failed to fetch blockhash: %v", ErrTransferFailure, err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		recent.Value.Blockhash,
		solana.TransactionPayer(c.cfg.Authority.PublicKey()),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to build transaction: %v", ErrTransferFailure, err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if c.cfg.Authority.PublicKey().Equals(key) {
			return &c.cfg.Authority
		}
		return nil
	}); err != nil {
		return fmt.Errorf("%w: failed to sign transaction: %v", ErrTransferFailure, err)
	}

	err = retry.Do(ctx, c.cfg.Retry, func() error {
		_, err := c.cfg.RPC.SendTransaction(ctx, tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s -> %s amount %d: %v", ErrTransferFailure, source, dest, amount, err)
	}

	c.log.Debug("spltoken: transferred", "source", source.String(), "dest", dest.String(), "amount", amount)
	return nil
}

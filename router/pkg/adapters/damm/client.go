package damm

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/cascadelabs/feerouter/utils/pkg/retry"
)

// ErrAMMFailure wraps any RPC-level failure talking to the AMM program.
var ErrAMMFailure = errors.New("amm call failed")

type ClientConfig struct {
	Logger    *slog.Logger
	RPC       *solanarpc.Client
	ProgramID solana.PublicKey
	// Payer signs and funds the adapter's transactions.
	Payer solana.PrivateKey
	Retry retry.Config
}

func (cfg *ClientConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.RPC == nil {
		return errors.New("rpc client is required")
	}
	if cfg.ProgramID.IsZero() {
		return errors.New("program id is required")
	}
	if cfg.Payer == nil {
		return errors.New("payer is required")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// Client talks to the cp-amm program over RPC.
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

// GetPool fetches and decodes the pool account.
func (c *Client) GetPool(ctx context.Context, pool solana.PublicKey) (*Pool, error) {
	var out *solanarpc.GetAccountInfoResult
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		var err error
		out, err = c.cfg.RPC.GetAccountInfo(ctx, pool)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch pool %s: %v", ErrAMMFailure, pool, err)
	}
	if out.Value == nil {
		return nil, fmt.Errorf("%w: pool account %s not found", ErrAMMFailure, pool)
	}
	return DecodePool(out.Value.Data.GetBinary())
}

// CreateFeeOnlyPosition asks the AMM to create a zero-liquidity
// position owned by owner. The pool must already have passed
// ValidateQuoteOnly; the AMM enforces the same rules on-chain.
func (c *Client) CreateFeeOnlyPosition(ctx context.Context, pool, owner solana.PublicKey) (solana.PublicKey, error) {
	positionNFT := solana.NewWallet()

	inst := solana.NewInstruction(
		c.cfg.ProgramID,
		solana.AccountMetaSlice{
			solana.Meta(pool).WRITE(),
			solana.Meta(positionNFT.PublicKey()).WRITE().SIGNER(),
			solana.Meta(owner),
			solana.Meta(c.cfg.Payer.PublicKey()).WRITE().SIGNER(),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.TokenProgramID),
		},
		anchorDiscriminator("create_position"),
	)

	if err := c.sendAndConfirm(ctx, []solana.Instruction{inst}, positionNFT.PrivateKey); err != nil {
		return solana.PublicKey{}, err
	}

	c.log.Info("damm: created fee-only position",
		"pool", pool.String(),
		"position", positionNFT.PublicKey().String(),
		"owner", owner.String())
	return positionNFT.PublicKey(), nil
}

// ClaimFees claims accrued fees from the position into the base and
// quote treasuries and returns the two claimed amounts, measured as the
// balance deltas of the receiving token accounts.
func (c *Client) ClaimFees(ctx context.Context, pool, position, baseAccount, quoteAccount solana.PublicKey) (baseAmount, quoteAmount uint64, err error) {
	baseBefore, err := c.tokenBalance(ctx, baseAccount)
	if err != nil {
		return 0, 0, err
	}
	quoteBefore, err := c.tokenBalance(ctx, quoteAccount)
	if err != nil {
		return 0, 0, err
	}

	inst := solana.NewInstruction(
		c.cfg.ProgramID,
		solana.AccountMetaSlice{
			solana.Meta(pool).WRITE(),
			solana.Meta(position).WRITE(),
			solana.Meta(baseAccount).WRITE(),
			solana.Meta(quoteAccount).WRITE(),
			solana.Meta(c.cfg.Payer.PublicKey()).WRITE().SIGNER(),
			solana.Meta(solana.TokenProgramID),
		},
		anchorDiscriminator("claim_position_fee"),
	)

	if err := c.sendAndConfirm(ctx, []solana.Instruction{inst}); err != nil {
		return 0, 0, err
	}

	baseAfter, err := c.tokenBalance(ctx, baseAccount)
	if err != nil {
		return 0, 0, err
	}
	quoteAfter, err := c.tokenBalance(ctx, quoteAccount)
	if err != nil {
		return 0, 0, err
	}

	return baseAfter - baseBefore, quoteAfter - quoteBefore, nil
}

func (c *Client) tokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var out *solanarpc.GetTokenAccountBalanceResult
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		var err error
		out, err = c.cfg.RPC.GetTokenAccountBalance(ctx, account, solanarpc.CommitmentFinalized)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to fetch balance of %s: %v", ErrAMMFailure, account, err)
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid balance for %s: %v", ErrAMMFailure, account, err)
	}
	return amount, nil
}

func (c *Client) sendAndConfirm(ctx context.Context, insts []solana.Instruction, extraSigners ...solana.PrivateKey) error {
	recent, err := c.cfg.RPC.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("%w: failed to fetch blockhash: %v", ErrAMMFailure, err)
	}

	tx, err := solana.NewTransaction(insts, recent.Value.Blockhash, solana.TransactionPayer(c.cfg.Payer.PublicKey()))
	if err != nil {
		return fmt.Errorf("%w: failed to build transaction: %v", ErrAMMFailure, err)
	}

	signers := append([]solana.PrivateKey{c.cfg.Payer}, extraSigners...)
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("%w: failed to sign transaction: %v", ErrAMMFailure, err)
	}

	err = retry.Do(ctx, c.cfg.Retry, func() error {
		_, err := c.cfg.RPC.SendTransaction(ctx, tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to send transaction: %v", ErrAMMFailure, err)
	}
	return nil
}

// anchorDiscriminator derives the 8-byte anchor instruction
// discriminator for a global instruction name.
func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

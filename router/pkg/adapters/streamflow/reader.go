package streamflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/cascadelabs/feerouter/utils/pkg/retry"
)

// ErrReadFailure wraps RPC-level failures reading a stream record.
// Callers treat it as a per-investor warning (locked = 0), not a fatal
// error.
var ErrReadFailure = errors.New("vesting read failed")

type ReaderConfig struct {
	Logger *slog.Logger
	RPC    *solanarpc.Client
	Retry  retry.Config
}

func (cfg *ReaderConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.RPC == nil {
		return errors.New("rpc client is required")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// Reader reads still-locked amounts from on-chain stream records.
type Reader struct {
	log *slog.Logger
	cfg ReaderConfig
}

func NewReader(cfg ReaderConfig) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Reader{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// ReadLocked returns the still-locked amount of the stream at now. A
// missing record returns 0 with a warning rather than an error; a
// malformed record does the same.
func (r *Reader) ReadLocked(ctx context.Context, stream solana.PublicKey, now int64) (uint64, error) {
	var out *solanarpc.GetAccountInfoResult
	err := retry.Do(ctx, r.cfg.Retry, func() error {
		var err error
		out, err = r.cfg.RPC.GetAccountInfo(ctx, stream)
		return err
	})
	if errors.Is(err, solanarpc.ErrNotFound) || (err == nil && out.Value == nil) {
		r.log.Warn("streamflow: stream record missing, treating as fully unlocked", "stream", stream.String())
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrReadFailure, stream, err)
	}

	s, err := DecodeStream(out.Value.Data.GetBinary())
	if err != nil {
		r.log.Warn("streamflow: stream record malformed, treating as fully unlocked", "stream", stream.String(), "error", err)
		return 0, nil
	}

	if now < 0 {
		return 0, nil
	}
	return s.LockedAmount(uint64(now)), nil
}

package events

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	routertesting "github.com/cascadelabs/feerouter/utils/pkg/testing"
)

type captureSink struct {
	events []Event
	err    error
}

func (s *captureSink) Write(ctx context.Context, e Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func TestEmitter_ForwardsToSink(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	em := NewEmitter(routertesting.NewLogger(), sink)

	e := QuoteFeesClaimed{
		QuoteMint: solana.NewWallet().PublicKey(),
		DayIndex:  20_000,
		Amount:    10_000,
		Timestamp: 20_000 * 86_400,
	}
	em.Emit(context.Background(), e)

	assert.Len(t, sink.events, 1)
	assert.Equal(t, "quote_fees_claimed", sink.events[0].Name())
}

func TestEmitter_NilSinkIsFine(t *testing.T) {
	t.Parallel()

	em := NewEmitter(routertesting.NewLogger(), nil)
	em.Emit(context.Background(), PolicyUpdated{QuoteMint: solana.NewWallet().PublicKey()})
}

func TestEmitter_SinkFailureDoesNotPropagate(t *testing.T) {
	t.Parallel()

	sink := &captureSink{err: errors.New("sink down")}
	em := NewEmitter(routertesting.NewLogger(), sink)
	em.Emit(context.Background(), CreatorPayoutCompleted{
		QuoteMint: solana.NewWallet().PublicKey(),
		DayIndex:  1,
		Remainder: 42,
	})
	assert.Empty(t, sink.events)
}

func TestEventNames_Stable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "honorary_position_initialized", HonoraryPositionInitialized{}.Name())
	assert.Equal(t, "quote_fees_claimed", QuoteFeesClaimed{}.Name())
	assert.Equal(t, "investors_processed", InvestorsProcessed{}.Name())
	assert.Equal(t, "creator_payout_completed", CreatorPayoutCompleted{}.Name())
	assert.Equal(t, "policy_updated", PolicyUpdated{}.Name())
	assert.Equal(t, "vesting_read_failed", VestingReadFailed{}.Name())
}

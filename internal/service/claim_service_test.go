package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/counter"
	"github.com/qrewards/qrewards/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func claimInput(code string, n int) ClaimInput {
	return ClaimInput{
		Code:     code,
		Channel:  constants.ClaimChannelEmail,
		Contact:  fmt.Sprintf("guest%d@example.com", n),
		Locale:   "en",
		ClientIP: "203.0.113.7",
	}
}

// runConcurrentClaims 同时放行 n 个领取请求，返回成功数与售罄数
func runConcurrentClaims(t *testing.T, f *claimFixture, code string, n int) (int, int) {
	t.Helper()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		start     = make(chan struct{})
		successes int
		exhausted int
		others    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.claims.Claim(context.Background(), claimInput(code, i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrCardExhausted):
				exhausted++
			default:
				others = append(others, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()
	require.Empty(t, others)
	return successes, exhausted
}

func TestClaimSingleUnitConcurrent(t *testing.T) {
	f := newClaimFixture(t, newServiceTestConfig(), nil)
	card := f.createCard(t, 1, nil)

	successes, exhausted := runConcurrentClaims(t, f, card.Code, 2)
	require.Equal(t, 1, successes)
	require.Equal(t, 1, exhausted)

	_, err := f.claims.Claim(context.Background(), claimInput(card.Code, 99))
	require.ErrorIs(t, err, ErrCardExhausted)

	require.Equal(t, 0, f.quantity(t, card.ID))
	require.EqualValues(t, 1, f.recordCount(t, card.ID))
}

func TestClaimMultiUnitConcurrent(t *testing.T) {
	f := newClaimFixture(t, newServiceTestConfig(), nil)
	card := f.createCard(t, 3, nil)

	successes, exhausted := runConcurrentClaims(t, f, card.Code, 5)
	require.Equal(t, 3, successes)
	require.Equal(t, 2, exhausted)
	require.Equal(t, 0, f.quantity(t, card.ID))
	require.EqualValues(t, 3, f.recordCount(t, card.ID))
	require.Len(t, f.notifier.records, 3)
}

func TestClaimNeverOverRedeemsUnderLoad(t *testing.T) {
	f := newClaimFixture(t, newServiceTestConfig(), nil)
	card := f.createCard(t, 10, nil)

	successes, exhausted := runConcurrentClaims(t, f, card.Code, 40)
	require.Equal(t, 10, successes)
	require.Equal(t, 30, exhausted)
	require.Equal(t, 0, f.quantity(t, card.ID))
}

func TestClaimSuccessResult(t *testing.T) {
	f := newClaimFixture(t, newServiceTestConfig(), nil)
	card := f.createCard(t, 2, nil)

	input := claimInput(card.Code, 1)
	input.Contact = " Guest1@Example.com "
	result, err := f.claims.Claim(context.Background(), input)
	require.NoError(t, err)
	require.Regexp(t, `^QR\d{14}[0-9A-F]{8}$`, result.ClaimNo)
	require.Equal(t, constants.ClaimNotificationStatusPending, result.NotificationStatus)
	require.Equal(t, 1, result.Card.RemainingQuantity)
	require.False(t, result.Card.IsSoldOut)

	var record models.ClaimRecord
	require.NoError(t, f.db.Where("claim_no = ?", result.ClaimNo).First(&record).Error)
	require.Equal(t, "guest1@example.com", record.Contact)
	require.Equal(t, "en", record.Locale)
	require.Equal(t, "203.0.113.7", record.ClientIP)
}

func TestClaimExhaustedIsNoOp(t *testing.T) {
	var claimSpy *spyClaimRepo
	f := newClaimFixture(t, newServiceTestConfig(), func(f *claimFixture) {
		claimSpy = &spyClaimRepo{ClaimRecordRepository: f.claimRepo}
		f.claimRepo = claimSpy
	})
	card := f.createCard(t, 0, nil)

	for i := 0; i < 3; i++ {
		_, err := f.claims.Claim(context.Background(), claimInput(card.Code, i))
		require.ErrorIs(t, err, ErrCardExhausted)
	}
	require.Equal(t, 0, f.quantity(t, card.ID))
	require.Zero(t, claimSpy.creates.Load())
	require.Empty(t, f.notifier.records)
}

func TestClaimRecorderGatedOnGuardSuccess(t *testing.T) {
	cases := []struct {
		name    string
		guard   error
		wantErr error
	}{
		{name: "exhausted", guard: counter.ErrExhausted, wantErr: ErrCardExhausted},
		{name: "not_found", guard: counter.ErrNotFound, wantErr: ErrCardNotFound},
		{name: "expired", guard: counter.ErrExpired, wantErr: ErrCardExpired},
		{name: "store_unavailable", guard: errors.New("connection refused"), wantErr: ErrClaimStoreUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var claimSpy *spyClaimRepo
			f := newClaimFixture(t, newServiceTestConfig(), func(f *claimFixture) {
				claimSpy = &spyClaimRepo{ClaimRecordRepository: f.claimRepo}
				f.claimRepo = claimSpy
				guardErr := tc.guard
				f.store = &spyStore{Store: f.store, decrement: func(context.Context, uint, time.Time) (int, error) {
					return 0, guardErr
				}}
			})
			card := f.createCard(t, 5, nil)

			_, err := f.claims.Claim(context.Background(), claimInput(card.Code, 1))
			require.ErrorIs(t, err, tc.wantErr)
			require.Zero(t, claimSpy.creates.Load())
			require.Equal(t, 5, f.quantity(t, card.ID))
		})
	}
}

func TestAttemptClaimTimeoutIsStoreUnavailable(t *testing.T) {
	cfg := newServiceTestConfig()
	cfg.Claim.TimeoutMS = 20
	var guard *spyStore
	f := newClaimFixture(t, cfg, func(f *claimFixture) {
		guard = &spyStore{Store: f.store, decrement: func(ctx context.Context, _ uint, _ time.Time) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}}
		f.store = guard
	})
	card := f.createCard(t, 1, nil)

	_, err := f.claims.AttemptClaim(context.Background(), card.ID)
	require.ErrorIs(t, err, ErrClaimStoreUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotErrorIs(t, err, ErrCardExhausted)
	require.EqualValues(t, 1, guard.decrements.Load())
}

func TestRecordClaimIsNotIdempotent(t *testing.T) {
	f := newClaimFixture(t, newServiceTestConfig(), nil)
	card := f.createCard(t, 5, nil)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	first, err := f.claims.RecordClaim(context.Background(), card.ID, constants.ClaimChannelEmail, "same@example.com", "en", "", at)
	require.NoError(t, err)
	second, err := f.claims.RecordClaim(context.Background(), card.ID, constants.ClaimChannelEmail, "same@example.com", "en", "", at)
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.NotEqual(t, first.ClaimNo, second.ClaimNo)
	require.EqualValues(t, 2, f.recordCount(t, card.ID))
	// 记录器不触碰库存
	require.Equal(t, 5, f.quantity(t, card.ID))
}

func TestClaimRecordFailureKeepsInventoryConsumed(t *testing.T) {
	f := newClaimFixture(t, newServiceTestConfig(), func(f *claimFixture) {
		f.claimRepo = &spyClaimRepo{ClaimRecordRepository: f.claimRepo, failErr: errors.New("disk full")}
	})
	card := f.createCard(t, 2, nil)

	_, err := f.claims.Claim(context.Background(), claimInput(card.Code, 1))
	require.ErrorIs(t, err, ErrClaimRecordFailed)
	require.NotErrorIs(t, err, ErrCardExhausted)
	require.Equal(t, 1, f.quantity(t, card.ID))
	require.EqualValues(t, 0, f.recordCount(t, card.ID))
	require.Empty(t, f.notifier.records)
}

func TestClaimDisabledCard(t *testing.T) {
	var guard *spyStore
	f := newClaimFixture(t, newServiceTestConfig(), func(f *claimFixture) {
		guard = &spyStore{Store: f.store}
		f.store = guard
	})
	card := f.createCard(t, 2, nil)
	card.Status = constants.CardStatusDisabled
	require.NoError(t, f.cardRepo.UpdateDetails(context.Background(), card))

	_, err := f.claims.Claim(context.Background(), claimInput(card.Code, 1))
	require.ErrorIs(t, err, ErrCardDisabled)
	require.Zero(t, guard.decrements.Load())
	require.Equal(t, 2, f.quantity(t, card.ID))
}

func TestClaimExpiredCardAtomicCheck(t *testing.T) {
	f := newClaimFixture(t, newServiceTestConfig(), nil)
	past := time.Now().Add(-time.Hour)
	card := f.createCard(t, 2, &past)

	_, err := f.claims.Claim(context.Background(), claimInput(card.Code, 1))
	require.ErrorIs(t, err, ErrCardExpired)
	require.Equal(t, 2, f.quantity(t, card.ID))
	require.EqualValues(t, 0, f.recordCount(t, card.ID))
}

func TestClaimExpiredCardPreCheck(t *testing.T) {
	cfg := newServiceTestConfig()
	cfg.Claim.AtomicExpiryCheck = false
	var guard *spyStore
	f := newClaimFixture(t, cfg, func(f *claimFixture) {
		guard = &spyStore{Store: f.store}
		f.store = guard
	})
	past := time.Now().Add(-time.Hour)
	card := f.createCard(t, 2, &past)

	_, err := f.claims.Claim(context.Background(), claimInput(card.Code, 1))
	require.ErrorIs(t, err, ErrCardExpired)
	require.Zero(t, guard.decrements.Load())
}

func TestClaimUnknownCode(t *testing.T) {
	f := newClaimFixture(t, newServiceTestConfig(), nil)
	_, err := f.claims.Claim(context.Background(), claimInput("does-not-exist", 1))
	require.ErrorIs(t, err, ErrCardNotFound)
}

func TestClaimCooldownWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.Use(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "qrtest")
	t.Cleanup(func() { _ = cache.Close() })

	cfg := newServiceTestConfig()
	cfg.Claim.CooldownSeconds = 30
	f := newClaimFixture(t, cfg, nil)
	card := f.createCard(t, 3, nil)

	_, err := f.claims.Claim(context.Background(), claimInput(card.Code, 1))
	require.NoError(t, err)
	_, err = f.claims.Claim(context.Background(), claimInput(card.Code, 1))
	require.ErrorIs(t, err, ErrClaimCooldown)
	require.Equal(t, 2, f.quantity(t, card.ID))

	mr.FastForward(31 * time.Second)
	_, err = f.claims.Claim(context.Background(), claimInput(card.Code, 1))
	require.NoError(t, err)

	// 守卫失败时释放冷却位，重试得到的仍是真实结果
	empty := f.createCard(t, 0, nil)
	_, err = f.claims.Claim(context.Background(), claimInput(empty.Code, 2))
	require.ErrorIs(t, err, ErrCardExhausted)
	_, err = f.claims.Claim(context.Background(), claimInput(empty.Code, 2))
	require.ErrorIs(t, err, ErrCardExhausted)
}

func TestClaimCooldownFailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.Use(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "qrtest")
	t.Cleanup(func() { _ = cache.Close() })
	mr.Close()

	cfg := newServiceTestConfig()
	cfg.Claim.CooldownSeconds = 30
	f := newClaimFixture(t, cfg, nil)
	card := f.createCard(t, 1, nil)

	_, err := f.claims.Claim(context.Background(), claimInput(card.Code, 1))
	require.NoError(t, err)
	require.Equal(t, 0, f.quantity(t, card.ID))
}

func TestClaimWithRedisCounterSyncsMirror(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newClaimFixture(t, newServiceTestConfig(), func(f *claimFixture) {
		f.store = counter.NewRedisStore(client, "qrtest", counter.Options{CheckExpiry: true})
	})
	card := f.createCard(t, 3, nil)

	successes, exhausted := runConcurrentClaims(t, f, card.Code, 5)
	require.Equal(t, 3, successes)
	require.Equal(t, 2, exhausted)

	remaining, err := f.store.Remaining(context.Background(), card.ID)
	require.NoError(t, err)
	require.Equal(t, 0, remaining)
	require.Equal(t, 0, f.quantity(t, card.ID))
}

func TestNormalizeClaimContact(t *testing.T) {
	cases := []struct {
		channel     string
		contact     string
		wantChannel string
		wantContact string
		wantErr     error
	}{
		{channel: "email", contact: " Someone@Example.com ", wantChannel: "email", wantContact: "someone@example.com"},
		{channel: "EMAIL", contact: "Someone <someone@example.com>", wantErr: ErrClaimContactInvalid},
		{channel: "email", contact: "not-an-email", wantErr: ErrClaimContactInvalid},
		{channel: "sms", contact: "+1 (555) 123-4567", wantChannel: "sms", wantContact: "+15551234567"},
		{channel: "sms", contact: "5551234567", wantErr: ErrClaimContactInvalid},
		{channel: "fax", contact: "+15551234567", wantErr: ErrClaimChannelInvalid},
	}
	for _, tc := range cases {
		channel, contact, err := normalizeClaimContact(tc.channel, tc.contact)
		if tc.wantErr != nil {
			require.ErrorIs(t, err, tc.wantErr, tc.contact)
			continue
		}
		require.NoError(t, err, tc.contact)
		require.Equal(t, tc.wantChannel, channel)
		require.Equal(t, tc.wantContact, contact)
	}
}

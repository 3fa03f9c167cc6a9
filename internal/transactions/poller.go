package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrimarket/agrimarket-backend/internal/payments"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

var errSettlementPending = errors.New("settlement still pending")

type pollJob struct {
	TransactionID uuid.UUID
	Provider      payments.Provider
	Reference     string
	Method        enums.PaymentMethod
}

// startPolling launches the background settlement check for a mobile-money
// payment. It runs on a detached context bounded by the configured deadline,
// so the initiating HTTP request returns immediately and clients poll the
// status endpoint.
func (s *service) startPolling(ctx context.Context, job pollJob) {
	detached := context.WithoutCancel(ctx)
	go s.pollSettlement(detached, job)
}

func (s *service) pollSettlement(ctx context.Context, job pollJob) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"transaction_id": job.TransactionID.String(),
		"provider":       job.Provider.Name(),
	})

	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.PollDeadline)
	defer cancel()

	started := time.Now()
	backoff := retry.NewConstant(s.cfg.PollInterval)

	err := retry.Do(pollCtx, backoff, func(attemptCtx context.Context) error {
		if s.payMet != nil {
			s.payMet.IncPollAttempt(job.Provider.Name())
		}

		status, err := job.Provider.CheckStatus(attemptCtx, job.Reference, job.Method)
		if err != nil {
			return retry.RetryableError(err)
		}
		if !status.Settled {
			return retry.RetryableError(errSettlementPending)
		}

		if err := s.settle(attemptCtx, job.TransactionID, types.JSONMap{
			"confirmStatus": map[string]any(status.Raw),
		}); err != nil {
			return err
		}
		if s.payMet != nil {
			s.payMet.IncSettlement(job.Provider.Name(), "completed")
		}
		return nil
	})

	if s.payMet != nil {
		s.payMet.ObservePollDuration(job.Provider.Name(), time.Since(started))
	}

	if err == nil {
		s.logg.Info(ctx, "payment settled")
		return
	}

	// Deadline exhausted or a non-retryable failure: mark the payment
	// rejected so the client's status poll gets a terminal answer.
	s.logg.Warn(ctx, fmt.Sprintf("settlement polling failed: %v", err))
	if rejectErr := s.reject(ctx, job.TransactionID, types.JSONMap{
		"pollOutcome": map[string]any{
			"error":     err.Error(),
			"elapsed":   time.Since(started).String(),
			"reference": job.Reference,
		},
	}); rejectErr != nil {
		s.logg.Error(ctx, "rejecting unsettled transaction", rejectErr)
		return
	}
	if s.payMet != nil {
		s.payMet.IncSettlement(job.Provider.Name(), "timeout")
	}
}

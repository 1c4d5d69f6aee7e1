package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lym-insights/internal/kvstore"
	"lym-insights/pkg/config"
	"lym-insights/pkg/metrics"
	"lym-insights/pkg/retry"

	"go.uber.org/zap"
)

// CompleteFunc is the provider call wrapped by the executor.
type CompleteFunc func(ctx context.Context, requestType string, msgs []Message, opts Options) (*Completion, error)

// Executor guards every remote inference call with a fingerprint-keyed
// response cache, a per-request-type daily credit budget, and bounded
// exponential-backoff retries.
type Executor struct {
	call         CompleteFunc
	store        kvstore.Store
	dailyCredits int64
	cacheTTL     time.Duration
	policy       retry.Policy
	logger       *zap.Logger
	now          func() time.Time
}

func NewExecutor(client *Client, store kvstore.Store, cfg config.LLMConfig, logger *zap.Logger) *Executor {
	policy := retry.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	}
	if cfg.InitialDelayMs > 0 {
		policy.InitialDelay = time.Duration(cfg.InitialDelayMs) * time.Millisecond
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	policy.Retryable = Retryable

	credits := cfg.DailyCredits
	if credits <= 0 {
		credits = 50
	}

	return &Executor{
		call:         client.Complete,
		store:        store,
		dailyCredits: credits,
		cacheTTL:     time.Duration(cfg.CacheTTLHours) * time.Hour,
		policy:       policy,
		logger:       logger,
		now:          time.Now,
	}
}

// NewExecutorWithCall builds an executor around an arbitrary provider
// function, for tests.
func NewExecutorWithCall(call CompleteFunc, store kvstore.Store, credits int64, policy retry.Policy, logger *zap.Logger) *Executor {
	return &Executor{
		call:         call,
		store:        store,
		dailyCredits: credits,
		policy:       policy,
		logger:       logger,
		now:          time.Now,
	}
}

type cachedCompletion struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

// Execute runs one guarded inference call.
//
// Order of gates: cache (free), quota (soft deny, returns nil without error),
// then the retried provider call. The credit is reserved with a single atomic
// increment before the call, so concurrent callers cannot overspend the
// budget; a reservation burned by a failed call is accepted as the cost of
// that atomicity.
func (e *Executor) Execute(ctx context.Context, requestType string, msgs []Message, opts Options) (*Completion, error) {
	if opts.Fingerprint != "" {
		if cached, err := e.store.Get(ctx, cacheKey(requestType, opts.Fingerprint)); err == nil {
			var cc cachedCompletion
			if err := json.Unmarshal([]byte(cached), &cc); err == nil {
				metrics.IncrementLLMCall(requestType, "cached")
				e.logger.Debug("Inference cache hit",
					zap.String("request_type", requestType),
					zap.String("fingerprint", opts.Fingerprint),
				)
				return &Completion{Content: cc.Content, Model: cc.Model, FromCache: true}, nil
			}
		} else if err != kvstore.ErrNotFound {
			e.logger.Warn("Inference cache read failed, continuing without cache",
				zap.String("request_type", requestType),
				zap.Error(err),
			)
		}
	}

	allowed, err := e.consumeCredit(ctx, requestType)
	if err != nil {
		// Quota store unreachable: fail open rather than silencing insights.
		e.logger.Warn("Quota check failed, allowing call",
			zap.String("request_type", requestType),
			zap.Error(err),
		)
	} else if !allowed {
		metrics.IncrementLLMCall(requestType, "denied")
		metrics.IncrementQuotaDenied(requestType)
		e.logger.Info("Daily inference budget exhausted",
			zap.String("request_type", requestType),
			zap.Int64("daily_credits", e.dailyCredits),
		)
		return nil, nil
	}

	var completion *Completion
	err = retry.Do(ctx, e.policy, func(ctx context.Context) error {
		var callErr error
		completion, callErr = e.call(ctx, requestType, msgs, opts)
		return callErr
	})
	if err != nil {
		metrics.IncrementLLMCall(requestType, "error")
		return nil, fmt.Errorf("inference call failed (%s): %w", Classify(err), err)
	}

	metrics.IncrementLLMCall(requestType, "ok")

	if opts.Fingerprint != "" {
		raw, marshalErr := json.Marshal(cachedCompletion{Content: completion.Content, Model: completion.Model})
		if marshalErr == nil {
			if err := e.store.Set(ctx, cacheKey(requestType, opts.Fingerprint), string(raw), e.cacheTTL); err != nil {
				e.logger.Warn("Inference cache write failed",
					zap.String("request_type", requestType),
					zap.Error(err),
				)
			}
		}
	}

	return completion, nil
}

// consumeCredit reserves one credit for today. Returns false when the daily
// budget is already spent.
func (e *Executor) consumeCredit(ctx context.Context, requestType string) (bool, error) {
	now := e.now()
	key := quotaKey(requestType, now)

	count, err := e.store.Incr(ctx, key, untilMidnight(now))
	if err != nil {
		return false, err
	}
	return count <= e.dailyCredits, nil
}

func cacheKey(requestType, fingerprint string) string {
	return fmt.Sprintf("llm:cache:%s:%s", requestType, fingerprint)
}

func quotaKey(requestType string, now time.Time) string {
	return fmt.Sprintf("llm:quota:%s:%s", requestType, now.Format("2006-01-02"))
}

func untilMidnight(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}

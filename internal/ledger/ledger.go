// internal/ledger/ledger.go
// Package ledger is the entitlement accounting layer. A debit is a single
// conditional UPDATE, so the check and the decrement are one atomic step;
// concurrent consumers serialize on the row and the loser sees zero rows
// affected.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobcore/internal/common/logger"
	"jobcore/internal/common/metrics"
	"jobcore/internal/models"

	"github.com/redis/go-redis/v9"
)

const subscriptionCacheTTL = 5 * time.Minute

var (
	ErrSubscriptionNotFound = errors.New("SUBSCRIPTION_NOT_FOUND")
	ErrSubscriptionExpired  = errors.New("SUBSCRIPTION_EXPIRED")
	ErrEntitlementExhausted = errors.New("ENTITLEMENT_EXHAUSTED")
	ErrInsufficientWallet   = errors.New("INSUFFICIENT_WALLET")
	ErrEntitlementCheck     = errors.New("ENTITLEMENT_CHECK_FAILED")
)

// Decision is the answer to a CanConsume probe. Reason is user-facing and its
// wording is part of the API contract with the caller workflows.
type Decision struct {
	Allowed bool    `json:"allowed"`
	Reason  string  `json:"reason,omitempty"`
	Cost    float64 `json:"cost,omitempty"` // wallet mode only
}

// CostItem is one line of a composite wallet debit.
type CostItem struct {
	Feature models.Feature
	Units   int
}

// PostCounter answers the free-tier recency question. The job store
// implements it; the ledger never queries the jobs table itself.
type PostCounter interface {
	CountRecentPosts(ctx context.Context, employerID string, since time.Time) (int, error)
}

type Ledger struct {
	db      *sql.DB
	redis   *redis.Client
	pricing *Resolver
	posts   PostCounter
	logger  logger.Logger
}

func New(db *sql.DB, redisClient *redis.Client, pricing *Resolver, posts PostCounter, log logger.Logger) *Ledger {
	return &Ledger{
		db:      db,
		redis:   redisClient,
		pricing: pricing,
		posts:   posts,
		logger:  log.WithFields(map[string]interface{}{"component": "ledger"}),
	}
}

// ActiveSubscription returns the employer's single active subscription row,
// features included. Cached for 5 minutes; every debit and credit invalidates.
func (l *Ledger) ActiveSubscription(ctx context.Context, employerID string) (*models.Subscription, error) {
	cacheKey := "subscription:employer:" + employerID
	if val, err := l.redis.Get(ctx, cacheKey).Result(); err == nil {
		var sub models.Subscription
		if err := json.Unmarshal([]byte(val), &sub); err == nil {
			if time.Now().After(sub.ExpiresAt) {
				return nil, ErrSubscriptionExpired
			}
			return &sub, nil
		}
	}

	var sub models.Subscription
	query := `SELECT id, employer_id, country, package_id, is_wallet, wallet_amount, is_active, expires_at, created_at
		FROM subscriptions
		WHERE employer_id = $1 AND is_active = true`
	err := l.db.QueryRowContext(ctx, query, employerID).Scan(
		&sub.ID, &sub.EmployerID, &sub.Country, &sub.PackageID,
		&sub.IsWallet, &sub.WalletAmount, &sub.IsActive,
		&sub.ExpiresAt, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}

	if err := l.loadFeatures(ctx, &sub); err != nil {
		return nil, err
	}

	if time.Now().After(sub.ExpiresAt) {
		return nil, ErrSubscriptionExpired
	}

	data, _ := json.Marshal(sub)
	l.redis.Set(ctx, cacheKey, data, subscriptionCacheTTL)
	l.redis.Set(ctx, "subscription:id:"+sub.ID, data, subscriptionCacheTTL)

	return &sub, nil
}

// Subscription returns a subscription row by id.
func (l *Ledger) Subscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	cacheKey := "subscription:id:" + subscriptionID
	if val, err := l.redis.Get(ctx, cacheKey).Result(); err == nil {
		var sub models.Subscription
		if err := json.Unmarshal([]byte(val), &sub); err == nil {
			return &sub, nil
		}
	}

	var sub models.Subscription
	query := `SELECT id, employer_id, country, package_id, is_wallet, wallet_amount, is_active, expires_at, created_at
		FROM subscriptions
		WHERE id = $1`
	err := l.db.QueryRowContext(ctx, query, subscriptionID).Scan(
		&sub.ID, &sub.EmployerID, &sub.Country, &sub.PackageID,
		&sub.IsWallet, &sub.WalletAmount, &sub.IsActive,
		&sub.ExpiresAt, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}

	if err := l.loadFeatures(ctx, &sub); err != nil {
		return nil, err
	}

	data, _ := json.Marshal(sub)
	l.redis.Set(ctx, cacheKey, data, subscriptionCacheTTL)

	return &sub, nil
}

func (l *Ledger) loadFeatures(ctx context.Context, sub *models.Subscription) error {
	rows, err := l.db.QueryContext(ctx,
		`SELECT feature, count, is_unlimited, is_free, is_included FROM subscription_features WHERE subscription_id = $1`,
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}
	defer rows.Close()

	sub.Features = make(map[models.Feature]models.FeatureBalance)
	for rows.Next() {
		var fb models.FeatureBalance
		if err := rows.Scan(&fb.Feature, &fb.Count, &fb.IsUnlimited, &fb.IsFree, &fb.IsIncluded); err != nil {
			return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
		}
		sub.Features[fb.Feature] = fb
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}
	return nil
}

// CanConsume is the advisory probe. It never mutates; the authoritative answer
// is the conditional UPDATE inside Debit, so callers must still handle
// exhaustion there.
func (l *Ledger) CanConsume(ctx context.Context, subscriptionID string, feature models.Feature, units int) (Decision, error) {
	sub, err := l.Subscription(ctx, subscriptionID)
	if err != nil {
		return Decision{}, err
	}

	if sub.IsWallet {
		unitPrice, err := l.pricing.UnitPrice(ctx, sub.Country, feature)
		if err != nil {
			return Decision{}, err
		}
		cost := unitPrice * float64(units)
		if sub.WalletAmount < cost {
			return Decision{Allowed: false, Reason: "insufficient wallet balance", Cost: cost}, nil
		}
		return Decision{Allowed: true, Cost: cost}, nil
	}

	bal := sub.Balance(feature)
	if bal.IsUnlimited || bal.IsFree || bal.Count >= units {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, Reason: exhaustedReason(feature)}, nil
}

func exhaustedReason(feature models.Feature) string {
	switch feature {
	case models.FeatureJobs:
		return "job posting limit reached"
	case models.FeatureJobTranslations:
		return "job translation limit reached"
	case models.FeatureUsers:
		return "user limit reached"
	case models.FeatureAllLocalities:
		return "all-localities add-on not entitled"
	default:
		return "feature limit reached"
	}
}

// Debit consumes units of a feature. Counter mode decrements the feature row;
// wallet mode charges the priced cost and bumps the feature count for
// reporting. Zero rows affected means the balance moved underneath us.
func (l *Ledger) Debit(ctx context.Context, subscriptionID string, feature models.Feature, units int) error {
	sub, err := l.Subscription(ctx, subscriptionID)
	if err != nil {
		return err
	}

	if sub.IsWallet {
		unitPrice, err := l.pricing.UnitPrice(ctx, sub.Country, feature)
		if err != nil {
			return err
		}
		return l.debitWallet(ctx, sub, []CostItem{{Feature: feature, Units: units}}, unitPrice*float64(units))
	}

	query := `UPDATE subscription_features
		SET count = CASE WHEN is_unlimited OR is_free THEN count ELSE count - $3 END
		WHERE subscription_id = $1 AND feature = $2
		  AND (is_unlimited OR is_free OR count >= $3)`
	result, err := l.db.ExecContext(ctx, query, subscriptionID, string(feature), units)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}
	if affected == 0 {
		metrics.LedgerDebits.WithLabelValues(string(feature), "exhausted").Inc()
		return fmt.Errorf("%w: %s", ErrEntitlementExhausted, exhaustedReason(feature))
	}

	metrics.LedgerDebits.WithLabelValues(string(feature), "ok").Inc()
	l.invalidate(ctx, sub)
	return nil
}

// DebitComposite charges a wallet subscription for several features in one
// conditional UPDATE, so a multi-line purchase is all-or-nothing. Returns
// the total amount debited so a failed saga can refund the exact charge.
func (l *Ledger) DebitComposite(ctx context.Context, subscriptionID string, items []CostItem) (float64, error) {
	sub, err := l.Subscription(ctx, subscriptionID)
	if err != nil {
		return 0, err
	}
	if !sub.IsWallet {
		return 0, fmt.Errorf("%w: composite debit on counter subscription %s", ErrEntitlementCheck, subscriptionID)
	}

	var total float64
	for _, item := range items {
		if item.Units <= 0 {
			continue
		}
		unitPrice, err := l.pricing.UnitPrice(ctx, sub.Country, item.Feature)
		if err != nil {
			return 0, err
		}
		total += unitPrice * float64(item.Units)
	}

	if err := l.debitWallet(ctx, sub, items, total); err != nil {
		return 0, err
	}
	return total, nil
}

func (l *Ledger) debitWallet(ctx context.Context, sub *models.Subscription, items []CostItem, total float64) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET wallet_amount = wallet_amount - $2
		 WHERE id = $1 AND is_wallet = true AND wallet_amount >= $2`,
		sub.ID, total,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}
	if affected == 0 {
		for _, item := range items {
			metrics.LedgerDebits.WithLabelValues(string(item.Feature), "insufficient_wallet").Inc()
		}
		return fmt.Errorf("%w: insufficient wallet balance (required %.2f, available %.2f)",
			ErrInsufficientWallet, total, sub.WalletAmount)
	}

	// Wallet-mode feature counts track consumption for reporting only.
	for _, item := range items {
		if item.Units <= 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE subscription_features SET count = count + $3 WHERE subscription_id = $1 AND feature = $2`,
			sub.ID, string(item.Feature), item.Units,
		); err != nil {
			return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}

	for _, item := range items {
		metrics.LedgerDebits.WithLabelValues(string(item.Feature), "ok").Inc()
	}
	l.invalidate(ctx, sub)
	return nil
}

// Credit returns units to a feature. Counter mode restores the count;
// wallet mode unwinds the reporting count only, currency is never refunded.
// Unlimited and free balances are untouched either way.
func (l *Ledger) Credit(ctx context.Context, subscriptionID string, feature models.Feature, units int) error {
	sub, err := l.Subscription(ctx, subscriptionID)
	if err != nil {
		return err
	}

	var query string
	if sub.IsWallet {
		query = `UPDATE subscription_features
			SET count = GREATEST(count - $3, 0)
			WHERE subscription_id = $1 AND feature = $2`
	} else {
		query = `UPDATE subscription_features
			SET count = count + $3
			WHERE subscription_id = $1 AND feature = $2
			  AND is_unlimited = false AND is_free = false`
	}

	if _, err := l.db.ExecContext(ctx, query, subscriptionID, string(feature), units); err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}

	l.invalidate(ctx, sub)
	return nil
}

// Refund restores the exact wallet amount a failed creation debited and
// unwinds the reporting counts. Saga compensation only; terminal slot
// returns go through Credit and never touch currency.
func (l *Ledger) Refund(ctx context.Context, subscriptionID string, amount float64, items []CostItem) error {
	sub, err := l.Subscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if !sub.IsWallet {
		return fmt.Errorf("%w: refund on counter subscription %s", ErrEntitlementCheck, subscriptionID)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}
	defer tx.Rollback()

	if amount > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE subscriptions SET wallet_amount = wallet_amount + $2
			 WHERE id = $1 AND is_wallet = true`,
			sub.ID, amount,
		); err != nil {
			return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
		}
	}

	for _, item := range items {
		if item.Units <= 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE subscription_features SET count = GREATEST(count - $3, 0)
			 WHERE subscription_id = $1 AND feature = $2`,
			sub.ID, string(item.Feature), item.Units,
		); err != nil {
			return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}

	l.invalidate(ctx, sub)
	return nil
}

// FreeTierEligible reports whether an unsubscribed employer may post: no
// active subscription and no non-translated job inside the trailing window.
func (l *Ledger) FreeTierEligible(ctx context.Context, employerID string, windowDays int) (bool, error) {
	if _, err := l.ActiveSubscription(ctx, employerID); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrSubscriptionNotFound) && !errors.Is(err, ErrSubscriptionExpired) {
		return false, err
	}

	since := time.Now().AddDate(0, 0, -windowDays)
	count, err := l.posts.CountRecentPosts(ctx, employerID, since)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrEntitlementCheck, err)
	}

	return count == 0, nil
}

// FreeDomestic reports whether the plan is the free, single-country tier,
// whose terminal transitions return no posting slot. The package catalog is
// authoritative when the subscription names one; a catalog miss falls back
// to the subscription's own feature tuple.
func (l *Ledger) FreeDomestic(ctx context.Context, sub *models.Subscription) bool {
	if sub == nil {
		return false
	}
	if sub.PackageID != "" {
		pkg, err := l.pricing.GetPackage(ctx, sub.PackageID)
		if err == nil {
			return pkg.IsFree && !pkg.IsWallet
		}
		l.logger.Debug("package catalog lookup failed", map[string]interface{}{
			"packageId": sub.PackageID,
			"error":     err.Error(),
		})
	}
	return sub.IsFreeDomestic()
}

func (l *Ledger) invalidate(ctx context.Context, sub *models.Subscription) {
	if err := l.redis.Del(ctx, "subscription:id:"+sub.ID, "subscription:employer:"+sub.EmployerID).Err(); err != nil {
		l.logger.Debug("cache invalidation failed", map[string]interface{}{
			"subscriptionId": sub.ID,
			"error":          err.Error(),
		})
	}
}

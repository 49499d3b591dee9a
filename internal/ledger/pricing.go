// internal/ledger/pricing.go
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobcore/internal/common/logger"
	"jobcore/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrPricingLookupFailed = errors.New("PRICING_LOOKUP_FAILED")
	ErrCatalogLookupFailed = errors.New("CATALOG_LOOKUP_FAILED")
)

// Resolver answers rate-card and package-catalog lookups. Both tables are
// read-only reference data owned by the billing side, so every hit is cached.
type Resolver struct {
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
	ttl    time.Duration
}

func NewResolver(db *sql.DB, redisClient *redis.Client, cacheTTLSeconds int, log logger.Logger) *Resolver {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 300
	}
	return &Resolver{
		db:     db,
		redis:  redisClient,
		logger: log.WithFields(map[string]interface{}{"component": "pricing-resolver"}),
		ttl:    time.Duration(cacheTTLSeconds) * time.Second,
	}
}

// Lookup returns the rate-card row for (country, feature).
func (r *Resolver) Lookup(ctx context.Context, country string, feature models.Feature) (*models.Pricing, error) {
	cacheKey := fmt.Sprintf("pricing:%s:%s", country, feature)
	if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
		var p models.Pricing
		if err := json.Unmarshal([]byte(val), &p); err == nil {
			return &p, nil
		}
	}

	var p models.Pricing
	query := `SELECT country, feature, base_price, count FROM pricing WHERE country = $1 AND feature = $2`
	err := r.db.QueryRowContext(ctx, query, country, string(feature)).Scan(
		&p.Country, &p.Feature, &p.BasePrice, &p.Count,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no rate card for %s/%s", ErrPricingLookupFailed, country, feature)
		}
		return nil, fmt.Errorf("%w: %v", ErrPricingLookupFailed, err)
	}

	if p.Count <= 0 {
		return nil, fmt.Errorf("%w: malformed rate card for %s/%s", ErrPricingLookupFailed, country, feature)
	}

	data, _ := json.Marshal(p)
	r.redis.Set(ctx, cacheKey, data, r.ttl)

	return &p, nil
}

// UnitPrice returns the per-unit cost for a feature in a country.
func (r *Resolver) UnitPrice(ctx context.Context, country string, feature models.Feature) (float64, error) {
	p, err := r.Lookup(ctx, country, feature)
	if err != nil {
		return 0, err
	}
	return p.UnitPrice(), nil
}

// GetPackage returns the country-scoped plan template with its limits.
func (r *Resolver) GetPackage(ctx context.Context, packageID string) (*models.Package, error) {
	cacheKey := "package:" + packageID
	if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
		var pkg models.Package
		if err := json.Unmarshal([]byte(val), &pkg); err == nil {
			return &pkg, nil
		}
	}

	var pkg models.Package
	query := `SELECT id, country, name, is_free, is_wallet FROM packages WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, packageID).Scan(
		&pkg.ID, &pkg.Country, &pkg.Name, &pkg.IsFree, &pkg.IsWallet,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: package %s not found", ErrCatalogLookupFailed, packageID)
		}
		return nil, fmt.Errorf("%w: %v", ErrCatalogLookupFailed, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT feature, count, is_unlimited, is_free, is_included FROM package_limits WHERE package_id = $1`,
		packageID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLookupFailed, err)
	}
	defer rows.Close()

	pkg.Limits = make(map[models.Feature]models.FeatureBalance)
	for rows.Next() {
		var fb models.FeatureBalance
		if err := rows.Scan(&fb.Feature, &fb.Count, &fb.IsUnlimited, &fb.IsFree, &fb.IsIncluded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogLookupFailed, err)
		}
		pkg.Limits[fb.Feature] = fb
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLookupFailed, err)
	}

	data, _ := json.Marshal(pkg)
	r.redis.Set(ctx, cacheKey, data, r.ttl)

	return &pkg, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"payflow_app/internal/gateway"
	"payflow_app/internal/models"
)

// ErrConfigNotFound indicates a config ID that does not resolve to a usable
// gateway. Callers on the payment start path record it on the payment
// instead of failing the surrounding flow.
var ErrConfigNotFound = errors.New("gateway configuration not found")

const configCacheTTL = 5 * time.Minute

// GatewayResolver maps a configuration ID to a ready gateway instance
type GatewayResolver interface {
	Resolve(ctx context.Context, configID uint) (gateway.Gateway, *models.GatewayConfig, error)
	DefaultConfigID() uint
}

// ConfigResolver resolves configuration IDs through the gateway registry.
// Config rows are cached briefly in Redis; the cache is optional.
type ConfigResolver struct {
	db              *gorm.DB
	cache           *RedisCache
	registry        *gateway.Registry
	defaultConfigID uint
}

// NewConfigResolver creates a resolver. defaultConfigID may be zero when no
// process-wide default is configured.
func NewConfigResolver(db *gorm.DB, cache *RedisCache, registry *gateway.Registry, defaultConfigID uint) *ConfigResolver {
	return &ConfigResolver{db: db, cache: cache, registry: registry, defaultConfigID: defaultConfigID}
}

// DefaultConfigID returns the process-wide default configuration ID
func (r *ConfigResolver) DefaultConfigID() uint {
	return r.defaultConfigID
}

// Resolve loads the configuration and builds a fresh gateway instance for
// it. Every failure mode maps onto ErrConfigNotFound so callers only have
// one recoverable error kind to check.
func (r *ConfigResolver) Resolve(ctx context.Context, configID uint) (gateway.Gateway, *models.GatewayConfig, error) {
	if configID == 0 {
		configID = r.defaultConfigID
	}
	if configID == 0 {
		return nil, nil, fmt.Errorf("%w: no configuration ID and no default configured", ErrConfigNotFound)
	}

	cfg, err := r.loadConfig(ctx, configID)
	if err != nil {
		return nil, nil, err
	}

	factory, ok := r.registry.Get(cfg.Gateway)
	if !ok {
		return nil, nil, fmt.Errorf("%w: gateway %q is not registered", ErrConfigNotFound, cfg.Gateway)
	}

	gw, err := factory(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}
	return gw, cfg, nil
}

func (r *ConfigResolver) loadConfig(ctx context.Context, configID uint) (*models.GatewayConfig, error) {
	fetch := func() (models.GatewayConfig, error) {
		var cfg models.GatewayConfig
		err := r.db.WithContext(ctx).First(&cfg, configID).Error
		return cfg, err
	}

	var cfg models.GatewayConfig
	var err error
	if r.cache != nil {
		cfg, err = GetOrSet(r.cache, ctx, fmt.Sprintf("gateway_config:%d", configID), configCacheTTL, fetch)
	} else {
		cfg, err = fetch()
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: configuration %d", ErrConfigNotFound, configID)
		}
		return nil, fmt.Errorf("%w: configuration %d: %v", ErrConfigNotFound, configID, err)
	}
	return &cfg, nil
}

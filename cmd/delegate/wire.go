package main

import (
	"errors"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/delegate/internal/adapters/driven/config/file"
	"github.com/custodia-labs/delegate/internal/adapters/driven/crypto"
	memorylease "github.com/custodia-labs/delegate/internal/adapters/driven/lease/memory"
	redislease "github.com/custodia-labs/delegate/internal/adapters/driven/lease/redis"
	"github.com/custodia-labs/delegate/internal/adapters/driven/oauth"
	"github.com/custodia-labs/delegate/internal/adapters/driven/storage/sealed"
	"github.com/custodia-labs/delegate/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/delegate/internal/adapters/driving/cli"
	"github.com/custodia-labs/delegate/internal/connectors/google"
	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
	"github.com/custodia-labs/delegate/internal/core/services"
	"github.com/custodia-labs/delegate/internal/logger"
)

// newRuntime wires the adapters around the authorization service.
func newRuntime(configPath string) (*cli.Runtime, error) {
	cfg, err := file.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded config from %s", cfg.Path())

	if err := cfg.ResolveEncryptionKey(int(os.Stdin.Fd()), os.Stderr); err != nil {
		return nil, err
	}
	sealer, err := crypto.NewAESGCMSealer(cfg.EncryptionKey())
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("service catalog: %w", err)
	}
	skew, err := cfg.Skew()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	closers := []func() error{store.Close}

	lease, closeLease, err := newLease(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	if closeLease != nil {
		closers = append(closers, closeLease)
	}

	auth := services.NewAuthorizationService(
		catalog,
		sealed.NewStore(store.AuthorizationStore(), sealer),
		oauth.NewClient(catalog, oauth.Options{}),
		lease,
		services.WithExpirySkew(skew),
	)

	return &cli.Runtime{
		Auth:   auth,
		Owner:  cfg.Owner,
		Listen: cfg.Callback.Listen,
		Tokens: func(ownerID string, service domain.ServiceIdentifier) driven.TokenProvider {
			return google.NewRetryingTokenProvider(services.NewServiceTokenProvider(auth, ownerID, service))
		},
		Close: func() error {
			var errs []error
			for i := len(closers) - 1; i >= 0; i-- {
				errs = append(errs, closers[i]())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func newLease(cfg *file.Config) (driven.RefreshLease, func() error, error) {
	if cfg.Lease.Backend != file.LeaseRedis {
		return memorylease.NewLease(), nil, nil
	}
	ttl, err := cfg.LeaseTTL()
	if err != nil {
		return nil, nil, err
	}
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Secrets.RedisAddr})
	logger.Debug("Using redis lease at %s", cfg.Secrets.RedisAddr)
	return redislease.NewLease(client, redislease.Config{TTL: ttl, Prefix: cfg.Lease.KeyPrefix}), client.Close, nil
}

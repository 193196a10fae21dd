package bootstrap

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/indarelin/backoffice/internal/admins"
	"github.com/indarelin/backoffice/internal/blocklist"
	"github.com/indarelin/backoffice/internal/customreplies"
	"github.com/indarelin/backoffice/internal/messagelog"
	"github.com/indarelin/backoffice/internal/settings"
	"github.com/indarelin/backoffice/internal/videos"
	"github.com/indarelin/backoffice/pkg/logging"
)

// Stores is the full set of repositories the service runs on.
type Stores struct {
	Messages      messagelog.Store
	CustomReplies customreplies.Repository
	BlockedIPs    blocklist.Repository
	Videos        videos.Repository
	Admins        admins.Repository
	Settings      settings.Repository
}

// BuildStores picks Postgres-backed repositories when dbs is set and
// in-memory ones otherwise. A non-nil redis client adds the custom-reply cache.
func BuildStores(dbs *Databases, redisClient redis.UniversalClient, cacheTTL time.Duration, logger *logging.Logger) Stores {
	if logger == nil {
		logger = logging.Default()
	}

	var stores Stores
	if dbs == nil || dbs.Pool == nil || dbs.SQL == nil {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		stores = Stores{
			Messages:      messagelog.NewInMemoryStore(),
			CustomReplies: customreplies.NewInMemoryRepository(),
			BlockedIPs:    blocklist.NewInMemoryRepository(),
			Videos:        videos.NewInMemoryRepository(),
			Admins:        admins.NewInMemoryRepository(),
			Settings:      settings.NewInMemoryRepository(),
		}
	} else {
		stores = Stores{
			Messages:      messagelog.NewPostgresStore(dbs.Pool),
			CustomReplies: customreplies.NewPostgresRepository(dbs.SQL),
			BlockedIPs:    blocklist.NewPostgresRepository(dbs.SQL),
			Videos:        videos.NewPostgresRepository(dbs.SQL),
			Admins:        admins.NewPostgresRepository(dbs.SQL),
			Settings:      settings.NewPostgresRepository(dbs.SQL),
		}
	}

	if redisClient != nil && cacheTTL > 0 {
		stores.CustomReplies = customreplies.NewCachedRepository(stores.CustomReplies, redisClient, cacheTTL, logger)
		logger.Info("custom reply cache enabled", "ttl", cacheTTL.String())
	}
	return stores
}

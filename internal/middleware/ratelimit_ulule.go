package middleware

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/benvon/manasmitra/internal/request"
)

const defaultRatelimitRate = "5-S"

// NewLimiterStore returns a Redis-backed limiter store shared across server
// replicas, or an in-process store when redisClient is nil.
func NewLimiterStore(redisClient *redis.Client) (limiter.Store, error) {
	opts := limiter.StoreOptions{Prefix: "manasmitra_ratelimit", CleanUpInterval: limiter.DefaultCleanUpInterval}
	if redisClient == nil {
		return memorystore.NewStoreWithOptions(opts), nil
	}
	return redisstore.NewStoreWithOptions(redisClient, opts)
}

// scopedKey counts per profile on profile-scoped routes and per client IP
// elsewhere, separately for each scope.
func scopedKey(scope string) stdlibmw.KeyGetter {
	return func(r *http.Request) string {
		if id := request.ProfileIDFromContext(r); id != "" {
			return scope + ":profile:" + id
		}
		return scope + ":ip:" + request.ClientIP(r)
	}
}

func limitReached(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusTooManyRequests, "Too many requests. Take a slow breath and try again in a moment.")
}

func newScopedLimiter(store limiter.Store, scope string, rate limiter.Rate) *stdlibmw.Middleware {
	return stdlibmw.NewMiddleware(limiter.New(store, rate),
		stdlibmw.WithKeyGetter(scopedKey(scope)),
		stdlibmw.WithLimitReachedHandler(limitReached),
	)
}

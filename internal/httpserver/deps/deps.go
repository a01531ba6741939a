package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/bus"
	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/events"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// Mutator publishes client mutations and shapes the reply.
type Mutator interface {
	Resolve(ctx context.Context, kind domain.MutationKind, args events.Args) events.Result
}

// EventBus is the in-process bus as seen by the HTTP layer.
type EventBus interface {
	events.Publisher
	Stats(ctx context.Context) (bus.Stats, error)
	Rules() []bus.Rule
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedHosts []string // Host headers allowed to call the mutation API
	AllowedCIDRS []string // IPs allowed to access operational endpoints
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins  []string // browser origins allowed to call the API
	RateBurst    int      // mutation burst per client IP
	RatePerMin   int      // mutation refill per client IP per minute
	Resolver     Mutator  // turns mutations into published events
	Bus          EventBus // local bus, serves /events and /infra
	Redis        Pinger   // bus backend
	Store        Pinger   // consumer's store
	Publisher    string   // "local" or the remote bus endpoint
	StoreDriver  string   // memory | redis | postgres | dynamodb
	Table        string   // store table name
	SeedTrigger  chan struct{}
}

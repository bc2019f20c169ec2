package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/scraptool/corefetch/internal/antidetect"
	"github.com/scraptool/corefetch/internal/auth"
	"github.com/scraptool/corefetch/internal/config"
	"github.com/scraptool/corefetch/internal/crawler"
	"github.com/scraptool/corefetch/internal/dispatch"
	"github.com/scraptool/corefetch/internal/extractor"
	"github.com/scraptool/corefetch/internal/fetcher"
	"github.com/scraptool/corefetch/internal/housekeeper"
	"github.com/scraptool/corefetch/internal/obslog"
	"github.com/scraptool/corefetch/internal/restapi"
	"github.com/scraptool/corefetch/internal/robots"
	"github.com/scraptool/corefetch/internal/session"
	"github.com/scraptool/corefetch/internal/structure"
	"github.com/scraptool/corefetch/pkg/limiter"
)

const serviceName = "corefetch"

// components bundles every long-lived collaborator the serve command and
// the housekeeper subcommands both need, wired once from cfg.
type components struct {
	dispatcher  *dispatch.Dispatcher
	restServer  *restapi.Server
	housekeeper *housekeeper.Housekeeper
	logger      *obslog.Logger
}

func buildComponents(cfg config.Config, verifier auth.TokenVerifier) (*components, error) {
	if err := os.MkdirAll(cfg.StorageRoot(), 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root %s: %w", cfg.StorageRoot(), err)
	}

	logger := obslog.New(os.Stdout, serviceName)
	if cfg.LoggerSinkURL() != "" {
		logger = logger.WithRemoteSink(obslog.NewHTTPSink(cfg.LoggerSinkURL(), cfg.LoggerSinkAPIKey()))
	}

	blobs, err := session.NewFileBlobStore(cfg.StorageRoot())
	if err != nil {
		return nil, fmt.Errorf("opening blob store: %w", err)
	}
	index, err := session.NewFileMetadataIndex(cfg.StorageRoot())
	if err != nil {
		return nil, fmt.Errorf("opening metadata index: %w", err)
	}
	store := session.NewStore(blobs, index)

	profiles := antidetect.NewCurrent()
	if err := profiles.Set(cfg.DefaultProfile(), nil, "", floatPtr(cfg.DefaultRateLimitDelay()), intPtr(cfg.DefaultMaxResponseChars())); err != nil {
		return nil, fmt.Errorf("applying default antidetection profile %q: %w", cfg.DefaultProfile(), err)
	}
	profiles.SetRespectRobots(cfg.DefaultRespectRobots())

	rateLimiter := limiter.NewConcurrentRateLimiter(secondsToDuration(cfg.DefaultRateLimitDelay()))
	robotsChecker := robots.NewChecker(serviceName+"/1.0", logger)
	httpFetcher := fetcher.NewHTTPFetcher(rateLimiter, robotsChecker, profiles, logger)
	domExtractor := extractor.NewDomExtractor()
	analyzer := structure.NewAnalyzer()
	siteCrawler := crawler.NewCrawler(httpFetcher, domExtractor, logger)

	hk := housekeeper.New(index, blobs, cfg.StorageRoot(), cfg.MaxStorageBytes(), cfg.HousekeeperIntervalMinutes(), cfg.HousekeeperStaleLockSeconds(), logger)

	d := dispatch.New(serviceName, httpFetcher, domExtractor, analyzer, siteCrawler, store, profiles, verifier, logger)
	rest := restapi.New(store, verifier, serviceName, logger)

	return &components{dispatcher: d, restServer: rest, housekeeper: hk, logger: logger}, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

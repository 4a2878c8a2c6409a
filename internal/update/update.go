package update

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	goversion "github.com/hashicorp/go-version"
	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	pkgErrors "github.com/wesavefood/wesavefood/pkg/errors"
)

const latestReleaseURL = "https://api.github.com/repos/wesavefood/wesavefood/releases/latest"

// Release is the subset of the GitHub release payload we care about.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
}

type Service struct {
	log        zerolog.Logger
	config     *domain.Config
	eventBus   EventBus.Bus
	httpClient *http.Client
	releaseURL string

	// latest is written by checks and read by request handlers.
	mu     sync.Mutex
	latest *Release
}

func NewUpdate(log logger.Logger, config *domain.Config, eventBus EventBus.Bus) *Service {
	return &Service{
		log:        log.With().Str("module", "update").Logger(),
		config:     config,
		eventBus:   eventBus,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		releaseURL: latestReleaseURL,
	}
}

// GetLatestRelease returns the release found by the most recent check,
// or nil when no check has run or none succeeded.
func (s *Service) GetLatestRelease() *Release {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// CheckUpdateAvailable fetches the latest published release and compares
// it against the running version. Returns the newer version string when
// one exists, or empty when current.
func (s *Service) CheckUpdateAvailable(ctx context.Context) (string, error) {
	release, err := s.fetchLatest(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.latest = release
	s.mu.Unlock()

	if s.config.Version == "dev" {
		return "", nil
	}

	current, err := goversion.NewVersion(s.config.Version)
	if err != nil {
		return "", pkgErrors.Wrap(err, "could not parse current version %q", s.config.Version)
	}

	remote, err := goversion.NewVersion(release.TagName)
	if err != nil {
		return "", pkgErrors.Wrap(err, "could not parse release tag %q", release.TagName)
	}

	if remote.GreaterThan(current) {
		return release.TagName, nil
	}

	return "", nil
}

// CheckUpdates runs a check and publishes on the bus when a newer
// release exists. Failures are logged and swallowed; an unreachable
// release feed must not affect the running app.
func (s *Service) CheckUpdates(ctx context.Context) {
	newVersion, err := s.CheckUpdateAvailable(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("could not check for updates")
		return
	}

	if newVersion != "" {
		s.log.Info().Msgf("a new update is available: %v", newVersion)
		s.eventBus.Publish(domain.EventAppUpdateAvailable, newVersion)
	}
}

func (s *Service) fetchLatest(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.releaseURL, nil)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "could not build release request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "could not fetch latest release")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgErrors.New("unexpected status %d fetching latest release", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, pkgErrors.Wrap(err, "could not decode release payload")
	}

	return &release, nil
}

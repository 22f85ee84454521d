// Package grab downloads torrent files from the origin using its two-step
// token protocol.
package grab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/ratelimit"
	"github.com/ygggate/ygggate/internal/metrics"
	"github.com/ygggate/ygggate/internal/origin"
)

// DefaultCooldown is how long the origin wants between issuing a download
// token and accepting it.
const DefaultCooldown = 30 * time.Second

// QuotaProbe reports how many downloads the account has left today.
type QuotaProbe interface {
	Remaining(ctx context.Context, client origin.Client) (int, error)
}

// Config configures the download protocol.
type Config struct {
	// Turbo skips the cooldown.
	Turbo    bool
	Cooldown time.Duration
}

// File is a downloaded torrent.
type File struct {
	ID   int64
	Data []byte
	// Metadata is nil when the payload could not be read as a torrent.
	Metadata *Metadata
}

// Filename is the attachment name served to clients.
func (f *File) Filename() string {
	return strconv.FormatInt(f.ID, 10) + ".torrent"
}

// Service runs downloads.
type Service struct {
	site    origin.Site
	limiter *ratelimit.Limiter
	quota   QuotaProbe
	cfg     Config
	sleep   func(time.Duration)
	logger  zerolog.Logger
}

// NewService creates a download service.
func NewService(site origin.Site, limiter *ratelimit.Limiter, quota QuotaProbe, cfg Config, logger zerolog.Logger) *Service {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Service{
		site:    site,
		limiter: limiter,
		quota:   quota,
		cfg:     cfg,
		sleep:   time.Sleep,
		logger:  logger.With().Str("component", "grab").Logger(),
	}
}

// SetSleeper replaces the cooldown wait. The wait is not bound to any
// context: once a token is issued the origin's dwell time must elapse.
func (s *Service) SetSleeper(sleep func(time.Duration)) {
	s.sleep = sleep
}

// Cooldown returns the wait applied between token and download, zero in turbo mode.
func (s *Service) Cooldown() time.Duration {
	if s.cfg.Turbo {
		return 0
	}
	return s.cfg.Cooldown
}

// Download fetches torrent id with client.
func (s *Service) Download(ctx context.Context, client origin.Client, id int64) (*File, error) {
	log := s.logger.With().Int64("torrentId", id).Logger()

	token, err := s.requestToken(ctx, client, id)
	if err != nil {
		metrics.Downloads.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}

	if wait := s.Cooldown(); wait > 0 {
		log.Debug().Dur("cooldown", wait).Msg("Waiting before download")
		s.sleep(wait)
	}

	data, err := s.fetch(ctx, client, id, token, log)
	if err != nil {
		metrics.Downloads.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}
	metrics.Downloads.WithLabelValues(metrics.OutcomeSuccess).Inc()

	file := &File{ID: id, Data: data}
	if meta, err := Inspect(data); err != nil {
		log.Warn().Err(err).Int("bytes", len(data)).Msg("Downloaded payload is not a readable torrent")
	} else {
		file.Metadata = meta
		log.Info().
			Str("infoHash", meta.InfoHash).
			Str("name", meta.Name).
			Int64("length", meta.Length).
			Msg("Torrent downloaded")
	}
	return file, nil
}

func (s *Service) requestToken(ctx context.Context, client origin.Client, id int64) (string, error) {
	permit, err := s.limiter.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer permit.Release()

	form := url.Values{"torrent_id": {strconv.FormatInt(id, 10)}}
	resp, err := client.PostForm(ctx, s.site.DownloadTimer(), form)
	if err != nil {
		return "", indexer.NewNetworkError(indexer.PhaseToken, err)
	}
	if origin.IsSessionExpired(resp.Status, resp.URL) {
		return "", indexer.NewSessionExpiredError(indexer.PhaseToken, resp.Status)
	}
	if !resp.OK() {
		return "", indexer.NewDownloadError(indexer.PhaseToken, resp.Status,
			fmt.Sprintf("failed to get token: %d", resp.Status), nil)
	}

	var body struct {
		Token *string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", indexer.NewParseError(indexer.PhaseToken, "download timer answer is not JSON", err)
	}
	if body.Token == nil || *body.Token == "" {
		return "", indexer.NewTokenMissingError()
	}
	return *body.Token, nil
}

func (s *Service) fetch(ctx context.Context, client origin.Client, id int64, token string, log zerolog.Logger) ([]byte, error) {
	permit, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	status, data, err := client.GetBytes(ctx, s.site.Download(id, token))
	permit.Release()
	if err != nil {
		return nil, indexer.NewNetworkError(indexer.PhaseDownload, err)
	}

	switch {
	case status >= 200 && status < 300:
		return data, nil
	case status == 302:
		return nil, s.explainRedirect(ctx, client, log)
	default:
		return nil, indexer.NewDownloadError(indexer.PhaseDownload, status,
			fmt.Sprintf("failed to get torrent file: %d %s", status, string(data)), nil)
	}
}

// explainRedirect tells quota exhaustion from a ratio refusal; the origin
// answers both with the same redirect.
func (s *Service) explainRedirect(ctx context.Context, client origin.Client, log zerolog.Logger) error {
	remaining, err := s.quota.Remaining(ctx, client)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("Error while checking remaining downloads")
		return indexer.NewDownloadError(indexer.PhaseDownload, 302,
			"failed to download torrent and check remaining downloads", err)
	case remaining == 0:
		log.Error().Msg("No remaining downloads")
		return indexer.NewQuotaExhaustedError()
	default:
		log.Warn().Int("remaining", remaining).
			Msg("Download refused with downloads left, the ratio is probably too low")
		return indexer.NewRatioInsufficientError(remaining)
	}
}

func outcomeOf(err error) string {
	switch {
	case indexer.IsSessionExpired(err):
		return metrics.OutcomeExpired
	case indexer.GetErrorCode(err) == indexer.ErrCodeQuotaExhausted:
		return metrics.OutcomeQuota
	case indexer.GetErrorCode(err) == indexer.ErrCodeRatioInsufficient:
		return metrics.OutcomeRatio
	default:
		return metrics.OutcomeFailure
	}
}

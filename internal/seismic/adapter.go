// Package seismic holds one adapter per upstream earthquake feed. Each adapter
// knows its feed's query shape, response envelope and record layout, and
// produces models.Quake values.
package seismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rajasatyajit/QuakeAlert/config"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
	"github.com/rajasatyajit/QuakeAlert/pkg/utils"
)

const maxBodyBytes = 16 << 20

var errMissingCoordinates = errors.New("record has no usable coordinates")

// Query is a fully resolved feed request.
type Query struct {
	URL    string
	Params url.Values
}

// Encode renders the request URL including parameters.
func (q Query) Encode() string {
	if len(q.Params) == 0 {
		return q.URL
	}
	return q.URL + "?" + q.Params.Encode()
}

// Adapter is implemented by every feed.
type Adapter interface {
	Source() models.Source
	// BuildQuery encodes the trailing window in the feed's own format.
	BuildQuery(start, end time.Time) Query
	// Fetch performs the HTTP call. Transport failures and non-2xx statuses
	// are returned as errors and never retried here.
	Fetch(ctx context.Context, q Query) ([]byte, error)
	// ExtractList unwraps the response envelope. A missing or malformed
	// envelope yields an empty list.
	ExtractList(body []byte) []json.RawMessage
	// Normalize maps one raw record. An error means the record is skipped.
	Normalize(raw json.RawMessage) (models.Quake, error)
}

// New builds the adapter set from configuration.
func New(cfg config.SourcesConfig) (map[models.Source]Adapter, error) {
	loc, err := time.LoadLocation(cfg.AFADTimeZone)
	if err != nil {
		return nil, fmt.Errorf("load AFAD time zone: %w", err)
	}

	f := newFetcher(cfg.FetchTimeout, cfg.UserAgent)
	return map[models.Source]Adapter{
		models.SourceAFAD:     &AFAD{fetcher: f, url: cfg.AFADURL, loc: loc, minMag: cfg.MinMagnitude},
		models.SourceKandilli: &Kandilli{fetcher: f, url: cfg.KandilliURL},
		models.SourceEMSC:     &EMSC{fetcher: f, url: cfg.EMSCURL, minMag: cfg.MinMagnitude, limit: cfg.EMSCLimit},
	}, nil
}

// fetcher is the HTTP client shared by every adapter.
type fetcher struct {
	client    *http.Client
	userAgent string
}

func newFetcher(timeout time.Duration, userAgent string) fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f fetcher) Fetch(ctx context.Context, q Query) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// fallbackID derives a deterministic id from the source tag, coordinates
// rounded to four decimals and the raw timestamp string.
func fallbackID(src models.Source, lat, lon float64, rawTime string) string {
	return fmt.Sprintf("%s_%s_%s_%s",
		src.Tag(),
		utils.FormatCoord(utils.Round4(lat)),
		utils.FormatCoord(utils.Round4(lon)),
		rawTime,
	)
}

// occurredAt keeps the provider timestamp verbatim, falling back to the ingestion time.
func occurredAt(raw string) string {
	if raw != "" {
		return raw
	}
	return clock.Now().UTC().Format(time.RFC3339)
}

// build applies the defaulting rules shared by every feed.
func build(src models.Source, id, location, defaultLocation string, mag, depth, lat, lon utils.LooseFloat, rawTime string) (models.Quake, error) {
	if !lat.Valid || !lon.Valid {
		return models.Quake{}, errMissingCoordinates
	}
	if id == "" {
		id = fallbackID(src, lat.Value, lon.Value, rawTime)
	}
	return models.Quake{
		ID:         id,
		Location:   utils.FirstNonEmpty(location, defaultLocation),
		Magnitude:  utils.Round1(mag.Or(0)),
		Latitude:   lat.Value,
		Longitude:  lon.Value,
		DepthKm:    utils.Round1(depth.Or(0)),
		OccurredAt: occurredAt(rawTime),
		Source:     src,
	}, nil
}

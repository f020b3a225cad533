package seismic

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/rajasatyajit/QuakeAlert/internal/models"
	"github.com/rajasatyajit/QuakeAlert/pkg/utils"
)

const (
	afadTimeLayout      = "2006-01-02 15:04:05"
	afadDefaultLocation = "Bilinmeyen Konum"
)

// AFAD reads the Turkish Disaster and Emergency Management event filter API.
type AFAD struct {
	fetcher
	url    string
	loc    *time.Location
	minMag float64
}

type afadRecord struct {
	EventID   utils.LooseString `json:"eventID"`
	Location  string            `json:"location"`
	Magnitude utils.LooseFloat  `json:"magnitude"`
	Latitude  utils.LooseFloat  `json:"latitude"`
	Longitude utils.LooseFloat  `json:"longitude"`
	Depth     utils.LooseFloat  `json:"depth"`
	Date      string            `json:"date"`
}

func (a *AFAD) Source() models.Source { return models.SourceAFAD }

// BuildQuery formats the window as local wall-clock time.
func (a *AFAD) BuildQuery(start, end time.Time) Query {
	params := url.Values{}
	params.Set("start", start.In(a.loc).Format(afadTimeLayout))
	params.Set("end", end.In(a.loc).Format(afadTimeLayout))
	params.Set("minmag", utils.FormatFixed1(a.minMag))
	params.Set("orderby", "timedesc")
	return Query{URL: a.url, Params: params}
}

// ExtractList expects a top-level JSON array.
func (a *AFAD) ExtractList(body []byte) []json.RawMessage {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err != nil {
		return nil
	}
	return list
}

func (a *AFAD) Normalize(raw json.RawMessage) (models.Quake, error) {
	var rec afadRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Quake{}, fmt.Errorf("decode afad record: %w", err)
	}
	return build(models.SourceAFAD, rec.EventID.String(), rec.Location, afadDefaultLocation,
		rec.Magnitude, rec.Depth, rec.Latitude, rec.Longitude, rec.Date)
}

package seismic

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rajasatyajit/QuakeAlert/internal/models"
	"github.com/rajasatyajit/QuakeAlert/pkg/utils"
)

const (
	emscTimeLayout      = "2006-01-02T15:04:05.000Z"
	emscDefaultLocation = "Bilinmeyen Bölge"
)

// Bounding box covering Turkey and its surroundings.
var emscRegion = map[string]string{
	"minlatitude":  "35",
	"maxlatitude":  "43",
	"minlongitude": "25",
	"maxlongitude": "45",
}

// EMSC reads the European-Mediterranean Seismological Centre FDSN event service.
type EMSC struct {
	fetcher
	url    string
	minMag float64
	limit  int
}

type emscRecord struct {
	EventID   utils.LooseString `json:"eventid"`
	Region    string            `json:"region"`
	Magnitude utils.LooseFloat  `json:"magnitude"`
	Latitude  utils.LooseFloat  `json:"latitude"`
	Longitude utils.LooseFloat  `json:"longitude"`
	Depth     utils.LooseFloat  `json:"depth"`
	Time      string            `json:"time"`
}

func (e *EMSC) Source() models.Source { return models.SourceEMSC }

// BuildQuery encodes the window as UTC ISO-8601 with milliseconds.
func (e *EMSC) BuildQuery(start, end time.Time) Query {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("starttime", start.UTC().Format(emscTimeLayout))
	params.Set("endtime", end.UTC().Format(emscTimeLayout))
	for k, v := range emscRegion {
		params.Set(k, v)
	}
	params.Set("minmagnitude", utils.FormatFixed1(e.minMag))
	params.Set("limit", strconv.Itoa(e.limit))
	return Query{URL: e.url, Params: params}
}

// ExtractList unwraps the .events array.
func (e *EMSC) ExtractList(body []byte) []json.RawMessage {
	var envelope struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return envelope.Events
}

func (e *EMSC) Normalize(raw json.RawMessage) (models.Quake, error) {
	var rec emscRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Quake{}, fmt.Errorf("decode emsc record: %w", err)
	}
	return build(models.SourceEMSC, rec.EventID.String(), rec.Region, emscDefaultLocation,
		rec.Magnitude, rec.Depth, rec.Latitude, rec.Longitude, rec.Time)
}

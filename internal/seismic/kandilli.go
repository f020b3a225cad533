package seismic

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rajasatyajit/QuakeAlert/internal/models"
	"github.com/rajasatyajit/QuakeAlert/pkg/utils"
)

const kandilliDefaultLocation = "Bilinmeyen Konum"

// Kandilli reads the Bogazici University Kandilli Observatory live feed.
// The feed always returns its latest events and takes no window parameters.
type Kandilli struct {
	fetcher
	url string
}

type kandilliRecord struct {
	EarthquakeID utils.LooseString `json:"earthquake_id"`
	Title        string            `json:"title"`
	Mag          utils.LooseFloat  `json:"mag"`
	Depth        utils.LooseFloat  `json:"depth"`
	DateTime     string            `json:"date_time"`
	GeoJSON      struct {
		Coordinates []utils.LooseFloat `json:"coordinates"`
	} `json:"geojson"`
}

func (k *Kandilli) Source() models.Source { return models.SourceKandilli }

func (k *Kandilli) BuildQuery(start, end time.Time) Query {
	return Query{URL: k.url}
}

// ExtractList unwraps the .result array.
func (k *Kandilli) ExtractList(body []byte) []json.RawMessage {
	var envelope struct {
		Result []json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return envelope.Result
}

func (k *Kandilli) Normalize(raw json.RawMessage) (models.Quake, error) {
	var rec kandilliRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Quake{}, fmt.Errorf("decode kandilli record: %w", err)
	}

	// GeoJSON order is [longitude, latitude].
	var lat, lon utils.LooseFloat
	if c := rec.GeoJSON.Coordinates; len(c) >= 2 {
		lon, lat = c[0], c[1]
	}
	return build(models.SourceKandilli, rec.EarthquakeID.String(), rec.Title, kandilliDefaultLocation,
		rec.Mag, rec.Depth, lat, lon, rec.DateTime)
}

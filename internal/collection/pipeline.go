// Package collection implements the weather data collection job: city
// roster -> provider fetch -> observation rows, written in chunks of 3.
package collection

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/jbkim/weather-batch/internal/batch"
	"github.com/jbkim/weather-batch/internal/database"
	"github.com/jbkim/weather-batch/internal/provider"
	"github.com/jbkim/weather-batch/internal/weather"
)

// ChunkSize is the number of observations committed per transaction.
const ChunkSize = 3

// Fetcher retrieves current weather for one city code.
type Fetcher interface {
	Fetch(ctx context.Context, cityCode string) (*provider.CurrentWeather, error)
}

// ObservationLookup provides the prior-day window query used for the
// temperature-change computation.
type ObservationLookup interface {
	FindByCityBetween(ctx context.Context, cityCode string, start, end time.Time) ([]*database.Observation, error)
}

// ObservationStore persists a chunk of observations atomically.
type ObservationStore interface {
	SaveObservations(ctx context.Context, observations []*database.Observation) error
}

// Processor fetches, translates and enriches one city's observation.
// Fetch and translation failures are logged and skipped; the job
// continues with the next city.
type Processor struct {
	fetcher           Fetcher
	lookup            ObservationLookup
	abnormalThreshold float64
	now               func() time.Time
}

func NewProcessor(fetcher Fetcher, lookup ObservationLookup, abnormalThreshold float64) *Processor {
	return &Processor{
		fetcher:           fetcher,
		lookup:            lookup,
		abnormalThreshold: abnormalThreshold,
		now:               time.Now,
	}
}

func (p *Processor) Process(ctx context.Context, cityCode string) (*database.Observation, error) {
	resp, err := p.fetcher.Fetch(ctx, cityCode)
	if err != nil {
		log.Printf("collection: fetch failed for %s, skipping: %v", cityCode, err)
		return nil, nil
	}

	obs := translate(resp, cityCode, p.now())

	if err := p.detectAbnormalWeather(ctx, obs); err != nil {
		log.Printf("collection: could not compute temperature change for %s: %v", cityCode, err)
	}

	log.Printf("collection: processed %s (%s): %.1f°C, %s",
		cityCode, obs.CityName, resp.Main.Temp, obs.WeatherMain)
	return obs, nil
}

// translate maps the provider payload onto an observation row.
func translate(resp *provider.CurrentWeather, cityCode string, now time.Time) *database.Observation {
	temp := resp.Main.Temp
	obs := &database.Observation{
		CityCode:      cityCode,
		CityName:      weather.CityName(cityCode),
		Temperature:   &temp,
		FeelsLike:     resp.Main.FeelsLike,
		TempMin:       resp.Main.TempMin,
		TempMax:       resp.Main.TempMax,
		Humidity:      resp.Main.Humidity,
		Pressure:      resp.Main.Pressure,
		Cloudiness:    resp.Clouds.All,
		WindSpeed:     resp.Wind.Speed,
		WindDirection: resp.Wind.Deg,
		Visibility:    resp.Visibility,
		CollectedAt:   now,
		WeatherTime:   now,
	}

	if len(resp.Weather) > 0 {
		obs.WeatherMain = resp.Weather[0].Main
		obs.WeatherDescription = resp.Weather[0].Description
	}
	if resp.Rain != nil {
		obs.Rainfall = resp.Rain.OneHour
	}
	if resp.Snow != nil {
		obs.Snowfall = resp.Snow.OneHour
	}

	return obs
}

// detectAbnormalWeather sets temperature_change against the most recent
// observation of the previous calendar day and flags the observation
// abnormal when the absolute change reaches the threshold. With no
// prior-day data the change stays null and the flag stays false.
func (p *Processor) detectAbnormalWeather(ctx context.Context, obs *database.Observation) error {
	if obs.Temperature == nil {
		return nil
	}

	yesterday := obs.CollectedAt.AddDate(0, 0, -1)
	start := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, yesterday.Location())
	end := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 23, 59, 59, 0, yesterday.Location())

	priorDay, err := p.lookup.FindByCityBetween(ctx, obs.CityCode, start, end)
	if err != nil {
		return err
	}
	if len(priorDay) == 0 || priorDay[0].Temperature == nil {
		return nil
	}

	change := *obs.Temperature - *priorDay[0].Temperature
	obs.TemperatureChange = &change

	if math.Abs(change) >= p.abnormalThreshold {
		obs.IsAbnormal = true
		log.Printf("collection: abnormal weather detected in %s: %.1f°C change from yesterday",
			obs.CityName, change)
	}
	return nil
}

// Writer persists each chunk of observations in one transaction.
type Writer struct {
	store ObservationStore
}

func NewWriter(store ObservationStore) *Writer {
	return &Writer{store: store}
}

func (w *Writer) Write(ctx context.Context, chunk []database.Observation) error {
	observations := make([]*database.Observation, len(chunk))
	for i := range chunk {
		observations[i] = &chunk[i]
	}

	if err := w.store.SaveObservations(ctx, observations); err != nil {
		return err
	}
	log.Printf("collection: saved %d observations", len(chunk))
	return nil
}

// NewStep assembles the collection step.
func NewStep(fetcher Fetcher, lookup ObservationLookup, store ObservationStore, abnormalThreshold float64) batch.StepRunner {
	return &batch.Step[string, database.Observation]{
		Name:      "weatherCollectionStep",
		Reader:    weather.NewCityReader(),
		Processor: NewProcessor(fetcher, lookup, abnormalThreshold),
		Writer:    NewWriter(store),
		ChunkSize: ChunkSize,
	}
}

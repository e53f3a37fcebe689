// Package statistics implements the daily statistics job: per city,
// aggregate one day's observations into an upserted summary row.
package statistics

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/jbkim/weather-batch/internal/batch"
	"github.com/jbkim/weather-batch/internal/database"
	"github.com/jbkim/weather-batch/internal/weather"
)

// ChunkSize is the number of statistic rows committed per transaction.
const ChunkSize = 3

// ObservationSource reads one city's observations for the target date.
type ObservationSource interface {
	FindByCityBetween(ctx context.Context, cityCode string, start, end time.Time) ([]*database.Observation, error)
}

// StatisticLookup finds an existing statistic row for (date, city).
type StatisticLookup interface {
	FindStatisticByDateAndCity(ctx context.Context, date time.Time, cityCode string) (*database.DailyStatistic, error)
}

// StatisticStore upserts a chunk of statistic rows atomically.
type StatisticStore interface {
	UpsertStatistics(ctx context.Context, stats []*database.DailyStatistic) error
}

// Processor computes the daily statistic for one city. Cities without
// observations on the target date are skipped.
type Processor struct {
	observations    ObservationSource
	lookup          StatisticLookup
	targetDate      time.Time
	expectedRecords int
}

func NewProcessor(observations ObservationSource, lookup StatisticLookup, targetDate time.Time, expectedRecords int) *Processor {
	if expectedRecords <= 0 {
		expectedRecords = 24
	}
	return &Processor{
		observations:    observations,
		lookup:          lookup,
		targetDate:      targetDate,
		expectedRecords: expectedRecords,
	}
}

func (p *Processor) Process(ctx context.Context, cityCode string) (*database.DailyStatistic, error) {
	start := time.Date(p.targetDate.Year(), p.targetDate.Month(), p.targetDate.Day(), 0, 0, 0, 0, p.targetDate.Location())
	end := time.Date(p.targetDate.Year(), p.targetDate.Month(), p.targetDate.Day(), 23, 59, 59, 0, p.targetDate.Location())

	data, err := p.observations.FindByCityBetween(ctx, cityCode, start, end)
	if err != nil {
		log.Printf("statistics: failed to load observations for %s, skipping: %v", cityCode, err)
		return nil, nil
	}
	if len(data) == 0 {
		log.Printf("statistics: no observations for %s on %s", cityCode, start.Format("2006-01-02"))
		return nil, nil
	}

	// Upsert semantics: reuse the existing row for this (date, city) so
	// id and created_at survive reruns.
	stat, err := p.lookup.FindStatisticByDateAndCity(ctx, start, cityCode)
	if err != nil {
		log.Printf("statistics: failed to look up existing row for %s, skipping: %v", cityCode, err)
		return nil, nil
	}
	if stat == nil {
		stat = &database.DailyStatistic{}
	}
	stat.StatDate = start
	stat.CityCode = cityCode
	stat.CityName = data[0].CityName

	calculateTemperature(stat, data)
	calculateHumidityAndPressure(stat, data)
	calculateWeatherConditions(stat, data)
	calculateAbnormalWeather(stat, data)
	calculateCollectionRate(stat, data, p.expectedRecords)

	log.Printf("statistics: %s on %s: records=%d", stat.CityName, start.Format("2006-01-02"), stat.TotalRecords)
	return stat, nil
}

// calculateTemperature fills avg/max/min/range over non-null temperatures,
// half-up to two decimals. A day with only null temperatures leaves all
// four fields null.
func calculateTemperature(stat *database.DailyStatistic, data []*database.Observation) {
	var temps []float64
	for _, o := range data {
		if o.Temperature != nil {
			temps = append(temps, *o.Temperature)
		}
	}
	if len(temps) == 0 {
		stat.AvgTemperature = nil
		stat.MaxTemperature = nil
		stat.MinTemperature = nil
		stat.TemperatureRange = nil
		return
	}

	sum, maxTemp, minTemp := 0.0, temps[0], temps[0]
	for _, t := range temps {
		sum += t
		if t > maxTemp {
			maxTemp = t
		}
		if t < minTemp {
			minTemp = t
		}
	}

	avg := round2(sum / float64(len(temps)))
	maxTemp = round2(maxTemp)
	minTemp = round2(minTemp)
	tempRange := round2(maxTemp - minTemp)

	stat.AvgTemperature = &avg
	stat.MaxTemperature = &maxTemp
	stat.MinTemperature = &minTemp
	stat.TemperatureRange = &tempRange
}

func calculateHumidityAndPressure(stat *database.DailyStatistic, data []*database.Observation) {
	humiditySum, humidityCount := 0, 0
	pressureSum, pressureCount := 0, 0
	for _, o := range data {
		if o.Humidity != nil {
			humiditySum += *o.Humidity
			humidityCount++
		}
		if o.Pressure != nil {
			pressureSum += *o.Pressure
			pressureCount++
		}
	}

	avgHumidity := roundMean(humiditySum, humidityCount)
	avgPressure := roundMean(pressureSum, pressureCount)
	stat.AvgHumidity = &avgHumidity
	stat.AvgPressure = &avgPressure
}

// calculateWeatherConditions buckets observations by weather main class.
// The dominant class is the most frequent one; ties keep the class seen
// first in reader order.
func calculateWeatherConditions(stat *database.DailyStatistic, data []*database.Observation) {
	counts := make(map[string]int)
	var order []string
	for _, o := range data {
		if o.WeatherMain == "" {
			continue
		}
		if _, seen := counts[o.WeatherMain]; !seen {
			order = append(order, o.WeatherMain)
		}
		counts[o.WeatherMain]++
	}

	dominant := "Unknown"
	best := 0
	for _, main := range order {
		if counts[main] > best {
			dominant = main
			best = counts[main]
		}
	}

	stat.DominantWeather = dominant
	stat.ClearHours = counts["Clear"]
	stat.CloudyHours = counts["Clouds"]
	stat.RainyHours = counts["Rain"]
}

func calculateAbnormalWeather(stat *database.DailyStatistic, data []*database.Observation) {
	abnormal := 0
	maxChange := 0.0
	for _, o := range data {
		if o.IsAbnormal {
			abnormal++
		}
		if o.TemperatureChange != nil {
			if change := math.Abs(*o.TemperatureChange); change > maxChange {
				maxChange = change
			}
		}
	}

	maxChange = round2(maxChange)
	stat.AbnormalWeatherCount = abnormal
	stat.MaxTemperatureChange = &maxChange
}

func calculateCollectionRate(stat *database.DailyStatistic, data []*database.Observation, expectedRecords int) {
	stat.TotalRecords = len(data)
	stat.DataCollectionRate = round2(float64(len(data)) / float64(expectedRecords) * 100)
}

// round2 rounds half-up to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundMean(sum, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(count)))
}

// Writer upserts each chunk of statistic rows in one transaction.
type Writer struct {
	store StatisticStore
}

func NewWriter(store StatisticStore) *Writer {
	return &Writer{store: store}
}

func (w *Writer) Write(ctx context.Context, chunk []database.DailyStatistic) error {
	stats := make([]*database.DailyStatistic, len(chunk))
	for i := range chunk {
		stats[i] = &chunk[i]
	}

	if err := w.store.UpsertStatistics(ctx, stats); err != nil {
		return err
	}
	log.Printf("statistics: saved %d statistic rows", len(chunk))
	return nil
}

// NewStep assembles the daily statistics step for a target date.
func NewStep(observations ObservationSource, lookup StatisticLookup, store StatisticStore, targetDate time.Time, expectedRecords int) batch.StepRunner {
	return &batch.Step[string, database.DailyStatistic]{
		Name:      "dailyStatisticsStep",
		Reader:    weather.NewCityReader(),
		Processor: NewProcessor(observations, lookup, targetDate, expectedRecords),
		Writer:    NewWriter(store),
		ChunkSize: ChunkSize,
	}
}

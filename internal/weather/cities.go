// Package weather holds the static city roster shared by the collection
// and statistics jobs.
package weather

import "context"

// CityCodes is the fixed roster of monitored cities, in reader order.
var CityCodes = []string{
	"Seoul", "Busan", "Incheon", "Daegu", "Daejeon", "Gwangju", "Ulsan", "Suwon",
}

var cityNames = map[string]string{
	"Seoul":   "서울",
	"Busan":   "부산",
	"Incheon": "인천",
	"Daegu":   "대구",
	"Daejeon": "대전",
	"Gwangju": "광주",
	"Ulsan":   "울산",
	"Suwon":   "수원",
}

// CityName resolves a city code to its Korean display name, falling back
// to the code itself for unknown cities.
func CityName(code string) string {
	if name, ok := cityNames[code]; ok {
		return name
	}
	return code
}

// CityReader yields the roster one code at a time, then nil. It is the
// item reader for both the collection and statistics steps.
type CityReader struct {
	cities []string
	index  int
}

func NewCityReader() *CityReader {
	return &CityReader{cities: CityCodes}
}

func (r *CityReader) Read(_ context.Context) (*string, error) {
	if r.index >= len(r.cities) {
		return nil, nil
	}
	city := r.cities[r.index]
	r.index++
	return &city, nil
}

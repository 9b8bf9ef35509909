package macro

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Predictelligence/internal/domain/models"
	xlogger "Predictelligence/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// startProviders serves fake BoE, ONS, weather and HPI endpoints.
func startProviders(t *testing.T) (*httptest.Server, Config) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/boe", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><td>4.25</td><td>4.75</td></html>"))
	})
	mux.HandleFunc("/ons", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"months":[{"value":"3.1"},{"value":"2.6"}]}`))
	})
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current_weather":{"temperature":9.5}}`))
	})
	mux.HandleFunc("/hpi", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"primaryTopic":{"averagePrice":291000}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, Config{
		Timeout:    2 * time.Second,
		BoeURL:     srv.URL + "/boe",
		OnsURL:     srv.URL + "/ons",
		WeatherURL: srv.URL + "/weather",
		HpiURL:     srv.URL + "/hpi",
	}
}

func TestFetchLiveProviders(t *testing.T) {
	_, cfg := startProviders(t)
	c := NewClient(cfg, testLogger(t))

	snap, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.Degraded {
		t.Fatalf("live providers must not degrade the snapshot")
	}
	if snap.BoeRate != 4.75 {
		t.Fatalf("boe rate = %v, want last value 4.75", snap.BoeRate)
	}
	if snap.InflationRate != 2.6 {
		t.Fatalf("inflation = %v, want latest month 2.6", snap.InflationRate)
	}
	if snap.InflationTrend != models.InflationStable {
		t.Fatalf("inflation 2.6 should be STABLE, got %v", snap.InflationTrend)
	}
	if snap.AvgTemp != 9.5 {
		t.Fatalf("temperature = %v", snap.AvgTemp)
	}
	if snap.UKAvgPrice != 291000 {
		t.Fatalf("uk avg price = %v", snap.UKAvgPrice)
	}
}

func TestFetchAllProvidersDownUsesDefaults(t *testing.T) {
	cfg := Config{
		Timeout:    100 * time.Millisecond,
		BoeURL:     "http://127.0.0.1:1/boe",
		OnsURL:     "http://127.0.0.1:1/ons",
		WeatherURL: "http://127.0.0.1:1/weather",
		HpiURL:     "http://127.0.0.1:1/hpi",
	}
	c := NewClient(cfg, testLogger(t))

	snap, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch must not error: %v", err)
	}
	if !snap.Degraded {
		t.Fatalf("snapshot must be marked degraded")
	}
	// Drift moves the defaults by bounded offsets.
	if snap.BoeRate < DefaultBoeRate-0.31 || snap.BoeRate > DefaultBoeRate+0.31 {
		t.Fatalf("boe rate drifted out of band: %v", snap.BoeRate)
	}
	if snap.InflationRate < DefaultInflation-0.26 || snap.InflationRate > DefaultInflation+0.26 {
		t.Fatalf("inflation drifted out of band: %v", snap.InflationRate)
	}
	if snap.UKAvgPrice < DefaultUKAvgPrice-2001 || snap.UKAvgPrice > DefaultUKAvgPrice+2001 {
		t.Fatalf("uk avg price drifted out of band: %v", snap.UKAvgPrice)
	}
}

func TestFetchKeepsLastKnownGood(t *testing.T) {
	srv, cfg := startProviders(t)
	c := NewClient(cfg, testLogger(t))

	good, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	srv.Close()
	degraded, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch after outage: %v", err)
	}
	if !degraded.Degraded {
		t.Fatalf("outage snapshot must be degraded")
	}
	// Falls back to the last good reading, then drifts within its band.
	if degraded.InflationRate < good.InflationRate-0.26 || degraded.InflationRate > good.InflationRate+0.26 {
		t.Fatalf("degraded inflation %v too far from last good %v", degraded.InflationRate, good.InflationRate)
	}
}

func TestRateDirectionBand(t *testing.T) {
	cases := []struct {
		current, previous float64
		want              models.RateDirection
	}{
		{5.25, 5.25, models.RateHolding},
		{5.30, 5.25, models.RateHolding}, // within the ±0.05 band
		{5.31, 5.25, models.RateRising},
		{5.19, 5.25, models.RateFalling},
	}
	for _, c := range cases {
		if got := rateDirection(c.current, c.previous); got != c.want {
			t.Fatalf("rateDirection(%v, %v) = %v, want %v", c.current, c.previous, got, c.want)
		}
	}
}

func TestHistorySourceReplaysQuarters(t *testing.T) {
	h := NewHistorySource()
	ctx := context.Background()

	first, err := h.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if first.BoeRate != 5.25 || first.InflationRate != 4.6 {
		t.Fatalf("unexpected first quarter: %+v", first)
	}
	if first.InflationMomentum != 0 {
		t.Fatalf("first reading has no momentum, got %v", first.InflationMomentum)
	}

	second, err := h.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if second.InflationMomentum >= 0 {
		t.Fatalf("inflation fell 4.6 -> 3.9, momentum %v", second.InflationMomentum)
	}

	// Consume the rest of the cycle; the fifth reading cuts the rate.
	var fifth *models.MacroSnapshot
	for i := 2; i < 5; i++ {
		fifth, err = h.Fetch(ctx)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if fifth.BoeDirection != models.RateFalling {
		t.Fatalf("5.25 -> 5.00 should be FALLING, got %v", fifth.BoeDirection)
	}
}

func TestHistorySourceWrapsAround(t *testing.T) {
	h := NewHistorySource()
	ctx := context.Background()

	for i := 0; i < HistoryLen; i++ {
		if _, err := h.Fetch(ctx); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	again, err := h.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if again.BoeRate != 5.25 || again.InflationRate != 4.6 {
		t.Fatalf("expected wrap to first quarter, got %+v", again)
	}
}

func TestSeasonOf(t *testing.T) {
	cases := []struct {
		month  time.Month
		season string
		factor float64
	}{
		{time.April, "Spring", 1.0},
		{time.July, "Summer", 1.0},
		{time.October, "Autumn", 0.8},
		{time.January, "Winter", 0.6},
	}
	for _, c := range cases {
		season, factor := seasonOf(c.month)
		if season != c.season || factor != c.factor {
			t.Fatalf("seasonOf(%v) = %v/%v, want %v/%v", c.month, season, factor, c.season, c.factor)
		}
	}
}

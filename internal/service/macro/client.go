package macro

import (
	"context"
	"io"
	"math"
	"regexp"
	"strconv"
	"sync"
	"time"

	"Predictelligence/internal/domain/models"
	xhttp "Predictelligence/pkg/http"
	xlogger "Predictelligence/pkg/logger"
)

// Conservative defaults used when a provider is unavailable and no
// known-good reading exists yet.
const (
	DefaultBoeRate      = 5.25
	DefaultInflation    = 3.8
	DefaultAvgTemp      = 12.0
	DefaultSeasonFactor = 0.8
	DefaultUKAvgPrice   = 285000
	DefaultSeason       = "Autumn"
)

const (
	defaultBoeURL = "https://www.bankofengland.co.uk/boeapps/database/fromshowcolumns.asp" +
		"?Travel=NIxAIxSUx&FromSeries=1&ToSeries=50&DAT=RNG" +
		"&FD=1&FM=Jan&FY=2024&TD=31&TM=Dec&TY=2025" +
		"&VFD=Y&html.x=66&html.y=26&C=BYD&Filter=N"
	defaultOnsURL     = "https://api.ons.gov.uk/v1/datasets/cpih01/timeseries/l55o/data"
	defaultWeatherURL = "https://api.open-meteo.com/v1/forecast?latitude=51.5&longitude=-0.1&current_weather=true"
	defaultHpiURL     = "https://landregistry.data.gov.uk/data/ukhpi/region/united-kingdom/month/2024-01.json"
)

// rateDirectionBand is the minimum rate move treated as RISING/FALLING.
const rateDirectionBand = 0.05

const rollingWindow = 5

var decimalRe = regexp.MustCompile(`(\d+\.\d+)`)

// Config holds provider endpoints and the per-request timeout.
type Config struct {
	Timeout    time.Duration
	BoeURL     string
	OnsURL     string
	WeatherURL string
	HpiURL     string
}

// Client fetches UK macro indicators from free public providers and degrades
// to the last known-good reading, or to defaults, on any failure. Fetch never
// returns an error.
type Client struct {
	cfg    Config
	http   *xhttp.Client
	logger *xlogger.Logger
	now    func() time.Time

	mu            sync.Mutex
	prevBoeRate   float64
	prevInflation float64
	havePrev      bool
	boeHistory    []float64
	lastGood      *models.MacroSnapshot
}

// NewClient creates a macro client. Zero-value config fields fall back to the
// documented public endpoints and an 8s timeout.
func NewClient(cfg Config, logger *xlogger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.BoeURL == "" {
		cfg.BoeURL = defaultBoeURL
	}
	if cfg.OnsURL == "" {
		cfg.OnsURL = defaultOnsURL
	}
	if cfg.WeatherURL == "" {
		cfg.WeatherURL = defaultWeatherURL
	}
	if cfg.HpiURL == "" {
		cfg.HpiURL = defaultHpiURL
	}
	return &Client{
		cfg:    cfg,
		http:   xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		logger: logger,
		now:    time.Now,
	}
}

// Fetch assembles a fresh snapshot. Each provider is tried independently; a
// failed provider falls back per field, marks the snapshot degraded, and the
// scheduler keeps running.
func (c *Client) Fetch(ctx context.Context) (*models.MacroSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()
	snap := &models.MacroSnapshot{
		BoeRate:        DefaultBoeRate,
		BoeDirection:   models.RateHolding,
		InflationRate:  DefaultInflation,
		InflationTrend: models.InflationElevated,
		AvgTemp:        DefaultAvgTemp,
		Season:         DefaultSeason,
		SeasonFactor:   DefaultSeasonFactor,
		UKAvgPrice:     DefaultUKAvgPrice,
		FetchedAt:      now,
	}
	if c.lastGood != nil {
		snap.BoeRate = c.lastGood.BoeRate
		snap.InflationRate = c.lastGood.InflationRate
		snap.UKAvgPrice = c.lastGood.UKAvgPrice
	}

	degraded := false

	if rate, err := c.fetchBoeRate(ctx); err != nil {
		degraded = true
		c.logger.Warn("boe rate fetch failed", xlogger.Error(err))
	} else {
		snap.BoeRate = rate
	}
	if c.havePrev {
		snap.BoeDirection = rateDirection(snap.BoeRate, c.prevBoeRate)
	}

	if infl, err := c.fetchInflation(ctx); err != nil {
		degraded = true
		c.logger.Warn("ons inflation fetch failed", xlogger.Error(err))
	} else {
		snap.InflationRate = infl
	}

	if temp, err := c.fetchTemperature(ctx); err != nil {
		degraded = true
		c.logger.Warn("weather fetch failed", xlogger.Error(err))
	} else {
		snap.AvgTemp = temp
	}
	snap.Season, snap.SeasonFactor = seasonOf(now.Month())

	if avg, err := c.fetchUKAvgPrice(ctx); err != nil {
		degraded = true
		c.logger.Warn("uk hpi fetch failed", xlogger.Error(err))
	} else {
		snap.UKAvgPrice = avg
	}

	if degraded {
		// Deterministic time-based drift keeps feature variance alive in
		// fallback mode so the model can still learn.
		c.applyDrift(snap, now)
	}

	snap.InflationTrend = inflationTrend(snap.InflationRate)
	snap.Affordability = affordabilityOf(snap.BoeRate)
	snap.Degraded = degraded

	if c.havePrev {
		snap.InflationMomentum = snap.InflationRate - c.prevInflation
	}
	c.prevBoeRate = snap.BoeRate
	c.prevInflation = snap.InflationRate
	c.havePrev = true

	c.boeHistory = append(c.boeHistory, snap.BoeRate)
	if len(c.boeHistory) > rollingWindow {
		c.boeHistory = c.boeHistory[len(c.boeHistory)-rollingWindow:]
	}
	snap.RollingBoeMean = mean(c.boeHistory)

	if !degraded {
		good := *snap
		c.lastGood = &good
	}

	c.logger.Debug("macro fetch complete",
		xlogger.Float64("boe_rate", snap.BoeRate),
		xlogger.Float64("inflation_rate", snap.InflationRate),
		xlogger.String("season", snap.Season),
		xlogger.Bool("degraded", degraded),
	)
	return snap, nil
}

// applyDrift injects cyclic, clock-derived offsets into fallback values
// rather than random noise, so repeated fetches within a window stay
// consistent.
func (c *Client) applyDrift(snap *models.MacroSnapshot, now time.Time) {
	hourPhase := (float64(now.Hour()) + float64(now.Minute())/60.0) / 24.0
	dayPhase := float64(now.YearDay()%30) / 30.0
	weekPhase := float64(now.YearDay()%7) / 7.0

	snap.BoeRate = round4(snap.BoeRate + 0.3*math.Sin(dayPhase*2*math.Pi))
	snap.InflationRate = round4(snap.InflationRate + 0.25*math.Cos(hourPhase*2*math.Pi))
	snap.AvgTemp = round2(snap.AvgTemp + 5.0*math.Sin(hourPhase*2*math.Pi))
	snap.UKAvgPrice = math.Round(snap.UKAvgPrice + 2000*math.Sin(weekPhase*2*math.Pi))
}

func (c *Client) fetchBoeRate(ctx context.Context) (float64, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.cfg.BoeURL,
		Headers: map[string]string{"Accept": "text/html"},
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}

	// The database page is HTML; the base rate is the last realistic
	// decimal value on it.
	var rate float64
	found := false
	for _, m := range decimalRe.FindAllString(string(body), -1) {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		if v >= 0.1 && v <= 20.0 {
			rate = v
			found = true
		}
	}
	if !found {
		return 0, errNoRate
	}
	return rate, nil
}

func (c *Client) fetchInflation(ctx context.Context) (float64, error) {
	var payload struct {
		Months []struct {
			Value string `json:"value"`
		} `json:"months"`
	}
	if err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.OnsURL,
	}, &payload); err != nil {
		return 0, err
	}
	if len(payload.Months) == 0 {
		return 0, errNoInflation
	}
	return strconv.ParseFloat(payload.Months[len(payload.Months)-1].Value, 64)
}

func (c *Client) fetchTemperature(ctx context.Context) (float64, error) {
	var payload struct {
		CurrentWeather struct {
			Temperature float64 `json:"temperature"`
		} `json:"current_weather"`
	}
	if err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.WeatherURL,
	}, &payload); err != nil {
		return 0, err
	}
	return payload.CurrentWeather.Temperature, nil
}

func (c *Client) fetchUKAvgPrice(ctx context.Context) (float64, error) {
	var payload struct {
		Result struct {
			PrimaryTopic struct {
				AveragePrice    float64 `json:"averagePrice"`
				HousePriceIndex float64 `json:"housePriceIndex"`
			} `json:"primaryTopic"`
		} `json:"result"`
	}
	if err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.HpiURL,
	}, &payload); err != nil {
		return 0, err
	}
	val := payload.Result.PrimaryTopic.AveragePrice
	if val == 0 {
		val = payload.Result.PrimaryTopic.HousePriceIndex
	}
	if val == 0 {
		return 0, errNoAvgPrice
	}
	// An index reading (roughly 100-200) rather than an absolute price.
	if val < 1000 {
		val *= 1500
	}
	return val, nil
}

func rateDirection(current, previous float64) models.RateDirection {
	diff := current - previous
	switch {
	case diff > rateDirectionBand:
		return models.RateRising
	case diff < -rateDirectionBand:
		return models.RateFalling
	default:
		return models.RateHolding
	}
}

func inflationTrend(rate float64) models.InflationTrend {
	if rate < 3.0 {
		return models.InflationStable
	}
	return models.InflationElevated
}

func affordabilityOf(boeRate float64) models.Affordability {
	score := math.Max(0, math.Min(1.0-boeRate/15.0, 1))
	if score > 0.6 {
		return models.AffordabilityImproving
	}
	return models.AffordabilityPressured
}

func seasonOf(m time.Month) (string, float64) {
	switch m {
	case time.March, time.April, time.May:
		return "Spring", 1.0
	case time.June, time.July, time.August:
		return "Summer", 1.0
	case time.September, time.October, time.November:
		return "Autumn", 0.8
	default:
		return "Winter", 0.6
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

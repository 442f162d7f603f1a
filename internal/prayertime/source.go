package prayertime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Timings struct {
	Fajr    string
	Sunrise string
	Dhuhr   string
	Asr     string
	Maghrib string
	Isha    string
}

type TimeSource interface {
	FetchTimings(ctx context.Context, lat, lng float64, date time.Time) (Timings, error)
}

type Connectivity interface {
	Online() bool
}

type StaticConnectivity bool

func (s StaticConnectivity) Online() bool { return bool(s) }

const (
	DefaultAladhanBaseURL = "https://api.aladhan.com/v1"
	// DefaultMethod is the ISNA calculation method.
	DefaultMethod = 2
)

var ErrSourceStatus = errors.New("prayertime: unexpected source status")

type AladhanSource struct {
	baseURL string
	method  int
	client  *http.Client
}

func NewAladhanSource(baseURL string, method int, client *http.Client) *AladhanSource {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAladhanBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return &AladhanSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		method:  method,
		client:  client,
	}
}

type aladhanResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings aladhanTimings `json:"timings"`
	} `json:"data"`
}

type aladhanTimings struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

func (s *AladhanSource) FetchTimings(ctx context.Context, lat, lng float64, date time.Time) (Timings, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("method", strconv.Itoa(s.method))
	endpoint := fmt.Sprintf("%s/timings/%d?%s", s.baseURL, date.Unix(), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Timings{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Timings{}, fmt.Errorf("fetch timings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Timings{}, fmt.Errorf("%w: %d", ErrSourceStatus, resp.StatusCode)
	}
	var body aladhanResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Timings{}, fmt.Errorf("decode timings: %w", err)
	}
	if body.Code != 0 && body.Code != http.StatusOK {
		return Timings{}, fmt.Errorf("%w: code %d %s", ErrSourceStatus, body.Code, body.Status)
	}
	t := body.Data.Timings
	return Timings{
		Fajr:    t.Fajr,
		Sunrise: t.Sunrise,
		Dhuhr:   t.Dhuhr,
		Asr:     t.Asr,
		Maghrib: t.Maghrib,
		Isha:    t.Isha,
	}, nil
}

package market

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/internal/refresh"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

const (
	DefaultVolumeDays = 20
	SurgeRatio        = 2.0 // 평균 대비 2배 이상이면 급증
)

// VolumeAnalysis summarises recent trading volume of one stock
type VolumeAnalysis struct {
	Code          string    `json:"code"`
	Days          int       `json:"days"`
	AsOf          time.Time `json:"as_of"`
	LatestVolume  int64     `json:"latest_volume"`
	AverageVolume float64   `json:"average_volume"` // excludes the latest bar
	VolumeRatio   float64   `json:"volume_ratio"`   // latest / average
	OBV           int64     `json:"obv"`            // on-balance volume over the window
	Surge         bool      `json:"surge"`
}

// VolumeService analyses daily volume from cached charts
type VolumeService struct {
	charts *ChartService
	coord  *refresh.Coordinator[VolumeAnalysis]
}

// NewVolumeService creates a volume service
func NewVolumeService(charts *ChartService, ttl time.Duration, log *logger.Logger, opts ...freshness.Option) (*VolumeService, error) {
	cache, err := freshness.New[string, VolumeAnalysis](ttl, append([]freshness.Option{freshness.WithName("volume")}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &VolumeService{
		charts: charts,
		coord:  refresh.New(cache, refresh.WithLogger(log)),
	}, nil
}

// Analyze compares the latest session's volume with the days before it
func (s *VolumeService) Analyze(ctx context.Context, code string, days int) (VolumeAnalysis, error) {
	if !contracts.ValidCode(code) {
		return VolumeAnalysis{}, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	if days <= 0 {
		days = DefaultVolumeDays
	}
	if days >= MaxChartBars {
		days = MaxChartBars - 1
	}

	return s.coord.Fetch(ctx, VolumeKey(code, days), func(ctx context.Context) (VolumeAnalysis, error) {
		chart, err := s.charts.Get(ctx, code, contracts.PeriodDay, days+1)
		if err != nil {
			return VolumeAnalysis{}, err
		}
		return AnalyzeVolume(code, chart.Candles, days), nil
	})
}

// Coordinator exposes the underlying coordinator
func (s *VolumeService) Coordinator() *refresh.Coordinator[VolumeAnalysis] {
	return s.coord
}

// AnalyzeVolume computes the analysis over the last days+1 candles
func AnalyzeVolume(code string, candles []contracts.Candle, days int) VolumeAnalysis {
	out := VolumeAnalysis{Code: code, Days: days}
	candles = lastN(candles, days+1)
	if len(candles) == 0 {
		return out
	}

	latest := candles[len(candles)-1]
	out.AsOf = latest.Date
	out.LatestVolume = latest.Volume

	prior := candles[:len(candles)-1]
	if len(prior) > 0 {
		var sum int64
		for _, c := range prior {
			sum += c.Volume
		}
		out.AverageVolume = float64(sum) / float64(len(prior))
	}
	if out.AverageVolume > 0 {
		out.VolumeRatio = float64(out.LatestVolume) / out.AverageVolume
	}
	out.Surge = out.VolumeRatio >= SurgeRatio

	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			out.OBV += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			out.OBV -= candles[i].Volume
		}
	}
	return out
}

// Package dataset loads the static price tables once at start-up from local
// files or S3 objects.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/datetime"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/timeseries"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// S3Config configures access to s3:// locations.
type S3Config struct {
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	PathStyle       bool   `yaml:"pathStyle,omitempty" mapstructure:"pathStyle"`
	AccessKeyID     string `yaml:"accessKeyId,omitempty" mapstructure:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty" mapstructure:"secretAccessKey"`
}

// Config locates every table. Locations are local paths or s3://bucket/key.
type Config struct {
	BTCUSD    string            `yaml:"btcUsd" mapstructure:"btcUsd"`
	FX        map[string]string `yaml:"fx" mapstructure:"fx"`
	Manual    string            `yaml:"manual,omitempty" mapstructure:"manual"`
	FloorDate string            `yaml:"floorDate,omitempty" mapstructure:"floorDate"`
	S3        S3Config          `yaml:"s3,omitempty" mapstructure:"s3"`
}

// Tables are the loaded, read-only datasets.
type Tables struct {
	BTCUSD *timeseries.Series
	FX     map[convert.Currency]*timeseries.Series
	Manual []timeseries.MonthlyBar
}

// ObjectGetter is the part of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads tables. The S3 client is created on first use.
type Loader struct {
	logger *zap.Logger
	s3     ObjectGetter
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithObjectGetter supplies the S3 client instead of building one from Config.S3.
func WithObjectGetter(g ObjectGetter) LoaderOption {
	return func(l *Loader) { l.s3 = g }
}

// NewLoader creates a Loader.
func NewLoader(logger *zap.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every table named in cfg. BTC points before the floor date are
// dropped.
func (l *Loader) Load(ctx context.Context, cfg Config) (*Tables, error) {
	if cfg.BTCUSD == "" {
		return nil, errors.New("data.btcUsd is required")
	}

	floor := cfg.FloorDate
	if floor == "" {
		floor = constants.DefaultFloorDate
	}
	floorDate, err := datetime.ParseDate(floor)
	if err != nil {
		return nil, fmt.Errorf("invalid floor date %q: %w", floor, err)
	}

	points, err := l.readSeries(ctx, cfg, cfg.BTCUSD)
	if err != nil {
		return nil, fmt.Errorf("failed to load BTC/USD table: %w", err)
	}
	kept := lo.Filter(points, func(p timeseries.Point, _ int) bool { return !p.Date.Before(floorDate) })
	if dropped := len(points) - len(kept); dropped > 0 {
		l.logger.Info("dropped BTC/USD points before floor date",
			zap.String("op", "dataset.Load"),
			zap.String("floor", floor),
			zap.Int("dropped", dropped),
		)
	}
	btc, err := timeseries.FromPoints(kept)
	if err != nil {
		return nil, fmt.Errorf("invalid BTC/USD table: %w", err)
	}
	if btc.Len() == 0 {
		return nil, fmt.Errorf("BTC/USD table %s has no points on or after %s", cfg.BTCUSD, floor)
	}

	tables := &Tables{BTCUSD: btc, FX: make(map[convert.Currency]*timeseries.Series, len(cfg.FX))}

	codes := lo.Keys(cfg.FX)
	sort.Strings(codes)
	for _, code := range codes {
		currency, err := convert.ParseCurrency(code)
		if err != nil {
			return nil, fmt.Errorf("data.fx: %w", err)
		}
		points, err := l.readSeries(ctx, cfg, cfg.FX[code])
		if err != nil {
			return nil, fmt.Errorf("failed to load %s FX table: %w", currency, err)
		}
		series, err := timeseries.FromPoints(points)
		if err != nil {
			return nil, fmt.Errorf("invalid %s FX table: %w", currency, err)
		}
		tables.FX[currency] = series
	}

	if cfg.Manual != "" {
		raw, err := l.read(ctx, cfg, cfg.Manual)
		if err != nil {
			return nil, fmt.Errorf("failed to load manual monthly table: %w", err)
		}
		if tables.Manual, err = ParseMonthly(raw); err != nil {
			return nil, fmt.Errorf("invalid manual monthly table: %w", err)
		}
	}

	l.logger.Info("datasets loaded",
		zap.String("op", "dataset.Load"),
		zap.Int("btcPoints", btc.Len()),
		zap.Int("fxTables", len(tables.FX)),
		zap.Int("manualMonths", len(tables.Manual)),
	)
	return tables, nil
}

func (l *Loader) readSeries(ctx context.Context, cfg Config, location string) ([]timeseries.Point, error) {
	raw, err := l.read(ctx, cfg, location)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(path.Ext(location)) {
	case ".csv":
		return ParseCSV(bytes.NewReader(raw))
	case ".json":
		return ParseJSON(raw)
	}
	return nil, fmt.Errorf("unsupported table format %q (want .json or .csv)", path.Ext(location))
}

func (l *Loader) read(ctx context.Context, cfg Config, location string) ([]byte, error) {
	bucket, key, ok := parseS3(location)
	if !ok {
		return os.ReadFile(location)
	}
	client, err := l.client(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	l.logger.Debug("read table from S3",
		zap.String("op", "dataset.read"),
		zap.String("bucket", bucket),
		zap.String("key", key),
	)
	return io.ReadAll(out.Body)
}

func parseS3(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// ParseJSON reads a {"YYYY-MM-DD": value} object.
func ParseJSON(raw []byte) ([]timeseries.Point, error) {
	var data map[string]float64
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON table: %w", err)
	}
	points := make([]timeseries.Point, 0, len(data))
	for date, value := range data {
		t, err := datetime.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("invalid date key %q: %w", date, err)
		}
		points = append(points, timeseries.Point{Date: t, Value: value})
	}
	return points, nil
}

// ParseCSV reads date,value rows. A first row whose value column is not
// numeric is treated as a header.
func ParseCSV(r io.Reader) ([]timeseries.Point, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV table: %w", err)
	}
	var points []timeseries.Point
	for i, rec := range records {
		value, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: invalid value %q", i+1, rec[1])
		}
		t, err := datetime.ParseDate(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q", i+1, rec[0])
		}
		points = append(points, timeseries.Point{Date: t, Value: value})
	}
	return points, nil
}

// ParseMonthly reads the curated [{"year":..,"month":..,"open":..,"close":..}] list.
func ParseMonthly(raw []byte) ([]timeseries.MonthlyBar, error) {
	var bars []timeseries.MonthlyBar
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("failed to parse monthly table: %w", err)
	}
	seen := make(map[string]bool, len(bars))
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if seen[b.Key()] {
			return nil, fmt.Errorf("duplicate month %s", b.Key())
		}
		seen[b.Key()] = true
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Key() < bars[j].Key() })
	return bars, nil
}

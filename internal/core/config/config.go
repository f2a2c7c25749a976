package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// RedisURL is the connection URL for the event store backend.
	RedisURL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Tracking holds event retention and status resolution settings.
	Tracking TrackingConfig `mapstructure:",squash"`

	// Aggregation holds performance aggregation settings.
	Aggregation AggregationConfig `mapstructure:",squash"`
}

// TrackingConfig holds event retention and status resolution settings.
type TrackingConfig struct {
	// RetentionDays is the rolling window of events kept per representative.
	RetentionDays int `mapstructure:"RETENTION_DAYS" default:"30"`
	// StaleMaxAgeHours is the age after which an open attendance record or
	// in-progress visit is treated as abandoned for status resolution.
	StaleMaxAgeHours float64 `mapstructure:"STALE_MAX_AGE_HOURS" default:"12"`
	// SweepIntervalSeconds is the cadence of the periodic staleness sweep.
	SweepIntervalSeconds int `mapstructure:"SWEEP_INTERVAL_SECONDS" default:"30"`
	// RetentionSweepMinutes is the cadence of the event eviction sweep.
	RetentionSweepMinutes int `mapstructure:"RETENTION_SWEEP_MINUTES" default:"60"`
	// IngestRetries is how many times a failed store write is retried.
	IngestRetries int `mapstructure:"INGEST_RETRIES" default:"3"`
	// IngestBackoffMillis is the base delay between write retries, doubled each attempt.
	IngestBackoffMillis int `mapstructure:"INGEST_BACKOFF_MS" default:"100"`
}

// AggregationConfig holds performance window computation settings.
type AggregationConfig struct {
	// IdleGapHours is the gap between consecutive location events above
	// which the segment is excluded from distance summation.
	IdleGapHours float64 `mapstructure:"IDLE_GAP_HOURS" default:"2"`
	// TimeoutSeconds is the time budget for a fleet-wide aggregation.
	TimeoutSeconds int `mapstructure:"AGGREGATION_TIMEOUT_SECONDS" default:"30"`
	// RatingBand5..RatingBand2 are the minimum success rates (percent) for
	// each rating value; rates below RatingBand2 earn a rating of 1.
	RatingBand5 float64 `mapstructure:"RATING_BAND_5" default:"95"`
	RatingBand4 float64 `mapstructure:"RATING_BAND_4" default:"85"`
	RatingBand3 float64 `mapstructure:"RATING_BAND_3" default:"70"`
	RatingBand2 float64 `mapstructure:"RATING_BAND_2" default:"50"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

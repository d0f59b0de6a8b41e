package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ReportingConfig holds the tunables read from reporting.yml.
type ReportingConfig struct {
	UnassignedBranchLabel string `mapstructure:"unassignedBranchLabel"`
	HistoryPageSize       int    `mapstructure:"historyPageSize"`
	ReportListPageSize    int    `mapstructure:"reportListPageSize"`
	MaxLinesPerSubmission int    `mapstructure:"maxLinesPerSubmission"`
}

func DefaultReportingConfig() ReportingConfig {
	return ReportingConfig{
		UnassignedBranchLabel: "未指定支行",
		HistoryPageSize:       30,
		ReportListPageSize:    100,
		MaxLinesPerSubmission: 200,
	}
}

type reportingFile struct {
	Reporting ReportingConfig `mapstructure:"reporting"`
}

type ReportingConfigHolder struct {
	current atomic.Value // holds ReportingConfig
}

// NewStaticReportingConfigHolder wraps a fixed config without file watching.
func NewStaticReportingConfigHolder(cfg ReportingConfig) *ReportingConfigHolder {
	holder := &ReportingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewReportingConfigHolder(log *zap.Logger) (*ReportingConfigHolder, error) {
	log = log.Named("reporting.config")

	v := viper.New()
	v.SetConfigName("reporting")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/fieldreport")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FIELDREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReportingConfig()
	v.SetDefault("reporting.unassignedBranchLabel", defaults.UnassignedBranchLabel)
	v.SetDefault("reporting.historyPageSize", defaults.HistoryPageSize)
	v.SetDefault("reporting.reportListPageSize", defaults.ReportListPageSize)
	v.SetDefault("reporting.maxLinesPerSubmission", defaults.MaxLinesPerSubmission)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var file reportingFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, err
	}
	if err := validateReportingConfig(file.Reporting); err != nil {
		return nil, err
	}

	holder := NewStaticReportingConfigHolder(file.Reporting)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated reportingFile
		if err := v.Unmarshal(&updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateReportingConfig(updated.Reporting); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated.Reporting)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Get returns the current config. A nil holder yields the defaults.
func (h *ReportingConfigHolder) Get() ReportingConfig {
	if h == nil {
		return DefaultReportingConfig()
	}
	return h.current.Load().(ReportingConfig)
}

func validateReportingConfig(cfg ReportingConfig) error {
	if cfg.HistoryPageSize <= 0 {
		return errors.New("reporting.historyPageSize must be positive")
	}
	if cfg.ReportListPageSize <= 0 {
		return errors.New("reporting.reportListPageSize must be positive")
	}
	if cfg.MaxLinesPerSubmission <= 0 {
		return errors.New("reporting.maxLinesPerSubmission must be positive")
	}
	return nil
}

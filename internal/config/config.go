package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string // "PROD" selects the signed-assertion token flow
	Server      ServerConfig
	Database    DatabaseConfig
	Store       StoreConfig
	Registry    RegistryConfig
	Token       TokenConfig
	Export      ExportConfig
	Jobs        JobsConfig
}

type ServerConfig struct {
	Port           int
	DebugEndpoints bool
}

type DatabaseConfig struct {
	DSN string
}

type StoreConfig struct {
	SPARQLEndpoint string
	SourceGraph    string
}

type RegistryConfig struct {
	Base               string
	Version            string
	ConcurrentRequests int
	EnableAPISourcing  bool
}

type TokenConfig struct {
	AuthDomain       string
	Audience         string
	Scope            string
	AuthorizationKey string
	ClientID         string
	KeyDir           string
}

type ExportConfig struct {
	ChunkSize                int
	ShareFolder              string
	EnableRequestReasonCheck bool
}

type JobsConfig struct {
	RetentionAge    time.Duration
	ScheduleEnabled bool
	ScheduleHourUTC int
}

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("vl_environment", "DEV")
	v.SetDefault("vl_port", 8080)
	v.SetDefault("vl_debug_endpoints", false)
	v.SetDefault("vl_pg_dsn", "")
	v.SetDefault("vl_sparql_endpoint", "http://database:8890/sparql")
	v.SetDefault("vl_source_graph", "http://mu.semte.ch/graphs/organizations")
	v.SetDefault("vl_api_base", "")
	v.SetDefault("vl_api_version", "")
	v.SetDefault("vl_api_concurrent_requests", 10)
	v.SetDefault("vl_enable_api_sourcing", true)
	v.SetDefault("vl_auth_domain", "")
	v.SetDefault("vl_aud", "")
	v.SetDefault("vl_scope", "")
	v.SetDefault("vl_authorization_key", "")
	v.SetDefault("vl_client_id", "")
	v.SetDefault("vl_key_dir", "/config")
	v.SetDefault("vl_chunk_size", 100)
	v.SetDefault("vl_share_folder", "/share")
	v.SetDefault("vl_enable_request_reason_check", true)
	v.SetDefault("vl_retention_days", 7)
	v.SetDefault("vl_schedule_enabled", false)
	v.SetDefault("vl_schedule_hour_utc", 0)

	cfg := Config{
		Environment: strings.ToUpper(strings.TrimSpace(v.GetString("vl_environment"))),
		Server: ServerConfig{
			Port:           v.GetInt("vl_port"),
			DebugEndpoints: v.GetBool("vl_debug_endpoints"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("vl_pg_dsn"),
		},
		Store: StoreConfig{
			SPARQLEndpoint: v.GetString("vl_sparql_endpoint"),
			SourceGraph:    v.GetString("vl_source_graph"),
		},
		Registry: RegistryConfig{
			Base:               v.GetString("vl_api_base"),
			Version:            v.GetString("vl_api_version"),
			ConcurrentRequests: v.GetInt("vl_api_concurrent_requests"),
			EnableAPISourcing:  v.GetBool("vl_enable_api_sourcing"),
		},
		Token: TokenConfig{
			AuthDomain:       v.GetString("vl_auth_domain"),
			Audience:         v.GetString("vl_aud"),
			Scope:            v.GetString("vl_scope"),
			AuthorizationKey: v.GetString("vl_authorization_key"),
			ClientID:         v.GetString("vl_client_id"),
			KeyDir:           v.GetString("vl_key_dir"),
		},
		Export: ExportConfig{
			ChunkSize:                v.GetInt("vl_chunk_size"),
			ShareFolder:              v.GetString("vl_share_folder"),
			EnableRequestReasonCheck: v.GetBool("vl_enable_request_reason_check"),
		},
		Jobs: JobsConfig{
			RetentionAge:    time.Duration(v.GetInt("vl_retention_days")) * 24 * time.Hour,
			ScheduleEnabled: v.GetBool("vl_schedule_enabled"),
			ScheduleHourUTC: v.GetInt("vl_schedule_hour_utc"),
		},
	}

	if cfg.Export.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("config: chunk size must be positive, got %d", cfg.Export.ChunkSize)
	}
	if cfg.Registry.ConcurrentRequests <= 0 {
		return Config{}, fmt.Errorf("config: concurrent request limit must be positive, got %d", cfg.Registry.ConcurrentRequests)
	}
	if cfg.Jobs.ScheduleHourUTC < 0 || cfg.Jobs.ScheduleHourUTC > 23 {
		return Config{}, fmt.Errorf("config: schedule hour must be 0-23, got %d", cfg.Jobs.ScheduleHourUTC)
	}
	return cfg, nil
}

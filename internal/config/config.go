package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Gitlab   GitlabConfig   `yaml:"gitlab"`
	Counts   CountsConfig   `yaml:"counts"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// GitlabConfig holds mirror-store connection and layout settings.
type GitlabConfig struct {
	BaseURL     string        `yaml:"base_url"      env:"GITLAB_BASE_URL"      env-required:"true"`
	Token       string        `yaml:"token"         env:"GITLAB_TOKEN"         env-required:"true"`
	RootGroupID int           `yaml:"root_group_id" env:"GITLAB_ROOT_GROUP_ID" env-required:"true"`
	DeployKeyID int           `yaml:"deploy_key_id" env:"GITLAB_DEPLOY_KEY_ID" env-default:"0"`
	Branch      string        `yaml:"branch"        env:"GITLAB_BRANCH"        env-default:"master"`
	Timeout     time.Duration `yaml:"timeout"       env:"GITLAB_TIMEOUT"       env-default:"30s"`

	// Environment prefixes every group path so several deployments can
	// share one mirror-store instance. Empty means no prefix.
	Environment string `yaml:"environment" env:"GITLAB_ENVIRONMENT"`

	EngagementFile string `yaml:"engagement_file" env:"GITLAB_ENGAGEMENT_FILE" env-default:"engagement/engagement.json"`
	LegacyFile     string `yaml:"legacy_file"     env:"GITLAB_LEGACY_FILE"     env-default:"engagement.json"`
	RuntimeFile    string `yaml:"runtime_file"    env:"GITLAB_RUNTIME_FILE"    env-default:"engagement/runtime.json"`
	CategoryFile   string `yaml:"category_file"   env:"GITLAB_CATEGORY_FILE"   env-default:"engagement/category.json"`

	// SeedDir prefixes every seed file path inside the project.
	SeedDir string `yaml:"seed_dir" env:"GITLAB_SEED_DIR" env-default:"engagement/"`

	// SeedFilesRaw is a comma-separated list of paths committed as empty
	// placeholders when a project is first populated.
	SeedFilesRaw string `yaml:"seed_files" env:"GITLAB_SEED_FILES"`

	// Tag marks every mirror project; StateTagFormat renders the per-state
	// tag swapped by the state-change consumer.
	Tag            string `yaml:"tag"              env:"GITLAB_TAG"              env-default:"engagements"`
	StateTagFormat string `yaml:"state_tag_format" env:"GITLAB_STATE_TAG_FORMAT" env-default:"engagements-%s"`

	CommitAuthorName  string `yaml:"commit_author_name"  env:"GITLAB_COMMIT_AUTHOR_NAME"  env-default:"engagements-bot"`
	CommitAuthorEmail string `yaml:"commit_author_email" env:"GITLAB_COMMIT_AUTHOR_EMAIL" env-default:"engagements-bot@localhost"`

	// SeedFiles is parsed from SeedFilesRaw during validation.
	SeedFiles []string `yaml:"-" env:"-"`
}

// CountsConfig holds the endpoints of the auxiliary count collaborators.
// Empty URL disables that collaborator.
type CountsConfig struct {
	ParticipantsURL string        `yaml:"participants_url" env:"COUNTS_PARTICIPANTS_URL"`
	ArtifactsURL    string        `yaml:"artifacts_url"    env:"COUNTS_ARTIFACTS_URL"`
	ActivityURL     string        `yaml:"activity_url"     env:"COUNTS_ACTIVITY_URL"`
	Timeout         time.Duration `yaml:"timeout"          env:"COUNTS_TIMEOUT" env-default:"10s"`
}

// RuntimeConfig holds the runtime-configuration collaborator settings, the
// source of webhook definitions and per-type runtime documents.
type RuntimeConfig struct {
	BaseURL string        `yaml:"base_url" env:"RUNTIME_BASE_URL"`
	Token   string        `yaml:"token"    env:"RUNTIME_TOKEN"`
	Timeout time.Duration `yaml:"timeout"  env:"RUNTIME_TIMEOUT" env-default:"10s"`
}

// SweepConfig holds the periodic maintenance intervals.
type SweepConfig struct {
	StateInterval      time.Duration `yaml:"state_interval"       env:"SWEEP_STATE_INTERVAL"       env-default:"5m"`
	RefreshCheck       time.Duration `yaml:"refresh_check"        env:"SWEEP_REFRESH_CHECK"        env-default:"1m"`
	FillMissingUpdates bool          `yaml:"fill_missing_updates" env:"SWEEP_FILL_MISSING_UPDATES" env-default:"true"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

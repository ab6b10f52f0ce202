package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FlowLeads   = "leads"
	FlowEfforts = "efforts"
	FlowAmeyo   = "ameyo"
)

// Duration parses "30m" style strings in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Environment is one volare deployment, told apart by its MySQL port.
type Environment struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

type VolareConfig struct {
	Host     string
	Username string
	Password string
	DBName   string
	Timeout  time.Duration
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	AdminDB  string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
}

type StorageConfig struct {
	Dir          string   `yaml:"dir"`
	PublicPrefix string   `yaml:"public_prefix"`
	Retention    Duration `yaml:"retention"`
}

type LarkConfig struct {
	BaseURL     string
	AppID       string
	AppSecret   string
	RedirectURI string
}

type SessionConfig struct {
	Path            string   `yaml:"path"`
	MaxUsers        int      `yaml:"max_users"`
	MaxAge          Duration `yaml:"max_age"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
	EmailPattern    string   `yaml:"email_pattern"`
	CookieName      string   `yaml:"cookie_name"`
}

type MappingConfig struct {
	Workbook      string `yaml:"workbook"`
	FallbackSheet string `yaml:"fallback_sheet"`
}

type PipelineConfig struct {
	IDChunkSize          int      `yaml:"id_chunk_size"`
	DispositionChunkSize int      `yaml:"disposition_chunk_size"`
	DispositionDepth     int      `yaml:"disposition_depth"`
	NoisePhrases         []string `yaml:"noise_phrases"`
	StatusMarkers        []string `yaml:"status_markers"`
}

// FlowConfig places one flow's archives on the FTP destinations.
// Folder may contain {env}, replaced by the environment name.
type FlowConfig struct {
	BasePath     string   `yaml:"base_path"`
	Folder       string   `yaml:"folder"`
	ChunkSize    int      `yaml:"chunk_size"`
	Destinations []string `yaml:"destinations"`
}

// FolderFor resolves the folder template for an environment.
func (f FlowConfig) FolderFor(env string) string {
	return strings.ReplaceAll(f.Folder, "{env}", env)
}

// Destination names an FTP server whose credentials live in the
// <EnvPrefix>_FTP_* variables.
type Destination struct {
	Name      string `yaml:"name"`
	EnvPrefix string `yaml:"env_prefix"`
}

// FTPServer is a destination with its credentials resolved.
type FTPServer struct {
	Name     string
	Host     string
	Port     int
	Username string
	Password string
}

type AppConfig struct {
	Env        string `yaml:"-"`
	Port       string `yaml:"-"`
	BaseURL    string `yaml:"-"`
	ConfigPath string `yaml:"-"`

	Environments []Environment         `yaml:"environments"`
	Flows        map[string]FlowConfig `yaml:"flows"`
	Destinations []Destination         `yaml:"destinations"`
	FTPServers   map[string]FTPServer  `yaml:"-"`
	FTPTimeout   Duration              `yaml:"ftp_timeout"`
	Storage      StorageConfig         `yaml:"storage"`
	Session      SessionConfig         `yaml:"session"`
	Mapping      MappingConfig         `yaml:"mapping"`
	Pipeline     PipelineConfig        `yaml:"pipeline"`
	RunTTL       Duration              `yaml:"run_ttl"`
	ClientsTTL   Duration              `yaml:"clients_ttl"`

	Volare     VolareConfig   `yaml:"-"`
	CallCenter PostgresConfig `yaml:"-"`
	Redis      RedisConfig    `yaml:"-"`
	S3         S3Config       `yaml:"-"`
	Lark       LarkConfig     `yaml:"-"`
}

// Environment looks an environment up by name, case-insensitively.
func (c AppConfig) Environment(name string) (Environment, bool) {
	for _, e := range c.Environments {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Environment{}, false
}

// Flow returns the placement of a flow.
func (c AppConfig) Flow(name string) (FlowConfig, bool) {
	f, ok := c.Flows[name]
	return f, ok
}

// ServersFor lists the resolved destinations of a flow in configured order.
func (c AppConfig) ServersFor(flow string) []FTPServer {
	f, ok := c.Flows[flow]
	if !ok {
		return nil
	}
	out := make([]FTPServer, 0, len(f.Destinations))
	for _, name := range f.Destinations {
		if s, ok := c.FTPServers[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// IsLocal reports whether the process runs on a developer machine.
func (c AppConfig) IsLocal() bool {
	return c.Env == "local" || c.Env == "development"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envReader collects the first malformed variable instead of exiting.
type envReader struct {
	err error
}

func (r *envReader) int(key, def string) int {
	s := getenv(key, def)
	i, err := strconv.Atoi(s)
	if err != nil {
		r.fail(fmt.Errorf("%s: invalid int value %q", key, s))
	}
	return i
}

func (r *envReader) bool(key, def string) bool {
	s := getenv(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		r.fail(fmt.Errorf("%s: invalid bool value %q", key, s))
	}
	return b
}

func (r *envReader) duration(key, def string) time.Duration {
	s := getenv(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		r.fail(fmt.Errorf("%s: invalid duration %q", key, s))
	}
	return d
}

func (r *envReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func newDefaults() AppConfig {
	return AppConfig{
		Environments: []Environment{
			{Name: "ENV1", Port: 3306},
			{Name: "ENV2", Port: 3307},
			{Name: "ENV3", Port: 3308},
		},
		Flows: map[string]FlowConfig{
			FlowLeads: {
				BasePath:     "/admin/ACTIVE/backup/LEADS",
				Folder:       "CMS {env}",
				ChunkSize:    5000,
				Destinations: []string{"NMKT", "PITX", "PAN"},
			},
			FlowEfforts: {
				BasePath:     "/admin/ACTIVE/backup/LEADS",
				Folder:       "CMS - AUTOSTAT",
				ChunkSize:    5000,
				Destinations: []string{"NMKT", "PITX", "PAN"},
			},
			FlowAmeyo: {
				BasePath:     "/admin/ACTIVE/backup/LEADS",
				Folder:       "AMEYO",
				ChunkSize:    5000,
				Destinations: []string{"NMKT", "PITX", "PAN"},
			},
		},
		Destinations: []Destination{
			{Name: "NMKT", EnvPrefix: "NMKT"},
			{Name: "PITX", EnvPrefix: "PITX"},
			{Name: "PAN", EnvPrefix: "PAN"},
		},
		FTPTimeout: Duration(30 * time.Second),
		Storage: StorageConfig{
			Dir:          "./exports",
			PublicPrefix: "/files",
			Retention:    Duration(24 * time.Hour),
		},
		Session: SessionConfig{
			Path:            "data/active_users.db",
			MaxUsers:        10,
			MaxAge:          Duration(30 * time.Minute),
			CleanupInterval: Duration(time.Minute),
			EmailPattern:    `^[a-zA-Z0-9._%+-]+@spmadridlaw\.com$`,
			CookieName:      "user_token",
		},
		Mapping: MappingConfig{
			Workbook:      "config/config.xlsx",
			FallbackSheet: "Info",
		},
		Pipeline: PipelineConfig{
			IDChunkSize:          10000,
			DispositionChunkSize: 5000,
			DispositionDepth:     30,
		},
		RunTTL:     Duration(24 * time.Hour),
		ClientsTTL: Duration(10 * time.Minute),
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// BCP_CONFIG (a missing file is fine), then environment variables.
func Load() (AppConfig, error) {
	cfg := newDefaults()
	cfg.ConfigPath = getenv("BCP_CONFIG", "config/bcp.yaml")

	if err := loadYAMLFile(&cfg, cfg.ConfigPath); err != nil {
		return AppConfig{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func loadYAMLFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	// flows are merged per key so a file may override just one of them
	file := *cfg
	file.Flows = nil
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	flows := cfg.Flows
	for name, f := range file.Flows {
		flows[name] = f
	}
	*cfg = file
	cfg.Flows = flows
	return nil
}

func applyEnv(cfg *AppConfig) error {
	var r envReader

	cfg.Env = getenv("APP_ENV", "production")
	cfg.Port = getenv("APP_PORT", "8010")
	cfg.BaseURL = getenv("APP_BASE_URL", "")

	cfg.Volare = VolareConfig{
		Host:     getenv("VOLARE_HOST", "127.0.0.1"),
		Username: getenv("VOLARE_USER", "root"),
		Password: getenv("VOLARE_PASS", ""),
		DBName:   getenv("VOLARE_DB", "volare"),
		Timeout:  r.duration("VOLARE_TIMEOUT", "10s"),
	}
	cfg.CallCenter = PostgresConfig{
		Host:     getenv("DB_HOST", "127.0.0.1"),
		Port:     r.int("DB_PORT", "5432"),
		User:     getenv("DB_USER", "postgres"),
		Password: getenv("DB_PASSWORD", ""),
		AdminDB:  getenv("DB_NAME", "postgres"),
		SSLMode:  getenv("DB_SSLMODE", "disable"),
	}
	cfg.Redis = RedisConfig{
		Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
		Password:    getenv("REDIS_PASSWORD", ""),
		DB:          r.int("REDIS_DB", "0"),
		MaxRetries:  r.int("REDIS_MAX_RETRIES", "5"),
		DialTimeout: r.int("REDIS_DIAL_TIMEOUT", "10"),
		Timeout:     r.int("REDIS_TIMEOUT", "5"),
		Prefix:      getenv("REDIS_PREFIX", "bcp_export_"),
	}
	cfg.S3 = S3Config{
		Enabled:         r.bool("S3_ENABLED", "false"),
		Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
		AccessKeyID:     getenv("S3_ACCESS_KEY", ""),
		SecretAccessKey: getenv("S3_SECRET_KEY", ""),
		Bucket:          getenv("S3_BUCKET", "bcp-exports"),
		Region:          getenv("S3_REGION", "us-east-1"),
		UseSSL:          r.bool("S3_USE_SSL", "false"),
		Prefix:          getenv("S3_PREFIX", ""),
	}
	cfg.Lark = LarkConfig{
		BaseURL:     getenv("LARK_BASE_URL", ""),
		AppID:       getenv("LARK_APP_ID", ""),
		AppSecret:   getenv("LARK_APP_SECRET", ""),
		RedirectURI: getenv("LARK_REDIRECT_URI", ""),
	}

	if v := os.Getenv("MAPPING_WORKBOOK"); v != "" {
		cfg.Mapping.Workbook = v
	}
	if v := os.Getenv("SESSION_DB_PATH"); v != "" {
		cfg.Session.Path = v
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	cfg.Pipeline.DispositionDepth = r.int("DISPOSITION_DEPTH", strconv.Itoa(cfg.Pipeline.DispositionDepth))

	cfg.FTPServers = make(map[string]FTPServer, len(cfg.Destinations))
	for _, d := range cfg.Destinations {
		prefix := strings.ToUpper(d.EnvPrefix)
		if prefix == "" {
			prefix = strings.ToUpper(d.Name)
		}
		cfg.FTPServers[d.Name] = FTPServer{
			Name:     d.Name,
			Host:     getenv(prefix+"_FTP_HOSTNAME", ""),
			Port:     r.int(prefix+"_FTP_PORT", "21"),
			Username: getenv(prefix+"_FTP_USERNAME", ""),
			Password: getenv(prefix+"_FTP_PASSWORD", ""),
		}
	}

	return r.err
}

func (c AppConfig) validate() error {
	if len(c.Environments) == 0 {
		return errors.New("at least one environment is required")
	}
	seen := make(map[string]bool, len(c.Environments))
	for _, e := range c.Environments {
		key := strings.ToUpper(e.Name)
		if e.Name == "" || e.Port <= 0 {
			return fmt.Errorf("environment %q: name and port are required", e.Name)
		}
		if seen[key] {
			return fmt.Errorf("environment %q is configured twice", e.Name)
		}
		seen[key] = true
	}

	names := make([]string, 0, len(c.Flows))
	for name := range c.Flows {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := c.Flows[name]
		if f.BasePath == "" {
			return fmt.Errorf("flow %s: base_path is required", name)
		}
		if f.ChunkSize < 0 {
			return fmt.Errorf("flow %s: chunk_size must not be negative", name)
		}
		for _, d := range f.Destinations {
			if _, ok := c.FTPServers[d]; !ok {
				return fmt.Errorf("flow %s: unknown destination %q", name, d)
			}
		}
	}

	if _, err := regexp.Compile(c.Session.EmailPattern); err != nil {
		return fmt.Errorf("session.email_pattern: %w", err)
	}
	if c.Pipeline.DispositionDepth < 0 {
		return errors.New("pipeline.disposition_depth must not be negative")
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SysConfig system level config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig admin web server config
type WebConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	JwtSecret string `yaml:"secret"`
}

// DBConfig database config
type DBConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// LoggerConfig logging config
type LoggerConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// WhatsappConfig WhatsApp Cloud API webhook and sender config
type WhatsappConfig struct {
	VerifyToken   string `yaml:"verify_token"`
	AccessToken   string `yaml:"access_token"`
	PhoneNumberID string `yaml:"phone_number_id"`
	GraphBaseURL  string `yaml:"graph_base_url"`
}

// CatalogConfig commerce catalog sync config
type CatalogConfig struct {
	CatalogID   string `yaml:"catalog_id"`
	AccessToken string `yaml:"access_token"`
	Currency    string `yaml:"currency"`
	BaseURL     string `yaml:"base_url"`
	// SyncDelayMs is the fixed pause between per-product upserts during a bulk sync
	SyncDelayMs int `yaml:"sync_delay_ms"`
	// SyncWorkers bounds the upsert worker pool
	SyncWorkers int `yaml:"sync_workers"`
}

// SmtpConfig outbound mail config for alert digests
type SmtpConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system"`
	Web      WebConfig      `yaml:"web"`
	Database DBConfig       `yaml:"database"`
	Logger   LoggerConfig   `yaml:"logger"`
	Whatsapp WhatsappConfig `yaml:"whatsapp"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Smtp     SmtpConfig     `yaml:"smtp"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "mercato",
		Location: "America/Mexico_City",
		Workdir:  "/var/mercato",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		JwtSecret: "9b6de5cc-0731-1203-xxtt-0f568ac9da37",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "mercato",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LoggerConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/mercato/mercato.log",
	},
	Whatsapp: WhatsappConfig{
		GraphBaseURL: "https://graph.facebook.com/v17.0",
	},
	Catalog: CatalogConfig{
		Currency:    "MXN",
		BaseURL:     "https://graph.facebook.com/v17.0",
		SyncDelayMs: 1000,
		SyncWorkers: 4,
	},
}

func setEnvValue(name string, f func(v string)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue)
	}
}

// LoadConfig loads yaml config from cfile, falling back to defaults,
// and applies MERCATO_* environment overrides last.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if cfile != "" && FileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	setEnvValue("MERCATO_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("MERCATO_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvValue("MERCATO_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("MERCATO_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("MERCATO_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue("MERCATO_WEB_SECRET", func(v string) { cfg.Web.JwtSecret = v })
	setEnvValue("MERCATO_WA_VERIFY_TOKEN", func(v string) { cfg.Whatsapp.VerifyToken = v })
	setEnvValue("MERCATO_WA_ACCESS_TOKEN", func(v string) { cfg.Whatsapp.AccessToken = v })
	setEnvValue("MERCATO_WA_PHONE_ID", func(v string) { cfg.Whatsapp.PhoneNumberID = v })
	setEnvValue("MERCATO_CATALOG_ID", func(v string) { cfg.Catalog.CatalogID = v })
	setEnvValue("MERCATO_CATALOG_TOKEN", func(v string) { cfg.Catalog.AccessToken = v })

	return cfg
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// InitDirs ensures workdir layout exists before anything writes into it.
func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(c.System.Workdir, 0755)
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "logs"), 0755)
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "data"), 0755)
}

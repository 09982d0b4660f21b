package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server      ServerSettings      `json:"server"`
	Trakt       TraktSettings       `json:"trakt"`
	TMDB        TMDBSettings        `json:"tmdb"`
	RPDB        RPDBSettings        `json:"rpdb"`
	Cache       CacheSettings       `json:"cache"`
	Catalog     CatalogSettings     `json:"catalog"`
	Database    DatabaseSettings    `json:"database"`
	Maintenance MaintenanceSettings `json:"maintenance"`
	Log         LogSettings         `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// TraktSettings holds the Trakt application credentials. User access
// tokens never live here; they arrive per request or via the token store.
type TraktSettings struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type TMDBSettings struct {
	APIKey   string `json:"apiKey"`
	Language string `json:"language"`
}

// RPDBSettings configures the optional rating-poster provider. An empty
// API key disables it.
type RPDBSettings struct {
	APIKey      string `json:"apiKey"`
	PosterWidth int    `json:"posterWidth"`
}

// CacheSettings selects the cache backend and the per-namespace TTL tiers.
// A non-empty RedisURL switches from the file backend to Redis.
type CacheSettings struct {
	Directory          string `json:"directory"`
	RedisURL           string `json:"redisUrl"`
	PosterTTLSeconds   int    `json:"posterTtlSeconds"`
	MetadataTTLSeconds int    `json:"metadataTtlSeconds"`
	HistoryTTLSeconds  int    `json:"historyTtlSeconds"`
}

type CatalogSettings struct {
	PageSize           int `json:"pageSize"`
	UpcomingWindowDays int `json:"upcomingWindowDays"`
	EnrichWorkers      int `json:"enrichWorkers"`
}

type DatabaseSettings struct {
	Path string `json:"path"`
}

// MaintenanceSettings configures the daily cache sweep.
type MaintenanceSettings struct {
	Schedule string `json:"schedule"`
}

type LogSettings struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxBackups int    `json:"maxBackups"`
	MaxAge     int    `json:"maxAge"`
	Compress   bool   `json:"compress"`
}

func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 7000},
		Trakt:  TraktSettings{},
		TMDB:   TMDBSettings{Language: "en-US"},
		RPDB:   RPDBSettings{PosterWidth: 500},
		Cache: CacheSettings{
			Directory:          "cache",
			PosterTTLSeconds:   86400,
			MetadataTTLSeconds: 3600,
			HistoryTTLSeconds:  1800,
		},
		Catalog: CatalogSettings{
			PageSize:           20,
			UpcomingWindowDays: 30,
			EnrichWorkers:      5,
		},
		Database:    DatabaseSettings{Path: "cache/tokens.db"},
		Maintenance: MaintenanceSettings{Schedule: "0 2 * * *"},
		Log: LogSettings{
			File:       "cache/logs/backend.log",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
// Fields added after a config file was first written are backfilled with
// their defaults so old files keep working.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	defaults := DefaultSettings()
	if s.Server.Host == "" {
		s.Server.Host = defaults.Server.Host
	}
	if s.Server.Port == 0 {
		s.Server.Port = defaults.Server.Port
	}
	if s.TMDB.Language == "" {
		s.TMDB.Language = defaults.TMDB.Language
	}
	if s.RPDB.PosterWidth == 0 {
		s.RPDB.PosterWidth = defaults.RPDB.PosterWidth
	}
	if s.Cache.Directory == "" {
		s.Cache.Directory = defaults.Cache.Directory
	}
	if s.Cache.PosterTTLSeconds == 0 {
		s.Cache.PosterTTLSeconds = defaults.Cache.PosterTTLSeconds
	}
	if s.Cache.MetadataTTLSeconds == 0 {
		s.Cache.MetadataTTLSeconds = defaults.Cache.MetadataTTLSeconds
	}
	if s.Cache.HistoryTTLSeconds == 0 {
		s.Cache.HistoryTTLSeconds = defaults.Cache.HistoryTTLSeconds
	}
	if s.Catalog.PageSize == 0 {
		s.Catalog.PageSize = defaults.Catalog.PageSize
	}
	if s.Catalog.UpcomingWindowDays == 0 {
		s.Catalog.UpcomingWindowDays = defaults.Catalog.UpcomingWindowDays
	}
	if s.Catalog.EnrichWorkers == 0 {
		s.Catalog.EnrichWorkers = defaults.Catalog.EnrichWorkers
	}
	if s.Database.Path == "" {
		s.Database.Path = defaults.Database.Path
	}
	if s.Maintenance.Schedule == "" {
		s.Maintenance.Schedule = defaults.Maintenance.Schedule
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = defaults.Log.MaxSize
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = defaults.Log.MaxAge
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}

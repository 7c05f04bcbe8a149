package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

type Config struct {
	ClientID         string `toml:"client_id"`
	ClientSecret     string `toml:"client_secret"`
	GoogleAccount    string `toml:"google_account"`
	GoogleCalendarID string `toml:"google_calendar_id"`

	MirrorURL      string `toml:"mirror_url"`
	MirrorUsername string `toml:"mirror_username"`
	MirrorPassword string `toml:"mirror_password"`
	MirrorIDLength int    `toml:"mirror_id_length"`

	WindowDays       int  `toml:"window_days"`
	IntervalSeconds  int  `toml:"interval_seconds"`
	AllowEmptySource bool `toml:"allow_empty_source"`

	DatabasePath string `toml:"database_path"`
	LogLevel     string `toml:"log_level"`
}

// normalize fills in the defaults for everything the config file left out.
func (c *Config) normalize() {
	if c.GoogleAccount == "" {
		c.GoogleAccount = "default"
	}
	if c.MirrorIDLength <= 0 {
		c.MirrorIDLength = 16
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 7
	}
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 60
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// windowRadius is half the width of the rolling sync window.
func (c *Config) windowRadius() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

var oauthConfig *oauth2.Config
var configDir string

func initOAuthConfig(config *Config) {
	oauthConfig = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{calendar.CalendarReadonlyScope},
	}
}

func initLogging(config *Config) {
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func readConfig(filename string) (*Config, error) {
	// Try first current dir, then `$HOME/.config/gcalmirror/`
	data, err := os.ReadFile(filename)
	if err != nil {
		data, err = os.ReadFile(os.Getenv("HOME") + "/.config/gcalmirror/" + filename)
		if err != nil {
			return nil, err
		}
		configDir = os.Getenv("HOME") + "/.config/gcalmirror/"
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.normalize()

	return &config, nil
}

func openDB(config *Config) (*sql.DB, error) {
	path := config.DatabasePath
	if path == "" {
		// Keep the database next to the config file
		path = configDir + ".gcalmirror.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func getTokenFromWeb(config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(context.TODO(), authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func saveToken(db *sql.DB, accountName string, token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return err
	}

	_, err = db.Exec("INSERT OR REPLACE INTO tokens (account_name, token) VALUES (?, ?)", accountName, tokenJSON)
	return err
}

func loadToken(db *sql.DB, accountName string) (*oauth2.Token, error) {
	var tokenJSON []byte
	err := db.QueryRow("SELECT token FROM tokens WHERE account_name = ?", accountName).Scan(&tokenJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no stored token for account %q, run `gcalmirror auth` first", accountName)
	}
	if err != nil {
		return nil, fmt.Errorf("reading token from database: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("unmarshaling stored token: %w", err)
	}
	return &token, nil
}

// getClient builds the authenticated Google HTTP client from the stored
// token. Refreshed tokens are persisted back to the database so the next
// run does not repeat the refresh.
func getClient(ctx context.Context, config *oauth2.Config, db *sql.DB, accountName string) (*http.Client, error) {
	token, err := loadToken(db, accountName)
	if err != nil {
		return nil, err
	}

	// Bound every Google API call through this client.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: 30 * time.Second})
	src := &savingTokenSource{
		src:     config.TokenSource(ctx, token),
		db:      db,
		account: accountName,
		last:    token.AccessToken,
	}
	return oauth2.NewClient(ctx, src), nil
}

// savingTokenSource persists every refreshed token, keyed by account name.
type savingTokenSource struct {
	src     oauth2.TokenSource
	db      *sql.DB
	account string

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		log.WithField("account", s.account).Debug("token refreshed")
		if err := saveToken(s.db, s.account, token); err != nil {
			log.WithError(err).Warn("could not persist refreshed token")
		}
		s.last = token.AccessToken
	}
	return token, nil
}

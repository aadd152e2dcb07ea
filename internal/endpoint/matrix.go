package endpoint

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kwheelans/pass-it-on/internal/httpkit"
	"github.com/kwheelans/pass-it-on/internal/notification"
	"github.com/kwheelans/pass-it-on/internal/perrors"
)

const matrixInitialDeviceName = "pass-it-on-server"

// MatrixRoomConfig binds one room's notification names, one of
// possibly several [[...room]] entries in the endpoint's TOML table.
type MatrixRoomConfig struct {
	Room          string   `toml:"room"`
	Notifications []string `toml:"notifications"`
}

// MatrixConfig configures the Matrix endpoint. RecoveryPassphrase is
// read from the configuration but not used by this endpoint: the
// session file and the sqlite alias-resolution cache are stored
// unencrypted.
type MatrixConfig struct {
	HomeServer         string             `toml:"home_server"`
	Username           string             `toml:"username"`
	Password           string             `toml:"password"`
	SessionStorePath   string             `toml:"session_store_path"`
	RecoveryPassphrase string             `toml:"recovery_passphrase"`
	Rooms              []MatrixRoomConfig `toml:"room"`
}

// rooms merges MatrixRoomConfig entries that name the same room,
// unioning their notification sets.
func (c MatrixConfig) rooms() map[string][]string {
	merged := make(map[string][]string)
	for _, r := range c.Rooms {
		merged[r.Room] = append(merged[r.Room], r.Notifications...)
	}
	return merged
}

// persistentSession is the JSON blob written to
// <store>/<homeserver-domain>/<username>/session/matrix-session after
// a successful login, so subsequent starts resume without
// re-authenticating.
type persistentSession struct {
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	HomeServer  string `json:"home_server"`
}

// MatrixEndpoint sends notification text as plain m.room.message events
// to one or more rooms over the Matrix client-server REST API.
type MatrixEndpoint struct {
	cfg        MatrixConfig
	homeServer *url.URL
	client     *http.Client
	roomKeys   map[string][]string // canonicalized room identifier -> notification names

	session  persistentSession
	cacheDB  *sql.DB
	storeDir string
}

// NewMatrixEndpoint validates cfg, canonicalizes its room identifiers,
// logs in (or resumes a saved session), and opens the alias-resolution
// cache database. invalidRoom names (failing spec's '#'/'!' prefix
// rule) are logged and dropped rather than treated as fatal, matching
// the InvalidMatrixRoomIdentifier policy.
func NewMatrixEndpoint(ctx context.Context, cfg MatrixConfig, logger *slog.Logger) (*MatrixEndpoint, error) {
	if cfg.HomeServer == "" || cfg.Username == "" {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: "matrix configuration requires home_server and username"}
	}
	if len(cfg.Rooms) == 0 {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: "matrix configuration has no rooms setup"}
	}

	hs, err := url.Parse(cfg.HomeServer)
	if err != nil || hs.Host == "" {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: fmt.Sprintf("matrix home_server is not a valid url: %q", cfg.HomeServer)}
	}

	defaultServer := hs.Hostname()
	roomKeys := make(map[string][]string)
	for room, names := range cfg.rooms() {
		canon, err := canonicalizeRoom(room, defaultServer)
		if err != nil {
			logger.Warn("matrix endpoint: dropping room with invalid identifier", "room", room, "error", err)
			continue
		}
		roomKeys[canon] = append(roomKeys[canon], names...)
	}
	if len(roomKeys) == 0 {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: "matrix configuration has no valid rooms after canonicalization"}
	}

	storeDir := filepath.Join(cfg.SessionStorePath, defaultServer, cfg.Username, "session")
	if err := os.MkdirAll(storeDir, 0o700); err != nil {
		return nil, fmt.Errorf("matrix endpoint: create session store dir: %w", err)
	}

	e := &MatrixEndpoint{
		cfg:        cfg,
		homeServer: hs,
		client:     httpkit.NewClient(httpkit.WithTimeout(15 * time.Second)),
		roomKeys:   roomKeys,
		storeDir:   storeDir,
	}

	if err := e.openCache(); err != nil {
		return nil, err
	}

	if err := e.loadOrLogin(ctx, logger); err != nil {
		return nil, err
	}

	return e, nil
}

// canonicalizeRoom appends ":<defaultServer>" to a room lacking a
// colon, then requires a leading '#' (alias) or '!' (room id).
func canonicalizeRoom(room, defaultServer string) (string, error) {
	if !strings.Contains(room, ":") {
		room = room + ":" + defaultServer
	}
	if !strings.HasPrefix(room, "#") && !strings.HasPrefix(room, "!") {
		return "", &perrors.InvalidMatrixRoomIdentifier{Got: room}
	}
	return room, nil
}

func (e *MatrixEndpoint) sessionFilePath() string {
	return filepath.Join(e.storeDir, "matrix-session")
}

func (e *MatrixEndpoint) cacheDBPath() string {
	return filepath.Join(e.storeDir, "db")
}

// openCache opens the sqlite-backed room-alias resolution cache; a
// fresh database gets its one table created on first use.
func (e *MatrixEndpoint) openCache() error {
	db, err := sql.Open("sqlite3", e.cacheDBPath())
	if err != nil {
		return fmt.Errorf("matrix endpoint: open cache db: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS room_alias (alias TEXT PRIMARY KEY, room_id TEXT NOT NULL)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("matrix endpoint: init cache schema: %w", err)
	}
	e.cacheDB = db
	return nil
}

func (e *MatrixEndpoint) loadOrLogin(ctx context.Context, logger *slog.Logger) error {
	if data, err := os.ReadFile(e.sessionFilePath()); err == nil {
		var sess persistentSession
		if err := json.Unmarshal(data, &sess); err == nil {
			e.session = sess
			logger.Info("matrix endpoint: resumed saved session", "user_id", sess.UserID)
			return nil
		}
		logger.Warn("matrix endpoint: saved session file unreadable, logging in fresh")
	}
	return e.login(ctx, logger)
}

func (e *MatrixEndpoint) login(ctx context.Context, logger *slog.Logger) error {
	reqBody, err := json.Marshal(map[string]any{
		"type": "m.login.password",
		"identifier": map[string]string{
			"type": "m.id.user",
			"user": e.cfg.Username,
		},
		"password":                   e.cfg.Password,
		"initial_device_display_name": matrixInitialDeviceName,
	})
	if err != nil {
		return fmt.Errorf("matrix endpoint: build login request: %w", err)
	}

	endpoint := e.homeServer.JoinPath("_matrix", "client", "v3", "login").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("matrix endpoint: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("matrix endpoint: login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("matrix endpoint: login failed with status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 2048))
	}

	var loginResp struct {
		AccessToken string `json:"access_token"`
		DeviceID    string `json:"device_id"`
		UserID      string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("matrix endpoint: decode login response: %w", err)
	}

	e.session = persistentSession{
		AccessToken: loginResp.AccessToken,
		DeviceID:    loginResp.DeviceID,
		UserID:      loginResp.UserID,
		HomeServer:  e.cfg.HomeServer,
	}
	logger.Info("matrix endpoint: logged in", "user_id", e.session.UserID)
	return e.saveSession()
}

func (e *MatrixEndpoint) saveSession() error {
	data, err := json.Marshal(e.session)
	if err != nil {
		return fmt.Errorf("matrix endpoint: marshal session: %w", err)
	}
	if err := os.WriteFile(e.sessionFilePath(), data, 0o600); err != nil {
		return fmt.Errorf("matrix endpoint: write session file: %w", err)
	}
	return nil
}

func (e *MatrixEndpoint) Name() string {
	return fmt.Sprintf("matrix(%s@%s)", e.cfg.Username, e.cfg.HomeServer)
}

// GenerateKeys returns one bucket per canonicalized room, so a single
// notification signed for a name appearing in more than one room's
// list produces a ValidatedNotification for each matching room.
func (e *MatrixEndpoint) GenerateKeys(master notification.Key) map[string][]notification.Key {
	out := make(map[string][]notification.Key, len(e.roomKeys))
	for room, names := range e.roomKeys {
		out[room] = generateKeySet(master, names)
	}
	return out
}

func (e *MatrixEndpoint) Notify(ctx context.Context, in <-chan notification.ValidatedNotification, logger *slog.Logger) {
	defer func() {
		if e.cacheDB != nil {
			e.cacheDB.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case vn, ok := <-in:
			if !ok {
				return
			}
			if err := e.sendToRoom(ctx, vn.SubName, vn.Message.Text); err != nil {
				logger.Warn("matrix endpoint: send failed", "room", vn.SubName, "error", err)
			}
		}
	}
}

func (e *MatrixEndpoint) sendToRoom(ctx context.Context, room, text string) error {
	roomID, err := e.resolveRoomID(ctx, room)
	if err != nil {
		return fmt.Errorf("resolve room: %w", err)
	}

	txnID := uuid.NewString()
	endpoint := e.homeServer.JoinPath("_matrix", "client", "v3", "rooms", roomID, "send", "m.room.message", txnID).String()

	body, err := json.Marshal(map[string]string{
		"msgtype": "m.text",
		"body":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.session.AccessToken)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport send: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport send: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// resolveRoomID returns a room id unchanged, or resolves a '#' alias
// to its room id, consulting and then populating the sqlite cache so
// repeat sends skip the directory lookup.
func (e *MatrixEndpoint) resolveRoomID(ctx context.Context, room string) (string, error) {
	if strings.HasPrefix(room, "!") {
		return room, nil
	}

	if e.cacheDB != nil {
		var cached string
		err := e.cacheDB.QueryRowContext(ctx, `SELECT room_id FROM room_alias WHERE alias = ?`, room).Scan(&cached)
		if err == nil && cached != "" {
			return cached, nil
		}
	}

	endpoint := e.homeServer.JoinPath("_matrix", "client", "v3", "directory", "room", room).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.session.AccessToken)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("directory lookup failed with status %d", resp.StatusCode)
	}

	var dirResp struct {
		RoomID string `json:"room_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dirResp); err != nil {
		return "", fmt.Errorf("decode directory response: %w", err)
	}

	if e.cacheDB != nil {
		_, _ = e.cacheDB.ExecContext(ctx, `INSERT OR REPLACE INTO room_alias(alias, room_id) VALUES (?, ?)`, room, dirResp.RoomID)
	}
	return dirResp.RoomID, nil
}

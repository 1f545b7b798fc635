package precheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// ErrUnreachable means the source server could not be queried.
var ErrUnreachable = errors.New("precheck: source server unreachable")

// conn is the subset of *pgx.Conn the check needs.
type conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

type connectFunc func(ctx context.Context, cfg *pgx.ConnConfig) (conn, error)

func pgxConnect(ctx context.Context, cfg *pgx.ConnConfig) (conn, error) {
	c, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Checker runs `SELECT 1` against the source server.
type Checker struct {
	cfg        Config
	password   string
	connect    connectFunc
	lookupHome func(username string) (string, error)
	logger     *slog.Logger
}

func userHome(username string) (string, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}

// NewChecker creates a Checker. password overrides any passfile lookup when
// non-empty. Config defaults are applied automatically.
func NewChecker(cfg Config, password string, logger *slog.Logger) *Checker {
	cfg.ApplyDefaults()
	return &Checker{
		cfg:        cfg,
		password:   password,
		connect:    pgxConnect,
		lookupHome: userHome,
		logger:     logger.With("component", "precheck"),
	}
}

// ConnString returns the connection URL without any password.
func (c *Checker) ConnString() string {
	q := url.Values{}
	q.Set("connect_timeout", strconv.Itoa(int(c.cfg.ConnectTimeout.Seconds())))
	if pf := c.passFile(); pf != "" {
		q.Set("passfile", pf)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(c.cfg.Username),
		Host:     net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port)),
		Path:     "/" + c.cfg.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// passFile returns the configured passfile or, when neither a passfile nor a
// password is given, the data owner's ~/.pgpass.
func (c *Checker) passFile() string {
	if c.cfg.PassFile != "" || c.password != "" || c.cfg.DataOwner == "" {
		return c.cfg.PassFile
	}
	home, err := c.lookupHome(c.cfg.DataOwner)
	if err != nil || home == "" {
		c.logger.Warn("cannot resolve data owner home, using default passfile lookup",
			"owner", c.cfg.DataOwner,
			"error", err,
		)
		return ""
	}
	return filepath.Join(home, ".pgpass")
}

// Check connects to the source server and verifies `SELECT 1` returns 1.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	connCfg, err := pgx.ParseConfig(c.ConnString())
	if err != nil {
		return fmt.Errorf("precheck: parse connection config: %w", err)
	}
	if c.password != "" {
		connCfg.Password = c.password
	}

	target := fmt.Sprintf("%s:%d as %s", c.cfg.Host, c.cfg.Port, c.cfg.Username)

	db, err := c.connect(ctx, connCfg)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, target, err)
	}
	defer db.Close(context.Background())

	var one int
	if err := db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: %s: SELECT 1: %w", ErrUnreachable, target, err)
	}
	if one != 1 {
		return fmt.Errorf("%w: %s: SELECT 1 returned %d", ErrUnreachable, target, one)
	}

	c.logger.Info("source server reachable",
		"host", c.cfg.Host,
		"port", c.cfg.Port,
		"username", c.cfg.Username,
	)
	return nil
}

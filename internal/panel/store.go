package panel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "xuibot/pkg/logx"
)

// Store is the read-only view of the panel database used by the rest of the
// bot. The panel owns the data; this side never writes.
type Store interface {
	// Inbound returns the network/security metadata of the first inbound.
	Inbound(ctx context.Context) (InboundMeta, error)
	// Clients returns all client records of the first inbound.
	// Individual malformed records are skipped, not fatal.
	Clients(ctx context.Context) ([]Client, error)
	// Traffic returns the byte counters for an email.
	// ok=false means no counters row exists (stats unavailable).
	Traffic(ctx context.Context, email string) (t Traffic, ok bool, err error)
	Close() error
}

type Config struct {
	DBPath      string
	BusyTimeout time.Duration // 0 means default
}

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens the panel sqlite database read-only.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, errors.New("panel db path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	// mode=ro keeps us from ever taking a write lock on the panel's database.
	db, err := sql.Open("sqlite", "file:"+cfg.DBPath+"?mode=ro")
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}

	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type inboundRow struct {
	Settings []byte
	Listen   string
	Port     int
	Remark   string
	Stream   []byte
}

func (s *sqliteStore) readInbound(ctx context.Context) (inboundRow, error) {
	var (
		r        inboundRow
		settings sql.NullString
		listen   sql.NullString
		remark   sql.NullString
		stream   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT settings, listen, port, remark, stream_settings FROM inbounds LIMIT 1`,
	).Scan(&settings, &listen, &r.Port, &remark, &stream)
	if errors.Is(err, sql.ErrNoRows) {
		return inboundRow{}, errors.New("panel has no inbound configured")
	}
	if err != nil {
		return inboundRow{}, fmt.Errorf("read inbound: %w", err)
	}
	r.Settings = []byte(settings.String)
	r.Listen = listen.String
	r.Remark = remark.String
	r.Stream = []byte(stream.String)
	return r, nil
}

func (s *sqliteStore) Inbound(ctx context.Context) (InboundMeta, error) {
	row, err := s.readInbound(ctx)
	if err != nil {
		return InboundMeta{}, err
	}
	meta, err := parseStreamMeta(row.Listen, row.Port, row.Remark, row.Stream)
	if err != nil {
		return InboundMeta{}, fmt.Errorf("parse stream settings: %w", err)
	}
	return meta, nil
}

func (s *sqliteStore) Clients(ctx context.Context) ([]Client, error) {
	row, err := s.readInbound(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := parseClients(row.Settings, s.log)
	if err != nil {
		return nil, fmt.Errorf("parse inbound settings: %w", err)
	}
	return clients, nil
}

func (s *sqliteStore) Traffic(ctx context.Context, email string) (Traffic, bool, error) {
	var t Traffic
	t.Email = email
	err := s.db.QueryRowContext(ctx,
		`SELECT up, down FROM client_traffics WHERE email = ?`, email,
	).Scan(&t.Up, &t.Down)
	if errors.Is(err, sql.ErrNoRows) {
		return Traffic{}, false, nil
	}
	if err != nil {
		return Traffic{}, false, fmt.Errorf("read traffic for %s: %w", email, err)
	}
	return t, true, nil
}

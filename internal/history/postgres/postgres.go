package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/stevestech/craftwatch/internal/history"
)

// Sink appends restart events to a PostgreSQL database via pgx.
type Sink struct {
	db *sql.DB
}

// New creates a PostgreSQL restart-history sink from a standard
// postgres:// DSN.
func New(dsn string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty PostgreSQL DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &Sink{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS restart_history(
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		server TEXT NOT NULL,
		reason TEXT NOT NULL,
		outcome TEXT NOT NULL,
		old_pid INTEGER NOT NULL,
		new_pid INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		detail TEXT
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO restart_history(occurred_at, server, reason, outcome, old_pid, new_pid, warnings, detail)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8);`,
		e.OccurredAt.UTC(), e.Server, string(e.Reason), string(e.Outcome), e.OldPID, e.NewPID, e.Warnings, e.Detail)
	return err
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

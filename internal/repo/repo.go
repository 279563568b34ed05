package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	CreateUser(ctx context.Context, login, email, password string) (int, error)
	GetBylogin(ctx context.Context, login string) (int, string, error)
}

// Evaluation is a stored compliance result. Result holds the evaluation
// exactly as it was returned to the caller.
type Evaluation struct {
	ID             uuid.UUID       `json:"id"`
	UserID         int             `json:"user_id"`
	Reference      string          `json:"reference"`
	Dataset        string          `json:"dataset"`
	DatasetVersion string          `json:"dataset_version"`
	Overall        string          `json:"overall"`
	Result         json.RawMessage `json:"result"`
	CreatedAt      time.Time       `json:"created_at"`
}

type EvaluationStore interface {
	SaveEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error)
	GetEvaluation(ctx context.Context, userID int, id uuid.UUID) (Evaluation, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	login TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS evaluations (
	id UUID PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	reference TEXT NOT NULL,
	dataset TEXT NOT NULL,
	dataset_version TEXT NOT NULL,
	overall TEXT NOT NULL,
	result JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Open connects to Postgres. Connection strings without an sslmode get
// sslmode=require.
func Open(ctx context.Context, connStr string) (*sql.DB, error) {
	if connStr == "" {
		connStr = "user=postgres dbname=postgres password=password sslmode=disable"
	}
	if !strings.Contains(connStr, "sslmode=") {
		switch {
		case strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://"):
			sep := "?"
			if strings.Contains(connStr, "?") {
				sep = "&"
			}
			connStr = connStr + sep + "sslmode=require"
		default:
			connStr = connStr + " sslmode=require"
		}
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, login, email, password string) (int, error) {
	var id int
	query := "INSERT INTO users (login, email, password) VALUES ($1, $2, $3) RETURNING id"
	err := r.db.QueryRowContext(ctx, query, login, email, password).Scan(&id)
	return id, err
}

func (r *PostgresRepository) GetBylogin(ctx context.Context, login string) (int, string, error) {
	var id int
	var hash string

	query := "SELECT id, password FROM users WHERE login=$1"

	err := r.db.QueryRowContext(ctx, query, login).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", ErrNotFound
		}
		return 0, "", err
	}
	return id, hash, nil
}

// SaveEvaluation stores ev under a fresh ID and returns it with ID and
// CreatedAt filled in.
func (r *PostgresRepository) SaveEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error) {
	ev.ID = uuid.New()
	query := `INSERT INTO evaluations (id, user_id, reference, dataset, dataset_version, overall, result)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, ev.ID, ev.UserID, ev.Reference, ev.Dataset, ev.DatasetVersion, ev.Overall, []byte(ev.Result)).
		Scan(&ev.CreatedAt)
	if err != nil {
		return Evaluation{}, fmt.Errorf("save evaluation %s: %w", ev.Reference, err)
	}
	return ev, nil
}

func (r *PostgresRepository) GetEvaluation(ctx context.Context, userID int, id uuid.UUID) (Evaluation, error) {
	var ev Evaluation
	var body []byte
	query := `SELECT id, user_id, reference, dataset, dataset_version, overall, result, created_at
FROM evaluations WHERE id=$1 AND user_id=$2`
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&ev.ID, &ev.UserID, &ev.Reference, &ev.Dataset, &ev.DatasetVersion, &ev.Overall, &body, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Evaluation{}, ErrNotFound
		}
		return Evaluation{}, fmt.Errorf("get evaluation %s: %w", id, err)
	}
	ev.Result = body
	return ev, nil
}

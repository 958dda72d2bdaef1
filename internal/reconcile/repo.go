package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS reconciliation_cases (
	id             TEXT PRIMARY KEY,
	event_id       TEXT NOT NULL UNIQUE,
	item_id        TEXT NOT NULL,
	customer_id    TEXT NOT NULL,
	quantity       INTEGER NOT NULL,
	total          TEXT NOT NULL,
	order_date     TEXT NOT NULL,
	reason         TEXT NOT NULL,
	backend_status INTEGER NOT NULL DEFAULT 0,
	submitted_by   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'OPEN',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	resolved_at    TIMESTAMPTZ,
	resolved_by    TEXT
);
CREATE INDEX IF NOT EXISTS reconciliation_cases_status_idx ON reconciliation_cases (status, created_at);
`

const caseColumns = `id, event_id, item_id, customer_id, quantity, total, order_date, reason,
	backend_status, submitted_by, status, created_at, resolved_at, resolved_by`

type Repo struct {
	DB *pgxpool.Pool

	schemaOnce sync.Once
	schemaErr  error
}

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{DB: db} }

func (r *Repo) ensureTable(ctx context.Context) error {
	r.schemaOnce.Do(func() {
		if _, err := r.DB.Exec(ctx, schema); err != nil {
			r.schemaErr = fmt.Errorf("create reconciliation_cases: %w", err)
		}
	})
	return r.schemaErr
}

// Save inserts c once per event id. created is false when the event was
// already recorded.
func (r *Repo) Save(ctx context.Context, c Case) (created bool, err error) {
	if err := r.ensureTable(ctx); err != nil {
		return false, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO reconciliation_cases
			(id, event_id, item_id, customer_id, quantity, total, order_date, reason, backend_status, submitted_by, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'OPEN',$11)
		ON CONFLICT (event_id) DO NOTHING`,
		c.ID, c.EventID, c.ItemID, c.CustomerID, c.Quantity, c.Total.String(), c.OrderDate,
		c.Reason, c.BackendStatus, c.SubmittedBy, c.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// List returns cases with the given status, oldest first. An empty status
// lists everything.
func (r *Repo) List(ctx context.Context, status Status) ([]Case, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `SELECT `+caseColumns+` FROM reconciliation_cases
		WHERE ($1 = '' OR status = $1) ORDER BY created_at`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Resolve marks an OPEN case resolved by the given operator.
func (r *Repo) Resolve(ctx context.Context, id, by string) (Case, error) {
	if err := r.ensureTable(ctx); err != nil {
		return Case{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Case{}, ErrNotFound
	}
	row := r.DB.QueryRow(ctx, `
		UPDATE reconciliation_cases
		SET status = 'RESOLVED', resolved_at = now(), resolved_by = $2
		WHERE id = $1 AND status = 'OPEN'
		RETURNING `+caseColumns, id, by)
	c, err := scanCase(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Case{}, err
	}

	var s string
	err = r.DB.QueryRow(ctx, `SELECT status FROM reconciliation_cases WHERE id=$1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return Case{}, ErrNotFound
	}
	if err != nil {
		return Case{}, err
	}
	return Case{}, ErrAlreadyResolved
}

func scanCase(row pgx.Row) (Case, error) {
	var (
		c      Case
		total  string
		status string
	)
	if err := row.Scan(&c.ID, &c.EventID, &c.ItemID, &c.CustomerID, &c.Quantity, &total, &c.OrderDate,
		&c.Reason, &c.BackendStatus, &c.SubmittedBy, &status, &c.CreatedAt, &c.ResolvedAt, &c.ResolvedBy); err != nil {
		return Case{}, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return Case{}, fmt.Errorf("case %s total %q: %w", c.ID, total, err)
	}
	c.Total = d
	c.Status = Status(status)
	return c, nil
}

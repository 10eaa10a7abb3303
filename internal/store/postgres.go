package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formship/formship/internal/forms"
	"github.com/formship/formship/internal/visibility"
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
// Questions and answers are stored as jsonb so the schema does not need a
// migration every time a new answer type or operator is added.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// storedAnswer is the jsonb shape of one recorded answer.
type storedAnswer struct {
	Value   any  `json:"value"`
	Skipped bool `json:"skipped,omitempty"`
}

// ListForms retrieves all forms for the given environment from the database.
func (p *PostgresStore) ListForms(ctx context.Context, env string) ([]forms.Form, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, title, status, env, questions, updated_at
		FROM forms
		WHERE env = $1
		ORDER BY id`, env)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	result := make([]forms.Form, 0)
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// GetForm retrieves a single form by its id from the database.
func (p *PostgresStore) GetForm(ctx context.Context, id string) (*forms.Form, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, title, status, env, questions, updated_at
		FROM forms
		WHERE id = $1`, id)

	f, err := scanForm(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
		}
		return nil, err
	}
	return &f, nil
}

// UpsertForm creates or updates a form in the database.
func (p *PostgresStore) UpsertForm(ctx context.Context, f forms.Form) error {
	questions, err := json.Marshal(f.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO forms (id, title, status, env, questions, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			title      = EXCLUDED.title,
			status     = EXCLUDED.status,
			env        = EXCLUDED.env,
			questions  = EXCLUDED.questions,
			updated_at = now()`,
		f.ID, f.Title, f.Status, f.Env, questions)
	if err != nil {
		return fmt.Errorf("upsert form: %w", err)
	}
	return nil
}

// DeleteForm removes a form from the database.
func (p *PostgresStore) DeleteForm(ctx context.Context, id, env string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM forms WHERE id = $1 AND env = $2`, id, env)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	return nil
}

// CreateResponse starts a new response session against a form.
func (p *PostgresStore) CreateResponse(ctx context.Context, formID string) (*Response, error) {
	if _, err := p.GetForm(ctx, formID); err != nil {
		return nil, err
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO responses (form_id, answers)
		VALUES ($1, '{}'::jsonb)
		RETURNING id, form_id, answers, completed, created_at, updated_at`, formID)
	return scanResponse(row)
}

// GetResponse retrieves a response by its id.
func (p *PostgresStore) GetResponse(ctx context.Context, id string) (*Response, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, form_id, answers, completed, created_at, updated_at
		FROM responses
		WHERE id = $1`, id)

	r, err := scanResponse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrResponseNotFound, id)
		}
		return nil, err
	}
	return r, nil
}

// ListResponses retrieves all responses recorded against a form.
func (p *PostgresStore) ListResponses(ctx context.Context, formID string) ([]Response, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, form_id, answers, completed, created_at, updated_at
		FROM responses
		WHERE form_id = $1
		ORDER BY created_at`, formID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	result := make([]Response, 0)
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

// SaveAnswer records or replaces one answer on a response. The answer map is
// patched in place with jsonb_set so concurrent saves to different questions
// do not clobber each other.
func (p *PostgresStore) SaveAnswer(ctx context.Context, responseID, questionID string, answer visibility.Answer) error {
	encoded, err := json.Marshal(storedAnswer{Value: answer.Value, Skipped: answer.Skipped})
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE responses
		SET answers    = jsonb_set(answers, ARRAY[$2], $3::jsonb, true),
		    updated_at = now()
		WHERE id = $1`,
		responseID, questionID, encoded)
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrResponseNotFound, responseID)
	}
	return nil
}

// CompleteResponse marks a response as submitted.
func (p *PostgresStore) CompleteResponse(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE responses
		SET completed = true, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("complete response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrResponseNotFound, id)
	}
	return nil
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// scanForm decodes one forms row. Questions are stored as a jsonb array.
func scanForm(row pgx.Row) (forms.Form, error) {
	var (
		f         forms.Form
		questions []byte
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&f.ID, &f.Title, &f.Status, &f.Env, &questions, &updatedAt); err != nil {
		return forms.Form{}, err
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &f.Questions); err != nil {
			return forms.Form{}, fmt.Errorf("decode questions for form %s: %w", f.ID, err)
		}
	}
	f.UpdatedAt = updatedAt.Time
	return f, nil
}

// scanResponse decodes one responses row. Answers are stored as a jsonb
// object keyed by question id.
func scanResponse(row pgx.Row) (*Response, error) {
	var (
		r         Response
		id        pgtype.UUID
		answers   []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &r.FormID, &answers, &r.Completed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	r.ID = uuidString(id)
	r.Answers = make(visibility.MapAnswerSet)
	if len(answers) > 0 {
		var stored map[string]storedAnswer
		if err := json.Unmarshal(answers, &stored); err != nil {
			return nil, fmt.Errorf("decode answers for response %s: %w", r.ID, err)
		}
		for qid, a := range stored {
			r.Answers[qid] = visibility.Answer{Value: a.Value, Skipped: a.Skipped}
		}
	}
	r.CreatedAt = createdAt.Time
	r.UpdatedAt = updatedAt.Time
	return &r, nil
}

func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	v, err := u.Value()
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

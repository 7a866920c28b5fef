package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"trackmeet/internal/common"
	"trackmeet/internal/domain/model"
)

type EventRepository interface {
	Create(ctx context.Context, tx *sql.Tx, event *model.Event) error
	Update(ctx context.Context, tx *sql.Tx, event *model.Event) error
	FindByID(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error)
	// FindByIDForUpdate locks the event row for the rest of tx.
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error)
	FindBySlug(ctx context.Context, slug string) (*model.Event, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
}

type sqlEventRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewEventRepository(db *sql.DB, dialect Dialect) EventRepository {
	return &sqlEventRepository{db: db, dialect: dialect}
}

const eventColumns = `id, slug, name, event_date, venue, participants, results, created_at, updated_at`

func (r *sqlEventRepository) Create(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	participants, results, err := marshalRoster(e)
	if err != nil {
		return fmt.Errorf("eventRepository.Create: %w", err)
	}
	query := r.dialect.Rebind(`INSERT INTO events (` + eventColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = conn(r.db, tx).ExecContext(ctx, query,
		e.ID, e.Slug, e.Name, e.Date, e.Venue, participants, results, toMillis(e.CreatedAt), toMillis(e.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("event with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("eventRepository.Create: %w", err)
	}
	return nil
}

func (r *sqlEventRepository) Update(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	participants, results, err := marshalRoster(e)
	if err != nil {
		return fmt.Errorf("eventRepository.Update: %w", err)
	}
	query := r.dialect.Rebind(`UPDATE events SET
	            name = ?, event_date = ?, venue = ?, participants = ?, results = ?, updated_at = ?
	          WHERE id = ?`)
	res, err := conn(r.db, tx).ExecContext(ctx, query,
		e.Name, e.Date, e.Venue, participants, results, toMillis(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return fmt.Errorf("eventRepository.Update: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("eventRepository.Update: %w", err)
	}
	return nil
}

func (r *sqlEventRepository) FindByID(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error) {
	return r.findOne(ctx, tx, "FindByID", `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
}

func (r *sqlEventRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error) {
	return r.findOne(ctx, tx, "FindByIDForUpdate", `SELECT `+eventColumns+` FROM events WHERE id = ?`+r.dialect.ForUpdate(), id)
}

func (r *sqlEventRepository) FindBySlug(ctx context.Context, slug string) (*model.Event, error) {
	return r.findOne(ctx, nil, "FindBySlug", `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug)
}

func (r *sqlEventRepository) findOne(ctx context.Context, tx *sql.Tx, op, query string, arg string) (*model.Event, error) {
	event, err := scanEvent(conn(r.db, tx).QueryRowContext(ctx, r.dialect.Rebind(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("eventRepository.%s: %w", op, err)
	}
	return event, nil
}

// FindByIDs returns the events that exist among ids, keyed by id.
func (r *sqlEventRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Event, error) {
	found := make(map[string]*model.Event, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := r.dialect.Rebind(`SELECT ` + eventColumns + ` FROM events WHERE id IN (` + placeholders(len(ids)) + `)`)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("eventRepository.FindByIDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("eventRepository.FindByIDs scan: %w", err)
		}
		found[event.ID] = event
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventRepository.FindByIDs rows: %w", err)
	}
	return found, nil
}

func (r *sqlEventRepository) List(ctx context.Context) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY event_date, created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("eventRepository.List: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("eventRepository.List scan: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventRepository.List rows: %w", err)
	}
	return events, nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	e := &model.Event{}
	var participants, results []byte
	var createdAt, updatedAt int64
	err := row.Scan(&e.ID, &e.Slug, &e.Name, &e.Date, &e.Venue, &participants, &results, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(participants, &e.Participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	if err := json.Unmarshal(results, &e.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	if e.Participants == nil {
		e.Participants = []string{}
	}
	if e.Results == nil {
		e.Results = []model.Result{}
	}
	e.CreatedAt = fromMillis(createdAt)
	e.UpdatedAt = fromMillis(updatedAt)
	return e, nil
}

func marshalRoster(e *model.Event) (string, string, error) {
	participants := e.Participants
	if participants == nil {
		participants = []string{}
	}
	results := e.Results
	if results == nil {
		results = []model.Result{}
	}
	p, err := json.Marshal(participants)
	if err != nil {
		return "", "", err
	}
	r, err := json.Marshal(results)
	if err != nil {
		return "", "", err
	}
	return string(p), string(r), nil
}

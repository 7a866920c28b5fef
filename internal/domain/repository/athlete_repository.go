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

type AthleteRepository interface {
	Create(ctx context.Context, tx *sql.Tx, athlete *model.Athlete) error
	Update(ctx context.Context, tx *sql.Tx, athlete *model.Athlete) error
	// UpdateProfile writes the contact and team fields only. Password and
	// participation history are left as stored.
	UpdateProfile(ctx context.Context, tx *sql.Tx, athlete *model.Athlete) error
	FindByID(ctx context.Context, tx *sql.Tx, id string) (*model.Athlete, error)
	// FindByIDForUpdate locks the athlete row for the rest of tx.
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Athlete, error)
	FindByEmail(ctx context.Context, email string) (*model.Athlete, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Athlete, error)
	List(ctx context.Context) ([]model.Athlete, error)
}

type sqlAthleteRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewAthleteRepository(db *sql.DB, dialect Dialect) AthleteRepository {
	return &sqlAthleteRepository{db: db, dialect: dialect}
}

const athleteColumns = `id, name, email, hashed_password, country, dob, address, phone, team, type,
	participation_history, created_at, updated_at`

func (r *sqlAthleteRepository) Create(ctx context.Context, tx *sql.Tx, a *model.Athlete) error {
	history, err := marshalHistory(a.ParticipationHistory)
	if err != nil {
		return fmt.Errorf("athleteRepository.Create: %w", err)
	}
	query := r.dialect.Rebind(`INSERT INTO athletes (` + athleteColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = conn(r.db, tx).ExecContext(ctx, query,
		a.ID, a.Name, a.Email, a.HashedPassword, a.Country, a.DOB, a.Address, a.Phone, a.Team, a.Type,
		history, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("athlete with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("athleteRepository.Create: %w", err)
	}
	return nil
}

func (r *sqlAthleteRepository) Update(ctx context.Context, tx *sql.Tx, a *model.Athlete) error {
	history, err := marshalHistory(a.ParticipationHistory)
	if err != nil {
		return fmt.Errorf("athleteRepository.Update: %w", err)
	}
	query := r.dialect.Rebind(`UPDATE athletes SET
	            name = ?, email = ?, hashed_password = ?, country = ?, dob = ?, address = ?,
	            phone = ?, team = ?, type = ?, participation_history = ?, updated_at = ?
	          WHERE id = ?`)
	res, err := conn(r.db, tx).ExecContext(ctx, query,
		a.Name, a.Email, a.HashedPassword, a.Country, a.DOB, a.Address,
		a.Phone, a.Team, a.Type, history, toMillis(a.UpdatedAt), a.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("athlete with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("athleteRepository.Update: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("athleteRepository.Update: %w", err)
	}
	return nil
}

func (r *sqlAthleteRepository) UpdateProfile(ctx context.Context, tx *sql.Tx, a *model.Athlete) error {
	query := r.dialect.Rebind(`UPDATE athletes SET
	            name = ?, email = ?, country = ?, dob = ?, address = ?, phone = ?, team = ?, updated_at = ?
	          WHERE id = ?`)
	res, err := conn(r.db, tx).ExecContext(ctx, query,
		a.Name, a.Email, a.Country, a.DOB, a.Address, a.Phone, a.Team, toMillis(a.UpdatedAt), a.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("athlete with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("athleteRepository.UpdateProfile: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("athleteRepository.UpdateProfile: %w", err)
	}
	return nil
}

func (r *sqlAthleteRepository) FindByID(ctx context.Context, tx *sql.Tx, id string) (*model.Athlete, error) {
	return r.findOne(ctx, tx, "FindByID", `SELECT `+athleteColumns+` FROM athletes WHERE id = ?`, id)
}

func (r *sqlAthleteRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Athlete, error) {
	return r.findOne(ctx, tx, "FindByIDForUpdate", `SELECT `+athleteColumns+` FROM athletes WHERE id = ?`+r.dialect.ForUpdate(), id)
}

func (r *sqlAthleteRepository) findOne(ctx context.Context, tx *sql.Tx, op, query string, arg string) (*model.Athlete, error) {
	athlete, err := scanAthlete(conn(r.db, tx).QueryRowContext(ctx, r.dialect.Rebind(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("athleteRepository.%s: %w", op, err)
	}
	return athlete, nil
}

func (r *sqlAthleteRepository) FindByEmail(ctx context.Context, email string) (*model.Athlete, error) {
	query := r.dialect.Rebind(`SELECT ` + athleteColumns + ` FROM athletes WHERE email = ?`)
	athlete, err := scanAthlete(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("athleteRepository.FindByEmail: %w", err)
	}
	return athlete, nil
}

// FindByIDs returns the athletes that exist among ids, keyed by id.
func (r *sqlAthleteRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Athlete, error) {
	found := make(map[string]*model.Athlete, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := r.dialect.Rebind(`SELECT ` + athleteColumns + ` FROM athletes WHERE id IN (` + placeholders(len(ids)) + `)`)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("athleteRepository.FindByIDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		athlete, err := scanAthlete(rows)
		if err != nil {
			return nil, fmt.Errorf("athleteRepository.FindByIDs scan: %w", err)
		}
		found[athlete.ID] = athlete
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("athleteRepository.FindByIDs rows: %w", err)
	}
	return found, nil
}

func (r *sqlAthleteRepository) List(ctx context.Context) ([]model.Athlete, error) {
	query := `SELECT ` + athleteColumns + ` FROM athletes ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("athleteRepository.List: %w", err)
	}
	defer rows.Close()

	athletes := []model.Athlete{}
	for rows.Next() {
		athlete, err := scanAthlete(rows)
		if err != nil {
			return nil, fmt.Errorf("athleteRepository.List scan: %w", err)
		}
		athletes = append(athletes, *athlete)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("athleteRepository.List rows: %w", err)
	}
	return athletes, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAthlete(row rowScanner) (*model.Athlete, error) {
	a := &model.Athlete{}
	var history []byte
	var createdAt, updatedAt int64
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.HashedPassword, &a.Country, &a.DOB, &a.Address, &a.Phone, &a.Team, &a.Type,
		&history, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &a.ParticipationHistory); err != nil {
		return nil, fmt.Errorf("decode participation history: %w", err)
	}
	if a.ParticipationHistory == nil {
		a.ParticipationHistory = []model.ParticipationEntry{}
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func marshalHistory(history []model.ParticipationEntry) (string, error) {
	if history == nil {
		history = []model.ParticipationEntry{}
	}
	b, err := json.Marshal(history)
	return string(b), err
}

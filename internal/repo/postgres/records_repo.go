package postgres

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/qcheck-dev/qcheck/internal/domain/record"
	"github.com/qcheck-dev/qcheck/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordCols = `id, process_name, to_char(date, 'YYYY-MM-DD'), potential_failure, severity, occurrence, detection, rpn, description, user_id, created_at, updated_at`

type RecordsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRecordsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RecordsRepo {
	return &RecordsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *RecordsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}

	return fn()
}

func (r *RecordsRepo) Create(ctx context.Context, req record.CreateRecordRequest) (record.FMEARecord, error) {
	// rpn and both timestamps are stamped here, callers never supply them
	rec := record.NewFromCreateRequest(req)

	err := r.observe("records.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO fmea_records(id, process_name, date, potential_failure, severity, occurrence, detection, rpn, description, user_id, created_at, updated_at)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			rec.ID, rec.ProcessName, rec.Date, rec.PotentialFailure, rec.Severity, rec.Occurrence, rec.Detection, rec.RPN, rec.Description, rec.UserID, rec.CreatedAt, rec.UpdatedAt)

		return err
	})

	if err != nil {
		return record.FMEARecord{}, err
	}

	return rec, nil
}

// Update merges the partial over the current row, recomputes rpn only when a
// rating field was included, stamps updated_at, writes, and reads the row
// back. Last write wins between concurrent updates.
func (r *RecordsRepo) Update(ctx context.Context, id string, req record.UpdateRecordRequest) (record.FMEARecord, error) {
	cur, err := r.GetByID(ctx, id)

	if err != nil {
		return record.FMEARecord{}, err
	}

	merged := req.ApplyTo(cur)
	merged.UpdatedAt = time.Now().UTC()

	err = r.observe("records.update", func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE fmea_records
				SET process_name = $2,
						date = $3,
						potential_failure = $4,
						severity = $5,
						occurrence = $6,
						detection = $7,
						rpn = $8,
						description = $9,
						updated_at = $10
			WHERE id = $1`,
			id,
			merged.ProcessName,
			merged.Date,
			merged.PotentialFailure,
			merged.Severity,
			merged.Occurrence,
			merged.Detection,
			merged.RPN,
			merged.Description,
			merged.UpdatedAt,
		)

		return err
	})

	if err != nil {
		return record.FMEARecord{}, err
	}

	return r.GetByID(ctx, id)
}

// Delete removes the record. A missing id is reported as false, not an error.
func (r *RecordsRepo) Delete(ctx context.Context, id string) (bool, error) {
	var tag pgconn.CommandTag

	err := r.observe("records.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM fmea_records WHERE id = $1`, id)

		return err
	})

	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (record.FMEARecord, error) {
	var rec record.FMEARecord

	err := r.observe("records.get_by_id", func() error {
		return r.pool.QueryRow(ctx, `SELECT `+recordCols+` FROM fmea_records WHERE id = $1`, id).Scan(
			&rec.ID,
			&rec.ProcessName,
			&rec.Date,
			&rec.PotentialFailure,
			&rec.Severity,
			&rec.Occurrence,
			&rec.Detection,
			&rec.RPN,
			&rec.Description,
			&rec.UserID,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record.FMEARecord{}, record.ErrNotFound
		}

		return record.FMEARecord{}, err
	}

	return rec, nil
}

// ListByUser fetches everything owned by the user, filtering on user_id
// alone. Ordering happens locally, newest update first; there is no
// composite index behind an ORDER BY to lean on.
func (r *RecordsRepo) ListByUser(ctx context.Context, userID string) ([]record.FMEARecord, error) {
	var output []record.FMEARecord

	err := r.observe("records.list_by_user", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+recordCols+` FROM fmea_records WHERE user_id = $1`, userID)

		if err != nil {
			return err
		}

		defer rows.Close()

		output, err = collectSorted(rows)

		return err
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

// ListAll is the administrative view across every user.
func (r *RecordsRepo) ListAll(ctx context.Context) ([]record.FMEARecord, error) {
	var output []record.FMEARecord

	err := r.observe("records.list_all", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+recordCols+` FROM fmea_records`)

		if err != nil {
			return err
		}

		defer rows.Close()

		output, err = collectSorted(rows)

		return err
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func collectSorted(rows pgx.Rows) ([]record.FMEARecord, error) {
	output := make([]record.FMEARecord, 0)

	for rows.Next() {
		rec, err := scanRecord(rows)

		if err != nil {
			return nil, err
		}

		output = append(output, rec)
	}

	err := rows.Err()

	if err != nil {
		return nil, err
	}

	sort.SliceStable(output, func(i, j int) bool {
		return output[i].UpdatedAt.After(output[j].UpdatedAt)
	})

	return output, nil
}

func scanRecord(rows pgx.Rows) (record.FMEARecord, error) {
	var rec record.FMEARecord

	err := rows.Scan(
		&rec.ID,
		&rec.ProcessName,
		&rec.Date,
		&rec.PotentialFailure,
		&rec.Severity,
		&rec.Occurrence,
		&rec.Detection,
		&rec.RPN,
		&rec.Description,
		&rec.UserID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)

	if err != nil {
		return record.FMEARecord{}, err
	}

	return rec, nil
}

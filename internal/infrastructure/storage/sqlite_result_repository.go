package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

const schema = `
CREATE TABLE IF NOT EXISTS torsion_runs (
	run_id          TEXT PRIMARY KEY,
	video_path      TEXT NOT NULL,
	fps             REAL NOT NULL,
	start_frame     INTEGER NOT NULL,
	end_frame       INTEGER NOT NULL,
	reference_frame INTEGER NOT NULL,
	settings_json   TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS torsion_frames (
	run_id       TEXT NOT NULL,
	frame        INTEGER NOT NULL,
	state        TEXT NOT NULL,
	torsion      REAL,
	torsion_miss TEXT,
	previous     REAL,
	previous_miss TEXT,
	pupil_row    REAL,
	pupil_col    REAL,
	pupil_major  REAL,
	pupil_minor  REAL,
	PRIMARY KEY (run_id, frame),
	FOREIGN KEY (run_id) REFERENCES torsion_runs(run_id) ON DELETE CASCADE
);
`

// SQLiteResultRepository хранит результаты анализа в SQLite.
// Полярные развёртки не сохраняются.
type SQLiteResultRepository struct {
	db *sql.DB
}

// NewSQLiteResultRepository открывает базу и создаёт схему.
func NewSQLiteResultRepository(dbPath string) (*SQLiteResultRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// :memory: у каждого соединения своя
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteResultRepository{db: db}, nil
}

// Close закрывает соединение с базой.
func (r *SQLiteResultRepository) Close() error {
	return r.db.Close()
}

// Save сохраняет результат одной транзакцией.
func (r *SQLiteResultRepository) Save(ctx context.Context, result *entity.TorsionResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	settings, err := json.Marshal(encodeSettings(result.Settings))
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO torsion_runs (run_id, video_path, fps, start_frame, end_frame, reference_frame, settings_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.VideoPath, result.FPS, result.Start, result.End, result.Reference,
		string(settings), result.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO torsion_frames (run_id, frame, state, torsion, torsion_miss, previous, previous_miss,
		 pupil_row, pupil_col, pupil_major, pupil_minor)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare frames: %w", err)
	}
	defer stmt.Close()

	for k, i := 0, result.Start; i < result.End; k, i = k+1, i+1 {
		byRef, _ := result.ByReference.At(i)
		byPrev, _ := result.ByPrevious.At(i)
		deg, miss := estimateColumns(byRef)
		prev, prevMiss := estimateColumns(byPrev)

		var row, col, major, minor sql.NullFloat64
		if p := result.Pupils[i]; p != nil {
			row = sql.NullFloat64{Float64: p.CenterRow, Valid: true}
			col = sql.NullFloat64{Float64: p.CenterCol, Valid: true}
			major = sql.NullFloat64{Float64: p.Major, Valid: true}
			minor = sql.NullFloat64{Float64: p.Minor, Valid: true}
		}

		var state entity.FrameState
		if k < len(result.States) {
			state = result.States[k]
		}

		if _, err := stmt.ExecContext(ctx, result.ID, i, string(state), deg, miss, prev, prevMiss,
			row, col, major, minor); err != nil {
			return fmt.Errorf("insert frame %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load читает результат по ID.
func (r *SQLiteResultRepository) Load(ctx context.Context, id string) (*entity.TorsionResult, error) {
	var (
		result   = &entity.TorsionResult{ID: id}
		settings string
		created  string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT video_path, fps, start_frame, end_frame, reference_frame, settings_json, created_at
		 FROM torsion_runs WHERE run_id = ?`, id,
	).Scan(&result.VideoPath, &result.FPS, &result.Start, &result.End, &result.Reference, &settings, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrResultNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	var rec settingsRecord
	if err := json.Unmarshal([]byte(settings), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if result.Settings, err = rec.decode(); err != nil {
		return nil, err
	}
	if result.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	count := result.End - result.Start
	result.ByReference = entity.NewIndexed[entity.Estimate](result.Start, count)
	result.ByPrevious = entity.NewIndexed[entity.Estimate](result.Start, count)
	result.Transforms = entity.NewIndexed[*entity.PolarImage](result.Start, count)
	result.States = make([]entity.FrameState, 0, count)
	result.Pupils = make(map[int]*entity.Pupil, count)

	rows, err := r.db.QueryContext(ctx,
		`SELECT frame, state, torsion, torsion_miss, previous, previous_miss,
		 pupil_row, pupil_col, pupil_major, pupil_minor
		 FROM torsion_frames WHERE run_id = ? ORDER BY frame`, id)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			frame                  int
			state                  string
			deg, prev              sql.NullFloat64
			miss, prevMiss         sql.NullString
			row, col, major, minor sql.NullFloat64
		)
		if err := rows.Scan(&frame, &state, &deg, &miss, &prev, &prevMiss, &row, &col, &major, &minor); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}

		if err := result.ByReference.Append(frame, estimateFrom(deg, miss)); err != nil {
			return nil, err
		}
		if err := result.ByPrevious.Append(frame, estimateFrom(prev, prevMiss)); err != nil {
			return nil, err
		}
		if err := result.Transforms.Append(frame, nil); err != nil {
			return nil, err
		}
		result.States = append(result.States, entity.FrameState(state))

		result.Pupils[frame] = nil
		if row.Valid && col.Valid && major.Valid && minor.Valid {
			p, err := entity.NewPupil(row.Float64, col.Float64, major.Float64, minor.Float64, nil)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", frame, err)
			}
			result.Pupils[frame] = &p
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return result, nil
}

func estimateColumns(e entity.Estimate) (sql.NullFloat64, sql.NullString) {
	if e.Valid {
		return sql.NullFloat64{Float64: e.Degrees, Valid: true}, sql.NullString{}
	}
	return sql.NullFloat64{}, sql.NullString{String: string(e.Reason), Valid: true}
}

func estimateFrom(deg sql.NullFloat64, miss sql.NullString) entity.Estimate {
	if deg.Valid {
		return entity.Measured(deg.Float64)
	}
	return entity.Missing(entity.FailureReason(miss.String))
}

var _ port.ResultRepository = (*SQLiteResultRepository)(nil)

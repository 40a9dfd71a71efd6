package problems

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

const problemColumns = "id, source, year, number, topic, difficulty, statement, choices, answer"

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a Repository over the problems table.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) Get(ctx context.Context, id string) (*models.Problem, error) {
	log := logger.FromContext(ctx).WithPrefix("problem_repo")

	query, args, err := sqlBuilder.
		Select(problemColumns).
		From("problems").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	p, err := scanProblem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get problem %s: %v", id, err)
		return nil, err
	}
	return p, nil
}

func (r *sqliteRepository) List(ctx context.Context, filter models.ProblemFilter) ([]models.Problem, error) {
	log := logger.FromContext(ctx).WithPrefix("problem_repo")

	query := applyFilter(sqlBuilder.Select(problemColumns).From("problems"), filter).
		OrderBy("source", "year", "number")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list problems: %v", err)
		return nil, err
	}
	defer rows.Close()

	out, err := collectProblems(rows)
	if err != nil {
		log.Error("failed to scan problem rows: %v", err)
		return nil, err
	}
	log.Debug("listed %d problems", len(out))
	return out, nil
}

func (r *sqliteRepository) Count(ctx context.Context, filter models.ProblemFilter) (int, error) {
	query, args, err := applyFilter(sqlBuilder.Select("COUNT(*)").From("problems"), filter).ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *sqliteRepository) Insert(ctx context.Context, p models.Problem) error {
	choices, err := json.Marshal(p.Choices)
	if err != nil {
		return err
	}
	query, args, err := sqlBuilder.
		Insert("problems").
		Columns("id", "source", "year", "number", "topic", "difficulty", "statement", "choices", "answer").
		Values(p.ID, p.Source, p.Year, p.Number, p.Topic, p.Difficulty, p.Statement, string(choices), p.Answer).
		Suffix("ON CONFLICT(id) DO UPDATE SET source=excluded.source, year=excluded.year, number=excluded.number, topic=excluded.topic, difficulty=excluded.difficulty, statement=excluded.statement, choices=excluded.choices, answer=excluded.answer").
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *sqliteRepository) InsertBatch(ctx context.Context, ps []models.Problem) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("problem_repo")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return 0, err
	}

	inserted := 0
	for _, p := range ps {
		choices, err := json.Marshal(p.Choices)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO problems (id, source, year, number, topic, difficulty, statement, choices, answer)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET source=excluded.source, year=excluded.year, number=excluded.number,
    topic=excluded.topic, difficulty=excluded.difficulty, statement=excluded.statement,
    choices=excluded.choices, answer=excluded.answer
`, p.ID, p.Source, p.Year, p.Number, p.Topic, p.Difficulty, p.Statement, string(choices), p.Answer); err != nil {
			_ = tx.Rollback()
			log.Error("failed to insert problem %s: %v", p.ID, err)
			return 0, err
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit batch insert: %v", err)
		return 0, err
	}
	log.Info("inserted %d problems", inserted)
	return inserted, nil
}

func (r *sqliteRepository) Random(ctx context.Context, filter models.ProblemFilter, n int) ([]models.Problem, error) {
	log := logger.FromContext(ctx).WithPrefix("problem_repo")

	query := applyFilter(sqlBuilder.Select(problemColumns).From("problems"), filter).
		OrderBy("RANDOM()").
		Limit(uint64(n))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to select random problems: %v", err)
		return nil, err
	}
	defer rows.Close()

	return collectProblems(rows)
}

func (r *sqliteRepository) Topics(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT topic FROM problems ORDER BY topic`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func applyFilter(query squirrel.SelectBuilder, filter models.ProblemFilter) squirrel.SelectBuilder {
	if filter.Source != "" {
		query = query.Where(squirrel.Eq{"source": filter.Source})
	}
	if filter.Topic != "" {
		query = query.Where(squirrel.Eq{"topic": filter.Topic})
	}
	if filter.Year != 0 {
		query = query.Where(squirrel.Eq{"year": filter.Year})
	}
	if filter.MinDifficulty > 0 {
		query = query.Where(squirrel.GtOrEq{"difficulty": filter.MinDifficulty})
	}
	if filter.MaxDifficulty > 0 {
		query = query.Where(squirrel.LtOrEq{"difficulty": filter.MaxDifficulty})
	}
	return query
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*models.Problem, error) {
	var p models.Problem
	var choices string
	if err := row.Scan(&p.ID, &p.Source, &p.Year, &p.Number, &p.Topic, &p.Difficulty, &p.Statement, &choices, &p.Answer); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(choices), &p.Choices); err != nil {
		p.Choices = nil
	}
	return &p, nil
}

func collectProblems(rows *sql.Rows) ([]models.Problem, error) {
	var out []models.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"
)

type ProblemFilter struct {
	Platform   model.Platform
	Difficulty model.ProblemDifficulty
	TagSlugs   []string
	SearchTerm string
	Limit      int
	Offset     int
}

type ProblemRepository interface {
	// Upsert inserts or refreshes a problem keyed by (platform, external_id) and sets p.ID.
	Upsert(ctx context.Context, tx *sql.Tx, p *model.Problem) error
	UpsertTag(ctx context.Context, tx *sql.Tx, tag *model.Tag) error
	SetProblemTags(ctx context.Context, tx *sql.Tx, problemID string, tagIDs []string) error
	FindByID(ctx context.Context, id string) (*model.Problem, error)
	ListProblems(ctx context.Context, f ProblemFilter) ([]model.Problem, int, error)
	GetTagsByProblemIDs(ctx context.Context, problemIDs []string) (map[string][]model.Tag, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) Upsert(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `
        INSERT INTO problems (id, platform, external_id, slug, title, difficulty, rating, url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (platform, external_id) DO UPDATE SET
            title = EXCLUDED.title,
            difficulty = CASE WHEN EXCLUDED.difficulty = 'Unknown' THEN problems.difficulty ELSE EXCLUDED.difficulty END,
            rating = GREATEST(problems.rating, EXCLUDED.rating),
            url = EXCLUDED.url,
            updated_at = CURRENT_TIMESTAMP
        RETURNING id`
	err := pick(r.db, tx).QueryRowContext(ctx, query,
		p.ID, p.Platform, p.ExternalID, p.Slug, p.Title, p.Difficulty, p.Rating, p.URL).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Upsert: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) UpsertTag(ctx context.Context, tx *sql.Tx, tag *model.Tag) error {
	query := `INSERT INTO tags (id, name, slug) VALUES ($1, $2, $3)
	          ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
	          RETURNING id`
	if err := pick(r.db, tx).QueryRowContext(ctx, query, tag.ID, tag.Name, tag.Slug).Scan(&tag.ID); err != nil {
		return fmt.Errorf("pgProblemRepository.UpsertTag: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) SetProblemTags(ctx context.Context, tx *sql.Tx, problemID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	q := pick(r.db, tx)
	for _, tagID := range tagIDs {
		_, err := q.ExecContext(ctx,
			`INSERT INTO problem_tags (problem_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, problemID, tagID)
		if err != nil {
			return fmt.Errorf("pgProblemRepository.SetProblemTags tag %s: %w", tagID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT id, platform, external_id, slug, title, difficulty, rating, url, created_at, updated_at
	          FROM problems WHERE id = $1`
	p := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Platform, &p.ExternalID, &p.Slug, &p.Title, &p.Difficulty, &p.Rating, &p.URL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindByID: %w", err)
	}
	tags, err := r.GetTagsByProblemIDs(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Tags = tags[p.ID]
	return p, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, f ProblemFilter) ([]model.Problem, int, error) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`
        SELECT DISTINCT p.id, p.platform, p.external_id, p.slug, p.title, p.difficulty, p.rating, p.url,
               p.created_at, p.updated_at
        FROM problems p`)

	var countQuery strings.Builder
	countQuery.WriteString(`SELECT COUNT(DISTINCT p.id) FROM problems p`)

	var conditions []string
	var args []any
	argID := 1

	if len(f.TagSlugs) > 0 {
		join := " JOIN problem_tags pt ON p.id = pt.problem_id JOIN tags t ON pt.tag_id = t.id"
		baseQuery.WriteString(join)
		countQuery.WriteString(join)
		conditions = append(conditions, fmt.Sprintf("t.slug IN (%s)", placeholders(argID, len(f.TagSlugs))))
		for _, s := range f.TagSlugs {
			args = append(args, s)
		}
		argID += len(f.TagSlugs)
	}

	if f.Platform != "" {
		conditions = append(conditions, fmt.Sprintf("p.platform = $%d", argID))
		args = append(args, f.Platform)
		argID++
	}

	if f.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("p.difficulty = $%d", argID))
		args = append(args, f.Difficulty)
		argID++
	}

	if f.SearchTerm != "" {
		conditions = append(conditions, fmt.Sprintf("(p.title ILIKE $%d OR p.external_id ILIKE $%d)", argID, argID))
		args = append(args, "%"+f.SearchTerm+"%")
		argID++
	}

	if len(conditions) > 0 {
		where := " WHERE " + strings.Join(conditions, " AND ")
		baseQuery.WriteString(where)
		countQuery.WriteString(where)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	baseQuery.WriteString(fmt.Sprintf(" ORDER BY p.platform, p.external_id LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Platform, &p.ExternalID, &p.Slug, &p.Title, &p.Difficulty, &p.Rating, &p.URL,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems rows.Err: %w", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) GetTagsByProblemIDs(ctx context.Context, problemIDs []string) (map[string][]model.Tag, error) {
	out := make(map[string][]model.Tag, len(problemIDs))
	if len(problemIDs) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(`SELECT pt.problem_id, t.id, t.name, t.slug
              FROM problem_tags pt JOIN tags t ON pt.tag_id = t.id
              WHERE pt.problem_id IN (%s) ORDER BY t.slug`, placeholders(1, len(problemIDs)))
	args := make([]any, len(problemIDs))
	for i, id := range problemIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemIDs query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var problemID string
		var t model.Tag
		if err := rows.Scan(&problemID, &t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemIDs scan: %w", err)
		}
		out[problemID] = append(out[problemID], t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemIDs rows.Err: %w", err)
	}
	return out, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cpdash/internal/domain/model"
)

type SubmissionFilter struct {
	Platform model.Platform
	Verdict  model.SubmissionStatus
	Limit    int
	Offset   int
}

type SubmissionRepository interface {
	// Insert stores a submission once per (user_id, platform, external_id). It reports whether a row was written.
	Insert(ctx context.Context, tx *sql.Tx, sub *model.Submission) (bool, error)
	ListByUser(ctx context.Context, userID string, f SubmissionFilter) ([]model.Submission, int, error)
	ListFacts(ctx context.Context, userID string) ([]model.SubmissionFact, error)
	CountSince(ctx context.Context, userID string, platform model.Platform, since time.Time) (int, error)
	CountSolved(ctx context.Context, tx *sql.Tx, userID string, platform model.Platform) (int, error)
	DailyActivity(ctx context.Context, userID string, since time.Time) (model.Calendar, error)
	VerdictDistribution(ctx context.Context, userID string) (map[model.SubmissionStatus]int, error)
	SolvedByDifficulty(ctx context.Context, userID string) ([]model.DifficultyCount, error)
	PlatformTotals(ctx context.Context, userID string) ([]model.PlatformTotals, error)
	GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) Insert(ctx context.Context, tx *sql.Tx, s *model.Submission) (bool, error) {
	query := `INSERT INTO submissions (id, user_id, platform, external_id, problem_id, verdict, raw_verdict, language, submitted_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (user_id, platform, external_id) DO NOTHING`
	res, err := pick(r.db, tx).ExecContext(ctx, query,
		s.ID, s.UserID, s.Platform, s.ExternalID, s.ProblemID, s.Verdict, s.RawVerdict, s.Language, s.SubmittedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Insert rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *pgSubmissionRepository) ListByUser(ctx context.Context, userID string, f SubmissionFilter) ([]model.Submission, int, error) {
	conditions := []string{"s.user_id = $1"}
	args := []any{userID}
	argID := 2
	if f.Platform != "" {
		conditions = append(conditions, fmt.Sprintf("s.platform = $%d", argID))
		args = append(args, f.Platform)
		argID++
	}
	if f.Verdict != "" {
		conditions = append(conditions, fmt.Sprintf("s.verdict = $%d", argID))
		args = append(args, f.Verdict)
		argID++
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions s`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser count: %w", err)
	}

	query := `SELECT s.id, s.user_id, s.platform, s.external_id, s.problem_id, s.verdict, s.raw_verdict,
                     s.language, s.submitted_at, s.created_at, p.title, p.slug
              FROM submissions s JOIN problems p ON p.id = s.problem_id` + where +
		fmt.Sprintf(" ORDER BY s.submitted_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		var title, slug string
		if err := rows.Scan(&s.ID, &s.UserID, &s.Platform, &s.ExternalID, &s.ProblemID, &s.Verdict, &s.RawVerdict,
			&s.Language, &s.SubmittedAt, &s.CreatedAt, &title, &slug); err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser scan: %w", err)
		}
		s.ProblemTitle, s.ProblemSlug = &title, &slug
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser rows.Err: %w", err)
	}
	return subs, total, nil
}

func (r *pgSubmissionRepository) ListFacts(ctx context.Context, userID string) ([]model.SubmissionFact, error) {
	query := `
        SELECT s.platform, s.problem_id, s.verdict, p.difficulty, s.submitted_at,
               COALESCE(string_agg(t.slug, ',' ORDER BY t.slug), '')
        FROM submissions s
        JOIN problems p ON p.id = s.problem_id
        LEFT JOIN problem_tags pt ON pt.problem_id = p.id
        LEFT JOIN tags t ON t.id = pt.tag_id
        WHERE s.user_id = $1
        GROUP BY s.id, s.platform, s.problem_id, s.verdict, p.difficulty, s.submitted_at
        ORDER BY s.submitted_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListFacts query: %w", err)
	}
	defer rows.Close()

	facts := []model.SubmissionFact{}
	for rows.Next() {
		var f model.SubmissionFact
		var tags string
		if err := rows.Scan(&f.Platform, &f.ProblemID, &f.Verdict, &f.Difficulty, &f.SubmittedAt, &tags); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListFacts scan: %w", err)
		}
		if tags != "" {
			f.Tags = strings.Split(tags, ",")
		}
		facts = append(facts, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListFacts rows.Err: %w", err)
	}
	return facts, nil
}

func (r *pgSubmissionRepository) CountSince(ctx context.Context, userID string, platform model.Platform, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE user_id = $1 AND submitted_at >= $2`
	args := []any{userID, since.UTC()}
	if platform != "" {
		query += ` AND platform = $3`
		args = append(args, platform)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountSince: %w", err)
	}
	return n, nil
}

func (r *pgSubmissionRepository) CountSolved(ctx context.Context, tx *sql.Tx, userID string, platform model.Platform) (int, error) {
	query := `SELECT COUNT(DISTINCT problem_id) FROM submissions
	          WHERE user_id = $1 AND platform = $2 AND verdict = $3`
	var n int
	if err := pick(r.db, tx).QueryRowContext(ctx, query, userID, platform, model.StatusAccepted).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountSolved: %w", err)
	}
	return n, nil
}

func (r *pgSubmissionRepository) DailyActivity(ctx context.Context, userID string, since time.Time) (model.Calendar, error) {
	query := `SELECT to_char(submitted_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
              FROM submissions WHERE user_id = $1 AND submitted_at >= $2
              GROUP BY day`
	rows, err := r.db.QueryContext(ctx, query, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.DailyActivity query: %w", err)
	}
	defer rows.Close()

	cal := model.Calendar{}
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.DailyActivity scan: %w", err)
		}
		cal[day] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.DailyActivity rows.Err: %w", err)
	}
	return cal, nil
}

func (r *pgSubmissionRepository) VerdictDistribution(ctx context.Context, userID string) (map[model.SubmissionStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT verdict, COUNT(*) FROM submissions WHERE user_id = $1 GROUP BY verdict`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.VerdictDistribution query: %w", err)
	}
	defer rows.Close()

	dist := map[model.SubmissionStatus]int{}
	for rows.Next() {
		var v model.SubmissionStatus
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.VerdictDistribution scan: %w", err)
		}
		dist[v] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.VerdictDistribution rows.Err: %w", err)
	}
	return dist, nil
}

func (r *pgSubmissionRepository) SolvedByDifficulty(ctx context.Context, userID string) ([]model.DifficultyCount, error) {
	query := `SELECT s.platform, p.difficulty, COUNT(DISTINCT s.problem_id)
              FROM submissions s JOIN problems p ON p.id = s.problem_id
              WHERE s.user_id = $1 AND s.verdict = $2
              GROUP BY s.platform, p.difficulty
              ORDER BY s.platform, p.difficulty`
	rows, err := r.db.QueryContext(ctx, query, userID, model.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.SolvedByDifficulty query: %w", err)
	}
	defer rows.Close()

	out := []model.DifficultyCount{}
	for rows.Next() {
		var c model.DifficultyCount
		if err := rows.Scan(&c.Platform, &c.Difficulty, &c.Solved); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.SolvedByDifficulty scan: %w", err)
		}
		out = append(out, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.SolvedByDifficulty rows.Err: %w", err)
	}
	return out, nil
}

func (r *pgSubmissionRepository) PlatformTotals(ctx context.Context, userID string) ([]model.PlatformTotals, error) {
	query := `SELECT platform, COUNT(*),
                     COUNT(*) FILTER (WHERE verdict = $2),
                     COUNT(DISTINCT problem_id) FILTER (WHERE verdict = $2)
              FROM submissions WHERE user_id = $1
              GROUP BY platform ORDER BY platform`
	rows, err := r.db.QueryContext(ctx, query, userID, model.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.PlatformTotals query: %w", err)
	}
	defer rows.Close()

	out := []model.PlatformTotals{}
	for rows.Next() {
		var t model.PlatformTotals
		if err := rows.Scan(&t.Platform, &t.Submissions, &t.Accepted, &t.Solved); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.PlatformTotals scan: %w", err)
		}
		out = append(out, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.PlatformTotals rows.Err: %w", err)
	}
	return out, nil
}

func (r *pgSubmissionRepository) GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	// Solved counts per platform are floored at the profile's reported total,
	// the same way the dashboard and insights count them.
	query := `WITH local AS (
                  SELECT user_id, platform,
                         COUNT(DISTINCT problem_id) FILTER (WHERE verdict = $1) AS solved,
                         COUNT(id) AS total,
                         COUNT(id) FILTER (WHERE verdict = $1) AS accepted
                  FROM submissions
                  GROUP BY user_id, platform
              ), per_platform AS (
                  SELECT COALESCE(l.user_id, p.user_id) AS user_id,
                         GREATEST(COALESCE(l.solved, 0), COALESCE(p.solved_count, 0)) AS solved,
                         COALESCE(l.total, 0) AS total,
                         COALESCE(l.accepted, 0) AS accepted
                  FROM local l
                  FULL JOIN platform_profiles p ON p.user_id = l.user_id AND p.platform = l.platform
              )
              SELECT u.id, u.username,
                     SUM(pp.solved)::bigint AS solved,
                     SUM(pp.total)::bigint AS total,
                     SUM(pp.accepted)::bigint AS accepted
              FROM users u JOIN per_platform pp ON pp.user_id = u.id
              GROUP BY u.id, u.username
              HAVING SUM(pp.solved) > 0 OR SUM(pp.total) > 0
              ORDER BY solved DESC, total ASC, u.username ASC
              LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, model.StatusAccepted, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetLeaderboard query: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.ProblemsSolved, &e.Submissions, &e.Accepted); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetLeaderboard scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetLeaderboard rows.Err: %w", err)
	}
	model.RankLeaderboard(entries)
	return entries, nil
}

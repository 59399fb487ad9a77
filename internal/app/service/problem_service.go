package service

import (
	"context"
	"strings"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"

	"github.com/gosimple/slug"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
}

func NewProblemService(problemRepo repository.ProblemRepository) *ProblemService {
	return &ProblemService{problemRepo: problemRepo}
}

type ProblemQuery struct {
	Page       int
	PageSize   int
	Platform   string
	Difficulty string
	Tags       []string // Tag names or slugs
	Search     string
}

// normalizePage clamps page to >= 1 and pageSize to [1, maxPageSize].
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *ProblemService) ListProblems(ctx context.Context, q ProblemQuery) (*common.PageResponse[model.Problem], error) {
	page, pageSize := normalizePage(q.Page, q.PageSize)
	f := repository.ProblemFilter{
		SearchTerm: strings.TrimSpace(q.Search),
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	if q.Platform != "" {
		p, err := model.ParsePlatform(q.Platform)
		if err != nil {
			return nil, common.Errorf("%v: %w", err, common.ErrBadRequest)
		}
		f.Platform = p
	}
	if q.Difficulty != "" {
		d := model.ParseDifficulty(q.Difficulty)
		if d == model.DifficultyUnknown && !strings.EqualFold(q.Difficulty, string(model.DifficultyUnknown)) {
			return nil, common.Errorf("unknown difficulty %q: %w", q.Difficulty, common.ErrBadRequest)
		}
		f.Difficulty = d
	}
	for _, t := range q.Tags {
		if ts := slug.Make(t); ts != "" {
			f.TagSlugs = append(f.TagSlugs, ts)
		}
	}

	problems, total, err := s.problemRepo.ListProblems(ctx, f)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(problems))
	for i, p := range problems {
		ids[i] = p.ID
	}
	tags, err := s.problemRepo.GetTagsByProblemIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range problems {
		problems[i].Tags = tags[problems[i].ID]
	}

	return common.NewPage(problems, total, page, pageSize), nil
}

func (s *ProblemService) GetProblem(ctx context.Context, id string) (*model.Problem, error) {
	return s.problemRepo.FindByID(ctx, id)
}

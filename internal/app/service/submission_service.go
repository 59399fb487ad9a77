package service

import (
	"context"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
}

func NewSubmissionService(subRepo repository.SubmissionRepository) *SubmissionService {
	return &SubmissionService{submissionRepo: subRepo}
}

type SubmissionQuery struct {
	Page     int
	PageSize int
	Platform string
	Verdict  string
}

var knownStatuses = map[model.SubmissionStatus]bool{
	model.StatusAccepted:            true,
	model.StatusWrongAnswer:         true,
	model.StatusTimeLimitExceeded:   true,
	model.StatusMemoryLimitExceeded: true,
	model.StatusCompilationError:    true,
	model.StatusRuntimeError:        true,
	model.StatusOther:               true,
}

// ListMine pages through the user's synced submissions, newest first.
func (s *SubmissionService) ListMine(ctx context.Context, userID string, q SubmissionQuery) (*common.PageResponse[model.Submission], error) {
	page, pageSize := normalizePage(q.Page, q.PageSize)
	f := repository.SubmissionFilter{Limit: pageSize, Offset: (page - 1) * pageSize}
	if q.Platform != "" {
		p, err := model.ParsePlatform(q.Platform)
		if err != nil {
			return nil, common.Errorf("%v: %w", err, common.ErrBadRequest)
		}
		f.Platform = p
	}
	if q.Verdict != "" {
		v := model.SubmissionStatus(q.Verdict)
		if !knownStatuses[v] {
			return nil, common.Errorf("unknown verdict %q: %w", q.Verdict, common.ErrBadRequest)
		}
		f.Verdict = v
	}

	subs, total, err := s.submissionRepo.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	return common.NewPage(subs, total, page, pageSize), nil
}

package service

import (
	"context"
	"testing"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProblemsBuildsFilterAndAttachesTags(t *testing.T) {
	repo := &fakeProblems{
		problems: []model.Problem{{ID: "p1", Title: "Two Sum"}, {ID: "p2", Title: "Watermelon"}},
		tags:     map[string][]model.Tag{"p1": {{Name: "Array", Slug: "array"}}},
	}
	s := NewProblemService(repo)

	page, err := s.ListProblems(context.Background(), ProblemQuery{
		Page: 3, PageSize: 500, Platform: "LeetCode", Difficulty: "easy", Tags: []string{"Dynamic Programming", " "}, Search: " sum ",
	})
	require.NoError(t, err)

	assert.Equal(t, model.PlatformLeetCode, repo.filter.Platform)
	assert.Equal(t, model.DifficultyEasy, repo.filter.Difficulty)
	assert.Equal(t, []string{"dynamic-programming"}, repo.filter.TagSlugs)
	assert.Equal(t, "sum", repo.filter.SearchTerm)
	assert.Equal(t, maxPageSize, repo.filter.Limit)
	assert.Equal(t, 2*maxPageSize, repo.filter.Offset)

	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, "array", page.Items[0].Tags[0].Slug)
	assert.Empty(t, page.Items[1].Tags)
}

func TestListProblemsRejectsBadFilters(t *testing.T) {
	s := NewProblemService(&fakeProblems{})
	_, err := s.ListProblems(context.Background(), ProblemQuery{Platform: "hackerrank"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
	_, err = s.ListProblems(context.Background(), ProblemQuery{Difficulty: "impossible"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestNormalizePage(t *testing.T) {
	p, size := normalizePage(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, defaultPageSize, size)
}

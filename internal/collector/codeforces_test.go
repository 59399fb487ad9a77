package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodeforcesServer(t *testing.T, routes map[string]string) *CodeforcesCollector {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"FAILED","comment":"handle: User with handle ghost not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewCodeforcesCollector(srv.URL+"/", 5*time.Second, 1000)
}

func TestCodeforces_FetchProfile(t *testing.T) {
	c := newCodeforcesServer(t, map[string]string{
		"/user.info": `{"status":"OK","result":[{"handle":"tourist","rating":3757,"maxRating":4229,"rank":"legendary grandmaster","maxRank":"tourist"}]}`,
	})

	p, err := c.FetchProfile(context.Background(), "tourist")
	require.NoError(t, err)
	assert.Equal(t, "tourist", p.Handle)
	assert.Equal(t, 3757, p.CurrentRating)
	assert.Equal(t, 4229, p.MaxRating)
	assert.Equal(t, "legendary grandmaster", p.RankLabel)
}

func TestCodeforces_UnknownHandleIsNotFound(t *testing.T) {
	c := newCodeforcesServer(t, nil)

	_, err := c.FetchProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCodeforces_FailedEnvelopeIsUpstreamError(t *testing.T) {
	c := newCodeforcesServer(t, map[string]string{
		"/user.rating": `{"status":"FAILED","comment":"Call limit exceeded"}`,
	})

	_, err := c.FetchContests(context.Background(), "tourist")
	require.Error(t, err)
	var upErr *common.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "codeforces", upErr.Platform)
	assert.Equal(t, "user.rating", upErr.Operation)
	assert.Contains(t, upErr.Message, "Call limit exceeded")
	assert.ErrorIs(t, err, common.ErrUpstream)
}

func TestCodeforces_FetchSubmissions(t *testing.T) {
	c := newCodeforcesServer(t, map[string]string{
		"/user.status": `{"status":"OK","result":[
			{"id":2001,"contestId":1843,"creationTimeSeconds":1700000000,"verdict":"OK","programmingLanguage":"GNU C++17",
			 "problem":{"contestId":1843,"index":"A","name":"Sasha and Array Coloring","rating":800,"tags":["greedy","sortings"]}},
			{"id":2002,"contestId":1843,"creationTimeSeconds":1700000100,"verdict":"WRONG_ANSWER","programmingLanguage":"Python 3",
			 "problem":{"contestId":1843,"index":"F2","name":"Omsk Metro (hard version)","rating":2300,"tags":["binary search","trees"]}},
			{"id":2003,"contestId":1843,"creationTimeSeconds":1700000200,"verdict":"TESTING",
			 "problem":{"contestId":1843,"index":"B","name":"Long Long","rating":800}},
			{"id":2004,"creationTimeSeconds":1700000300,"verdict":"OK",
			 "problem":{"index":"1","name":"acm.sgu.ru problem"}}
		]}`,
	})

	subs, err := c.FetchSubmissions(context.Background(), "tourist", 10)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	first := subs[0]
	assert.Equal(t, "2001", first.ExternalID)
	assert.Equal(t, model.StatusAccepted, first.Verdict)
	assert.Equal(t, "OK", first.RawVerdict)
	assert.Equal(t, "1843A", first.Problem.ExternalID)
	assert.Equal(t, model.DifficultyEasy, first.Problem.Difficulty)
	assert.Equal(t, "https://codeforces.com/problemset/problem/1843/A", first.Problem.URL)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), first.SubmittedAt)

	second := subs[1]
	assert.Equal(t, model.StatusWrongAnswer, second.Verdict)
	assert.Equal(t, model.DifficultyHard, second.Problem.Difficulty)
	assert.Equal(t, []TagRecord{{Name: "binary search", Slug: "binary-search"}, {Name: "trees", Slug: "trees"}}, second.Problem.Tags)
}

func TestCodeforces_FetchContests(t *testing.T) {
	c := newCodeforcesServer(t, map[string]string{
		"/user.rating": `{"status":"OK","result":[
			{"contestId":1,"contestName":"Round 1","rank":100,"ratingUpdateTimeSeconds":1600000000,"oldRating":0,"newRating":1400},
			{"contestId":2,"contestName":"Round 2","rank":50,"ratingUpdateTimeSeconds":1600100000,"oldRating":1400,"newRating":1550}
		]}`,
	})

	contests, err := c.FetchContests(context.Background(), "tourist")
	require.NoError(t, err)
	require.Len(t, contests, 2)
	assert.Equal(t, "2", contests[1].ExternalID)
	assert.Equal(t, 1400, contests[1].OldRating)
	assert.Equal(t, 1550, contests[1].NewRating)
	assert.Equal(t, 50, contests[1].Rank)
}

func TestCodeforces_FetchCalendarBucketsByDay(t *testing.T) {
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC).Unix()
	c := newCodeforcesServer(t, map[string]string{
		"/user.status": `{"status":"OK","result":[
			{"id":1,"creationTimeSeconds":` + itoa(day+10) + `,"verdict":"OK","problem":{"contestId":1,"index":"A"}},
			{"id":2,"creationTimeSeconds":` + itoa(day+7200) + `,"verdict":"WRONG_ANSWER","problem":{"contestId":1,"index":"B"}},
			{"id":3,"creationTimeSeconds":` + itoa(day-10) + `,"verdict":"OK","problem":{"contestId":1,"index":"C"}}
		]}`,
	})

	cal, err := c.FetchCalendar(context.Background(), "tourist")
	require.NoError(t, err)
	assert.Equal(t, model.Calendar{"2024-05-10": 2, "2024-05-09": 1}, cal)
}

package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/gosimple/slug"
)

// Calendar days are derived from this many latest submissions.
const codeforcesCalendarSubmissions = 2000

type CodeforcesCollector struct {
	baseURL string
	t       *transport
}

func NewCodeforcesCollector(baseURL string, timeout time.Duration, rps float64) *CodeforcesCollector {
	return &CodeforcesCollector{
		baseURL: strings.TrimRight(baseURL, "/"),
		t:       newTransport(model.PlatformCodeforces, timeout, rps),
	}
}

func (c *CodeforcesCollector) Platform() model.Platform { return model.PlatformCodeforces }

type cfEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

type cfUser struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
	Rank      string `json:"rank"`
	MaxRank   string `json:"maxRank"`
}

type cfProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
}

type cfSubmission struct {
	ID                  int64     `json:"id"`
	ContestID           int       `json:"contestId"`
	CreationTimeSeconds int64     `json:"creationTimeSeconds"`
	Problem             cfProblem `json:"problem"`
	Verdict             string    `json:"verdict"`
	ProgrammingLanguage string    `json:"programmingLanguage"`
}

type cfRatingChange struct {
	ContestID               int    `json:"contestId"`
	ContestName             string `json:"contestName"`
	Rank                    int    `json:"rank"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
}

// get calls a Codeforces API method and decodes the envelope's result into out.
func (c *CodeforcesCollector) get(ctx context.Context, method string, params url.Values, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("CodeforcesCollector.%s: %w", method, err)
	}
	return c.t.call(ctx, method, req, func(status int, body []byte) error {
		var env cfEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			// Non-JSON bodies come from the proxy in front of the API.
			return c.t.upstreamErr(method, status, fmt.Sprintf("decoding response: %v", err))
		}
		if env.Status != "OK" {
			if strings.Contains(strings.ToLower(env.Comment), "not found") {
				return fmt.Errorf("codeforces %s: %s: %w", method, env.Comment, common.ErrNotFound)
			}
			return c.t.upstreamErr(method, status, env.Comment)
		}
		if err := json.Unmarshal(env.Result, out); err != nil {
			return c.t.upstreamErr(method, status, fmt.Sprintf("decoding result: %v", err))
		}
		return nil
	})
}

func (c *CodeforcesCollector) FetchProfile(ctx context.Context, handle string) (*ProfileRecord, error) {
	var users []cfUser
	if err := c.get(ctx, "user.info", url.Values{"handles": {handle}}, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("codeforces user %q: %w", handle, common.ErrNotFound)
	}
	u := users[0]
	rank := u.Rank
	if rank == "" {
		rank = "unrated"
	}
	return &ProfileRecord{
		Handle:        u.Handle,
		CurrentRating: u.Rating,
		MaxRating:     u.MaxRating,
		RankLabel:     rank,
	}, nil
}

func (c *CodeforcesCollector) fetchStatus(ctx context.Context, handle string, count int) ([]cfSubmission, error) {
	params := url.Values{
		"handle": {handle},
		"from":   {"1"},
		"count":  {strconv.Itoa(count)},
	}
	var subs []cfSubmission
	if err := c.get(ctx, "user.status", params, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (c *CodeforcesCollector) FetchSubmissions(ctx context.Context, handle string, limit int) ([]SubmissionRecord, error) {
	subs, err := c.fetchStatus(ctx, handle, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SubmissionRecord, 0, len(subs))
	for _, s := range subs {
		// Still being judged, or from a problemset without a contest id.
		if s.Verdict == "" || s.Verdict == "TESTING" || s.Problem.ContestID == 0 {
			continue
		}
		out = append(out, SubmissionRecord{
			ExternalID:  strconv.FormatInt(s.ID, 10),
			Problem:     codeforcesProblem(s.Problem),
			RawVerdict:  s.Verdict,
			Verdict:     model.NormalizeVerdict(model.PlatformCodeforces, s.Verdict),
			Language:    s.ProgrammingLanguage,
			SubmittedAt: time.Unix(s.CreationTimeSeconds, 0).UTC(),
		})
	}
	return out, nil
}

func codeforcesProblem(p cfProblem) ProblemRecord {
	externalID := fmt.Sprintf("%d%s", p.ContestID, p.Index)
	tags := make([]TagRecord, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, TagRecord{Name: t, Slug: slug.Make(t)})
	}
	return ProblemRecord{
		ExternalID: externalID,
		Slug:       slug.Make(externalID + " " + p.Name),
		Title:      p.Name,
		Difficulty: model.DifficultyFromRating(p.Rating),
		Rating:     p.Rating,
		URL:        fmt.Sprintf("https://codeforces.com/problemset/problem/%d/%s", p.ContestID, p.Index),
		Tags:       tags,
	}
}

func (c *CodeforcesCollector) FetchContests(ctx context.Context, handle string) ([]ContestRecord, error) {
	var changes []cfRatingChange
	if err := c.get(ctx, "user.rating", url.Values{"handle": {handle}}, &changes); err != nil {
		return nil, err
	}
	out := make([]ContestRecord, 0, len(changes))
	for _, rc := range changes {
		at := time.Unix(rc.RatingUpdateTimeSeconds, 0).UTC()
		out = append(out, ContestRecord{
			ExternalID:     strconv.Itoa(rc.ContestID),
			Name:           rc.ContestName,
			Rank:           rc.Rank,
			OldRating:      rc.OldRating,
			NewRating:      rc.NewRating,
			ParticipatedAt: at,
		})
	}
	return out, nil
}

// FetchCalendar buckets recent submissions by UTC day. Codeforces has no
// calendar endpoint.
func (c *CodeforcesCollector) FetchCalendar(ctx context.Context, handle string) (model.Calendar, error) {
	subs, err := c.fetchStatus(ctx, handle, codeforcesCalendarSubmissions)
	if err != nil {
		return nil, err
	}
	cal := model.Calendar{}
	for _, s := range subs {
		cal[model.DayKey(time.Unix(s.CreationTimeSeconds, 0))]++
	}
	return cal, nil
}

package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/gosimple/slug"
)

const (
	leetCodeInitialRating  = 1500
	leetCodeKnightRating   = 1850
	leetCodeGuardianTopPct = 5.0
)

const (
	profileQuery = `query userProfile($username: String!) {
  matchedUser(username: $username) {
    username
    submitStats { acSubmissionNum { difficulty count } }
  }
  userContestRanking(username: $username) { attendedContestsCount rating globalRanking topPercentage }
  userContestRankingHistory(username: $username) { attended rating }
}`

	recentSubmissionsQuery = `query recentSubmissions($username: String!, $limit: Int!) {
  recentSubmissionList(username: $username, limit: $limit) { id title titleSlug timestamp statusDisplay lang }
}`

	questionQuery = `query questionData($titleSlug: String!) {
  question(titleSlug: $titleSlug) { questionFrontendId title titleSlug difficulty topicTags { name slug } }
}`

	contestHistoryQuery = `query contestHistory($username: String!) {
  userContestRankingHistory(username: $username) { attended rating ranking contest { title startTime } }
}`

	calendarQuery = `query userCalendar($username: String!) {
  matchedUser(username: $username) { userCalendar { submissionCalendar } }
}`
)

type LeetCodeCollector struct {
	endpoint string
	t        *transport
}

func NewLeetCodeCollector(endpoint string, timeout time.Duration, rps float64) *LeetCodeCollector {
	return &LeetCodeCollector{endpoint: endpoint, t: newTransport(model.PlatformLeetCode, timeout, rps)}
}

func (c *LeetCodeCollector) Platform() model.Platform { return model.PlatformLeetCode }

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *LeetCodeCollector) query(ctx context.Context, op, q string, vars map[string]any, out any) error {
	payload, err := json.Marshal(gqlRequest{Query: q, Variables: vars})
	if err != nil {
		return fmt.Errorf("LeetCodeCollector.%s: %w", op, err)
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("LeetCodeCollector.%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://leetcode.com")

	return c.t.call(ctx, op, req, func(status int, body []byte) error {
		if status != http.StatusOK {
			return c.t.upstreamErr(op, status, strings.TrimSpace(string(truncate(body, 200))))
		}
		var resp gqlResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return c.t.upstreamErr(op, status, fmt.Sprintf("decoding response: %v", err))
		}
		if len(resp.Errors) > 0 {
			msg := resp.Errors[0].Message
			if strings.Contains(strings.ToLower(msg), "does not exist") {
				return fmt.Errorf("leetcode %s: %s: %w", op, msg, common.ErrNotFound)
			}
			return c.t.upstreamErr(op, status, msg)
		}
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return c.t.upstreamErr(op, status, fmt.Sprintf("decoding data: %v", err))
		}
		return nil
	})
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

type lcContestRanking struct {
	AttendedContestsCount int     `json:"attendedContestsCount"`
	Rating                float64 `json:"rating"`
	GlobalRanking         int     `json:"globalRanking"`
	TopPercentage         float64 `json:"topPercentage"`
}

type lcHistoryEntry struct {
	Attended bool    `json:"attended"`
	Rating   float64 `json:"rating"`
	Ranking  int     `json:"ranking"`
	Contest  struct {
		Title     string `json:"title"`
		StartTime int64  `json:"startTime"`
	} `json:"contest"`
}

func (c *LeetCodeCollector) FetchProfile(ctx context.Context, handle string) (*ProfileRecord, error) {
	var data struct {
		MatchedUser *struct {
			Username    string `json:"username"`
			SubmitStats struct {
				AcSubmissionNum []struct {
					Difficulty string `json:"difficulty"`
					Count      int    `json:"count"`
				} `json:"acSubmissionNum"`
			} `json:"submitStats"`
		} `json:"matchedUser"`
		UserContestRanking        *lcContestRanking `json:"userContestRanking"`
		UserContestRankingHistory []lcHistoryEntry  `json:"userContestRankingHistory"`
	}
	if err := c.query(ctx, "profile", profileQuery, map[string]any{"username": handle}, &data); err != nil {
		return nil, err
	}
	if data.MatchedUser == nil {
		return nil, fmt.Errorf("leetcode user %q: %w", handle, common.ErrNotFound)
	}

	rec := &ProfileRecord{Handle: data.MatchedUser.Username}
	for _, n := range data.MatchedUser.SubmitStats.AcSubmissionNum {
		if n.Difficulty == "All" {
			rec.SolvedCount = n.Count
		}
	}
	if r := data.UserContestRanking; r != nil {
		rec.CurrentRating = int(math.Round(r.Rating))
		rec.Contests = r.AttendedContestsCount
		rec.RankLabel = leetCodeRankLabel(r)
	}
	rec.MaxRating = rec.CurrentRating
	for _, h := range data.UserContestRankingHistory {
		if h.Attended {
			rec.MaxRating = max(rec.MaxRating, int(math.Round(h.Rating)))
		}
	}
	return rec, nil
}

// leetCodeRankLabel reproduces LeetCode's contest badges.
func leetCodeRankLabel(r *lcContestRanking) string {
	switch {
	case r.AttendedContestsCount == 0:
		return ""
	case r.TopPercentage > 0 && r.TopPercentage <= leetCodeGuardianTopPct:
		return "Guardian"
	case r.Rating >= leetCodeKnightRating:
		return "Knight"
	}
	return ""
}

type lcQuestion struct {
	QuestionFrontendID string `json:"questionFrontendId"`
	Title              string `json:"title"`
	TitleSlug          string `json:"titleSlug"`
	Difficulty         string `json:"difficulty"`
	TopicTags          []struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"topicTags"`
}

func (c *LeetCodeCollector) fetchQuestion(ctx context.Context, titleSlug string) (*lcQuestion, error) {
	var data struct {
		Question *lcQuestion `json:"question"`
	}
	if err := c.query(ctx, "question", questionQuery, map[string]any{"titleSlug": titleSlug}, &data); err != nil {
		return nil, err
	}
	if data.Question == nil {
		return nil, fmt.Errorf("leetcode question %q: %w", titleSlug, common.ErrNotFound)
	}
	return data.Question, nil
}

func (c *LeetCodeCollector) FetchSubmissions(ctx context.Context, handle string, limit int) ([]SubmissionRecord, error) {
	var data struct {
		RecentSubmissionList []struct {
			ID            string `json:"id"`
			Title         string `json:"title"`
			TitleSlug     string `json:"titleSlug"`
			Timestamp     string `json:"timestamp"`
			StatusDisplay string `json:"statusDisplay"`
			Lang          string `json:"lang"`
		} `json:"recentSubmissionList"`
	}
	vars := map[string]any{"username": handle, "limit": limit}
	if err := c.query(ctx, "recentSubmissions", recentSubmissionsQuery, vars, &data); err != nil {
		return nil, err
	}

	problems := map[string]ProblemRecord{}
	out := make([]SubmissionRecord, 0, len(data.RecentSubmissionList))
	for _, s := range data.RecentSubmissionList {
		ts, err := strconv.ParseInt(s.Timestamp, 10, 64)
		if err != nil {
			continue
		}
		problem, ok := problems[s.TitleSlug]
		if !ok {
			problem, err = c.problemRecord(ctx, s.TitleSlug, s.Title)
			if err != nil {
				return nil, err
			}
			problems[s.TitleSlug] = problem
		}
		externalID := s.ID
		if externalID == "" {
			externalID = s.TitleSlug + "-" + s.Timestamp
		}
		out = append(out, SubmissionRecord{
			ExternalID:  externalID,
			Problem:     problem,
			RawVerdict:  s.StatusDisplay,
			Verdict:     model.NormalizeVerdict(model.PlatformLeetCode, s.StatusDisplay),
			Language:    s.Lang,
			SubmittedAt: time.Unix(ts, 0).UTC(),
		})
	}
	return out, nil
}

// problemRecord resolves difficulty and tags. A missing question keeps the
// submission with Unknown difficulty.
func (c *LeetCodeCollector) problemRecord(ctx context.Context, titleSlug, title string) (ProblemRecord, error) {
	rec := ProblemRecord{
		ExternalID: titleSlug,
		Slug:       titleSlug,
		Title:      title,
		Difficulty: model.DifficultyUnknown,
		URL:        "https://leetcode.com/problems/" + titleSlug + "/",
	}
	q, err := c.fetchQuestion(ctx, titleSlug)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return rec, nil
		}
		return rec, err
	}
	rec.Title = q.Title
	rec.Difficulty = model.ParseDifficulty(q.Difficulty)
	for _, t := range q.TopicTags {
		s := t.Slug
		if s == "" {
			s = slug.Make(t.Name)
		}
		rec.Tags = append(rec.Tags, TagRecord{Name: t.Name, Slug: s})
	}
	return rec, nil
}

func (c *LeetCodeCollector) FetchContests(ctx context.Context, handle string) ([]ContestRecord, error) {
	var data struct {
		UserContestRankingHistory []lcHistoryEntry `json:"userContestRankingHistory"`
	}
	if err := c.query(ctx, "contestHistory", contestHistoryQuery, map[string]any{"username": handle}, &data); err != nil {
		return nil, err
	}

	prev := leetCodeInitialRating
	out := []ContestRecord{}
	for _, h := range data.UserContestRankingHistory {
		if !h.Attended {
			continue
		}
		start := time.Unix(h.Contest.StartTime, 0).UTC()
		rating := int(math.Round(h.Rating))
		out = append(out, ContestRecord{
			ExternalID:     slug.Make(h.Contest.Title),
			Name:           h.Contest.Title,
			StartTime:      &start,
			Rank:           h.Ranking,
			OldRating:      prev,
			NewRating:      rating,
			ParticipatedAt: start,
		})
		prev = rating
	}
	return out, nil
}

func (c *LeetCodeCollector) FetchCalendar(ctx context.Context, handle string) (model.Calendar, error) {
	var data struct {
		MatchedUser *struct {
			UserCalendar struct {
				SubmissionCalendar string `json:"submissionCalendar"`
			} `json:"userCalendar"`
		} `json:"matchedUser"`
	}
	if err := c.query(ctx, "calendar", calendarQuery, map[string]any{"username": handle}, &data); err != nil {
		return nil, err
	}
	if data.MatchedUser == nil {
		return nil, fmt.Errorf("leetcode user %q: %w", handle, common.ErrNotFound)
	}
	return parseSubmissionCalendar(data.MatchedUser.UserCalendar.SubmissionCalendar)
}

// parseSubmissionCalendar converts LeetCode's JSON-encoded {"<unix seconds>": count} map.
func parseSubmissionCalendar(raw string) (model.Calendar, error) {
	cal := model.Calendar{}
	if raw == "" {
		return cal, nil
	}
	var byTS map[string]int
	if err := json.Unmarshal([]byte(raw), &byTS); err != nil {
		return nil, &common.UpstreamError{
			Platform: string(model.PlatformLeetCode), Operation: "calendar",
			Message: fmt.Sprintf("decoding submissionCalendar: %v", err),
		}
	}
	for k, n := range byTS {
		ts, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		cal[model.DayKey(time.Unix(ts, 0))] += n
	}
	return cal, nil
}

package coach

import (
	"sort"

	"cpdash/internal/domain/model"
)

const (
	MinTopicAttempts     = 3
	StrongTopicThreshold = 0.8
	WeakTopicThreshold   = 0.6
)

type TopicStat struct {
	Tag         string  `json:"tag"`
	Attempted   int     `json:"attempted"`
	Solved      int     `json:"solved"`
	Proficiency float64 `json:"proficiency"` // Solved/Attempted, 0..1
}

type TopicReport struct {
	All    []TopicStat `json:"all"`
	Strong []TopicStat `json:"strong"`
	Weak   []TopicStat `json:"weak"`
}

// TopicStats counts distinct attempted and solved problems per tag.
func TopicStats(facts []model.SubmissionFact) []TopicStat {
	type key struct{ tag, problem string }
	attempted := map[key]bool{}
	solved := map[key]bool{}
	for _, f := range facts {
		problem := string(f.Platform) + "/" + f.ProblemID
		for _, tag := range f.Tags {
			k := key{tag, problem}
			attempted[k] = true
			if f.Verdict == model.StatusAccepted {
				solved[k] = true
			}
		}
	}

	byTag := map[string]*TopicStat{}
	for k := range attempted {
		st, ok := byTag[k.tag]
		if !ok {
			st = &TopicStat{Tag: k.tag}
			byTag[k.tag] = st
		}
		st.Attempted++
		if solved[k] {
			st.Solved++
		}
	}

	out := make([]TopicStat, 0, len(byTag))
	for _, st := range byTag {
		st.Proficiency = float64(st.Solved) / float64(st.Attempted)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Attempted != out[j].Attempted {
			return out[i].Attempted > out[j].Attempted
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// ClassifyTopics splits topics with at least minAttempts attempted problems
// into strong (proficiency >= 0.8, best first) and weak (< 0.6, worst first).
func ClassifyTopics(facts []model.SubmissionFact, minAttempts int) TopicReport {
	all := TopicStats(facts)
	report := TopicReport{All: all, Strong: []TopicStat{}, Weak: []TopicStat{}}
	for _, st := range all {
		if st.Attempted < minAttempts {
			continue
		}
		switch {
		case st.Proficiency >= StrongTopicThreshold:
			report.Strong = append(report.Strong, st)
		case st.Proficiency < WeakTopicThreshold:
			report.Weak = append(report.Weak, st)
		}
	}
	sort.SliceStable(report.Strong, func(i, j int) bool {
		return report.Strong[i].Proficiency > report.Strong[j].Proficiency
	})
	sort.SliceStable(report.Weak, func(i, j int) bool {
		return report.Weak[i].Proficiency < report.Weak[j].Proficiency
	})
	return report
}

// TopicsSolved is the number of tags with at least one solved problem.
func TopicsSolved(stats []TopicStat) int {
	n := 0
	for _, st := range stats {
		if st.Solved > 0 {
			n++
		}
	}
	return n
}

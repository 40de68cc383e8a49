package qa

import (
	"curiousqa/pkg/curiouscat"
)

// Record is one question and its answer. Either may be missing.
type Record struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

// QuestionText returns the question, or "" when absent
func (r Record) QuestionText() string {
	if r.Question == nil {
		return ""
	}
	return *r.Question
}

// AnswerText returns the answer, or "" when absent
func (r Record) AnswerText() string {
	if r.Answer == nil {
		return ""
	}
	return *r.Answer
}

// Extract maps every "post" entry to a Record, keeping order. Other entries
// are skipped.
func Extract(entries []curiouscat.Entry) []Record {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		if !e.IsPost() {
			continue
		}
		records = append(records, Record{
			Question: e.Post.Comment,
			Answer:   e.Post.Reply,
		})
	}
	return records
}

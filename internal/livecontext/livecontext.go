// Package livecontext derives the bounded analysis window and trigger
// signals from a live transcript. The full transcript stays with the caller;
// only the last N customer turns (with surrounding agent context) are sent to
// the risk engine.
package livecontext

import (
	"regexp"
	"strings"

	"github.com/coachline/coachline/internal/models"
)

const RollingCustomerUtterances = 8

var speakerPrefixes = []struct {
	pattern *regexp.Regexp
	speaker models.Speaker
}{
	{regexp.MustCompile(`(?i)^\s*Customer:\s*`), models.SpeakerCustomer},
	{regexp.MustCompile(`(?i)^\s*Agent:\s*`), models.SpeakerAgent},
}

// ParseUtterances splits a transcript into speaker turns on "Customer:" and
// "Agent:" lines. Untagged lines attach, space-joined, to the preceding
// utterance; a tagged line with no remaining text is dropped.
func ParseUtterances(transcript string) []models.Utterance {
	var out []models.Utterance
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		matched := false
		for _, sp := range speakerPrefixes {
			if loc := sp.pattern.FindStringIndex(line); loc != nil {
				text := strings.TrimSpace(line[loc[1]:])
				if text != "" {
					out = append(out, models.Utterance{Speaker: sp.speaker, Text: text})
				}
				matched = true
				break
			}
		}
		if !matched && len(out) > 0 {
			out[len(out)-1].Text += " " + strings.TrimSpace(line)
		}
	}
	return out
}

// RollingContext returns the last maxCustomer customer turns with their
// surrounding agent context, re-serialized one utterance per line. A
// transcript with no recognized speaker tags (free-form paste) is returned
// trimmed and unchanged.
func RollingContext(transcript string, maxCustomer int) string {
	utterances := ParseUtterances(transcript)

	var customerIdx []int
	for i, u := range utterances {
		if u.Speaker == models.SpeakerCustomer {
			customerIdx = append(customerIdx, i)
		}
	}
	if len(customerIdx) == 0 {
		return strings.TrimSpace(transcript)
	}

	from := 0
	if len(customerIdx) > maxCustomer {
		from = customerIdx[len(customerIdx)-maxCustomer]
	} else {
		from = customerIdx[0]
	}

	lines := make([]string, 0, len(utterances)-from)
	for _, u := range utterances[from:] {
		if u.Speaker == models.SpeakerCustomer {
			lines = append(lines, "Customer: "+u.Text)
		} else {
			lines = append(lines, "Agent: "+u.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// LastCompleteCustomerSentence returns the most recent customer utterance cut
// at its right-most sentence terminator. ok is false while that utterance is
// still in progress (no terminator yet) or no customer utterance exists.
func LastCompleteCustomerSentence(transcript string) (sentence string, ok bool) {
	utterances := ParseUtterances(transcript)

	var last *models.Utterance
	for i := len(utterances) - 1; i >= 0; i-- {
		if utterances[i].Speaker == models.SpeakerCustomer {
			last = &utterances[i]
			break
		}
	}
	if last == nil {
		return "", false
	}

	t := strings.TrimSpace(last.Text)
	end := -1
	for _, term := range []string{".", "!", "?"} {
		if i := strings.LastIndex(t, term); i > end {
			end = i
		}
	}
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(t[:end+1]), true
}

// Urgent vocabulary: medical, legal, and supervisor/escalation terms that
// warrant an immediate coaching update.
var urgentKeywords = []string{
	"medical",
	"medicine",
	"hospital",
	"doctor",
	"lawsuit",
	"lawyer",
	"legal",
	"attorney",
	"sue",
	"suing",
	"supervisor",
	"manager",
	"speak to a manager",
	"speak to your supervisor",
	"demand to speak",
	"escalate",
	"escalation",
	"complaint",
}

// HasUrgentKeywords reports whether text contains any urgent keyword,
// case-insensitive.
func HasUrgentKeywords(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

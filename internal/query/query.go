// Package query validates health questions before they reach a model and
// scores how urgent they sound.
package query

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinLength = 3
	MaxLength = 500
)

var (
	ErrEmptyQuery    = errors.New("query is empty")
	ErrQueryTooShort = errors.New("query is too short")
	ErrQueryTooLong  = errors.New("query is too long")
)

type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
)

// Query is a validated, normalised question.
type Query struct {
	Text          string   `json:"text"`
	HealthRelated bool     `json:"healthRelated"`
	Emergency     bool     `json:"emergency"`
	Urgency       Urgency  `json:"urgency"`
	UrgencyScore  int      `json:"urgencyScore"`
	Signals       []string `json:"signals,omitempty"`
}

// Reason returns a short label for a validation error, suitable for metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return "empty"
	case errors.Is(err, ErrQueryTooShort):
		return "too_short"
	case errors.Is(err, ErrQueryTooLong):
		return "too_long"
	default:
		return "other"
	}
}

// Validate normalises whitespace, enforces length limits and classifies the question.
func Validate(text string) (Query, error) {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return Query{}, ErrEmptyQuery
	}

	n := utf8.RuneCountInString(normalized)
	if n < MinLength {
		return Query{}, ErrQueryTooShort
	}
	if n > MaxLength {
		return Query{}, ErrQueryTooLong
	}

	lower := strings.ToLower(strings.ReplaceAll(normalized, "’", "'"))
	words := toSet(wordPattern.FindAllString(lower, -1))

	q := Query{
		Text:          normalized,
		HealthRelated: isHealthRelated(lower, words),
	}
	q.UrgencyScore, q.Signals = score(lower, words)
	q.Emergency = matchAny(lower, words, emergencyPhrases)
	q.Urgency = classifyUrgency(q.UrgencyScore)
	if q.Emergency {
		q.HealthRelated = true
	}
	return q, nil
}

var wordPattern = regexp.MustCompile(`[a-z][a-z']*`)

var emergencyPhrases = []string{
	"chest pain",
	"heart attack",
	"can't breathe",
	"cannot breathe",
	"can not breathe",
	"difficulty breathing",
	"trouble breathing",
	"not breathing",
	"suicide",
	"kill myself",
	"overdose",
	"stroke",
	"severe bleeding",
	"bleeding heavily",
	"unconscious",
	"passed out",
	"anaphylaxis",
	"seizure",
	"seizures",
	"choking",
}

var urgentTerms = []string{"severe", "sudden", "suddenly", "worst", "fainted", "fainting", "vomiting blood", "blood in", "high fever", "confusion"}

var concernTerms = []string{"persistent", "weeks", "months", "worsening", "getting worse", "chronic", "fever", "pain", "swelling", "infection"}

func score(lower string, words map[string]bool) (int, []string) {
	total := 1
	var signals []string

	for _, p := range emergencyPhrases {
		if matchTerm(lower, words, p) {
			total += 7
			signals = append(signals, p)
		}
	}
	for _, term := range urgentTerms {
		if matchTerm(lower, words, term) {
			total += 3
			signals = append(signals, term)
		}
	}
	for _, term := range concernTerms {
		if matchTerm(lower, words, term) {
			total++
			signals = append(signals, term)
		}
	}
	return total, signals
}

func classifyUrgency(score int) Urgency {
	switch {
	case score >= 8:
		return UrgencyHigh
	case score >= 4:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

var healthKeywords = []string{
	// symptoms
	"pain", "ache", "aches", "headache", "migraine", "fever", "cough", "cold", "flu", "nausea",
	"vomiting", "dizzy", "dizziness", "fatigue", "tired", "rash", "itch", "itchy", "swelling",
	"bleeding", "sore", "cramps", "diarrhea", "constipation", "insomnia", "anxiety", "stress",
	"depression", "symptom", "symptoms",
	// body
	"heart", "lung", "lungs", "liver", "kidney", "stomach", "skin", "throat", "back", "joint",
	"joints", "blood", "bone", "bones", "brain", "eye", "eyes", "ear", "teeth", "tooth", "chest",
	// conditions
	"diabetes", "asthma", "allergy", "allergies", "cancer", "infection", "virus", "covid",
	"hypertension", "pressure", "cholesterol", "arthritis", "obesity", "disease", "condition",
	"pregnancy", "pregnant", "injury", "sprain", "burn",
	// care
	"doctor", "medicine", "medication", "medications", "drug", "drugs", "dose", "dosage",
	"treatment", "therapy", "vaccine", "vaccination", "diet", "nutrition", "vitamin", "vitamins",
	"exercise", "sleep", "weight", "health", "healthy", "medical", "hospital", "clinic",
}

var healthPhrases = []string{"blood pressure", "mental health", "side effect", "first aid", "heart rate", "sore throat"}

func isHealthRelated(lower string, words map[string]bool) bool {
	for _, k := range healthKeywords {
		if words[k] {
			return true
		}
	}
	return containsAnyPhrase(lower, healthPhrases)
}

// matchTerm matches single words against the word set and phrases by substring.
func matchTerm(lower string, words map[string]bool, term string) bool {
	if strings.Contains(term, " ") {
		return strings.Contains(lower, term)
	}
	return words[term]
}

func matchAny(lower string, words map[string]bool, terms []string) bool {
	for _, t := range terms {
		if matchTerm(lower, words, t) {
			return true
		}
	}
	return false
}

func containsAnyPhrase(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			out[v] = true
		}
	}
	return out
}

package analysis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Skufu/Health-Info-Assistant/internal/query"
)

type Category string

const (
	CategoryOverview        Category = "overview"
	CategorySymptoms        Category = "symptoms"
	CategoryCauses          Category = "causes"
	CategoryTreatment       Category = "treatment"
	CategoryPrevention      Category = "prevention"
	CategoryWhenToSeeDoctor Category = "whenToSeeDoctor"
)

const Disclaimer = "This information is for educational purposes only and is not a substitute for " +
	"professional medical advice, diagnosis, or treatment. Always consult a qualified healthcare provider."

const (
	emergencyAdvisory = "If this is an emergency, call your local emergency number (such as 911 or 112) or go to the nearest emergency department now."
	offTopicAdvisory  = "I'm best at health and medical questions. Try asking about symptoms, conditions, treatments or healthy habits."
	fallbackNotice    = "The online medical assistant is temporarily unavailable, so this is general guidance."
)

type Section struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Found    bool     `json:"found"`
}

// Categories holds the six sections in display order.
type Categories struct {
	Sections []Section `json:"sections"`
	Found    int       `json:"found"`
}

// Get returns the section for cat.
func (c Categories) Get(cat Category) Section {
	for _, s := range c.Sections {
		if s.Category == cat {
			return s
		}
	}
	return Section{Category: cat}
}

// Complete reports whether every section header was found.
func (c Categories) Complete() bool {
	return c.Found == len(sectionRules)
}

// Input is a validated question together with the answer the chain produced.
type Input struct {
	Query    query.Query
	Answer   string
	Source   string
	Fallback bool
}

type Response struct {
	Query        string        `json:"query"`
	Urgency      query.Urgency `json:"urgency"`
	UrgencyScore int           `json:"urgencyScore"`
	Emergency    bool          `json:"emergency"`
	Advisories   []string      `json:"advisories,omitempty"`
	Answer       string        `json:"answer"`
	Source       string        `json:"source"`
	Fallback     bool          `json:"fallback"`
	Sections     []Section     `json:"sections"`
	Found        int           `json:"found"`
	Complete     bool          `json:"complete"`
	Disclaimer   string        `json:"disclaimer"`
}

// Analyze parses the answer into sections and attaches triage advisories.
func Analyze(in Input) Response {
	cats := Parse(in.Answer)

	var advisories []string
	if in.Query.Emergency {
		advisories = append(advisories, emergencyAdvisory)
	}
	if !in.Query.HealthRelated {
		advisories = append(advisories, offTopicAdvisory)
	}
	if in.Fallback && in.Source != "gemini" && in.Source != "groq" {
		advisories = append(advisories, fallbackNotice)
	}

	return Response{
		Query:        in.Query.Text,
		Urgency:      in.Query.Urgency,
		UrgencyScore: in.Query.UrgencyScore,
		Emergency:    in.Query.Emergency,
		Advisories:   advisories,
		Answer:       in.Answer,
		Source:       in.Source,
		Fallback:     in.Fallback,
		Sections:     cats.Sections,
		Found:        cats.Found,
		Complete:     cats.Complete(),
		Disclaimer:   Disclaimer,
	}
}

type sectionRule struct {
	category  Category
	title     string
	canonical *regexp.Regexp
	alias     *regexp.Regexp
	fallback  string
}

// headerPattern matches a header line for names: optional markdown heading,
// bold markers around an optional list number, an optional "of ..." or
// "for ..." qualifier, then either a colon or the end of the line.
func headerPattern(names string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*|__)?[ \t]*(?:\d+[.)][ \t]*)?(?:\*\*|__)?[ \t]*(?:` +
		names + `)(?:[ \t]+(?:of|for)[ \t]+[^\n:*.,]{1,40}?)?[ \t]*(?:\*\*|__)?[ \t]*(?::[ \t]*(?:\*\*|__)?|$)`)
}

func rule(cat Category, title, aliases, fallback string) sectionRule {
	return sectionRule{
		category:  cat,
		title:     title,
		canonical: headerPattern(regexp.QuoteMeta(title)),
		alias:     headerPattern(aliases),
		fallback:  fallback,
	}
}

// Titles double as the canonical headers the prompt asks models to use.
var sectionRules = []sectionRule{
	rule(CategoryOverview, "Overview",
		`description|summary|about (?:the|this) condition|what (?:is|are)[^\n:*]{0,60}?\??`,
		"No overview was provided for this question."),
	rule(CategorySymptoms, "Symptoms",
		`(?:common |key |possible )?(?:symptoms|signs and symptoms|signs & symptoms|signs)`,
		"Symptoms vary from person to person. Keep track of what you notice and share it with a healthcare professional."),
	rule(CategoryCauses, "Causes",
		`(?:common |possible )?(?:causes and risk factors|causes|risk factors|why it happens)`,
		"Causes differ between individuals. A healthcare professional can help identify what applies to you."),
	rule(CategoryTreatment, "Treatment",
		`treatment and management|treatment options|treatments?|management|home remedies|self[- ]care|how (?:it is|is it) treated`,
		"Treatment depends on the underlying cause. Please consult a healthcare professional for advice tailored to you."),
	rule(CategoryPrevention, "Prevention",
		`prevention tips|prevention|preventive measures|how to prevent[^\n:*]{0,40}`,
		"Balanced nutrition, regular activity and routine check-ups help prevent many health problems."),
	rule(CategoryWhenToSeeDoctor, "When to See a Doctor",
		`when to (?:see|consult|call|contact|visit) (?:a |your )?(?:doctor|physician|gp|healthcare (?:provider|professional))` +
			`|when to seek (?:medical )?(?:help|care|attention)|seek medical (?:help|attention|care)|red flags|warning signs`,
		"See a doctor if symptoms are severe, last more than a few days or get worse. Call emergency services right away for chest pain or trouble breathing."),
}

type headerMatch struct {
	rule  int
	start int
	end   int
}

// Parse splits free-form model output into the six categories. Canonical
// titles are matched first; aliases only claim sections still unmatched, so
// a sub-heading such as "Warning signs" cannot displace a real header. Each
// section runs from its header to the next recognised header. Sections whose
// header is missing get a default text; text before the first header becomes
// the overview when no overview header exists.
func Parse(text string) Categories {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var matches []headerMatch
	claimed := make(map[int]bool, len(sectionRules))
	for i, r := range sectionRules {
		if loc := firstHeader(r.canonical, text, matches); loc != nil {
			matches = append(matches, headerMatch{rule: i, start: loc[0], end: loc[1]})
			claimed[i] = true
		}
	}
	for i, r := range sectionRules {
		if claimed[i] {
			continue
		}
		if loc := firstHeader(r.alias, text, matches); loc != nil {
			matches = append(matches, headerMatch{rule: i, start: loc[0], end: loc[1]})
		}
	}
	sort.Slice(matches, func(a, b int) bool { return matches[a].start < matches[b].start })

	contents := make(map[int]string, len(matches))
	for i, m := range matches {
		stop := len(text)
		if i+1 < len(matches) {
			stop = matches[i+1].start
		}
		contents[m.rule] = normalizeContent(text[m.end:stop])
	}

	preamble := text
	if len(matches) > 0 {
		preamble = text[:matches[0].start]
	}
	preamble = normalizeContent(preamble)

	out := Categories{Sections: make([]Section, 0, len(sectionRules))}
	for i, r := range sectionRules {
		s := Section{Category: r.category, Title: r.title}
		if c, ok := contents[i]; ok {
			s.Found = true
			s.Content = c
			out.Found++
		}
		if s.Content == "" && r.category == CategoryOverview && preamble != "" {
			s.Content = preamble
		}
		if s.Content == "" {
			s.Content = r.fallback
		}
		out.Sections = append(out.Sections, s)
	}
	return out
}

// firstHeader returns the first match of re that does not overlap a header
// already claimed by another section.
func firstHeader(re *regexp.Regexp, text string, taken []headerMatch) []int {
	for _, loc := range re.FindAllStringIndex(text, -1) {
		overlap := false
		for _, m := range taken {
			if loc[0] < m.end && m.start < loc[1] {
				overlap = true
				break
			}
		}
		if !overlap {
			return loc
		}
	}
	return nil
}

var (
	bulletPattern = regexp.MustCompile(`^(?:[-*•+]|\d+[.)])[ \t]+`)
	boldPattern   = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
)

func normalizeContent(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false

		line = boldPattern.ReplaceAllString(line, "$1$2")
		if loc := bulletPattern.FindStringIndex(line); loc != nil {
			line = "- " + strings.TrimSpace(line[loc[1]:])
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

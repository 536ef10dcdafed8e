package extractor

import (
	"regexp"
	"strings"

	"theranotes-go/internal/ner"
)

// Rule is one candidate pattern for a field. Pattern has exactly one capture
// group; the captured text, trimmed, is the field value.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Chain is the ordered list of rules for one field plus the sentinel used
// when none of them matches. Rules are tried in declaration order and the
// first non-empty capture wins.
type Chain struct {
	Field    string
	Rules    []Rule
	NotFound string
}

// Match returns the first non-empty capture and the name of the rule that
// produced it.
func (c Chain) Match(text string) (value, rule string, ok bool) {
	for _, r := range c.Rules {
		m := r.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v, r.Name, true
		}
	}
	return "", "", false
}

// Apply returns the matched value or the chain's sentinel.
func (c Chain) Apply(text string) string {
	if v, _, ok := c.Match(text); ok {
		return v
	}
	return c.NotFound
}

func rule(name, pattern string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern)}
}

// Free-text field chains. All patterns are case-insensitive and let '.'
// cross line breaks.
var (
	GoalChain = Chain{
		Field: "goal",
		Rules: []Rule{
			rule("goal-was", `(?is)\bgoal.*?was\s+(.*?)(?:\.|$)`),
			rule("objective-was", `(?is)\bobjective.*?was\s+(.*?)(?:\.|$)`),
			rule("focus-was", `(?is)\bfocus.*?was\s+(.*?)(?:\.|$)`),
			rule("wanted-to", `(?is)\bwanted to\s+(.*?)(?:\.|$)`),
			rule("hoped-to", `(?is)\bhoped to\s+(.*?)(?:\.|$)`),
			rule("session-goal-colon", `(?is)\bsession goal.*?:\s*(.*?)(?:\.|$)`),
		},
		NotFound: GoalNotFound,
	}

	ContentChain = Chain{
		Field: "content",
		Rules: []Rule{
			rule("discussed", `(?is)\bdiscussed\s+(.*?)(?:\.|assessment|diagnosis|plan)`),
			rule("talked-about", `(?is)\btalked about\s+(.*?)(?:\.|assessment|diagnosis|plan)`),
			rule("covered", `(?is)\bcovered\s+(.*?)(?:\.|assessment|diagnosis|plan)`),
			rule("session-focused-on", `(?is)\bsession focused on\s+(.*?)(?:\.|assessment|diagnosis|plan)`),
		},
		NotFound: ContentNotFound,
	}

	AssessmentChain = Chain{
		Field: "assessment",
		Rules: []Rule{
			rule("assessment-colon", `(?is)\bassessment.*?:\s*(.*?)(?:\.|diagnosis|plan)`),
			rule("evaluated", `(?is)\bevaluated\s+(.*?)(?:\.|diagnosis|plan)`),
			rule("assessed", `(?is)\bassessed\s+(.*?)(?:\.|diagnosis|plan)`),
			rule("testing-colon", `(?is)\btesting.*?:\s*(.*?)(?:\.|diagnosis|plan)`),
			rule("evaluation-colon", `(?is)\bevaluation.*?:\s*(.*?)(?:\.|diagnosis|plan)`),
		},
		NotFound: AssessmentNotFound,
	}

	InterventionChain = Chain{
		Field: "intervention_response",
		Rules: []Rule{
			rule("intervention-colon", `(?is)\bintervention.*?:\s*(.*?)(?:\.|plan)`),
			rule("used", `(?is)\bused\s+(.*?)(?:\.|plan)`),
			rule("applied", `(?is)\bapplied\s+(.*?)(?:\.|plan)`),
			rule("implemented", `(?is)\bimplemented\s+(.*?)(?:\.|plan)`),
			rule("client-responded", `(?is)\bclient responded\s+(.*?)(?:\.|plan)`),
			rule("response-was", `(?is)\bresponse was\s+(.*?)(?:\.|plan)`),
		},
		NotFound: InterventionNotFound,
	}

	PlanChain = Chain{
		Field: "plan",
		Rules: []Rule{
			rule("plan-colon", `(?is)\bplan.*?:\s*(.*?)(?:\.|$)`),
			rule("next-steps-colon", `(?is)\bnext steps.*?:\s*(.*?)(?:\.|$)`),
			rule("homework-colon", `(?is)\bhomework.*?:\s*(.*?)(?:\.|$)`),
			rule("follow-up-colon", `(?is)\bfollow up.*?:\s*(.*?)(?:\.|$)`),
			rule("continue-colon", `(?is)\bcontinue.*?:\s*(.*?)(?:\.|$)`),
			rule("plan-to", `(?is)\bplan(?:\s+is|\s+was)?\s+to\s+(.*?)(?:\.|$)`),
			rule("work-on", `(?is)\bwork on\s+(.*?)(?:\.|$)`),
		},
		NotFound: PlanNotFound,
	}
)

// Lexical fallbacks for the recognizer-first fields.
var (
	ClientNameChain = Chain{
		Field: "client_name",
		Rules: []Rule{
			rule("client-word", `(?i)\bclient\s+(\w+)\s+`),
			rule("patient-word", `(?i)\bpatient\s+(\w+)\s+`),
			rule("word-is-client", `(?i)\b(\w+)\s+is\s+(?:the\s+)?client\b`),
			rule("word-is-patient", `(?i)\b(\w+)\s+is\s+(?:the\s+)?patient\b`),
		},
		NotFound: ClientNameNotFound,
	}

	SessionDateChain = Chain{
		Field: "session_date",
		Rules: []Rule{
			rule("session-on", `(?i)\bsession\s+on\s+(`+monthDayYear+`|`+slashDate+`|`+isoDate+`)`),
			rule("month-day-year", `(?i)\b(`+monthDayYear+`)`),
			rule("slash-date", `\b(`+slashDate+`)\b`),
			rule("iso-date", `\b(`+isoDate+`)\b`),
		},
		NotFound: SessionDateNotFound,
	}
)

const (
	monthDayYear = ner.MonthDayYear
	slashDate    = ner.SlashDate
	isoDate      = ner.ISODate
)

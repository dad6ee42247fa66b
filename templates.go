package jsaudit

import "fmt"

// DefaultMaxChunkSize is the largest script, in characters, analyzed in one call.
const DefaultMaxChunkSize = 15000

// ReportSeparator joins partial reports in the summary prompt.
const ReportSeparator = "\n\n==================== NEXT CHUNK REPORT ====================\n\n"

// Templates holds the prompts used by the Analyzer.
type Templates struct {
	WholeDocument     PromptTemplate // Whole script, and the first chunk of a split script
	ChunkContinuation PromptTemplate // Chunks 2..N
	Summary           PromptTemplate // Synthesis over partial reports
}

// templateRule lists the placeholders a template must and may use.
type templateRule struct {
	field    string
	required string
	allowed  []string
}

var (
	wholeDocumentRule = templateRule{
		field:    "prompts.whole_document",
		required: PlaceholderCode,
		allowed:  []string{PlaceholderCode, PlaceholderOrigin},
	}
	chunkContinuationRule = templateRule{
		field:    "prompts.chunk_continuation",
		required: PlaceholderCode,
		allowed:  []string{PlaceholderCode, PlaceholderOrigin, PlaceholderIndex, PlaceholderTotal},
	}
	summaryRule = templateRule{
		field:    "prompts.summary",
		required: PlaceholderReports,
		allowed:  []string{PlaceholderReports, PlaceholderOrigin, PlaceholderTotal},
	}
)

// Validate checks that every template is well formed, uses its required
// placeholder, and references only placeholders the Analyzer binds.
func (t Templates) Validate() error {
	if err := validateTemplate(t.WholeDocument, wholeDocumentRule); err != nil {
		return err
	}
	if err := validateTemplate(t.ChunkContinuation, chunkContinuationRule); err != nil {
		return err
	}
	return validateTemplate(t.Summary, summaryRule)
}

func validateTemplate(t PromptTemplate, rule templateRule) error {
	if t == "" {
		return &ConfigError{Field: rule.field, Reason: "template is empty"}
	}
	names, err := t.Placeholders()
	if err != nil {
		return &ConfigError{Field: rule.field, Reason: "malformed template", Err: err}
	}

	allowed := make(map[string]bool, len(rule.allowed))
	for _, name := range rule.allowed {
		allowed[name] = true
	}
	var hasRequired bool
	for _, name := range names {
		if !allowed[name] {
			return &ConfigError{
				Field:  rule.field,
				Reason: fmt.Sprintf("unknown placeholder {%s}", name),
				Err:    &MissingPlaceholderError{Name: name},
			}
		}
		if name == rule.required {
			hasRequired = true
		}
	}
	if !hasRequired {
		return &ConfigError{Field: rule.field, Reason: fmt.Sprintf("template must contain {%s}", rule.required)}
	}
	return nil
}

// DefaultTemplates returns the built-in security analysis prompts.
func DefaultTemplates() Templates {
	return Templates{
		WholeDocument:     defaultWholeDocument,
		ChunkContinuation: defaultChunkContinuation,
		Summary:           defaultSummary,
	}
}

const defaultWholeDocument PromptTemplate = `You are an experienced web application security auditor. Analyze the following JavaScript file loaded from {origin}.

Report, with code excerpts where possible:
1. Hard-coded secrets: API keys, tokens, credentials, private endpoints.
2. API endpoints and internal routes, including parameters they accept.
3. DOM-based XSS sinks (innerHTML, document.write, eval, setTimeout with strings) and the sources that reach them.
4. Insecure client-side logic: authorization checks, weak crypto, postMessage handlers without origin checks.
5. Third-party libraries and versions with known vulnerabilities.

If nothing notable is found in a category, say so briefly.

JavaScript:
` + "```javascript\n{code}\n```\n"

const defaultChunkContinuation PromptTemplate = `You are an experienced web application security auditor. The following is fragment {index} of {total} of a JavaScript file loaded from {origin}. It continues the previous fragment and may start or end in the middle of a statement; do not report truncation itself as an issue.

Report hard-coded secrets, API endpoints, DOM XSS sinks and sources, insecure client-side logic and vulnerable libraries visible in this fragment, with code excerpts.

JavaScript fragment:
` + "```javascript\n{code}\n```\n"

const defaultSummary PromptTemplate = `You are an experienced web application security auditor. The JavaScript file loaded from {origin} was too large to analyze at once, so it was split into {total} fragments that were analyzed separately. The separate analyses follow, in file order, divided by separator lines.

Merge them into one coherent security report: remove duplicates, connect findings that span fragment boundaries, order findings by severity, and end with a short list of recommended next steps for a penetration tester.

Fragment analyses:

{reports}
`

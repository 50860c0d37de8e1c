// Package generate synthesizes llms.txt markdown from a crawled page set.
// Format reference: https://llmstxt.org/
package generate

import (
	"net/url"
	"strings"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

// Options controls document synthesis.
type Options struct {
	// SiteName overrides the H1 title when set.
	SiteName string
	// Summary overrides the homepage-derived blockquote when set.
	Summary string
	// RootURL identifies the homepage within the page set and is the
	// final title fallback.
	RootURL string
	// DefaultSection names the section holding root-level pages.
	// Defaults to "Main".
	DefaultSection string
}

// localeLike path segments are skipped when inferring a section key, so
// /en/docs and /de/docs both land in Docs.
var localeLike = map[string]struct{}{
	"en": {}, "de": {}, "fr": {}, "es": {}, "it": {}, "pt": {}, "ja": {},
	"zh": {}, "ko": {}, "nl": {}, "pl": {}, "ru": {}, "tr": {},
	"en-us": {}, "en-gb": {}, "es-mx": {}, "pt-br": {}, "zh-cn": {},
	"zh-tw": {}, "en-au": {}, "en-in": {},
}

// optionalSegments route a page into the trailing "Optional" section.
var optionalSegments = map[string]struct{}{
	"legal": {}, "privacy": {}, "terms": {}, "cookies": {}, "cookie": {}, "optional": {},
}

const optionalSection = "Optional"

// Generate produces the llms.txt document for a page set. Output is
// deterministic: pages keep their discovery order within each section,
// and no wall-clock content is embedded (the generation timestamp lives
// on the stored document row, not in the body). An empty page set still
// yields a minimal valid document with just the title line.
func Generate(pages []site.PageInfo, opts Options) string {
	if opts.DefaultSection == "" {
		opts.DefaultSection = "Main"
	}

	title, summary := headerFor(pages, opts)

	groups := make(map[string][]site.PageInfo)
	var sectionOrder []string
	for _, p := range pages {
		section := sectionFor(p.URL, opts.DefaultSection)
		if _, ok := groups[section]; !ok {
			sectionOrder = append(sectionOrder, section)
		}
		groups[section] = append(groups[section], p)
	}

	var b strings.Builder
	b.WriteString("# " + title + "\n")
	if summary != "" {
		b.WriteString("\n> " + summary + "\n")
	}
	for _, section := range orderSections(sectionOrder, opts.DefaultSection) {
		b.WriteString("\n## " + section + "\n\n")
		for _, p := range groups[section] {
			text := strings.TrimSpace(p.Title)
			if text == "" {
				text = p.URL
			}
			desc := strings.TrimSpace(p.Description)
			if desc != "" {
				b.WriteString("- [" + escapeMarkdown(text) + "](" + p.URL + "): " + escapeMarkdown(desc) + "\n")
			} else {
				b.WriteString("- [" + escapeMarkdown(text) + "](" + p.URL + ")\n")
			}
		}
	}
	return b.String()
}

// headerFor picks the H1 title and summary blockquote: explicit options
// first, then the homepage's title and description, then the root URL.
func headerFor(pages []site.PageInfo, opts Options) (string, string) {
	title := strings.TrimSpace(opts.SiteName)
	summary := strings.TrimSpace(opts.Summary)
	if title != "" && summary != "" {
		return title, summary
	}

	home := findHomepage(pages, opts.RootURL)
	if title == "" {
		title = strings.TrimSpace(home.Title)
	}
	if title == "" {
		title = opts.RootURL
	}
	if title == "" {
		title = "Site"
	}
	if summary == "" {
		summary = strings.TrimSpace(home.Description)
	}
	return title, summary
}

func findHomepage(pages []site.PageInfo, rootURL string) site.PageInfo {
	if len(pages) == 0 {
		return site.PageInfo{}
	}
	root := strings.TrimRight(rootURL, "/")
	if root != "" {
		for _, p := range pages {
			if strings.TrimRight(p.URL, "/") == root {
				return p
			}
		}
	}
	return pages[0]
}

// sectionFor infers a section title from the first meaningful path
// segment, grouping legal-ish pages under Optional and segmentless pages
// under the default section.
func sectionFor(pageURL, defaultSection string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return defaultSection
	}
	segments := pathSegments(u.Path)
	if len(segments) == 0 {
		return defaultSection
	}
	for _, seg := range segments {
		if _, ok := optionalSegments[seg]; ok {
			return optionalSection
		}
	}
	for _, seg := range segments {
		if _, ok := localeLike[seg]; ok {
			continue
		}
		if len(seg) <= 30 && isAlnumWithDashes(seg) {
			return sectionTitle(seg)
		}
	}
	return defaultSection
}

func pathSegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" {
			out = append(out, strings.ToLower(seg))
		}
	}
	return out
}

func isAlnumWithDashes(s string) bool {
	for _, r := range s {
		if r == '-' {
			continue
		}
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return s != "" && strings.Trim(s, "-") != ""
}

// sectionTitle turns a path segment into an H2 title: "release-notes"
// becomes "Release Notes".
func sectionTitle(key string) string {
	words := strings.Split(key, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// orderSections puts the default section first, the rest alphabetically,
// and Optional last.
func orderSections(sections []string, defaultSection string) []string {
	var rest []string
	hasDefault := false
	hasOptional := false
	for _, s := range sections {
		switch s {
		case defaultSection:
			hasDefault = true
		case optionalSection:
			hasOptional = true
		default:
			rest = append(rest, s)
		}
	}
	for i := 1; i < len(rest); i++ {
		for j := i; j > 0 && strings.ToLower(rest[j]) < strings.ToLower(rest[j-1]); j-- {
			rest[j], rest[j-1] = rest[j-1], rest[j]
		}
	}

	ordered := make([]string, 0, len(sections))
	if hasDefault {
		ordered = append(ordered, defaultSection)
	}
	ordered = append(ordered, rest...)
	if hasOptional {
		ordered = append(ordered, optionalSection)
	}
	return ordered
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "[", `\[`)
	return strings.ReplaceAll(s, "]", `\]`)
}

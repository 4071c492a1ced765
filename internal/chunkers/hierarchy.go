package chunkers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// DefaultMaxSectionSize is the default threshold above which a section is
// split at paragraph boundaries.
const DefaultMaxSectionSize = 2000

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Hierarchy chunks markdown by heading structure. Content between headings
// is attributed to the current heading path ("A > B > C") using standard
// outline semantics: a new heading pops every stack entry whose level is
// greater than or equal to its own.
type Hierarchy struct{}

// NewHierarchy creates the hierarchy strategy.
func NewHierarchy() *Hierarchy { return &Hierarchy{} }

// Name returns the registry key.
func (h *Hierarchy) Name() string { return "hierarchy_v1" }

// Version returns the strategy version.
func (h *Hierarchy) Version() string { return Version }

type headingFrame struct {
	level int
	text  string
}

// Chunk walks the document line by line, flushing accumulated section
// content whenever a heading is encountered. Oversize sections are further
// split at paragraph boundaries; each emitted chunk is optionally prefixed
// with its heading-path context.
func (h *Hierarchy) Chunk(_ context.Context, text string, cfg Config) (domain.ChunkResult, error) {
	maxSize := cfg.Int("max_chunk_size", DefaultMaxSectionSize)
	includePath := cfg.Bool("include_path", true)
	if maxSize < 1 {
		return domain.ChunkResult{}, domain.ErrInvalidConfig
	}

	var contents []string
	var stack []headingFrame
	var section []string

	flush := func() {
		sectionText := strings.TrimSpace(strings.Join(section, "\n"))
		section = nil
		if sectionText == "" {
			return
		}

		parts := make([]string, 0, len(stack))
		for _, f := range stack {
			parts = append(parts, f.text)
		}
		path := strings.Join(parts, " > ")

		emit := func(body string) {
			if includePath && path != "" {
				body = fmt.Sprintf("Context: %s\n\n%s", path, body)
			}
			contents = append(contents, body)
		}

		if len(sectionText) <= maxSize {
			emit(sectionText)
			return
		}

		// Oversize section: regroup paragraphs under the size limit.
		var sub []string
		subLen := 0
		for _, para := range strings.Split(sectionText, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			if subLen+len(para) > maxSize && len(sub) > 0 {
				emit(strings.Join(sub, "\n\n"))
				sub = nil
				subLen = 0
			}
			sub = append(sub, para)
			subLen += len(para)
		}
		if len(sub) > 0 {
			emit(strings.Join(sub, "\n\n"))
		}
	}

	for _, line := range strings.Split(text, "\n") {
		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			section = append(section, line)
			continue
		}

		flush()

		level := len(m[1])
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, headingFrame{level: level, text: strings.TrimSpace(m[2])})
	}
	flush()

	return result(contents), nil
}

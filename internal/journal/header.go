package journal

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingHeader indicates the journal did not start with a YAML fence.
	ErrMissingHeader = errors.New("journal: missing branch header")
	// ErrMalformedHeader indicates the YAML block could not be parsed.
	ErrMalformedHeader = errors.New("journal: malformed branch header")
)

// ConclusionSentinel is the conclusion value a branch carries until it is
// merged.
const ConclusionSentinel = "_not yet merged_"

// Header is the metadata block at the top of a non-main branch journal.
// main's journal is header-less.
type Header struct {
	Branch     string `yaml:"branch"`
	Purpose    string `yaml:"purpose"`
	Hypothesis string `yaml:"hypothesis"`
	Findings   string `yaml:"findings,omitempty"`
	Conclusion string `yaml:"conclusion"`
	Created    string `yaml:"created"`
}

// ParseHeader extracts the header block and body from a journal that starts
// with `---` YAML fences.
func ParseHeader(content []byte) (Header, []byte, error) {
	if len(content) == 0 {
		return Header{}, nil, ErrMissingHeader
	}
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Header{}, nil, ErrMissingHeader
	}
	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return Header{}, nil, ErrMalformedHeader
	}
	var header Header
	if err := yaml.Unmarshal(parts[0], &header); err != nil {
		return Header{}, nil, fmt.Errorf("journal: parse branch header: %w", err)
	}
	if header.Branch == "" {
		return Header{}, nil, ErrMalformedHeader
	}
	return header, parts[1], nil
}

// WriteHeader renders header + body with YAML fences.
func WriteHeader(header Header, body []byte) ([]byte, error) {
	if header.Branch == "" {
		return nil, fmt.Errorf("journal: header missing branch name")
	}
	if header.Conclusion == "" {
		header.Conclusion = ConclusionSentinel
	}
	data, err := yaml.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("journal: encode branch header: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(bytes.TrimLeft(body, "\n"))
	return buf.Bytes(), nil
}

// BranchTemplate renders a fresh non-main branch journal: header, title
// line, and the empty milestone journal anchor.
func BranchTemplate(header Header) (string, error) {
	body := fmt.Sprintf("# Branch: %s\n\n%s\n", header.Branch, Anchor)
	content, err := WriteHeader(header, []byte(body))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// MainTemplate renders the header-less main journal.
func MainTemplate() string {
	return fmt.Sprintf("# Journal: main\n\n%s\n", Anchor)
}

// PatchConclusion sets the header's conclusion field, replacing the
// unfilled sentinel, and re-renders the full journal.
func PatchConclusion(content []byte, conclusion string) ([]byte, error) {
	header, body, err := ParseHeader(content)
	if err != nil {
		return nil, err
	}
	header.Conclusion = conclusion
	return WriteHeader(header, body)
}

func normalizeNewlines(content []byte) []byte {
	if !bytes.Contains(content, []byte("\r")) {
		return content
	}
	out := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(out, []byte("\r"), []byte("\n"))
}

// HeaderText renders just the purpose/hypothesis/conclusion lines for the
// context reader's level 3 output.
func (h Header) HeaderText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Purpose: %s\n", h.Purpose)
	fmt.Fprintf(&b, "Hypothesis: %s\n", h.Hypothesis)
	if h.Findings != "" {
		fmt.Fprintf(&b, "Findings: %s\n", h.Findings)
	}
	fmt.Fprintf(&b, "Conclusion: %s\n", h.Conclusion)
	return b.String()
}

package errtree

import (
	"regexp"
	"strings"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

// Options configure how a walk result is rendered. One formatter serves
// every consumer; callers differ only in these knobs.
type Options struct {
	HTMLTags     bool     `yaml:"htmlTags" json:"htmlTags"`
	IgnoredTasks []string `yaml:"ignoredTasks" json:"ignoredTasks"`
	Header       string   `yaml:"header" json:"header"`
}

// Format renders a walk result as one three-line block per failure (task,
// execution ID, message), joined by <br> or newline depending on HTMLTags.
// An empty string means no actionable failure was found.
func Format(res *Result, opts Options) string {
	br := "\n"
	if opts.HTMLTags {
		br = "<br>"
	}

	var b strings.Builder
	if opts.Header != "" {
		b.WriteString(opts.Header)
		b.WriteString(br)
	}

	switch {
	case len(res.Leaves) > 0:
		for _, e := range res.Leaves {
			writeBlock(&b, e.TaskName(), e.ID, Normalize(Message(e.Result), opts.HTMLTags), br)
		}
	case res.Parent != nil:
		msg := res.Custom
		if msg == "" {
			msg = Message(res.Parent.Result)
		}
		writeBlock(&b, res.Parent.TaskName(), res.Parent.ID, Normalize(msg, opts.HTMLTags), br)
	default:
		return ""
	}
	return b.String()
}

func writeBlock(b *strings.Builder, task, execID, msg, br string) {
	if task == "" {
		// Not a workflow task; there is no task context worth printing.
		b.WriteString(msg)
		b.WriteString(br)
		return
	}
	b.WriteString("Error task: ")
	b.WriteString(task)
	b.WriteString(br)
	b.WriteString("Error execution ID: ")
	b.WriteString(execID)
	b.WriteString(br)
	b.WriteString("Error message: ")
	b.WriteString(msg)
	b.WriteString(br)
}

// Normalize cleans an extracted message: literal escape sequences are decoded
// until none remain, ANSI color codes are stripped, and in HTML mode real
// newlines become <br> so line breaks survive rendering.
func Normalize(s string, html bool) string {
	for strings.Contains(s, `\n`) {
		s = unescape(s)
	}
	s = ansiEscape.ReplaceAllString(s, "")
	if html {
		s = strings.ReplaceAll(s, "\n", "<br>")
	}
	return s
}

// unescape decodes one layer of backslash escapes. Unknown escapes are kept
// verbatim.
func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

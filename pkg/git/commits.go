package git

import (
	"sort"
	"strings"
)

// Change types for conventional commit messages.
const (
	ChangeFeat  = "feat"
	ChangeFix   = "fix"
	ChangeDocs  = "docs"
	ChangeChore = "chore"
)

// Footer marks commits written by the CMS.
const Footer = "Edited-with: Sparti"

// FormatChangeReason builds a conventional commit message:
//
//	<type>(<scope>): <subject>
//
//	<body>
//
//	Edited-with: Sparti
func FormatChangeReason(ctype, scope, subject, body string) string {
	var sb strings.Builder

	if ctype == "" {
		ctype = ChangeChore
	}
	sb.WriteString(ctype)

	if scope != "" {
		sb.WriteString("(")
		sb.WriteString(scope)
		sb.WriteString(")")
	}

	sb.WriteString(": ")
	sb.WriteString(subject)

	if body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(body))
	}

	sb.WriteString("\n\n")
	sb.WriteString(Footer)

	return sb.String()
}

// DescribeFields renders the changed field names of an edit as a commit
// subject, e.g. "update title, menu".
func DescribeFields(fields []string) string {
	if len(fields) == 0 {
		return "save"
	}
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return "update " + strings.Join(sorted, ", ")
}

// AppendFooter appends the footer to a free-form message if not present.
func AppendFooter(msg string) string {
	if strings.Contains(msg, Footer) {
		return msg
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	if !strings.HasSuffix(msg, "\n\n") {
		msg += "\n"
	}
	return msg + Footer
}

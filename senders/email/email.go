package email

import (
	_ "embed"
	"fmt"
	"html/template"
	"regexp"
	"strings"
)

var (
	//go:embed change.html
	changeHTML     string
	changeTemplate = template.Must(template.New("change.html").Parse(changeHTML))

	markdownLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	markdownBold = regexp.MustCompile(`\*\*([^*]*)\*\*`)
)

func mustFillTemplate(tmpl *template.Template, values any) string {
	buf := new(strings.Builder)
	err := tmpl.Execute(buf, values)
	if err != nil {
		return ""
	}
	return buf.String()
}

// ChangeEmailFormat renders one chat-formatted change message as an email.
type ChangeEmailFormat struct {
	Target  string
	Title   string
	Message string
}

// Line is one rendered line of the message.
type Line struct {
	Bold     string
	Text     string
	LinkText string
	LinkURL  string
}

func (ef *ChangeEmailFormat) Subject() string {
	if ef.Title != "" {
		return fmt.Sprintf("Listingwatch: %s", ef.Title)
	}
	return "Listingwatch: inventory changed"
}

func (ef *ChangeEmailFormat) Body() string {
	return mustFillTemplate(changeTemplate, ef)
}

// Lines splits the message and picks out the bold name and link so the
// template can escape every piece separately.
func (ef *ChangeEmailFormat) Lines() []Line {
	raw := strings.Split(ef.Message, "\n")
	lines := make([]Line, 0, len(raw))
	for _, s := range raw {
		var line Line
		if m := markdownLink.FindStringSubmatch(s); m != nil {
			line.LinkText, line.LinkURL = m[1], m[2]
			s = strings.Replace(s, m[0], "", 1)
		}
		if m := markdownBold.FindStringSubmatch(s); m != nil {
			line.Bold = m[1]
			s = strings.Replace(s, m[0], "", 1)
		}
		line.Text = strings.TrimSpace(s)
		lines = append(lines, line)
	}
	return lines
}

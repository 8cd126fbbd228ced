package extract

import (
	"os"
	"regexp"
	"strings"
)

// headerLinePattern matches ATX headers: # Title ... ###### Title.
var headerLinePattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// extractMarkdown implements the Markdown extractor: split by
// header hierarchy, each block carrying its header_path.
func extractMarkdown(path string) ([]Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	lines := strings.Split(content, "\n")
	headerStack := make([]string, 6)

	var units []Unit
	var currentPath []string
	var body strings.Builder

	flush := func() {
		text := strings.TrimSpace(body.String())
		if text != "" {
			units = append(units, Unit{Text: text, HeaderPath: append([]string(nil), currentPath...)})
		}
		body.Reset()
	}

	for _, line := range lines {
		if m := headerLinePattern.FindStringSubmatch(line); m != nil {
			flush()

			level := len(m[1])
			title := strings.TrimSpace(m[2])
			headerStack[level-1] = title
			for i := level; i < len(headerStack); i++ {
				headerStack[i] = ""
			}

			var pathParts []string
			for _, h := range headerStack[:level] {
				if h != "" {
					pathParts = append(pathParts, h)
				}
			}
			currentPath = pathParts
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return units, nil
}

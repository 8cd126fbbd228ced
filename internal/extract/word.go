package extract

import (
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// paragraphPattern matches one paragraph in WordprocessingML, pStylePattern
// its optional heading style, e.g. <w:pStyle w:val="Heading2"/>, and
// textRunPattern each of its text runs. docx's
// GetContent returns the raw document.xml; parsing the handful of tags
// this needs with targeted regexes is simpler and more robust to the
// namespace-prefix variation real documents use than a full encoding/xml
// struct for WordprocessingML's notoriously verbose schema.
var (
	paragraphPattern = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	pStylePattern = regexp.MustCompile(`<w:pStyle w:val="(Heading\d)"`)
	textRunPattern = regexp.MustCompile(`<w:t[^>]*>(.*?)</w:t>`)
)

// extractWord implements the Word extractor: paragraphs tagged
// with a running header_path built from Heading levels 1-4.
func extractWord(path string) ([]Unit, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	xmlContent := r.Editable().GetContent()

	var units []Unit
	headerStack := make([]string, 4)

	for _, p := range paragraphPattern.FindAllString(xmlContent, -1) {
		text := paragraphText(p)
		if strings.TrimSpace(text) == "" {
			continue
		}

		if level, ok := headingLevel(p); ok && level <= len(headerStack) {
			headerStack[level-1] = text
			for i := level; i < len(headerStack); i++ {
				headerStack[i] = ""
			}
			continue
		}

		units = append(units, Unit{
			Text: text,
			HeaderPath: currentHeaderPath(headerStack),
		})
	}
	return units, nil
}

func headingLevel(paragraphXML string) (int, bool) {
	m := pStylePattern.FindStringSubmatch(paragraphXML)
	if m == nil {
		return 0, false
	}
	switch m[1] {
	case "Heading1":
		return 1, true
	case "Heading2":
		return 2, true
	case "Heading3":
		return 3, true
	case "Heading4":
		return 4, true
	default:
		return 0, false
	}
}

func paragraphText(paragraphXML string) string {
	var b strings.Builder
	for _, m := range textRunPattern.FindAllStringSubmatch(paragraphXML, -1) {
		b.WriteString(unescapeXMLEntities(m[1]))
	}
	return b.String()
}

func currentHeaderPath(stack []string) []string {
	var path []string
	for _, h := range stack {
		if h != "" {
			path = append(path, h)
		}
	}
	return path
}

func unescapeXMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// pptx has no pack-grounded third-party library (none of the example
// repos import one), so this extractor is built directly on
// archive/zip + encoding/xml — a .pptx is itself a zip of XML parts, and
// the stdlib covers both completely. This is the one extractor in this
// package that is deliberately stdlib-only.

type slideShapeTree struct {
	XMLName xml.Name `xml:"sld"`
	CSld slideCSld `xml:"cSld"`
}

type slideCSld struct {
	SpTree slideSpTree `xml:"spTree"`
}

type slideSpTree struct {
	Shapes []slideShape `xml:"sp"`
}

type slideShape struct {
	NvSpPr slideNvSpPr `xml:"nvSpPr"`
	TxBody slideTxBody `xml:"txBody"`
}

type slideNvSpPr struct {
	NvPr slideNvPr `xml:"nvPr"`
}

type slideNvPr struct {
	PH slidePlaceholder `xml:"ph"`
}

type slidePlaceholder struct {
	Type string `xml:"type,attr"`
}

type slideTxBody struct {
	Paragraphs []slideParagraph `xml:"p"`
}

type slideParagraph struct {
	Runs []slideRun `xml:"r"`
}

type slideRun struct {
	Text string `xml:"t"`
}

// extractPPTX implements the PowerPoint extractor: per slide,
// {slide_number, slide_title, body_text}, body concatenating all text
// boxes with the title prepended.
func extractPPTX(path_ string) ([]Unit, error) {
	zr, err := zip.OpenReader(path_)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	slideFiles := make(map[int]*zip.File)
	for _, f := range zr.File {
		dir, base := path.Split(f.Name)
		if dir != "ppt/slides/" {
			continue
		}
		if !strings.HasPrefix(base, "slide") || !strings.HasSuffix(base, ".xml") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(base, "slide"), ".xml")
		n, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		slideFiles[n] = f
	}

	numbers := make([]int, 0, len(slideFiles))
	for n := range slideFiles {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	units := make([]Unit, 0, len(numbers))
	for _, n := range numbers {
		title, body, err := readSlide(slideFiles[n])
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", n, err)
		}
		text := body
		if title != "" {
			text = title + "\n" + body
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		units = append(units, Unit{
			Text: text,
			Slide: n,
			SlideTitle: title,
		})
	}
	return units, nil
}

func readSlide(f *zip.File) (title string, body string, err error) {
	rc, err := f.Open()
	if err != nil {
		return "", "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", "", err
	}

	var sld slideShapeTree
	if err := xml.Unmarshal(data, &sld); err != nil {
		return "", "", err
	}

	var bodyParts []string
	for _, shape := range sld.CSld.SpTree.Shapes {
		text := shapeText(shape)
		if text == "" {
			continue
		}
		if isTitlePlaceholder(shape.NvSpPr.NvPr.PH.Type) && title == "" {
			title = text
			continue
		}
		bodyParts = append(bodyParts, text)
	}
	return title, strings.Join(bodyParts, "\n"), nil
}

func shapeText(shape slideShape) string {
	var paras []string
	for _, p := range shape.TxBody.Paragraphs {
		var runs []string
		for _, r := range p.Runs {
			if r.Text != "" {
				runs = append(runs, r.Text)
			}
		}
		if len(runs) > 0 {
			paras = append(paras, strings.Join(runs, ""))
		}
	}
	return strings.Join(paras, "\n")
}

func isTitlePlaceholder(phType string) bool {
	return phType == "title" || phType == "ctrTitle"
}

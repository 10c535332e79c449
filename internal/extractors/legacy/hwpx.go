package legacy

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

var hwpxSectionPattern = regexp.MustCompile(`^Contents/section(\d+)\.xml$`)

// hwpxStrategy parses the OOXML-style .hwpx container: a zip whose
// Contents/section*.xml files carry paragraph text in hp:t elements.
// Legacy binary .hwp files are not zips and fail fast here, passing
// control to the next strategy.
func hwpxStrategy(_ context.Context, content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("not an hwpx container: %w", err)
	}

	type section struct {
		num  int
		file *zip.File
	}
	var sections []section
	for _, f := range zr.File {
		m := hwpxSectionPattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		sections = append(sections, section{num: n, file: f})
	}
	if len(sections) == 0 {
		return "", fmt.Errorf("no content sections in hwpx container")
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].num < sections[j].num })

	var parts []string
	for _, s := range sections {
		text, err := hwpxSectionText(s.file)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// hwpxSectionText streams one section's XML and collects the character
// data of every t element, one line per paragraph.
func hwpxSectionText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("hwpx section %s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "p":
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

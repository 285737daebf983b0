package xlsx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klytics/sheetlens/internal/workbook"
)

// packageIndex holds per-sheet facts read straight from the OOXML parts,
// for the things excelize does not expose: chart and image presence and
// sheet protection flags.
type packageIndex struct {
	sheets map[string]sheetPart
}

type sheetPart struct {
	path       string
	charts     int
	images     int
	protection workbook.Protection
}

type xlsxWorkbookSheets struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Relationships []xlsxRelationship `xml:"Relationship"`
}

type xlsxRelationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

func indexPackage(filePath string) (*packageIndex, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open package %s: %w", filePath, err)
	}
	defer zr.Close()

	return indexZip(&zr.Reader)
}

func indexZip(zr *zip.Reader) (*packageIndex, error) {
	files := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		files[strings.TrimPrefix(zf.Name, "/")] = zf
	}

	idx := &packageIndex{sheets: make(map[string]sheetPart)}

	var wb xlsxWorkbookSheets
	if err := readXML(files, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	wbRels, err := readRels(files, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}

	for _, s := range wb.Sheets {
		rel, ok := wbRels[s.RID]
		if !ok {
			continue
		}
		part := sheetPart{path: resolveTarget("xl", rel.Target)}

		sheetRels, err := readRels(files, part.path)
		if err != nil {
			return nil, err
		}
		for _, r := range sheetRels {
			switch relType(r.Type) {
			case "drawing":
				charts, images, err := countDrawing(files, resolveTarget(path.Dir(part.path), r.Target))
				if err != nil {
					return nil, err
				}
				part.charts += charts
				part.images += images
			case "image":
				part.images++
			}
		}

		if zf, ok := files[part.path]; ok {
			prot, err := readProtection(zf)
			if err != nil {
				return nil, fmt.Errorf("could not read protection of sheet %q: %w", s.Name, err)
			}
			part.protection = prot
		}

		idx.sheets[s.Name] = part
	}
	return idx, nil
}

func countDrawing(files map[string]*zip.File, drawingPath string) (charts, images int, err error) {
	rels, err := readRels(files, drawingPath)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rels {
		switch relType(r.Type) {
		case "chart":
			charts++
		case "image":
			images++
		}
	}
	return charts, images, nil
}

// readProtection scans a worksheet part for its sheetProtection element.
// sheetData is skipped without building cells.
func readProtection(zf *zip.File) (workbook.Protection, error) {
	var prot workbook.Protection

	rc, err := zf.Open()
	if err != nil {
		return prot, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return prot, nil
		}
		if err != nil {
			return prot, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "sheetData":
			if err := dec.Skip(); err != nil {
				return prot, err
			}
		case "sheetProtection":
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "sheet":
					prot.Locked = a.Value == "1" || a.Value == "true"
				case "password", "hashValue":
					if a.Value != "" {
						prot.PasswordProtected = true
					}
				}
			}
			return prot, nil
		}
	}
}

func readXML(files map[string]*zip.File, name string, v any) error {
	zf, ok := files[name]
	if !ok {
		return fmt.Errorf("package part %s is missing", name)
	}
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("could not open %s: %w", name, err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("could not parse %s: %w", name, err)
	}
	return nil
}

// readRels returns the relationships of a part keyed by Id. A part without
// a .rels file has no relationships.
func readRels(files map[string]*zip.File, partPath string) (map[string]xlsxRelationship, error) {
	relsPath := path.Join(path.Dir(partPath), "_rels", path.Base(partPath)+".rels")
	out := make(map[string]xlsxRelationship)
	if _, ok := files[relsPath]; !ok {
		return out, nil
	}

	var rels xlsxRelationships
	if err := readXML(files, relsPath, &rels); err != nil {
		return nil, err
	}
	for _, r := range rels.Relationships {
		if r.TargetMode == "External" {
			continue
		}
		out[r.ID] = r
	}
	return out, nil
}

func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(baseDir, target))
}

// relType returns the last segment of a relationship type URI.
func relType(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

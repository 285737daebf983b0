// Package vba extracts macro module source from the VBA project embedded in
// a macro-enabled workbook.
package vba

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/klytics/sheetlens/internal/workbook"
)

var (
	// ErrNoProject indicates the compound file has no VBA dir stream.
	ErrNoProject = errors.New("no VBA project")
	// ErrCorrupt indicates a VBA stream could not be decoded.
	ErrCorrupt = errors.New("corrupt VBA project")
)

const projectPart = "vbaproject.bin"

// Extractor reads macro modules from a workbook on disk. It implements
// workbook.MacroExtractor.
type Extractor struct {
	path string
}

var _ workbook.MacroExtractor = (*Extractor)(nil)

// NewExtractor returns an extractor for the workbook at path.
func NewExtractor(path string) *Extractor {
	return &Extractor{path: path}
}

// Modules returns every module that carries source code. A workbook
// without a VBA project part yields no modules and no error.
func (e *Extractor) Modules() ([]workbook.MacroSource, error) {
	zr, err := zip.OpenReader(e.path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", e.path, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if strings.ToLower(path.Base(zf.Name)) != projectPart {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("could not open %s: %w", zf.Name, err)
		}
		bin, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", zf.Name, err)
		}

		mods, err := ReadProject(bytes.NewReader(bin))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", zf.Name, err)
		}
		for i := range mods {
			mods[i].ContainerPath = zf.Name
		}
		return mods, nil
	}
	return nil, nil
}

// ReadProject decodes the modules of a vbaProject.bin compound file.
func ReadProject(r io.ReaderAt) ([]workbook.MacroSource, error) {
	doc, err := mscfb.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	streams := make(map[string][]byte)
	for entry, err := doc.Next(); err != io.EOF; entry, err = doc.Next() {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if entry.Size == 0 {
			continue
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrCorrupt, entry.Name, err)
		}
		key := strings.Join(append(append([]string{}, entry.Path...), entry.Name), "/")
		streams[strings.ToLower(key)] = buf
	}

	vbaDir, dirData := findStream(streams, "vba/dir")
	if dirData == nil {
		return nil, ErrNoProject
	}
	raw, err := Decompress(dirData)
	if err != nil {
		return nil, fmt.Errorf("dir stream: %w", err)
	}
	info, err := parseDir(raw)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimSuffix(vbaDir, "dir")
	var mods []workbook.MacroSource
	for _, m := range info.modules {
		streamPath := prefix + strings.ToLower(m.streamName)
		data, ok := streams[streamPath]
		if !ok {
			return nil, fmt.Errorf("%w: module stream %q missing", ErrCorrupt, m.streamName)
		}
		if int(m.offset) > len(data) {
			return nil, fmt.Errorf("%w: module %q source offset %d past end of stream", ErrCorrupt, m.name, m.offset)
		}
		src, err := Decompress(data[m.offset:])
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", m.name, err)
		}
		code := normalizeNewlines(decodeMBCS(src, info.codePage))
		if strings.TrimSpace(code) == "" {
			continue
		}
		mods = append(mods, workbook.MacroSource{
			StreamPath: "VBA/" + m.streamName,
			ModuleName: m.name + m.ext(),
			Code:       code,
		})
	}
	return mods, nil
}

// findStream returns the key and data of the first stream whose path ends
// in suffix, so that projects nested under a storage are still found.
func findStream(streams map[string][]byte, suffix string) (string, []byte) {
	if data, ok := streams[suffix]; ok {
		return suffix, data
	}
	for k, data := range streams {
		if strings.HasSuffix(k, "/"+suffix) {
			return k, data
		}
	}
	return "", nil
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

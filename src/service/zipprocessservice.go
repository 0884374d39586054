package service

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ARahim900/muscatbay-sub004/config/log"

	"go.uber.org/zap"
)

// maxZipDepth bounds nested archives.
const maxZipDepth = 3

// ImportFile is one importable file pulled out of an upload.
type ImportFile struct {
	Name    string
	Content []byte
}

// ZipProcessServiceImpl unpacks zipped meter exports
type ZipProcessServiceImpl struct {
}

// IsZip reports whether name looks like a zip archive.
func (p *ZipProcessServiceImpl) IsZip(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zip")
}

// ExtractImportFiles returns every .csv and .tsv entry of the archive,
// descending into nested zips.
func (p *ZipProcessServiceImpl) ExtractImportFiles(content []byte) ([]ImportFile, error) {
	return p.extract(content, 0)
}

func (p *ZipProcessServiceImpl) extract(content []byte, depth int) ([]ImportFile, error) {
	if depth > maxZipDepth {
		return nil, fmt.Errorf("zip nested deeper than %d levels", maxZipDepth)
	}
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var files []ImportFile
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.ToLower(f.Name)
		switch {
		case strings.HasSuffix(name, ".zip"):
			data, err := p.readEntry(f)
			if err != nil {
				return nil, err
			}
			nested, err := p.extract(data, depth+1) // re-unzip again if current file is zip
			if err != nil {
				return nil, fmt.Errorf("entry %s: %w", f.Name, err)
			}
			files = append(files, nested...)
		case strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv"):
			data, err := p.readEntry(f)
			if err != nil {
				return nil, err
			}
			files = append(files, ImportFile{Name: path.Base(f.Name), Content: data})
		default:
			log.Logger.Debug("skipping zip entry", zap.String("entry", f.Name))
		}
	}
	return files, nil
}

func (p *ZipProcessServiceImpl) readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", f.Name, err)
	}
	return data, nil
}

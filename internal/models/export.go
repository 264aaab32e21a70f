package models

import (
	"path"
	"strings"
	"time"
)

// ExportKind is a downloadable rendition of a Deal.
type ExportKind string

const (
	ExportPDF   ExportKind = "pdf"
	ExportExcel ExportKind = "excel"
	ExportLOI   ExportKind = "loi"
)

func (k ExportKind) Valid() bool {
	return k == ExportPDF || k == ExportExcel || k == ExportLOI
}

// ExportArtifact is an opaque file reference. Backends answer with either
// file_url or file; URL returns whichever is set.
type ExportArtifact struct {
	ID          int64      `json:"id,omitempty"`
	Deal        int64      `json:"deal,omitempty"`
	FileURL     string     `json:"file_url,omitempty"`
	File        string     `json:"file,omitempty"`
	ExportType  ExportKind `json:"export_type,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

func (e ExportArtifact) URL() string {
	if e.FileURL != "" {
		return e.FileURL
	}
	return e.File
}

// FileName is the last path segment of the artifact URL.
func (e ExportArtifact) FileName() string {
	u := e.URL()
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	name := path.Base(u)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

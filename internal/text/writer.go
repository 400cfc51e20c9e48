package text

import (
	"fmt"
	"io"
	"strings"

	"github.com/dyuri/esmkit/internal/model"
)

// Writer writes a plain text outline of a decoded file
type Writer struct {
	w     io.Writer
	quiet bool
}

// NewWriter creates a new text outline writer. A quiet writer omits the
// subrecord layout of records.
func NewWriter(w io.Writer, quiet bool) *Writer {
	return &Writer{w: w, quiet: quiet}
}

// WriteFileHeader writes the [TES4] section
func (w *Writer) WriteFileHeader(name string, h *model.FileHeader, overrides []model.FormId) error {
	// Format:
	// [TES4] Update.esm
	// Version=1.70
	// Records=12
	// Master=Skyrim.esm
	// [end]

	_, err := fmt.Fprintf(w.w, "[TES4] %s\n", name)
	if err != nil {
		return err
	}

	fmt.Fprintf(w.w, "Version=%.2f\n", h.Version)
	fmt.Fprintf(w.w, "HeaderSize=%d\n", h.HeaderSize)
	fmt.Fprintf(w.w, "Records=%d\n", h.NumRecords)
	fmt.Fprintf(w.w, "Flags=0x%08x\n", h.Flags)

	if h.Author != "" {
		fmt.Fprintf(w.w, "Author=%s\n", h.Author)
	}
	if h.Description != "" {
		fmt.Fprintf(w.w, "Description=%s\n", oneLine(h.Description))
	}

	for _, m := range h.Masters {
		fmt.Fprintf(w.w, "Master=%s,%d\n", m.Name, m.Size)
	}

	for _, id := range overrides {
		fmt.Fprintf(w.w, "Override=%s\n", id)
	}

	_, err = fmt.Fprintf(w.w, "[end]\n\n")
	return err
}

// WriteGroup writes one group line, indented by depth
func (w *Writer) WriteGroup(g model.GroupSummary) error {
	_, err := fmt.Fprintf(w.w, "%s%s %s size=%d\n", indent(g.Depth), g.Type, g.Label, g.Size)
	return err
}

// WriteRecord writes one record line followed by its subrecord layout
func (w *Writer) WriteRecord(depth int, rec model.RecordSummary) error {
	line := fmt.Sprintf("%s%s %s flags=0x%08x size=%d", indent(depth), rec.Type, rec.FormId, rec.Flags, rec.DataSize)
	if rec.Compressed {
		line += " compressed"
	}
	if rec.EditorID != "" {
		line += " EditorID=" + rec.EditorID
	}

	if _, err := fmt.Fprintln(w.w, line); err != nil {
		return err
	}

	if w.quiet {
		return nil
	}

	for _, sub := range rec.SubRecords {
		if _, err := fmt.Fprintf(w.w, "%s%s %d\n", indent(depth+1), sub.Type, sub.Size); err != nil {
			return err
		}
	}
	return nil
}

// WriteString writes one localized string table entry
func (w *Writer) WriteString(id uint32, value string) error {
	_, err := fmt.Fprintf(w.w, "0x%08x=%s\n", id, oneLine(value))
	return err
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

// oneLine escapes line breaks so every entry stays on its own line
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", `\r`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

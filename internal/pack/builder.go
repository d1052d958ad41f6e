package pack

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrComposition marks misuse of the builder or its attachments: a consumed
// source, a second materialization, and similar caller bugs. Composition
// errors are never worth retrying.
var ErrComposition = errors.New("package composition")

// IsComposition reports whether err is a composition error.
func IsComposition(err error) bool {
	return errors.Is(err, ErrComposition)
}

const manifestName = "manifest.json"

// Archive entries carry a fixed timestamp so identical builder state yields
// byte-identical packages.
var archiveEpoch = time.Unix(0, 0).UTC()

// Builder aggregates item metadata and attachments, then materializes them
// into a zip package. Materialize is the terminal operation; afterwards all
// attachment sources are closed and the builder must not be reused.
type Builder struct {
	label        string
	metadata     Fields
	attachments  []*Attachment
	status       string
	enabled      *bool
	embargoDate  string
	materialized bool
}

// NewBuilder creates a builder with an optional item label.
func NewBuilder(label string) *Builder {
	return &Builder{label: strings.TrimSpace(label)}
}

// SetLabel sets the item-level display label.
func (b *Builder) SetLabel(label string) {
	b.label = strings.TrimSpace(label)
}

// Label returns the item-level display label.
func (b *Builder) Label() string {
	return b.label
}

// Metadata exposes the item's metadata fields for mutation.
func (b *Builder) Metadata() *Fields {
	return &b.metadata
}

// SetPublic marks the item publicly visible after ingest.
func (b *Builder) SetPublic() { b.status = "Public" }

// SetPrivate marks the item hidden after ingest.
func (b *Builder) SetPrivate() { b.status = "Private" }

// Enable marks the item enabled after ingest.
func (b *Builder) Enable() { v := true; b.enabled = &v }

// Disable marks the item disabled after ingest.
func (b *Builder) Disable() { v := false; b.enabled = &v }

// SetEmbargoDate records an embargo date for the item.
func (b *Builder) SetEmbargoDate(date time.Time) {
	b.embargoDate = date.UTC().Format("2006-01-02")
}

// RemoveEmbargo clears a previously set embargo date.
func (b *Builder) RemoveEmbargo() {
	b.embargoDate = ""
}

// AddAttachment appends an attachment and returns it so the caller can keep
// annotating it (identifiers, metadata) before materialization. Attachment
// order determines content entry numbering.
func (b *Builder) AddAttachment(att *Attachment) *Attachment {
	b.attachments = append(b.attachments, att)
	return att
}

// Attachments returns the attachments in append order.
func (b *Builder) Attachments() []*Attachment {
	return append([]*Attachment(nil), b.attachments...)
}

type manifest struct {
	Label       string            `json:"label,omitempty"`
	Status      string            `json:"status,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
	EmbargoDate string            `json:"embargo_date,omitempty"`
	Metadata    Fields            `json:"metadata"`
	Attachments []attachmentEntry `json:"attachments"`
}

func (m manifest) encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

type attachmentEntry struct {
	Index            int          `json:"index"`
	Label            string       `json:"label,omitempty"`
	Identifiers      []Identifier `json:"identifiers,omitempty"`
	Metadata         Fields       `json:"metadata"`
	FileAccess       Access       `json:"file_access,omitempty"`
	DerivativeAccess Access       `json:"derivative_access,omitempty"`
	Content          string       `json:"content"`
}

// Discard closes every attachment source without producing an artifact. The
// builder must not be reused afterwards.
func (b *Builder) Discard() {
	b.materialized = true
	b.closeSources()
}

// Materialize writes the package archive at dest. Every attachment source is
// closed before it returns, on success and on every failure path; a failed
// materialization leaves no partial artifact behind.
func (b *Builder) Materialize(dest string) (err error) {
	defer b.closeSources()

	if b.materialized {
		return fmt.Errorf("%w: builder already materialized", ErrComposition)
	}
	for i, att := range b.attachments {
		if att.Consumed() {
			return fmt.Errorf("%w: attachment %d source already consumed", ErrComposition, i+1)
		}
	}
	b.materialized = true

	if dir := filepath.Dir(dest); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create package directory: %w", err)
		}
	}

	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create package archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(dest)
		}
	}()

	zw := zip.NewWriter(file)
	if err = b.writeArchive(zw); err != nil {
		_ = zw.Close()
		return err
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("finalize package archive: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("close package archive: %w", err)
	}
	return nil
}

func (b *Builder) writeArchive(zw *zip.Writer) error {
	descriptor := manifest{
		Label:       b.label,
		Status:      b.status,
		Enabled:     b.enabled,
		EmbargoDate: b.embargoDate,
		Metadata:    b.metadata,
		Attachments: make([]attachmentEntry, 0, len(b.attachments)),
	}
	for i, att := range b.attachments {
		descriptor.Attachments = append(descriptor.Attachments, attachmentEntry{
			Index:            i + 1,
			Label:            att.Label(),
			Identifiers:      att.identifiers,
			Metadata:         att.metadata,
			FileAccess:       att.fileAccess,
			DerivativeAccess: att.derivativeAccess,
			Content:          contentPath(i, att.filename),
		})
	}

	encoded, err := descriptor.encode()
	if err != nil {
		return err
	}

	writer, err := newArchiveEntry(zw, manifestName)
	if err != nil {
		return err
	}
	if _, err := writer.Write(encoded); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	for i, att := range b.attachments {
		if err := b.writeAttachment(zw, i, att); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) writeAttachment(zw *zip.Writer, index int, att *Attachment) error {
	source := att.take()
	if source == nil {
		return fmt.Errorf("%w: attachment %d source already consumed", ErrComposition, index+1)
	}
	defer source.Close()

	writer, err := newArchiveEntry(zw, contentPath(index, att.filename))
	if err != nil {
		return err
	}
	if _, err := io.Copy(writer, source); err != nil {
		return fmt.Errorf("write attachment %d: %w", index+1, err)
	}
	return nil
}

func newArchiveEntry(zw *zip.Writer, name string) (io.Writer, error) {
	writer, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive entry %s: %w", name, err)
	}
	return writer, nil
}

func (b *Builder) closeSources() {
	for _, att := range b.attachments {
		att.closeSource()
	}
}

// contentPath derives the archive path for an attachment's bytes from its
// zero-based position, keeping the filename hint's extension when present.
func contentPath(index int, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("attachments/%04d%s", index+1, ext)
}

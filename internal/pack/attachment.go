package pack

import (
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Access enumerates the repository's access levels for attachment content
// and generated derivatives.
type Access string

const (
	AccessOpen   Access = "open"
	AccessCampus Access = "campus"
	AccessClosed Access = "closed"
)

// Attachment is one file plus its metadata and identifiers within a package.
// It exclusively owns its source stream; the stream is read to completion and
// closed exactly once, by the builder, during materialization.
type Attachment struct {
	label            string
	filename         string
	identifiers      []Identifier
	metadata         Fields
	fileAccess       Access
	derivativeAccess Access

	source io.ReadCloser
}

// NewAttachment binds a source stream to a new attachment. The filename is a
// hint used for the content entry's extension and, when no explicit label is
// set, for the derived display label.
func NewAttachment(source io.ReadCloser, filename string) *Attachment {
	return &Attachment{
		source:   source,
		filename: strings.TrimLeft(strings.TrimSpace(filename), "/."),
	}
}

// SetLabel overrides the attachment's display label.
func (a *Attachment) SetLabel(label string) {
	a.label = strings.TrimSpace(label)
}

// Label returns the explicit label, or one derived from the filename hint.
func (a *Attachment) Label() string {
	if a.label != "" {
		return a.label
	}
	return deriveLabel(a.filename)
}

// Filename returns the filename hint supplied at construction.
func (a *Attachment) Filename() string {
	return a.filename
}

// AddIdentifier appends an identifier. Duplicates are permitted; the
// repository is the authority on identifier semantics.
func (a *Attachment) AddIdentifier(value, identifierType string) {
	a.identifiers = append(a.identifiers, Identifier{Value: value, Type: identifierType})
}

// Identifiers returns the identifiers in append order.
func (a *Attachment) Identifiers() []Identifier {
	return append([]Identifier(nil), a.identifiers...)
}

// Metadata exposes the attachment's metadata fields for mutation.
func (a *Attachment) Metadata() *Fields {
	return &a.metadata
}

// SetFileAccess sets the access level for the attachment's content bytes.
func (a *Attachment) SetFileAccess(access Access) {
	a.fileAccess = access
}

// SetDerivativeAccess sets the access level for repository-generated derivatives.
func (a *Attachment) SetDerivativeAccess(access Access) {
	a.derivativeAccess = access
}

// Consumed reports whether the attachment's source has already been taken.
func (a *Attachment) Consumed() bool {
	return a.source == nil
}

// take transfers ownership of the source stream to the caller. It succeeds
// at most once per attachment.
func (a *Attachment) take() io.ReadCloser {
	src := a.source
	a.source = nil
	return src
}

// closeSource releases the source stream if it has not been taken yet.
func (a *Attachment) closeSource() {
	if a.source == nil {
		return
	}
	_ = a.source.Close()
	a.source = nil
}

var labelCaser = cases.Title(language.Und)

// deriveLabel turns a filename hint into a display label: extension stripped,
// separators spaced, title-cased.
func deriveLabel(filename string) string {
	base := strings.TrimSpace(filepath.Base(filename))
	if base == "" || base == "." {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return ""
	}
	return labelCaser.String(base)
}

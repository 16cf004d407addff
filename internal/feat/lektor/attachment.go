package lektor

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// AttachmentInfo describes the file behind an attachment record.
type AttachmentInfo struct {
	Name     string
	Size     int64
	ModTime  time.Time
	MIMEType string
	Kind     string
}

// IsImage reports whether the attachment can be shown inline.
func (a AttachmentInfo) IsImage() bool { return a.Kind == "image" }

// Info stats and sniffs the attachment file of r.
func (r *Record) Info() (AttachmentInfo, error) {
	if !r.attachment {
		return AttachmentInfo{}, fmt.Errorf("%s is not an attachment", r.path)
	}
	st, err := os.Stat(r.file)
	if err != nil {
		return AttachmentInfo{}, fmt.Errorf("cannot stat %s: %w", r.path, err)
	}
	mt, err := mimetype.DetectFile(r.file)
	if err != nil {
		return AttachmentInfo{}, fmt.Errorf("cannot detect type of %s: %w", r.path, err)
	}
	return AttachmentInfo{
		Name:     st.Name(),
		Size:     st.Size(),
		ModTime:  st.ModTime(),
		MIMEType: mt.String(),
		Kind:     attachmentKind(mt),
	}, nil
}

// attachmentKind follows the attachment types Lektor knows about.
func attachmentKind(mt *mimetype.MIME) string {
	for m := mt; m != nil; m = m.Parent() {
		top, _, _ := strings.Cut(m.String(), "/")
		switch top {
		case "image", "video", "audio":
			return top
		case "text":
			return "text"
		}
	}
	return "document"
}

package lektor

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const contentsFile = "contents.lr"

var ErrNotFound = errors.New("record not found")

// NotFoundError names the record or artifact that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return ErrNotFound.Error() + ": " + e.Path }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Pad reads records from the content tree of a project.
type Pad struct {
	project *Project
}

func NewPad(project *Project) *Pad {
	return &Pad{project: project}
}

func (p *Pad) Project() *Project { return p.project }

// CleanPath normalizes a record path to the form "/a/b", root being "/".
func CleanPath(p string) string {
	return path.Clean("/" + strings.Trim(p, "/"))
}

// ToFSPath maps a record path to its directory or attachment file.
func (p *Pad) ToFSPath(recordPath string) string {
	clean := strings.TrimPrefix(CleanPath(recordPath), "/")
	return filepath.Join(p.project.ContentPath(), filepath.FromSlash(clean))
}

// ContentsFile returns the record file of a page directory for alt.
func ContentsFile(dir, alt string) string {
	if alt == "" || alt == PrimaryAlt {
		return filepath.Join(dir, contentsFile)
	}
	return filepath.Join(dir, "contents+"+alt+".lr")
}

// Root returns the root record.
func (p *Pad) Root(alt string) (*Record, error) {
	return p.Get("/", alt)
}

// Get loads the record at recordPath. Attachments are addressed by the path
// of their file.
func (p *Pad) Get(recordPath, alt string) (*Record, error) {
	if alt == "" {
		alt = PrimaryAlt
	}
	recordPath = CleanPath(recordPath)
	fsPath := p.ToFSPath(recordPath)

	info, err := os.Stat(fsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: recordPath}
		}
		return nil, fmt.Errorf("cannot stat %s: %w", recordPath, err)
	}

	r := &Record{pad: p, path: recordPath, alt: alt}
	if info.IsDir() {
		r.dir = fsPath
		r.source = ContentsFile(fsPath, alt)
		if err := r.load(ContentsFile(fsPath, PrimaryAlt)); err != nil {
			return nil, err
		}
		return r, nil
	}

	if recordPath == "/" || !isAttachmentName(info.Name()) {
		return nil, &NotFoundError{Path: recordPath}
	}
	r.attachment = true
	r.dir = filepath.Dir(fsPath)
	r.file = fsPath
	r.source = attachmentMetaFile(fsPath, alt)
	if err := r.load(attachmentMetaFile(fsPath, PrimaryAlt)); err != nil {
		return nil, err
	}
	return r, nil
}

func attachmentMetaFile(file, alt string) string {
	if alt == "" || alt == PrimaryAlt {
		return file + ".lr"
	}
	return file + "+" + alt + ".lr"
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func isAttachmentName(name string) bool {
	return !isHiddenName(name) && !strings.HasSuffix(name, ".lr")
}

func readEntries(file string) ([]Entry, bool, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cannot read %s: %w", file, err)
	}
	return Tokenize(string(data)), true, nil
}

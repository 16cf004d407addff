// Package formdata parses request bodies into forms that keep the order in
// which fields were submitted.
package formdata

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const (
	// MaxBodySize bounds urlencoded bodies and non-file multipart values.
	MaxBodySize = 10 << 20
	// MaxFileSize bounds a single uploaded file.
	MaxFileSize = 256 << 20
)

var (
	ErrUnsupportedType = errors.New("unsupported form content type")
	ErrTooLarge        = errors.New("form too large")
)

// Pair is one submitted field.
type Pair struct {
	Key   string
	Value string
}

// File is an uploaded file held in memory.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Form is an ordered, multi-valued form.
type Form struct {
	pairs []Pair
	files map[string]*File
}

// New builds a form from alternating keys and values.
func New(kv ...string) *Form {
	f := &Form{}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Add(kv[i], kv[i+1])
	}
	return f
}

// Add appends a value for key.
func (f *Form) Add(key, value string) {
	f.pairs = append(f.pairs, Pair{Key: key, Value: value})
}

// Get returns the first value for key.
func (f *Form) Get(key string) (string, bool) {
	for _, p := range f.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Value returns the first value for key or the empty string.
func (f *Form) Value(key string) string {
	v, _ := f.Get(key)
	return v
}

// All returns every value submitted for key, in order.
func (f *Form) All(key string) []string {
	var out []string
	for _, p := range f.pairs {
		if p.Key == key {
			out = append(out, p.Value)
		}
	}
	return out
}

// Keys returns the distinct keys in first-seen order.
func (f *Form) Keys() []string {
	seen := make(map[string]bool, len(f.pairs))
	var keys []string
	for _, p := range f.pairs {
		if !seen[p.Key] {
			seen[p.Key] = true
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// Pairs returns a copy of the submitted pairs.
func (f *Form) Pairs() []Pair {
	return append([]Pair(nil), f.pairs...)
}

// File returns the uploaded file for key, if any non-empty file was sent.
func (f *Form) File(key string) (*File, bool) {
	file, ok := f.files[key]
	return file, ok
}

// Parse reads the body of r. Both application/x-www-form-urlencoded and
// multipart/form-data bodies are accepted.
func Parse(r *http.Request) (*Form, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return &Form{}, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, fmt.Errorf("cannot parse content type: %w", err)
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		return parseURLEncoded(r.Body)
	case "multipart/form-data":
		return parseMultipart(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}
}

func parseURLEncoded(body io.Reader) (*Form, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("cannot read form: %w", err)
	}
	if len(data) > MaxBodySize {
		return nil, ErrTooLarge
	}
	return ParseQuery(string(data))
}

// ParseQuery parses an urlencoded string keeping field order.
func ParseQuery(query string) (*Form, error) {
	f := &Form{}
	for query != "" {
		var part string
		part, query, _ = strings.Cut(query, "&")
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid form key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		f.Add(key, value)
	}
	return f, nil
}

func parseMultipart(r *http.Request) (*Form, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("cannot read multipart form: %w", err)
	}

	f := &Form{files: map[string]*File{}}
	var total int64
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read form part: %w", err)
		}

		name := part.FormName()
		if name == "" {
			part.Close()
			continue
		}

		if part.FileName() == "" {
			data, err := io.ReadAll(io.LimitReader(part, MaxBodySize-total+1))
			part.Close()
			if err != nil {
				return nil, fmt.Errorf("cannot read field %s: %w", name, err)
			}
			total += int64(len(data))
			if total > MaxBodySize {
				return nil, ErrTooLarge
			}
			f.Add(name, string(data))
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, MaxFileSize+1))
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read file %s: %w", name, err)
		}
		if len(data) > MaxFileSize {
			return nil, ErrTooLarge
		}
		if len(data) == 0 {
			continue
		}
		if _, exists := f.files[name]; !exists {
			f.files[name] = &File{
				Filename:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Data:        data,
			}
		}
	}
}

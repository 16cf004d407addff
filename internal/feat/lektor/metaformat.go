package lektor

import (
	"regexp"
	"strings"
)

// Entry is one key/value pair of a record file.
type Entry struct {
	Key   string
	Value string
}

// FlowBlock is one parsed block of a flow field.
type FlowBlock struct {
	Type    string
	Entries []Entry
}

// Get returns the value of the block field name.
func (b FlowBlock) Get(name string) string {
	for _, e := range b.Entries {
		if e.Key == name {
			return e.Value
		}
	}
	return ""
}

var (
	blockHeader   = regexp.MustCompile(`^####\s*([^#]*?)\s*####\s*$`)
	escapedHeader = regexp.MustCompile(`^#####(.*?)#####\s*$`)
)

func splitLines(data string) []string {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	if data == "" {
		return nil
	}
	lines := strings.Split(data, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func isDashLine(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) >= 3 && strings.Trim(t, "-") == ""
}

// Tokenize splits record text into its entries. Lines made of dashes inside
// values lose the escaping dash added by EscapeDashes.
func Tokenize(data string) []Entry {
	var (
		entries     []Entry
		key         string
		haveKey     bool
		buf         []string
		wantNewline bool
	)

	flush := func() {
		for i, line := range buf {
			if isDashLine(line) {
				buf[i] = line[1:]
			}
		}
		entries = append(entries, Entry{Key: key, Value: strings.Join(buf, "\n")})
		haveKey = false
		buf = nil
	}

	for _, line := range splitLines(data) {
		switch {
		case strings.TrimRight(line, " \t\v\f") == "---":
			wantNewline = false
			if haveKey {
				flush()
			}
		case haveKey:
			if wantNewline {
				wantNewline = false
				if strings.TrimSpace(line) == "" {
					continue
				}
			}
			buf = append(buf, line)
		default:
			k, v, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			key = strings.TrimSpace(k)
			haveKey = true
			if first := strings.Trim(v, " \t"); strings.TrimSpace(first) != "" {
				buf = []string{first}
			} else {
				buf = nil
				wantNewline = true
			}
		}
	}
	if haveKey {
		flush()
	}
	return entries
}

// EscapeDashes adds a dash to every line made only of three or more dashes
// so the line is not read as a separator.
func EscapeDashes(value string) string {
	if !strings.Contains(value, "---") {
		return value
	}
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		if isDashLine(line) {
			lines[i] = "-" + line
		}
	}
	return strings.Join(lines, "\n")
}

// EscapeBlockHeaders protects lines of a flow block value that would read
// as block headers.
func EscapeBlockHeaders(value string) string {
	if !strings.Contains(value, "####") {
		return value
	}
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		if blockHeader.MatchString(line) || escapedHeader.MatchString(line) {
			lines[i] = "#" + strings.TrimRight(line, " \t") + "#"
		}
	}
	return strings.Join(lines, "\n")
}

// ParseFlow splits the value of a flow field into blocks.
func ParseFlow(value string) []FlowBlock {
	var (
		blocks    []FlowBlock
		blockType string
		inBlock   bool
		buf       []string
	)

	flush := func() {
		if inBlock {
			blocks = append(blocks, FlowBlock{
				Type:    blockType,
				Entries: Tokenize(strings.Join(buf, "\n")),
			})
		}
	}

	for _, line := range splitLines(value) {
		if m := blockHeader.FindStringSubmatch(line); m != nil {
			flush()
			blockType = m[1]
			inBlock = true
			buf = nil
			continue
		}
		if !inBlock {
			continue
		}
		if m := escapedHeader.FindStringSubmatch(line); m != nil {
			line = "####" + m[1] + "####"
		}
		buf = append(buf, line)
	}
	flush()
	return blocks
}

// Serialize writes entries in record file format. Values spanning lines or
// with surrounding blanks use the block form.
func Serialize(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("---\n")
		}
		value := strings.ReplaceAll(e.Value, "\r\n", "\n")
		if strings.Contains(value, "\n") || strings.Trim(value, " \t") != value {
			b.WriteString(e.Key + ":\n\n")
			b.WriteString(EscapeDashes(value))
			b.WriteString("\n")
			continue
		}
		b.WriteString(e.Key + ": " + value + "\n")
	}
	return b.String()
}

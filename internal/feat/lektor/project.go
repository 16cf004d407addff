package lektor

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/cliossg/tekir/pkg/cl/i18n"
	"github.com/cliossg/tekir/pkg/cl/logger"
)

const (
	projectExt    = ".lektorproject"
	contentDir    = "content"
	modelsDir     = "models"
	flowblocksDir = "flowblocks"

	// PrimaryAlt selects the untranslated record file.
	PrimaryAlt = "_primary"
)

var ErrNoProject = errors.New("no lektor project found")

// Server is a deployment target from the project file.
type Server struct {
	ID      string
	Name    string
	Names   map[string]string
	Target  string
	Enabled bool
	Default bool
	Extra   map[string]string
}

func (s Server) LocalizedName(tag language.Tag) string {
	def := s.Name
	if def == "" {
		def = s.ID
	}
	return i18n.Localized(s.Names, tag, def)
}

// Alternative is a configured translation of the site.
type Alternative struct {
	ID        string
	Name      string
	Names     map[string]string
	URLPrefix string
	URLSuffix string
	Primary   bool
	Locale    string
}

func (a Alternative) LocalizedName(tag language.Tag) string {
	def := a.Name
	if def == "" {
		def = a.ID
	}
	return i18n.Localized(a.Names, tag, def)
}

type schema struct {
	name         string
	url          string
	models       map[string]*DataModel
	flowblocks   map[string]*FlowBlockModel
	servers      []Server
	alternatives []Alternative
}

// Project is a Lektor project on disk. Its schema can be reloaded while
// requests are served.
type Project struct {
	root string
	file string
	log  logger.Logger

	mu     sync.RWMutex
	schema *schema
}

// FindProjectFile returns the *.lektorproject file in dir.
func FindProjectFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+projectExt))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoProject, dir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// Open loads the project rooted at path. path can be the project
// directory or its project file.
func Open(path string, log logger.Logger) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", path, err)
	}

	p := &Project{log: log}
	if strings.HasSuffix(abs, projectExt) {
		p.file = abs
		p.root = filepath.Dir(abs)
	} else {
		p.root = abs
		if p.file, err = FindProjectFile(abs); err != nil {
			return nil, err
		}
	}

	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload reads the project file, models and flow blocks again.
func (p *Project) Reload() error {
	s, err := p.load()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.schema = s
	p.mu.Unlock()
	p.log.Debugf("Loaded project %s: %d models, %d flow blocks", s.name, len(s.models), len(s.flowblocks))
	return nil
}

func (p *Project) load() (*schema, error) {
	f, err := loadINI(p.file)
	if err != nil {
		return nil, err
	}

	ps := f.Section("project")
	s := &schema{
		name: sectionValue(ps, "name"),
		url:  sectionValue(ps, "url"),
	}
	if s.name == "" {
		s.name = strings.TrimSuffix(filepath.Base(p.file), projectExt)
	}

	for _, sec := range sections(f) {
		if id, ok := strings.CutPrefix(sec.Name(), "servers."); ok {
			srv := Server{
				ID:      id,
				Name:    sectionValue(sec, "name"),
				Names:   localized(sec, "name"),
				Target:  sectionValue(sec, "target"),
				Enabled: sectionBool(sec, "enabled", true),
				Default: sectionBool(sec, "default", false),
				Extra:   map[string]string{},
			}
			for _, k := range sec.Keys() {
				switch k.Name() {
				case "name", "target", "enabled", "default":
				default:
					if !localizedKey.MatchString(k.Name()) {
						srv.Extra[k.Name()] = k.String()
					}
				}
			}
			s.servers = append(s.servers, srv)
		}
		if id, ok := strings.CutPrefix(sec.Name(), "alternatives."); ok {
			s.alternatives = append(s.alternatives, Alternative{
				ID:        id,
				Name:      sectionValue(sec, "name"),
				Names:     localized(sec, "name"),
				URLPrefix: sectionValue(sec, "url_prefix"),
				URLSuffix: sectionValue(sec, "url_suffix"),
				Primary:   sectionBool(sec, "primary", false),
				Locale:    sectionValue(sec, "locale"),
			})
		}
	}

	if s.models, err = loadModels(filepath.Join(p.root, modelsDir)); err != nil {
		return nil, err
	}
	if s.flowblocks, err = loadFlowBlocks(filepath.Join(p.root, flowblocksDir)); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Project) current() *schema {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.schema
}

// Root is the project directory.
func (p *Project) Root() string { return p.root }

// File is the project file path.
func (p *Project) File() string { return p.file }

// ContentPath is the directory holding the record tree.
func (p *Project) ContentPath() string { return filepath.Join(p.root, contentDir) }

// WatchPaths lists the paths whose changes require a Reload.
func (p *Project) WatchPaths() []string {
	return []string{
		p.root,
		filepath.Join(p.root, modelsDir),
		filepath.Join(p.root, flowblocksDir),
	}
}

func (p *Project) Name() string { return p.current().name }

func (p *Project) URL() string { return p.current().url }

// Model returns the data model with the given id.
func (p *Project) Model(id string) (*DataModel, bool) {
	m, ok := p.current().models[id]
	return m, ok
}

// Models returns all data models ordered by id.
func (p *Project) Models() []*DataModel {
	s := p.current()
	out := make([]*DataModel, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FlowBlock returns the flow block model with the given id.
func (p *Project) FlowBlock(id string) (*FlowBlockModel, bool) {
	b, ok := p.current().flowblocks[id]
	return b, ok
}

// FlowBlockIDs returns the ids of all flow block models, sorted.
func (p *Project) FlowBlockIDs() []string {
	s := p.current()
	ids := make([]string, 0, len(s.flowblocks))
	for id := range s.flowblocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Servers returns the configured deployment servers in file order.
func (p *Project) Servers() []Server {
	return append([]Server(nil), p.current().servers...)
}

// Server returns the server with the given id.
func (p *Project) Server(id string) (Server, bool) {
	for _, s := range p.current().servers {
		if s.ID == id {
			return s, true
		}
	}
	return Server{}, false
}

// Alternatives returns the configured translations in file order.
func (p *Project) Alternatives() []Alternative {
	return append([]Alternative(nil), p.current().alternatives...)
}

// ResolveAlt maps an alt name from a URL to the alt used for record files.
// The primary alternative resolves to PrimaryAlt. ok is false for unknown
// alts.
func (p *Project) ResolveAlt(alt string) (string, bool) {
	if alt == "" || alt == PrimaryAlt {
		return PrimaryAlt, true
	}
	for _, a := range p.current().alternatives {
		if a.ID == alt {
			if a.Primary {
				return PrimaryAlt, true
			}
			return alt, true
		}
	}
	return "", false
}

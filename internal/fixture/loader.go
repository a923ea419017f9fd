package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// skippedTopLevelKeys marks a JSON document as a template/scenario, not a
// fixture (§4.5 "File-backed fixtures").
var skippedTopLevelKeys = []string{"_comment", "_usage", "scenario", "presentation_mode"}

// flatFixtureFile is the `{method, path, status, response, headers?, delay_ms?}` form.
type flatFixtureFile struct {
	Method   string                 `json:"method"`
	Path     string                 `json:"path"`
	Status   int                    `json:"status"`
	Response interface{}            `json:"response"`
	Headers  map[string]string      `json:"headers,omitempty"`
	DelayMS  int64                  `json:"delay_ms,omitempty"`
}

// nestedFixtureFile is the `{request:{method,path}, response:{status,body,headers?}}` form.
type nestedFixtureFile struct {
	Request struct {
		Method string `json:"method"`
		Path   string `json:"path"`
	} `json:"request"`
	Response struct {
		Status  int               `json:"status"`
		Body    interface{}       `json:"body"`
		Headers map[string]string `json:"headers,omitempty"`
	} `json:"response"`
}

// Loader watches a directory and ingests flat or nested JSON fixture files
// into a Registry, skipping template/scenario documents.
type Loader struct {
	dir      string
	registry *Registry

	mu      sync.Mutex
	byFile  map[string]string // file path -> fixture id, for reload/removal
	byKey   map[string]string // "METHOD path" -> file path, to detect duplicates
	watcher *fsnotify.Watcher
}

// NewLoader builds a Loader over dir, not yet watching.
func NewLoader(dir string, registry *Registry) *Loader {
	return &Loader{
		dir:      dir,
		registry: registry,
		byFile:   make(map[string]string),
		byKey:    make(map[string]string),
	}
}

// LoadAll walks dir once, ingesting every *.json file.
func (l *Loader) LoadAll() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read fixtures dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(l.dir, e.Name())
		if err := l.loadFile(path); err != nil {
			log.Warn().Str("file", path).Err(err).Msg("fixture file skipped")
		}
	}
	return nil
}

// Watch starts an fsnotify watch on dir; reload/remove events ingest or
// delete the corresponding fixture. Watch blocks until ctx is cancelled.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fixture watcher: %w", err)
	}
	l.watcher = w
	if err := w.Add(l.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch fixtures dir: %w", err)
	}
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			l.handleFSEvent(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("fixture watcher error")
		}
	}
}

func (l *Loader) handleFSEvent(ev fsnotify.Event) {
	if !strings.HasSuffix(ev.Name, ".json") {
		return
	}
	switch {
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		if err := l.loadFile(ev.Name); err != nil {
			log.Warn().Str("file", ev.Name).Err(err).Msg("fixture reload failed")
		}
	case ev.Op&fsnotify.Remove != 0:
		l.removeFile(ev.Name)
	}
}

func (l *Loader) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	for _, k := range skippedTopLevelKeys {
		if _, ok := probe[k]; ok {
			return nil // template/scenario document, not a fixture
		}
	}

	var method, normPath string
	var uf *flatOrNested
	if _, hasRequest := probe["request"]; hasRequest {
		var nf nestedFixtureFile
		if err := json.Unmarshal(raw, &nf); err != nil {
			return err
		}
		method, normPath = nf.Request.Method, nf.Request.Path
		uf = &flatOrNested{
			method: method, path: normPath, status: nf.Response.Status,
			body: nf.Response.Body, headers: nf.Response.Headers,
		}
	} else {
		var ff flatFixtureFile
		if err := json.Unmarshal(raw, &ff); err != nil {
			return err
		}
		method, normPath = ff.Method, ff.Path
		uf = &flatOrNested{
			method: method, path: normPath, status: ff.Status,
			body: ff.Response, headers: ff.Headers, delayMS: ff.DelayMS,
		}
	}

	key := method + " " + normPath
	fx := FromCustomFixture(uf.toCustomFixture())

	l.mu.Lock()
	supersededID := ""
	if existingFile, dup := l.byKey[key]; dup && existingFile != path {
		log.Warn().Str("key", key).Str("existing", existingFile).Str("new", path).
			Msg("duplicate fixture method+path; latest load wins")
		if oldID, ok := l.byFile[existingFile]; ok {
			if old, ok := l.registry.Get(oldID); ok && old.Name == fx.Name {
				supersededID = oldID
				delete(l.byFile, existingFile)
			}
		}
	}
	l.byKey[key] = path
	l.mu.Unlock()

	if supersededID != "" {
		l.registry.Delete(supersededID)
	}
	if oldID, ok := l.byFile[path]; ok {
		fx.ID = oldID
	}
	l.registry.Upsert(fx)

	l.mu.Lock()
	l.byFile[path] = fx.ID
	l.mu.Unlock()
	return nil
}

func (l *Loader) removeFile(path string) {
	l.mu.Lock()
	id, ok := l.byFile[path]
	if ok {
		delete(l.byFile, path)
	}
	l.mu.Unlock()
	if ok {
		l.registry.Delete(id)
	}
}

type flatOrNested struct {
	method, path string
	status       int
	body         interface{}
	headers      map[string]string
	delayMS      int64
}

func (f *flatOrNested) toCustomFixture() model.CustomFixture {
	return model.CustomFixture{
		Method: f.method, Path: f.path, Status: f.status,
		Response: f.body, Headers: f.headers, DelayMS: f.delayMS,
	}
}

package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// Artifact is a row of the artifacts table of a Lektor build state.
type Artifact struct {
	Artifact string
	Source   string
	Primary  bool
}

const buildstateSchema = `
CREATE TABLE artifacts (
	artifact TEXT,
	source TEXT,
	source_mtime INTEGER,
	source_size INTEGER,
	source_checksum TEXT,
	is_dir INTEGER,
	is_primary_source INTEGER,
	PRIMARY KEY (artifact, source)
);
CREATE TABLE source_info (
	path TEXT,
	alt TEXT,
	lang TEXT,
	type TEXT,
	source TEXT,
	title TEXT,
	PRIMARY KEY (path, alt, lang)
);
CREATE TABLE artifact_config_hashes (
	artifact TEXT,
	config_hash TEXT,
	PRIMARY KEY (artifact)
);
CREATE TABLE dirty_sources (
	source TEXT,
	PRIMARY KEY (source)
);
`

// WriteBuildstate creates the Lektor build state database under
// outputDir/.lektor and fills it with artifacts and dirty sources.
func WriteBuildstate(t testing.TB, outputDir string, artifacts []Artifact, dirty ...string) string {
	t.Helper()

	path := filepath.Join(outputDir, ".lektor", "buildstate")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("cannot open build state: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(buildstateSchema); err != nil {
		t.Fatalf("cannot create build state schema: %v", err)
	}
	for _, a := range artifacts {
		_, err := db.Exec(`INSERT INTO artifacts (artifact, source, source_mtime, source_size, source_checksum, is_dir, is_primary_source)
			VALUES (?, ?, 0, 0, '', 0, ?)`, a.Artifact, a.Source, a.Primary)
		if err != nil {
			t.Fatalf("cannot insert artifact %s: %v", a.Artifact, err)
		}
	}
	for _, s := range dirty {
		if _, err := db.Exec(`INSERT INTO dirty_sources (source) VALUES (?)`, s); err != nil {
			t.Fatalf("cannot insert dirty source %s: %v", s, err)
		}
	}
	return path
}

// WriteFailure stores a build failure the way Lektor's failure controller does.
func WriteFailure(t testing.TB, outputDir, name, artifact, exception string) {
	t.Helper()
	content := `{"artifact": "` + artifact + `", "exception": "` + exception + `"}`
	WriteFile(t, outputDir, ".lektor/failures/"+name+".json", content)
}

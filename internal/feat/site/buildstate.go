package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/pkg/cl/database"
)

const (
	stateDir      = ".lektor"
	buildstateDB  = "buildstate"
	failuresDir   = "failures"
	contentPrefix = "content/"
)

// Buildstate reads the sqlite database Lektor keeps in the output
// directory. Every query opens its own read-only connection so a
// running build is never blocked.
type Buildstate struct {
	path string
}

func NewBuildstate(outputPath string) *Buildstate {
	return &Buildstate{path: filepath.Join(outputPath, stateDir, buildstateDB)}
}

// Path is the location of the database file.
func (b *Buildstate) Path() string { return b.path }

func (b *Buildstate) open(ctx context.Context) (*sql.DB, error) {
	return database.Open(ctx, b.path, database.ReadOnly)
}

// ArtifactCount returns the number of built artifacts, zero when there
// is no build yet.
func (b *Buildstate) ArtifactCount(ctx context.Context) (int, error) {
	db, err := b.open(ctx)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT artifact) FROM artifacts`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("cannot count artifacts: %w", err)
	}
	return n, nil
}

// DirtySources lists the sources Lektor marked for rebuilding.
func (b *Buildstate) DirtySources(ctx context.Context) ([]string, error) {
	db, err := b.open(ctx)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT source FROM dirty_sources ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("cannot query dirty sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("cannot scan dirty source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// PrimarySource returns the source file an artifact was built from.
func (b *Buildstate) PrimarySource(ctx context.Context, artifact string) (string, error) {
	db, err := b.open(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var source string
	err = db.QueryRowContext(ctx,
		`SELECT source FROM artifacts WHERE artifact = ? AND is_primary_source = 1 LIMIT 1`,
		artifact).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &lektor.NotFoundError{Path: artifact}
	}
	if err != nil {
		return "", fmt.Errorf("cannot query artifact source: %w", err)
	}
	return source, nil
}

// SourceRecord maps a source file relative to the project to the record
// path and alt it belongs to. Sources outside the content tree, such as
// templates and assets, have no record.
func SourceRecord(source string) (recordPath, alt string, ok bool) {
	source = filepath.ToSlash(source)
	if !strings.HasPrefix(source, contentPrefix) {
		return "", "", false
	}
	rel := strings.TrimPrefix(source, contentPrefix)
	dir, file := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")

	switch {
	case file == "contents.lr":
		return lektor.CleanPath(dir), lektor.PrimaryAlt, true
	case strings.HasPrefix(file, "contents+") && strings.HasSuffix(file, ".lr"):
		alt = strings.TrimSuffix(strings.TrimPrefix(file, "contents+"), ".lr")
		return lektor.CleanPath(dir), alt, true
	case strings.HasSuffix(file, ".lr"):
		return lektor.CleanPath(strings.TrimSuffix(rel, ".lr")), lektor.PrimaryAlt, true
	case file != "":
		return lektor.CleanPath(rel), lektor.PrimaryAlt, true
	}
	return "", "", false
}

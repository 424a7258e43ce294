package migrate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file under dir and returns all problems at
// once. A directory without migrations is invalid.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	return validateFS(os.DirFS(dir), dir)
}

// ValidateEmbedded runs the same checks over the migrations compiled into the binary.
func ValidateEmbedded() error {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return err
	}
	return validateFS(sub, "embedded")
}

func validateFS(fsys fs.FS, label string) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read %s: %w", label, err)
	}

	var errs error
	versions := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := migrationName.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, dup := versions[m[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, m[1], prev))
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, checkAnnotations(name, body))
	}
	if len(versions) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no migrations found in %s", label))
	}
	return errs
}

// checkAnnotations requires an Up section before a Down section and balanced
// statement blocks that never straddle the two.
func checkAnnotations(name string, body []byte) error {
	var (
		up, down bool
		open     int
	)
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "-- +goose Up":
			up = true
		case "-- +goose Down":
			if !up {
				return fmt.Errorf("%s: Down section before Up", name)
			}
			if open != 0 {
				return fmt.Errorf("%s: StatementBegin left open in Up section", name)
			}
			down = true
		case "-- +goose StatementBegin":
			open++
		case "-- +goose StatementEnd":
			open--
			if open < 0 {
				return fmt.Errorf("%s: StatementEnd without StatementBegin", name)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	switch {
	case !up:
		return fmt.Errorf("%s: missing \"-- +goose Up\"", name)
	case !down:
		return fmt.Errorf("%s: missing \"-- +goose Down\"", name)
	case open != 0:
		return fmt.Errorf("%s: unbalanced StatementBegin/StatementEnd", name)
	}
	return nil
}

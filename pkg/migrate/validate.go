package migrate

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/multierr"
)

// ValidateDir checks the migrations under dir on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS checks every .sql file at the root of fsys: the filename carries a
// unique 14 digit version, both goose sections are present and statement
// blocks are balanced. All problems are reported together.
func ValidateFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var errs error
	seen := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()
		version, ok := parseVersion(name)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, dup := seen[version]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name))
		}
		seen[version] = name

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %q: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, checkAnnotations(name, string(data)))
	}
	return errs
}

func checkAnnotations(name, body string) error {
	var (
		errs         error
		up, down     bool
		open         bool
		section      string
		scanner      = bufio.NewScanner(strings.NewReader(body))
		lineNo       int
		blockStarted int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "-- +goose Up":
			up, section = true, "Up"
		case "-- +goose Down":
			if open {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: Down section starts inside an open StatementBegin (line %d)", name, lineNo, blockStarted))
				open = false
			}
			down, section = true, "Down"
		case "-- +goose StatementBegin":
			if open {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: nested StatementBegin", name, lineNo))
			}
			if section == "" {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: StatementBegin before any goose section", name, lineNo))
			}
			open, blockStarted = true, lineNo
		case "-- +goose StatementEnd":
			if !open {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: StatementEnd without StatementBegin", name, lineNo))
			}
			open = false
		}
	}
	if open {
		errs = multierr.Append(errs, fmt.Errorf("%s:%d: StatementBegin is never closed", name, blockStarted))
	}
	if !up {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Up\"", name))
	}
	if !down {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Down\"", name))
	}
	return errs
}

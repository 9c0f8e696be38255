// Package seed loads campuses and desk accounts from a YAML file so a fresh
// installation can be set up in one step.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// File is the seed document.
//
//	campuses:
//	  - name: Main Campus
//	    code: MAIN
//	users:
//	  - username: desk-main
//	    password: change-me-now
//	    role: staff
//	    campus: MAIN
type File struct {
	Campuses []Campus `yaml:"campuses"`
	Users    []User   `yaml:"users"`
}

// Campus is a campus entry.
type Campus struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// User is an account entry. Campus is a campus code.
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Campus   string `yaml:"campus"`
}

// Result counts what Apply created and what already existed.
type Result struct {
	CampusesCreated int
	UsersCreated    int
	Skipped         int
}

// Parse decodes and validates a seed file. Unknown fields are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	codes := make(map[string]bool)
	for i := range f.Campuses {
		c := &f.Campuses[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		if c.Name == "" || c.Code == "" {
			return fmt.Errorf("campus %d: name and code required", i+1)
		}
		if codes[c.Code] {
			return fmt.Errorf("campus %d: duplicate code %s", i+1, c.Code)
		}
		codes[c.Code] = true
	}

	for i := range f.Users {
		u := &f.Users[i]
		u.Campus = strings.ToUpper(strings.TrimSpace(u.Campus))
		if u.Username == "" {
			return fmt.Errorf("user %d: username required", i+1)
		}
		if !model.ValidRole(u.Role) {
			return fmt.Errorf("user %s: invalid role %q", u.Username, u.Role)
		}
		if err := model.ValidatePassword(u.Password); err != nil {
			return fmt.Errorf("user %s: %w", u.Username, err)
		}
	}
	return nil
}

// Apply creates the campuses and users of f in one transaction. Entries
// that already exist are left alone, so a seed file can be applied again.
func Apply(ctx context.Context, db *sql.DB, f *File) (*Result, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res := &Result{}
	campusIDs := make(map[string]int64)

	for _, c := range f.Campuses {
		existing, err := store.GetCampusByCode(ctx, tx, c.Code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			campusIDs[c.Code] = existing.ID
			res.Skipped++
			continue
		}
		created, err := store.CreateCampus(ctx, tx, c.Name, c.Code)
		if err != nil {
			return nil, fmt.Errorf("campus %s: %w", c.Code, err)
		}
		campusIDs[c.Code] = created.ID
		res.CampusesCreated++
		slog.Info("campus seeded", "campus", c.Code)
	}

	for _, u := range f.Users {
		var campusID *int64
		if u.Campus != "" {
			id, ok := campusIDs[u.Campus]
			if !ok {
				existing, err := store.GetCampusByCode(ctx, tx, u.Campus)
				if err != nil {
					return nil, err
				}
				if existing == nil {
					return nil, fmt.Errorf("user %s: unknown campus %s", u.Username, u.Campus)
				}
				id = existing.ID
			}
			campusID = &id
		}

		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Username, err)
		}
		_, err = store.CreateUser(ctx, tx, u.Username, hash, u.Role, campusID)
		if store.IsUniqueViolation(err) {
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Username, err)
		}
		res.UsersCreated++
		slog.Info("user seeded", "new_user", u.Username, "role", u.Role)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing seed: %w", err)
	}
	return res, nil
}

package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/domain"
)

// registeredLayout is ISO-8601 in UTC with millisecond precision,
// e.g. 2026-10-15T08:04:05.123Z.
const registeredLayout = "2006-01-02T15:04:05.000Z07:00"

// record is the on-disk shape of a member. Fields the service does not manage
// are kept in extra and written back unchanged.
type record struct {
	Email      string  `json:"email"`
	Name       *string `json:"name,omitempty"`
	Password   string  `json:"password"`
	Active     bool    `json:"active"`
	Registered string  `json:"registered"`

	extra map[string]json.RawMessage
}

// recordFields has record's layout without its methods.
type recordFields record

var managedFields = []string{"email", "name", "password", "active", "registered"}

func (r *record) UnmarshalJSON(data []byte) error {
	var fields recordFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key := range all {
		if isManaged(key) {
			delete(all, key)
		}
	}

	*r = record(fields)
	if len(all) > 0 {
		r.extra = all
	}
	return nil
}

// MarshalJSON writes the managed fields first, then any extra fields in key order.
func (r record) MarshalJSON() ([]byte, error) {
	managed, err := json.Marshal(recordFields(r))
	if err != nil || len(r.extra) == 0 {
		return managed, err
	}

	keys := make([]string, 0, len(r.extra))
	for key := range r.extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(managed[:len(managed)-1])
	for _, key := range keys {
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(r.extra[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// isManaged matches the way encoding/json pairs keys with struct fields.
func isManaged(key string) bool {
	for _, f := range managedFields {
		if strings.EqualFold(f, key) {
			return true
		}
	}
	return false
}

func toRecord(u *domain.User) record {
	return record{
		Email:      u.Email,
		Name:       u.Name,
		Password:   u.PasswordHash,
		Active:     u.Active,
		Registered: u.Registered.UTC().Format(registeredLayout),
	}
}

func (r record) toDomain() (*domain.User, error) {
	var registered time.Time
	if r.Registered != "" {
		ts, err := time.Parse(time.RFC3339Nano, r.Registered)
		if err != nil {
			return nil, fmt.Errorf("parse registered for %s: %w", r.Email, err)
		}
		registered = ts.UTC()
	}
	return &domain.User{
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.Password,
		Active:       r.Active,
		Registered:   registered,
	}, nil
}

// Document is the JSON file holding the whole member collection. It is always
// read and written in full.
type Document struct {
	path string
}

func NewDocument(path string) *Document {
	return &Document{path: path}
}

func (d *Document) Path() string {
	return d.path
}

// Load reads every record. A missing file is an empty collection.
func (d *Document) Load() ([]record, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []record{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.path, err)
	}
	if records == nil {
		records = []record{}
	}
	return records, nil
}

// Save overwrites the file with records, pretty-printed with two-space indent.
func (d *Document) Save(records []record) error {
	if records == nil {
		records = []record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(d.path), 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(d.path), err)
	}
	if err := os.WriteFile(d.path, data, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	return nil
}

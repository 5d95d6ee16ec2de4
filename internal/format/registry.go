// Package format resolves which parser reads a statement file and provides
// the built-in parsers. Every parser emits model.ParsedRow values whose
// dates are calendar-valid ISO dates, whose descriptions are trimmed but
// never re-cased, and whose amounts already follow the ledger sign.
package format

import (
	"context"
	"fmt"
	"slices"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// DetectFunc reports whether a file looks like this format. It reads
// headers and structure only.
type DetectFunc func(path string) bool

// ParseFunc reads a file into parsed rows. Structural failures wrap
// common.ErrMalformedSource; malformed data rows are dropped and counted.
type ParseFunc func(path string) (*model.ParsedFile, error)

// PostImportFunc runs inside the ingest transaction after the rows it
// inserted are written.
type PostImportFunc func(ctx context.Context, tx service.Transaction, inserted []model.Transaction) error

// Format is one registered statement format.
type Format struct {
	Detect       DetectFunc
	Parse        ParseFunc
	PostImport   PostImportFunc
	Key          string
	Name         string
	AccountKinds []model.AccountKind
}

// Supports reports whether the format targets accounts of kind.
func (f Format) Supports(kind model.AccountKind) bool {
	return slices.Contains(f.AccountKinds, kind)
}

// Shadow describes two formats that compete for the same account kind.
// Later is only reached for a file when Earlier's detector rejects it.
type Shadow struct {
	Earlier string
	Later   string
	Kind    model.AccountKind
}

// Registry is an ordered list of formats. Registration order is significant:
// resolution is first-match-wins.
type Registry struct {
	formats []Format
}

// NewRegistry creates a registry holding formats in the given order.
func NewRegistry(formats ...Format) (*Registry, error) {
	r := &Registry{}
	for _, f := range formats {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a format. Keys must be unique.
func (r *Registry) Register(f Format) error {
	if f.Key == "" || f.Parse == nil || f.Detect == nil {
		return fmt.Errorf("format %q: key, detect and parse are required", f.Key)
	}
	if _, err := r.Get(f.Key); err == nil {
		return fmt.Errorf("format %q already registered", f.Key)
	}
	r.formats = append(r.formats, f)
	return nil
}

// Formats returns the registered formats in resolution order.
func (r *Registry) Formats() []Format {
	return slices.Clone(r.formats)
}

// Get returns the format registered under key.
func (r *Registry) Get(key string) (Format, error) {
	for _, f := range r.formats {
		if f.Key == key {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %s", common.ErrUnknownFormat, key)
}

// Resolve picks the format for a file. A non-empty override is used verbatim.
// Otherwise candidates are narrowed to formats supporting kind and the first
// whose detector accepts the file wins; there is no fallback.
func (r *Registry) Resolve(path string, kind model.AccountKind, override string) (Format, error) {
	if override != "" {
		return r.Get(override)
	}

	for _, f := range r.formats {
		if f.Supports(kind) && f.Detect(path) {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %s account, file %s", common.ErrNoMatchingFormat, kind, path)
}

// Shadowed lists every pair of formats sharing an account kind, in
// registration order. Such pairs silently shadow one another whenever both
// detectors accept a file.
func (r *Registry) Shadowed() []Shadow {
	var out []Shadow
	for i, earlier := range r.formats {
		for _, later := range r.formats[i+1:] {
			for _, kind := range earlier.AccountKinds {
				if later.Supports(kind) {
					out = append(out, Shadow{Earlier: earlier.Key, Later: later.Key, Kind: kind})
				}
			}
		}
	}
	return out
}

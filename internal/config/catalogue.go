package config

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/registry"
)

// LoadCatalogue reads the compiled command catalogue for the given slug
// from "<config dir>/catalogs/<slug>.bin". The file is produced upstream
// by the platform's OpenAPI/hyper-schema ingestion, which is out of
// scope for this module; LoadCatalogue treats it as an opaque,
// gob-encoded []registry.CommandSpec and returns a nil slice (not an
// error) if the slug has never been compiled locally, so a fresh config
// directory still boots with an empty REST command set.
func (s *Surface) LoadCatalogue(slug string) ([]registry.CommandSpec, error) {
	data, err := os.ReadFile(s.cataloguePath(slug))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "read_catalogue", "could not read compiled catalogue for "+slug, err)
	}

	var specs []registry.CommandSpec
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&specs); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "parse_catalogue", "catalogs/"+slug+".bin is not a valid compiled catalogue", err)
	}
	return specs, nil
}

// SaveCatalogue persists specs as the compiled catalogue for slug, for
// tooling that imports a catalogue compiled elsewhere (see LoadCatalogue).
func (s *Surface) SaveCatalogue(slug string, specs []registry.CommandSpec) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(specs); err != nil {
		return apperr.Wrap(apperr.Internal, "marshal_catalogue", "could not encode compiled catalogue for "+slug, err)
	}

	path := s.cataloguePath(slug)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.Internal, "mkdir", "could not create catalogs directory", err)
	}
	return writeAtomic(path, buf.Bytes())
}

func (s *Surface) cataloguePath(slug string) string {
	return filepath.Join(s.dir, "catalogs", slug+".bin")
}

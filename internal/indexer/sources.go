package indexer

import (
	"errors"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
)

// SourcesFromConfig wires the corpus sources cfg describes. pg is needed only
// for the postgres manifest source. Documents are always read from disk;
// with ResolveRelative a file manifest's entries resolve against its own
// directory.
func SourcesFromConfig(cfg config.CorpusConfig, pg *postgres.Client) (Sources, error) {
	src := Sources{
		NoiseWords: source.NoiseWordFile{Path: cfg.NoiseWordsPath},
		Documents:  source.Files{},
	}
	switch cfg.ManifestSource {
	case config.ManifestSourcePostgres:
		if pg == nil {
			return Sources{}, errors.New("postgres manifest source needs a postgres connection")
		}
		src.Manifest = source.NewPostgresManifest(pg, cfg.ManifestName)
	default:
		m := source.ManifestFile{Path: cfg.ManifestPath}
		src.Manifest = m
		if cfg.ResolveRelative {
			src.Documents = source.Files{Root: m.Dir()}
		}
	}
	return src, nil
}

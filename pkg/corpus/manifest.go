package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eunmann/urlcorpus/pkg/urlgen"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

// ManifestSuffix is appended to a corpus path to name its manifest.
const ManifestSuffix = ".manifest.json"

// Manifest describes how a corpus file was produced and what it contains.
type Manifest struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Format    Format    `json:"format"`
	Source    string    `json:"source"`
	// Seed is 0 for non-deterministic corpora.
	Seed         uint64 `json:"seed"`
	Scheme       string `json:"scheme"`
	DomainLength int    `json:"domain_length"`
	PathLength   int    `json:"path_length"`
	Lines        int64  `json:"lines"`
	Size         int64  `json:"size"`
	Checksum     string `json:"checksum"` // SHA-256 hex
}

// Options returns the URL shape recorded in the manifest.
func (m *Manifest) Options() urlgen.Options {
	return urlgen.Options{
		UseHTTPS:     m.Scheme == "https",
		DomainLength: m.DomainLength,
		PathLength:   m.PathLength,
	}
}

// ManifestPath returns the manifest path for a corpus file.
func ManifestPath(corpusPath string) string {
	return corpusPath + ManifestSuffix
}

// NewManifest describes the corpus produced by a finished Write.
func NewManifest(cfg Config, res *Result, source string, seed uint64) (*Manifest, error) {
	checksum, err := checksumFile(res.Path)
	if err != nil {
		return nil, ioErr("checksum", res.Path, err)
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		return nil, ioErr("stat", res.Path, err)
	}
	return &Manifest{
		Version:      ManifestVersion,
		CreatedAt:    time.Now().UTC(),
		Format:       res.Format,
		Source:       source,
		Seed:         seed,
		Scheme:       cfg.Options.Scheme(),
		DomainLength: cfg.Options.DomainLength,
		PathLength:   cfg.Options.PathLength,
		Lines:        res.Lines,
		Size:         info.Size(),
		Checksum:     checksum,
	}, nil
}

// WriteManifest writes m next to the corpus at corpusPath.
func WriteManifest(corpusPath string, m *Manifest) error {
	path := ManifestPath(corpusPath)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeFileSync(path, data); err != nil {
		return ioErr("write manifest", path, err)
	}
	return nil
}

// ReadManifest reads the manifest of the corpus at corpusPath.
func ReadManifest(corpusPath string) (*Manifest, error) {
	path := ManifestPath(corpusPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioErr("read manifest", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest %s: %w", path, err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("manifest %s: unsupported version %d", path, m.Version)
	}
	return &m, nil
}

// VerifyManifest checks the corpus at corpusPath against m's size and checksum.
func VerifyManifest(corpusPath string, m *Manifest) error {
	stat, err := os.Stat(corpusPath)
	if err != nil {
		return ioErr("stat", corpusPath, err)
	}
	if stat.Size() != m.Size {
		return fmt.Errorf("corpus %s: size mismatch (got %d, want %d)", corpusPath, stat.Size(), m.Size)
	}

	checksum, err := checksumFile(corpusPath)
	if err != nil {
		return ioErr("checksum", corpusPath, err)
	}
	if checksum != m.Checksum {
		return fmt.Errorf("corpus %s: checksum mismatch", corpusPath)
	}
	return nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

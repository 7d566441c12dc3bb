package apecore

import (
	"bytes"
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"github.com/openztcc/apecore/ape"
	"github.com/pkg/errors"
)

// Catalog is an SQLite database of scanned sprites.
type Catalog struct {
	db     *sql.DB
	logger *log.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Sprite is one catalog entry.
type Sprite struct {
	Path        string
	SHA1        string
	Header      ape.Header
	PalettePath string // empty if the palette couldn't be found
	ScanID      string
	HasPreview  bool
}

// NewCatalog opens or creates the catalog in file. A nil logger discards
// everything.
func NewCatalog(file string, logger *log.Logger) (*Catalog, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS scan (id TEXT PRIMARY KEY NOT NULL, root TEXT NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS sprite (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, sha1 TEXT NOT NULL, speed INTEGER NOT NULL, frames INTEGER NOT NULL, palette_name TEXT NOT NULL, palette_path TEXT NOT NULL, background INTEGER NOT NULL, scan_id TEXT NOT NULL, FOREIGN KEY(scan_id) REFERENCES scan(id))"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS preview (sprite_id INTEGER PRIMARY KEY NOT NULL, png BLOB NOT NULL, FOREIGN KEY(sprite_id) REFERENCES sprite(id) ON DELETE CASCADE)"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &Catalog{
		db:     db,
		logger: logger,
		enc:    enc,
		dec:    dec,
	}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}

func (c *Catalog) addScan(id, root string) error {
	_, err := c.db.Exec("INSERT INTO scan (id, root) VALUES (?, ?)", id, root)
	return err
}

func (c *Catalog) addSprite(s Sprite, preview image.Image) error {
	background := 0
	if s.Header.Background {
		background = 1
	}

	if _, err := c.db.Exec("INSERT INTO sprite (path, sha1, speed, frames, palette_name, palette_path, background, scan_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(path) DO UPDATE SET sha1 = excluded.sha1, speed = excluded.speed, frames = excluded.frames, palette_name = excluded.palette_name, palette_path = excluded.palette_path, background = excluded.background, scan_id = excluded.scan_id", s.Path, s.SHA1, s.Header.Speed, s.Header.FrameCount, s.Header.PaletteName, s.PalettePath, background, s.ScanID); err != nil {
		return err
	}

	var id int64
	if err := c.db.QueryRow("SELECT id FROM sprite WHERE path = ?", s.Path).Scan(&id); err != nil {
		return err
	}

	if preview == nil {
		_, err := c.db.Exec("DELETE FROM preview WHERE sprite_id = ?", id)
		return err
	}

	b := new(bytes.Buffer)
	if err := png.Encode(b, preview); err != nil {
		return err
	}
	_, err := c.db.Exec("INSERT OR REPLACE INTO preview (sprite_id, png) VALUES (?, ?)", id, c.enc.EncodeAll(b.Bytes(), nil))
	return err
}

const spriteQuery = "SELECT s.path, s.sha1, s.speed, s.frames, s.palette_name, s.palette_path, s.background, s.scan_id, p.sprite_id IS NOT NULL FROM sprite AS s LEFT JOIN preview AS p ON p.sprite_id = s.id"

func scanSprite(row interface{ Scan(...interface{}) error }) (Sprite, error) {
	var s Sprite
	err := row.Scan(&s.Path, &s.SHA1, &s.Header.Speed, &s.Header.FrameCount, &s.Header.PaletteName, &s.PalettePath, &s.Header.Background, &s.ScanID, &s.HasPreview)
	return s, err
}

// Sprites returns every catalog entry ordered by path.
func (c *Catalog) Sprites() ([]Sprite, error) {
	rows, err := c.db.Query(spriteQuery + " ORDER BY s.path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sprites []Sprite
	for rows.Next() {
		s, err := scanSprite(rows)
		if err != nil {
			return nil, err
		}
		sprites = append(sprites, s)
	}
	return sprites, rows.Err()
}

// FindSprite returns the entry for path, or nil if there isn't one.
func (c *Catalog) FindSprite(path string) (*Sprite, error) {
	switch s, err := scanSprite(c.db.QueryRow(spriteQuery+" WHERE s.path = ?", path)); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return &s, nil
	default:
		return nil, err
	}
}

// Preview returns the stored preview of path, or nil if there isn't one.
func (c *Catalog) Preview(path string) (image.Image, error) {
	var blob []byte
	switch err := c.db.QueryRow("SELECT p.png FROM preview AS p JOIN sprite AS s ON p.sprite_id = s.id WHERE s.path = ?", path).Scan(&blob); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		b, err := c.dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		return png.Decode(bytes.NewReader(b))
	default:
		return nil, err
	}
}

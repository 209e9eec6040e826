package ogimage

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// SettingDefaultImage is the settings key holding the default og:image URL.
const SettingDefaultImage = "default_image"

// Store wraps a SQLite database and provides CRUD operations for posts,
// images, and site settings.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during writes; busy_timeout makes writers wait
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    date TEXT NOT NULL,
    tags TEXT NOT NULL,
    summary TEXT NOT NULL,
    content TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL,
    post_slug TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_images_post ON images(post_slug, position, uploaded_at);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`)
	if err != nil {
		return err
	}
	return s.addColumn(`ALTER TABLE posts ADD COLUMN featured_image TEXT NOT NULL DEFAULT '';`)
}

// addColumn runs an additive migration, tolerating reruns.
func (s *Store) addColumn(stmt string) error {
	if _, err := s.db.Exec(stmt); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return nil
		}
		return err
	}
	return nil
}

const postColumns = `slug, title, date, tags, summary, content, published, featured_image`

func scanPost(sc interface{ Scan(...any) error }) (BlogPost, error) {
	var slug, title, date, tags, summary, content, featured string
	var published int
	if err := sc.Scan(&slug, &title, &date, &tags, &summary, &content, &published, &featured); err != nil {
		return BlogPost{}, err
	}
	return BlogPost{
		Slug:          slug,
		Title:         title,
		Date:          date,
		Tags:          ParseTags(tags),
		Summary:       summary,
		Content:       content,
		Link:          "/blog/" + slug,
		Published:     published == 1,
		FeaturedImage: featured,
	}, nil
}

func (s *Store) queryPosts(query string, args ...any) ([]BlogPost, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPosts returns all published posts ordered by date descending.
// If tag is non-empty, results are filtered to posts containing that tag.
func (s *Store) ListPosts(tag string) ([]BlogPost, error) {
	if tag == "" {
		return s.queryPosts(`SELECT ` + postColumns + ` FROM posts WHERE published = 1 ORDER BY date DESC`)
	}
	normalizedTag := strings.ToLower(strings.TrimSpace(tag))
	return s.queryPosts(`SELECT `+postColumns+` FROM posts WHERE published = 1 AND instr(lower(tags), ',' || ? || ',') > 0 ORDER BY date DESC`, normalizedTag)
}

// ListTags returns a sorted, deduplicated slice of all tags from published posts.
func (s *Store) ListTags() ([]string, error) {
	rows, err := s.db.Query(`SELECT tags FROM posts WHERE published = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range ParseTags(tags) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var result []string
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

// GetPost returns a single published post by slug.
func (s *Store) GetPost(slug string) (BlogPost, error) {
	return scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ? AND published = 1`, slug))
}

// GetPostAny returns a post by slug regardless of published status (for admin).
func (s *Store) GetPostAny(slug string) (BlogPost, error) {
	return scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug))
}

// ListAllPosts returns every post (published and drafts) ordered by date descending.
func (s *Store) ListAllPosts() ([]BlogPost, error) {
	return s.queryPosts(`SELECT ` + postColumns + ` FROM posts ORDER BY date DESC`)
}

// SavePost upserts a blog post. Tags are normalized to lowercase.
func (s *Store) SavePost(p BlogPost) error {
	normalizedTags := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		normalizedTags[i] = strings.ToLower(strings.TrimSpace(t))
	}
	tagString := "," + strings.Join(normalizedTags, ",") + ","
	published := 0
	if p.Published {
		published = 1
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Date, tagString, p.Summary, p.Content, published, p.FeaturedImage)
	return err
}

// SetFeaturedImage points a post's featured image at filename ("" clears it).
func (s *Store) SetFeaturedImage(slug, filename string) error {
	res, err := s.db.Exec(`UPDATE posts SET featured_image = ? WHERE slug = ?`, filename, slug)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeletePost removes a post by slug. Its attachments are detached, not deleted.
func (s *Store) DeletePost(slug string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM posts WHERE slug = ?`, slug); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE images SET post_slug = '', position = 0 WHERE post_slug = ?`, slug); err != nil {
		return err
	}
	return tx.Commit()
}

const imageColumns = `filename, original_name, width, height, size, uploaded_at, post_slug, position`

func scanImage(sc interface{ Scan(...any) error }) (Image, error) {
	var img Image
	err := sc.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt, &img.PostSlug, &img.Position)
	return img, err
}

func (s *Store) queryImages(query string, args ...any) ([]Image, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// SaveImage upserts image metadata. An attachment without an explicit
// position is appended after the post's existing attachments.
func (s *Store) SaveImage(img Image) error {
	if img.PostSlug != "" && img.Position == 0 {
		var maxPos sql.NullInt64
		if err := s.db.QueryRow(`SELECT MAX(position) FROM images WHERE post_slug = ? AND filename != ?`, img.PostSlug, img.Filename).Scan(&maxPos); err != nil {
			return err
		}
		img.Position = int(maxPos.Int64) + 1
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO images (`+imageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt, img.PostSlug, img.Position)
	return err
}

// GetImage returns image metadata by filename.
func (s *Store) GetImage(filename string) (Image, error) {
	return scanImage(s.db.QueryRow(`SELECT `+imageColumns+` FROM images WHERE filename = ?`, filename))
}

// ListImages returns all images, newest first.
func (s *Store) ListImages() ([]Image, error) {
	return s.queryImages(`SELECT ` + imageColumns + ` FROM images ORDER BY uploaded_at DESC, filename`)
}

// ListAttachments returns the images attached to a post in attachment order.
func (s *Store) ListAttachments(slug string) ([]Image, error) {
	return s.queryImages(`SELECT `+imageColumns+` FROM images WHERE post_slug = ? ORDER BY position, uploaded_at, filename`, slug)
}

// DeleteImage removes image metadata and clears it as any post's featured image.
func (s *Store) DeleteImage(filename string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM images WHERE filename = ?`, filename); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE posts SET featured_image = '' WHERE featured_image = ?`, filename); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

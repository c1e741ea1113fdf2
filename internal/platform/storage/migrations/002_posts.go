package migrations

import "gorm.io/gorm"

// Migration002Posts creates the post drafts and publication log used by the tools.
type Migration002Posts struct{}

func (m *Migration002Posts) Version() string {
	return "002_posts"
}

func (m *Migration002Posts) Description() string {
	return "Create posts and publications tables"
}

func (m *Migration002Posts) Up(db *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id VARCHAR(255) NOT NULL,
			platform VARCHAR(64) NOT NULL,
			content TEXT NOT NULL,
			image_url TEXT,
			hashtags JSON,
			status VARCHAR(32) NOT NULL,
			scheduled_at DATETIME,
			published_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_owner_id ON posts(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status)`,
		`CREATE TABLE IF NOT EXISTS publications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			post_id INTEGER NOT NULL,
			platform VARCHAR(64) NOT NULL,
			external_ref VARCHAR(128),
			published_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publications_post_id ON publications(post_id)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration002Posts) Down(db *gorm.DB) error {
	if err := db.Exec(`DROP TABLE IF EXISTS publications`).Error; err != nil {
		return err
	}
	return db.Exec(`DROP TABLE IF EXISTS posts`).Error
}

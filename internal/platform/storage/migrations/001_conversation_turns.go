package migrations

import "gorm.io/gorm"

// Migration001ConversationTurns creates the per-user conversation log.
type Migration001ConversationTurns struct{}

func (m *Migration001ConversationTurns) Version() string {
	return "001_conversation_turns"
}

func (m *Migration001ConversationTurns) Description() string {
	return "Create conversation_turns table"
}

func (m *Migration001ConversationTurns) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversation_turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			turn_id VARCHAR(64) NOT NULL UNIQUE,
			user_id VARCHAR(255) NOT NULL,
			role VARCHAR(16) NOT NULL,
			message TEXT,
			function_calls JSON,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}

	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_turns_user_created ON conversation_turns(user_id, created_at)`).Error
}

func (m *Migration001ConversationTurns) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS conversation_turns`).Error
}

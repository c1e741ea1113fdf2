package migrations

import "gorm.io/gorm"

type Migration003ExchangeEvents struct{}

func (m *Migration003ExchangeEvents) Version() string {
	return "003_exchange_events"
}

func (m *Migration003ExchangeEvents) Description() string {
	return "Create exchange_events audit table"
}

func (m *Migration003ExchangeEvents) Up(db *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS exchange_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type VARCHAR(64) NOT NULL,
			conversation_id VARCHAR(64),
			user_id VARCHAR(255),
			data JSON,
			created_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_events_event_type ON exchange_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_events_conversation_id ON exchange_events(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_events_user_id ON exchange_events(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_events_created_at ON exchange_events(created_at)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration003ExchangeEvents) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS exchange_events`).Error
}

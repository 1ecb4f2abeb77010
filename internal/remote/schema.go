package remote

import "database/sql"

// CreateTables builds the schema for self-contained mode, where no
// backend has done it yet. Statements are idempotent.
func CreateTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username VARCHAR(32) NOT NULL UNIQUE,
			display_name VARCHAR(64) NOT NULL,
			picture TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS servers (
			id BIGINT PRIMARY KEY,
			owner_id BIGINT NOT NULL,
			name VARCHAR(64) NOT NULL,
			picture TEXT NOT NULL,
			banner TEXT NOT NULL,
			is_dm BOOLEAN NOT NULL DEFAULT FALSE,
			FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS server_members (
			id BIGINT PRIMARY KEY,
			server_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			since TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS channels (
			id BIGINT PRIMARY KEY,
			server_id BIGINT NOT NULL,
			name VARCHAR(32) NOT NULL,
			FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGINT PRIMARY KEY,
			channel_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			message TEXT NOT NULL,
			edited BOOLEAN NOT NULL DEFAULT FALSE,
			FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS roles (
			id BIGINT PRIMARY KEY,
			server_id BIGINT NOT NULL,
			name VARCHAR(32) NOT NULL,
			color VARCHAR(16) NOT NULL DEFAULT '',
			position INT NOT NULL DEFAULT 0,
			permissions BIGINT NOT NULL DEFAULT 0,
			FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS member_roles (
			role_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			PRIMARY KEY (role_id, user_id),
			FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS channel_permissions (
			channel_id BIGINT NOT NULL,
			role_id BIGINT NOT NULL,
			permissions BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (channel_id, role_id),
			FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
			FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS relations (
			id BIGINT PRIMARY KEY,
			user1 BIGINT NOT NULL,
			user2 BIGINT NOT NULL,
			kind VARCHAR(32) NOT NULL,
			FOREIGN KEY (user1) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (user2) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS dm_channels (
			id BIGINT PRIMARY KEY,
			server_id BIGINT NOT NULL,
			channel_id BIGINT NOT NULL,
			user1 BIGINT NOT NULL,
			user2 BIGINT NOT NULL,
			FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE,
			FOREIGN KEY (user1) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (user2) REFERENCES users(id) ON DELETE CASCADE
		);`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

package database

import (
	"context"
	"database/sql"
)

// Schema statements executed at startup, mirroring the original
// deploy-anywhere behavior of creating tables on first run.  The
// stored generated column open_key is the structural safeguard for the
// at-most-one-open-checkout invariant: it carries the key number only
// while checkin_time is null, and the unique index ignores nulls, so
// the database itself rejects a second open row per key even if two
// writers race past the locked precondition check.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS spaces (
		key_number   BIGINT       NOT NULL,
		display_name VARCHAR(255) NOT NULL,
		location     VARCHAR(255) NULL,
		category     VARCHAR(32)  NOT NULL DEFAULT 'ROOM',
		is_active    TINYINT(1)   NOT NULL DEFAULT 1,
		created_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (key_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS persons (
		id            CHAR(36)     NOT NULL,
		name          VARCHAR(255) NOT NULL,
		external_code VARCHAR(64)  NULL,
		phone         VARCHAR(32)  NULL,
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id                 CHAR(36)     NOT NULL,
		key_number         BIGINT       NOT NULL,
		holder_name        VARCHAR(255) NOT NULL,
		holder_code        VARCHAR(64)  NULL,
		holder_phone       VARCHAR(32)  NULL,
		checkout_time      DATETIME     NOT NULL,
		due_time           DATETIME     NULL,
		checkin_time       DATETIME     NULL,
		status             VARCHAR(16)  NOT NULL,
		checkout_signature MEDIUMBLOB   NULL,
		checkin_signature  MEDIUMBLOB   NULL,
		open_key           BIGINT       AS (IF(checkin_time IS NULL, key_number, NULL)) STORED,
		PRIMARY KEY (id),
		UNIQUE KEY uniq_open_key (open_key),
		KEY idx_tx_key_checkout (key_number, checkout_time),
		CONSTRAINT fk_tx_space FOREIGN KEY (key_number) REFERENCES spaces (key_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS authorizations (
		id             CHAR(36)     NOT NULL,
		key_number     BIGINT       NOT NULL,
		memo_reference VARCHAR(255) NOT NULL,
		valid_from     DATETIME     NULL,
		valid_to       DATETIME     NULL,
		revoked_at     DATETIME     NULL,
		created_at     DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_auth_key (key_number),
		CONSTRAINT fk_auth_space FOREIGN KEY (key_number) REFERENCES spaces (key_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS authorization_members (
		authorization_id CHAR(36) NOT NULL,
		person_id        CHAR(36) NOT NULL,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (authorization_id, person_id),
		CONSTRAINT fk_member_auth   FOREIGN KEY (authorization_id) REFERENCES authorizations (id),
		CONSTRAINT fk_member_person FOREIGN KEY (person_id) REFERENCES persons (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

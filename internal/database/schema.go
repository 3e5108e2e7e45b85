package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement at startup. Every statement is
// idempotent so running it against an existing database is a no-op.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		kind          VARCHAR(16)  NOT NULL,
		name          VARCHAR(255) NOT NULL,
		phone         VARCHAR(32)  NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		unique_code   CHAR(8)      NOT NULL,
		parent_phone  VARCHAR(32)  NOT NULL DEFAULT '',
		city          VARCHAR(128) NOT NULL DEFAULT '',
		lang          VARCHAR(16)  NOT NULL DEFAULT '',
		grade         VARCHAR(32)  NOT NULL DEFAULT '',
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_accounts_kind_email (kind, email),
		UNIQUE KEY uq_accounts_kind_phone (kind, phone),
		UNIQUE KEY uq_accounts_code (unique_code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		account_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_account (account_id),
		CONSTRAINT fk_refresh_tokens_account FOREIGN KEY (account_id) REFERENCES accounts (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS catalog_documents (
		id         TINYINT UNSIGNED PRIMARY KEY,
		version    BIGINT UNSIGNED NOT NULL,
		body       JSON            NOT NULL,
		updated_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS receipts (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		student_id   BIGINT UNSIGNED NOT NULL,
		student_code CHAR(8)         NOT NULL,
		receipt_type VARCHAR(32)     NOT NULL,
		item_id      INT             NOT NULL,
		item_path    VARCHAR(512)    NOT NULL DEFAULT '',
		amount       DECIMAL(12,2)   NOT NULL,
		description  VARCHAR(1024)   NOT NULL DEFAULT '',
		created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_receipts_student (student_id, receipt_type)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS payments (
		id                BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		merchant_order_id CHAR(36)        NOT NULL,
		student_id        BIGINT UNSIGNED NOT NULL,
		item_type         VARCHAR(16)     NOT NULL,
		item_id           INT             NOT NULL,
		item_path         VARCHAR(512)    NOT NULL,
		amount            DECIMAL(12,2)   NOT NULL,
		status            VARCHAR(16)     NOT NULL,
		payment_method    VARCHAR(32)     NOT NULL,
		gateway_reference VARCHAR(128)    NOT NULL DEFAULT '',
		created_at        DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_payments_order (merchant_order_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

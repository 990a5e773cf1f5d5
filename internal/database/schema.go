package database

import (
	"context"
	"database/sql"
)

// schema holds the DDL for every table the service owns.  Statements are
// idempotent so EnsureSchema can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email VARCHAR(255) NOT NULL,
		fullname VARCHAR(100) NOT NULL,
		role ENUM('AUTHOR','REVIEWER','CHAIR','ADMIN') NOT NULL DEFAULT 'AUTHOR',
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS security_questions (
		user_id BIGINT UNSIGNED NOT NULL,
		idx TINYINT UNSIGNED NOT NULL,
		question VARCHAR(500) NOT NULL,
		answer_hash VARCHAR(255) NOT NULL,
		PRIMARY KEY (user_id, idx),
		CONSTRAINT fk_sq_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS papers (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		owner_user_id BIGINT UNSIGNED NOT NULL,
		title VARCHAR(500) NOT NULL,
		abstract TEXT NOT NULL,
		keywords VARCHAR(255) NOT NULL,
		conference_id BIGINT UNSIGNED NOT NULL,
		track_id BIGINT UNSIGNED NOT NULL,
		pdf_blob_ref VARCHAR(500) NOT NULL,
		status ENUM('DRAFT','PENDING','ACCEPTED','REJECTED','WITHDRAWN') NOT NULL DEFAULT 'PENDING',
		submitted_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_papers_owner (owner_user_id),
		CONSTRAINT fk_papers_owner FOREIGN KEY (owner_user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS paper_authors (
		paper_id BIGINT UNSIGNED NOT NULL,
		position INT NOT NULL,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		PRIMARY KEY (paper_id, position),
		CONSTRAINT fk_pa_paper FOREIGN KEY (paper_id) REFERENCES papers(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS assignments (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		paper_id BIGINT UNSIGNED NOT NULL,
		reviewer_user_id BIGINT UNSIGNED NOT NULL,
		status ENUM('ASSIGNED','IN_PROGRESS','SUBMITTED','DECLINED') NOT NULL DEFAULT 'ASSIGNED',
		deadline_date DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_assignments_reviewer (reviewer_user_id),
		KEY idx_assignments_paper (paper_id),
		CONSTRAINT fk_asg_paper FOREIGN KEY (paper_id) REFERENCES papers(id),
		CONSTRAINT fk_asg_reviewer FOREIGN KEY (reviewer_user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		assignment_id BIGINT UNSIGNED NOT NULL,
		score TINYINT NOT NULL,
		comment TEXT NOT NULL,
		submitted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_reviews_assignment (assignment_id),
		CONSTRAINT fk_reviews_assignment FOREIGN KEY (assignment_id) REFERENCES assignments(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS decisions (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		paper_id BIGINT UNSIGNED NOT NULL,
		chair_user_id BIGINT UNSIGNED NOT NULL,
		status ENUM('ACCEPTED','REJECTED') NOT NULL,
		decided_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_decisions_paper (paper_id),
		CONSTRAINT fk_dec_paper FOREIGN KEY (paper_id) REFERENCES papers(id),
		CONSTRAINT fk_dec_chair FOREIGN KEY (chair_user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates all tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

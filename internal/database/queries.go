/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

// Queries shared by both dialects. Placeholders are $n and each is used once,
// in order, so go-sqlite3 binds them positionally as well.
const (
	queryListRecent = `
		SELECT id, category, amount, date, description
		FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2`

	querySummaryAllTime = `
		SELECT category, SUM(amount) AS total
		FROM transactions
		WHERE user_id = $1
		GROUP BY category`

	querySummarySince = `
		SELECT category, SUM(amount) AS total
		FROM transactions
		WHERE user_id = $1 AND date >= $2
		GROUP BY category`

	queryExportAll = `
		SELECT id, user_id, category, amount, currency, date, description, tags,
		       merchant, payment_method, transaction_type, is_recurring, recurring_period,
		       status, bill_due_date, attachment_url, created_at, updated_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY date, id`

	queryPing = `SELECT 1`
)

// Postgres dialect
const (
	postgresSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY,
		user_id BIGINT,
		category TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		currency TEXT DEFAULT 'INR',
		date DATE NOT NULL,
		description TEXT,
		tags JSONB,
		merchant TEXT,
		payment_method TEXT,
		transaction_type TEXT DEFAULT 'expense',
		is_recurring BOOLEAN DEFAULT FALSE,
		recurring_period TEXT,
		status TEXT DEFAULT 'paid',
		bill_due_date DATE,
		attachment_url TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
	`

	// Next id is max(id)+1, computed in the same statement. Not atomic across
	// concurrent inserts: a collision surfaces as a primary key violation.
	postgresInsert = `
		INSERT INTO transactions
			(id, user_id, category, amount, currency, date, description, tags, created_at, updated_at)
		SELECT COALESCE(MAX(id), 0) + 1, $1::bigint, $2::text, $3::double precision, $4::text,
		       $5::date, $6::text, $7::jsonb, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		FROM transactions
		RETURNING id`

	postgresCopy = `
		INSERT INTO transactions
			(id, user_id, category, amount, currency, date, description, tags, merchant,
			 payment_method, transaction_type, is_recurring, recurring_period, status,
			 bill_due_date, attachment_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12, $13, $14, $15, $16,
		        COALESCE($17, CURRENT_TIMESTAMP), COALESCE($18, CURRENT_TIMESTAMP))
		ON CONFLICT (id) DO NOTHING`
)

// SQLite dialect
const (
	sqliteSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY,
		user_id INTEGER,
		category TEXT NOT NULL,
		amount REAL NOT NULL,
		currency TEXT DEFAULT 'INR',
		date DATE NOT NULL,
		description TEXT,
		tags TEXT,
		merchant TEXT,
		payment_method TEXT,
		transaction_type TEXT DEFAULT 'expense',
		is_recurring BOOLEAN DEFAULT 0,
		recurring_period TEXT,
		status TEXT DEFAULT 'paid',
		bill_due_date DATE,
		attachment_url TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
	`

	sqliteInsert = `
		INSERT INTO transactions
			(id, user_id, category, amount, currency, date, description, tags, created_at, updated_at)
		SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		FROM transactions
		RETURNING id`

	sqliteCopy = `
		INSERT OR IGNORE INTO transactions
			(id, user_id, category, amount, currency, date, description, tags, merchant,
			 payment_method, transaction_type, is_recurring, recurring_period, status,
			 bill_due_date, attachment_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        COALESCE($17, CURRENT_TIMESTAMP), COALESCE($18, CURRENT_TIMESTAMP))`

	sqliteTableInfo = `SELECT name FROM pragma_table_info('transactions')`
)

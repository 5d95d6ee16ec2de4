package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// defaultCategory is one seeded taxonomy leaf.
type defaultCategory struct {
	name, kind, taxLine, formLine, description string
}

// defaultCategories is the Schedule C oriented taxonomy every new ledger starts with.
var defaultCategories = []defaultCategory{
	{"Client Services", "income", "Gross receipts", "", "Project fees, retainer payments"},
	{"Hosting & Maintenance", "income", "Gross receipts", "", "Recurring client hosting/maintenance fees"},
	{"Reimbursements", "income", "Gross receipts", "", "Client reimbursements for expenses"},
	{"Interest Income", "income", "Other income", "K-4", "Bank interest"},
	{"Other Income", "income", "Other income", "", "Anything else"},
	{"Advertising & Marketing", "expense", "Line 8", "1120S-16", "Ads, sponsorships, marketing tools"},
	{"Car & Truck", "expense", "Line 9", "1120S-19", "Mileage, fuel, parking"},
	{"Commissions & Fees", "expense", "Line 10", "1120S-19", "Subcontractor commissions, platform fees"},
	{"Contract Labor", "expense", "Line 11", "1120S-19", "Freelancers, subcontractors (1099 work)"},
	{"Insurance", "expense", "Line 15", "1120S-19", "Business insurance, E&O"},
	{"Legal & Professional", "expense", "Line 17", "1120S-19", "Accountant, lawyer, professional services"},
	{"Office Expense", "expense", "Line 18", "1120S-19", "Office supplies, minor equipment"},
	{"Rent / Lease", "expense", "Line 20b", "1120S-11", "Office rent, coworking"},
	{"Software & Subscriptions", "expense", "Line 18/27a", "1120S-19", "SaaS tools, domain renewals, cloud services"},
	{"Hosting & Infrastructure", "expense", "Line 18/27a", "1120S-19", "AWS, server costs, CDN"},
	{"Taxes & Licenses", "expense", "Line 23", "1120S-12", "Business licenses, state fees"},
	{"Travel", "expense", "Line 24a", "1120S-19", "Flights, hotels, conference travel"},
	{"Meals", "expense", "Line 24b", "1120S-19", "Business meals (50% deductible)"},
	{"Utilities", "expense", "Line 25", "1120S-19", "Internet, phone (business portion)"},
	{"Payroll — Wages", "expense", "Line 26", "1120S-8", "Employee salaries (from Gusto)"},
	{"Payroll — Taxes", "expense", "Line 23", "1120S-12", "Employer payroll taxes (from Gusto)"},
	{"Payroll — Benefits", "expense", "Line 14", "1120S-18", "Health insurance, retirement (from Gusto)"},
	{"Bank & Merchant Fees", "expense", "Line 27a", "1120S-19", "Stripe fees, bank charges, wire fees"},
	{"Education & Training", "expense", "Line 27a", "1120S-19", "Courses, books, conferences"},
	{"Equipment", "expense", "Line 13", "1120S-19", "Hardware, major purchases"},
	{"Home Office", "expense", "Line 30", "1120S-19", "Simplified method or actual expenses"},
	{"Owner Draw / Distribution", "expense", "Not deductible", "K-16d", "Owner payments, distributions"},
	{"Transfer", "expense", "Not deductible", "", "Transfers between own accounts"},
	{"Uncategorized", "expense", "—", "", "Needs review"},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					account_type TEXT NOT NULL CHECK (account_type IN ('checking', 'credit_card', 'line_of_credit', 'payroll')),
					institution TEXT,
					last_four TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					category_type TEXT NOT NULL CHECK (category_type IN ('income', 'expense')),
					tax_line TEXT,
					form_line TEXT,
					description TEXT,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS imports (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					filename TEXT NOT NULL,
					account_id INTEGER NOT NULL REFERENCES accounts(id),
					format TEXT NOT NULL,
					imported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					record_count INTEGER NOT NULL DEFAULT 0,
					date_range_start TEXT,
					date_range_end TEXT,
					checksum TEXT NOT NULL,
					UNIQUE (account_id, checksum)
				)`,

				// amount is the exact decimal string with trailing zeros
				// dropped, so the duplicate key compares exactly.
				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					account_id INTEGER NOT NULL REFERENCES accounts(id),
					date TEXT NOT NULL,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					category_id INTEGER REFERENCES categories(id),
					vendor TEXT,
					unresolved BOOLEAN NOT NULL DEFAULT 1,
					unresolved_reason TEXT,
					import_id INTEGER REFERENCES imports(id),
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					CHECK ((category_id IS NULL AND unresolved = 1) OR (category_id IS NOT NULL AND unresolved = 0))
				)`,
				`CREATE UNIQUE INDEX idx_transactions_dedup ON transactions(account_id, date, amount, description)`,
				`CREATE INDEX idx_transactions_unresolved ON transactions(unresolved, id)`,
				`CREATE INDEX idx_transactions_category ON transactions(category_id)`,

				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					pattern TEXT NOT NULL,
					match_type TEXT NOT NULL DEFAULT 'contains' CHECK (match_type IN ('contains', 'starts_with', 'regex')),
					vendor TEXT,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					priority INTEGER NOT NULL DEFAULT 0,
					hit_count INTEGER NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_active ON rules(is_active, priority DESC, id)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add checkpoint metadata",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS checkpoint_metadata (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					description TEXT,
					file_size INTEGER,
					row_counts TEXT,
					schema_version INTEGER,
					is_auto BOOLEAN DEFAULT 0
				)`,
				`CREATE INDEX idx_checkpoint_metadata_created_at ON checkpoint_metadata(created_at)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Seed default categories",
		Up: func(tx *sql.Tx) error {
			stmt, err := tx.Prepare(`
				INSERT OR IGNORE INTO categories (name, category_type, tax_line, form_line, description)
				VALUES (?, ?, ?, ?, ?)
			`)
			if err != nil {
				return fmt.Errorf("failed to prepare category seed: %w", err)
			}
			defer func() { _ = stmt.Close() }()

			for _, c := range defaultCategories {
				if _, err := stmt.Exec(c.name, c.kind, nullIfEmpty(c.taxLine), nullIfEmpty(c.formLine), c.description); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", c.name, err)
				}
			}
			return nil
		},
	},
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// nullIfEmpty maps "" to SQL NULL for optional text columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

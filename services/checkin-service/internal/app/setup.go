package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andino/pulso/services/checkin-service/internal/db"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the check-in schema",
	Long:  "Creates the employees, checkins and tasks tables in the database underneath the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if err := db.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		fmt.Println("Running migrations...")
		migrationSQL := `
			CREATE EXTENSION IF NOT EXISTS "pgcrypto";

			CREATE TABLE IF NOT EXISTS employees (
			    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			    email VARCHAR(255) NOT NULL UNIQUE,
			    name VARCHAR(255) NOT NULL DEFAULT '',
			    active BOOLEAN NOT NULL DEFAULT TRUE
			);

			-- The id is the originating thread id (or first message id), so
			-- redelivered webhooks upsert instead of duplicating rows.
			CREATE TABLE IF NOT EXISTS checkins (
			    id TEXT PRIMARY KEY,
			    date DATE NOT NULL,
			    employee_id UUID NOT NULL REFERENCES employees(id),
			    thread_id TEXT,
			    first_message_id TEXT,
			    reply_received_at TIMESTAMP WITH TIME ZONE,
			    UNIQUE (date, employee_id)
			);

			CREATE INDEX IF NOT EXISTS idx_checkins_date ON checkins(date);
			CREATE INDEX IF NOT EXISTS idx_checkins_employee_id ON checkins(employee_id);

			CREATE TABLE IF NOT EXISTS tasks (
			    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			    checkin_id TEXT NOT NULL REFERENCES checkins(id) ON DELETE CASCADE,
			    title TEXT NOT NULL,
			    status VARCHAR(32) NOT NULL DEFAULT 'en_progreso',
			    progress INTEGER,
			    next_steps TEXT,
			    blocker TEXT,
			    task_order INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX IF NOT EXISTS idx_tasks_checkin_id ON tasks(checkin_id);
		`

		if _, err := db.Pool.Exec(ctx, migrationSQL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		fmt.Println("✓ Database setup complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

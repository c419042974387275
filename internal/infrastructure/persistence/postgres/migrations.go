// Package postgres implements the PostgreSQL persistence layer.
package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_profiles_and_habits",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_habit_logs",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_partnerships",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROFILES AND HABITS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create profiles and habits tables
-- Version: 001

-- Profiles mirror the external auth identity; the id is the auth user id.
CREATE TABLE IF NOT EXISTS profiles (
    id UUID PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    display_name VARCHAR(100) NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(email);

CREATE TABLE IF NOT EXISTS habits (
    id UUID PRIMARY KEY,
    owner_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    name VARCHAR(120) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    kind VARCHAR(10) NOT NULL,
    bronze_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
    silver_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
    gold_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
    unit VARCHAR(30) NOT NULL DEFAULT '',
    priority VARCHAR(10) NOT NULL DEFAULT 'medium',
    requires_photo BOOLEAN NOT NULL DEFAULT FALSE,
    is_shared BOOLEAN NOT NULL DEFAULT FALSE,
    why_statement TEXT NOT NULL DEFAULT '',
    why_photo_url TEXT NOT NULL DEFAULT '',
    active_days BOOLEAN[] NOT NULL DEFAULT '{t,t,t,t,t,t,t}',
    reminder_time VARCHAR(5) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('binary', 'tiered')),
    CONSTRAINT valid_priority CHECK (priority IN ('low', 'medium', 'high')),
    -- Tiered habits carry strictly increasing positive thresholds.
    CONSTRAINT valid_thresholds CHECK (
        kind = 'binary' OR
        (bronze_threshold > 0 AND bronze_threshold < silver_threshold AND silver_threshold < gold_threshold)
    )
);

CREATE INDEX IF NOT EXISTS idx_habits_owner ON habits(owner_id);
CREATE INDEX IF NOT EXISTS idx_habits_owner_shared ON habits(owner_id) WHERE is_shared;

-- Updated_at trigger function for automatic timestamp updates
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_profiles_updated_at ON profiles;
CREATE TRIGGER update_profiles_updated_at
    BEFORE UPDATE ON profiles
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();

DROP TRIGGER IF EXISTS update_habits_updated_at ON habits;
CREATE TRIGGER update_habits_updated_at
    BEFORE UPDATE ON habits
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_habits_updated_at ON habits;
DROP TRIGGER IF EXISTS update_profiles_updated_at ON profiles;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS habits;
DROP TABLE IF EXISTS profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: HABIT LOGS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create habit_logs table
-- Version: 002

CREATE TABLE IF NOT EXISTS habit_logs (
    id UUID PRIMARY KEY,
    habit_id UUID NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
    owner_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    log_date DATE NOT NULL,
    logged_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    value DOUBLE PRECISION NOT NULL DEFAULT 0,
    tier_achieved VARCHAR(10) NOT NULL DEFAULT 'none',
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    photo_url TEXT NOT NULL DEFAULT '',
    mood VARCHAR(20) NOT NULL DEFAULT '',
    note TEXT NOT NULL DEFAULT '',
    requires_review BOOLEAN NOT NULL DEFAULT FALSE,
    review_status VARCHAR(15) NOT NULL DEFAULT 'unreviewed',
    reviewed_by UUID REFERENCES profiles(id) ON DELETE SET NULL,
    reviewed_at TIMESTAMP WITH TIME ZONE,
    review_reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- One entry per habit per day; concurrent inserts lose here.
    UNIQUE(habit_id, log_date),

    CONSTRAINT valid_tier CHECK (tier_achieved IN ('none', 'bronze', 'silver', 'gold')),
    CONSTRAINT valid_review_status CHECK (review_status IN ('unreviewed', 'approved', 'challenged')),
    CONSTRAINT valid_mood CHECK (mood IN ('', 'struggled', 'fine', 'good', 'amazing')),
    -- A terminal review always names its reviewer.
    CONSTRAINT review_has_reviewer CHECK (
        (review_status = 'unreviewed') = (reviewed_by IS NULL)
    )
);

CREATE INDEX IF NOT EXISTS idx_habit_logs_owner_date ON habit_logs(owner_id, log_date);
CREATE INDEX IF NOT EXISTS idx_habit_logs_habit_date ON habit_logs(habit_id, log_date);
CREATE INDEX IF NOT EXISTS idx_habit_logs_pending_review
    ON habit_logs(owner_id) WHERE requires_review AND review_status = 'unreviewed';
`

const migration002Down = `
DROP TABLE IF EXISTS habit_logs;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: PARTNERSHIPS AND INVITATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create partnerships and invitations tables
-- Version: 003

CREATE TABLE IF NOT EXISTS partnership_invitations (
    id UUID PRIMARY KEY,
    code VARCHAR(12) NOT NULL,
    inviter_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    invitee_email VARCHAR(255) NOT NULL DEFAULT '',
    status VARCHAR(15) NOT NULL DEFAULT 'pending',
    expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
    accepted_by UUID REFERENCES profiles(id) ON DELETE SET NULL,
    accepted_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_invitation_status CHECK (status IN ('pending', 'accepted', 'cancelled'))
);

-- A code only has to be unique while it can still be redeemed.
CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_pending_code
    ON partnership_invitations(code) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_invitations_inviter ON partnership_invitations(inviter_id);

CREATE TABLE IF NOT EXISTS partnerships (
    id UUID PRIMARY KEY,
    user_a UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    user_b UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    status VARCHAR(10) NOT NULL DEFAULT 'active',
    invited_by UUID NOT NULL,
    invited_at TIMESTAMP WITH TIME ZONE NOT NULL,
    accepted_at TIMESTAMP WITH TIME ZONE,
    ended_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_partnership_status CHECK (status IN ('active', 'ended')),
    CONSTRAINT different_users CHECK (user_a != user_b)
);

-- At most one active partnership per user, enforced for both columns.
CREATE UNIQUE INDEX IF NOT EXISTS idx_partnerships_active_a
    ON partnerships(user_a) WHERE status = 'active';
CREATE UNIQUE INDEX IF NOT EXISTS idx_partnerships_active_b
    ON partnerships(user_b) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_partnerships_user_a ON partnerships(user_a);
CREATE INDEX IF NOT EXISTS idx_partnerships_user_b ON partnerships(user_b);

DROP TRIGGER IF EXISTS update_partnerships_updated_at ON partnerships;
CREATE TRIGGER update_partnerships_updated_at
    BEFORE UPDATE ON partnerships
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration003Down = `
DROP TRIGGER IF EXISTS update_partnerships_updated_at ON partnerships;
DROP TABLE IF EXISTS partnerships;
DROP TABLE IF EXISTS partnership_invitations;
`

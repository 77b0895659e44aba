package database

type migration struct {
	version int
	name    string
	sql     string
}

// migrations are applied in slice order; versions must be increasing.
var migrations = []migration{
	{1, "reference charts", migrationV1ReferenceCharts},
	{2, "validation runs", migrationV2ValidationRuns},
}

// schemaTables must all exist for the store to serve requests.
var schemaTables = []string{
	"reference_charts",
	"validation_runs",
	"validation_results",
}

// migrationV1ReferenceCharts creates the table of known-good charts.
//
// A reference chart is a civil date and time with the four pillars a
// trusted almanac gives for it. The same moment may appear once per late
// Zi hour convention, since the two conventions disagree at 23:00.
const migrationV1ReferenceCharts = `
-- Migration 001: reference charts

CREATE TABLE IF NOT EXISTS reference_charts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Free-form description, e.g. "1991 afternoon"
    label TEXT NOT NULL DEFAULT '',

    -- Civil date and time in UTC+8: YYYY-MM-DD and HH:MM
    solar_date TEXT NOT NULL,
    solar_time TEXT NOT NULL,

    zi_rule TEXT NOT NULL DEFAULT 'keep' CHECK (zi_rule IN ('keep', 'advance')),

    -- "S B年 S B月 S B日 S B时"
    expected TEXT NOT NULL,

    notes TEXT,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE (solar_date, solar_time, zi_rule)
);

CREATE INDEX IF NOT EXISTS idx_reference_charts_date
    ON reference_charts(solar_date);
`

// migrationV2ValidationRuns records each pass of the validator over the
// stored reference charts.
//
// Results keep a copy of the expected string so a run stays readable after
// its chart is edited or deleted.
const migrationV2ValidationRuns = `
-- Migration 002: validation runs

CREATE TABLE IF NOT EXISTS validation_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Where the run was started: api, cli, import
    source TEXT NOT NULL DEFAULT 'api',

    total INTEGER NOT NULL DEFAULT 0,
    passed INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    errored INTEGER NOT NULL DEFAULT 0,

    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS validation_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    run_id INTEGER NOT NULL,

    -- NULL once the chart has been deleted
    reference_id INTEGER,

    label TEXT NOT NULL DEFAULT '',
    expected TEXT NOT NULL,
    actual TEXT NOT NULL DEFAULT '',
    is_match INTEGER NOT NULL DEFAULT 0,

    -- JSON array of mismatching pillars, e.g. '["day","hour"]'
    mismatches TEXT NOT NULL DEFAULT '[]',

    degraded INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,

    FOREIGN KEY (run_id) REFERENCES validation_runs(id) ON DELETE CASCADE,
    FOREIGN KEY (reference_id) REFERENCES reference_charts(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_validation_results_run
    ON validation_results(run_id);
`

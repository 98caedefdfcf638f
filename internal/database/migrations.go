package database

// The identity table holds at most one row; the slot check enforces it.
const schema = `
CREATE TABLE IF NOT EXISTS identity (
    slot INTEGER PRIMARY KEY CHECK (slot = 1),
    email TEXT NOT NULL,
    logged_in_at DATETIME NOT NULL
);
`

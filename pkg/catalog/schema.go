package catalog

// Schema contains the SQL statements to create the catalog schema.
const Schema = `
-- Buckets: top-level namespaces with access flags and quota accounting
CREATE TABLE IF NOT EXISTS buckets (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT UNIQUE NOT NULL,
    quota         INTEGER NOT NULL DEFAULT 0,
    current_quota INTEGER NOT NULL DEFAULT 0,
    pub_read      BOOLEAN NOT NULL DEFAULT FALSE,
    pub_write     BOOLEAN NOT NULL DEFAULT FALSE,
    create_time   DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Path nodes: one row per virtual directory segment, bucket-scoped.
-- The UNIQUE(bucket_id, full_path) index is what makes path creation an
-- insert-or-fetch upsert instead of a check-then-create race.
CREATE TABLE IF NOT EXISTS path_nodes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    bucket_id   INTEGER NOT NULL,
    parent_id   INTEGER NOT NULL DEFAULT 0,
    segment     TEXT NOT NULL,
    full_path   TEXT NOT NULL,
    is_root     BOOLEAN NOT NULL DEFAULT FALSE,
    create_time DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (bucket_id) REFERENCES buckets(id) ON DELETE CASCADE,
    UNIQUE (bucket_id, full_path)
);

-- Files: metadata plus the ordered chunk list as a JSON array column
CREATE TABLE IF NOT EXISTS files (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    bucket_id   INTEGER NOT NULL,
    path_ref    INTEGER NOT NULL DEFAULT 0,
    name        TEXT NOT NULL,
    full_path   TEXT NOT NULL,
    file_type   TEXT NOT NULL,
    image_type  TEXT NOT NULL DEFAULT 'none',
    size        INTEGER NOT NULL,
    items       TEXT NOT NULL,
    create_time DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (bucket_id) REFERENCES buckets(id) ON DELETE CASCADE
);

-- Per-user per-bucket grants, one row per pair
CREATE TABLE IF NOT EXISTS user_bucket_rights (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     INTEGER NOT NULL,
    bucket_id   INTEGER NOT NULL,
    right_level TEXT NOT NULL,
    UNIQUE (user_id, bucket_id)
);

-- Deletion tasks handed to the external sweeper
CREATE TABLE IF NOT EXISTS path_delete_tasks (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    path_id          INTEGER NOT NULL,
    file_delete_done BOOLEAN NOT NULL DEFAULT FALSE,
    path_delete_done BOOLEAN NOT NULL DEFAULT FALSE,
    create_time      DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Console accounts
CREATE TABLE IF NOT EXISTS users (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_name   TEXT UNIQUE NOT NULL,
    password    TEXT NOT NULL,
    access_key  TEXT NOT NULL,
    secret_key  TEXT NOT NULL,
    is_admin    BOOLEAN NOT NULL DEFAULT FALSE,
    create_time DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes for performance
CREATE INDEX IF NOT EXISTS idx_path_nodes_parent ON path_nodes(bucket_id, parent_id);
CREATE INDEX IF NOT EXISTS idx_files_path_ref ON files(bucket_id, path_ref);
CREATE INDEX IF NOT EXISTS idx_files_full_path ON files(bucket_id, full_path);
CREATE INDEX IF NOT EXISTS idx_rights_user ON user_bucket_rights(user_id);
`

// bucketNameMinLength is the minimum length for a bucket name.
const bucketNameMinLength = 1

// bucketNameMaxLength is the maximum length for a bucket name.
const bucketNameMaxLength = 32

// fileNameMaxLength is the maximum length for a file name.
const fileNameMaxLength = 64

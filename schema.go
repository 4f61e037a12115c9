package authcore

// Schema contains sql commands to set up the database for the
// authentication core.
const Schema = `
CREATE TABLE IF NOT EXISTS organization (
	id VARCHAR(26) PRIMARY KEY,
	name VARCHAR(120) NOT NULL
);
CREATE TABLE IF NOT EXISTS auth_user (
	id VARCHAR(26) PRIMARY KEY,
	email VARCHAR(255) UNIQUE NOT NULL,
	password VARCHAR(60) NOT NULL,
	role VARCHAR(10) NOT NULL DEFAULT 'USER',
	status VARCHAR(10) NOT NULL DEFAULT 'ACTIVE',
	org_id VARCHAR(26) REFERENCES organization(id) NULL,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp
);
CREATE TABLE IF NOT EXISTS otp_token (
	id VARCHAR(26) PRIMARY KEY,
	purpose VARCHAR(10) NOT NULL,
	email VARCHAR(255) NOT NULL,
	code_hash VARCHAR(128) NOT NULL,
	issued_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp,
	expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
	fail_count INT NOT NULL DEFAULT 0,
	verified_at TIMESTAMP WITH TIME ZONE NULL,
	ip VARCHAR(45) NULL,
	user_agent VARCHAR(255) NULL
);
CREATE INDEX IF NOT EXISTS otp_token_unverified_idx
	ON otp_token (purpose, email, issued_at)
	WHERE verified_at IS NULL;
CREATE TABLE IF NOT EXISTS trusted_device (
	user_id VARCHAR(26) REFERENCES auth_user(id) NOT NULL,
	fingerprint VARCHAR(128) NOT NULL,
	status VARCHAR(10) NOT NULL DEFAULT 'TRUSTED',
	trusted_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp,
	last_seen_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp,
	last_ip VARCHAR(45) NULL,
	last_user_agent VARCHAR(255) NULL,
	PRIMARY KEY (user_id, fingerprint)
);
CREATE TABLE IF NOT EXISTS throttle_bucket (
	action VARCHAR(30) NOT NULL,
	scope VARCHAR(10) NOT NULL,
	bucket_key VARCHAR(300) NOT NULL,
	window_started_at TIMESTAMP WITH TIME ZONE NOT NULL,
	hit_count INT NOT NULL DEFAULT 0,
	blocked_until TIMESTAMP WITH TIME ZONE NULL,
	PRIMARY KEY (action, scope, bucket_key)
);
CREATE TABLE IF NOT EXISTS auth_event (
	id VARCHAR(26) PRIMARY KEY,
	event_type VARCHAR(30) NOT NULL,
	user_id VARCHAR(26) NULL,
	email VARCHAR(255) NULL,
	ip VARCHAR(45) NULL,
	user_agent VARCHAR(255) NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp
);
CREATE TABLE IF NOT EXISTS pending_signup (
	email VARCHAR(255) PRIMARY KEY,
	name VARCHAR(120) NOT NULL,
	phone VARCHAR(20) NOT NULL,
	org_id VARCHAR(26) NOT NULL,
	password VARCHAR(60) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp
);
`

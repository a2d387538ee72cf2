package parser

import (
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

var dsn = "root:audit@tcp(127.0.0.1:3306)/firewall_mgmt"

// openTestDB skips DB-backed tests when MariaDB is not available.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("failed to connect to MariaDB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("MariaDB not reachable: %v", err)
	}
	return db
}

func setupSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	db.Exec("DROP TABLE IF EXISTS audit_policy")
	_, err := db.Exec(`CREATE TABLE audit_policy (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		vdom VARCHAR(64) NOT NULL DEFAULT 'root',
		policy_id INT(10) UNSIGNED NOT NULL,
		policy_name VARCHAR(128) NULL,
		src_objects LONGTEXT NOT NULL,
		dst_objects LONGTEXT NOT NULL,
		service_objects LONGTEXT NOT NULL,
		action VARCHAR(16) NOT NULL,
		log_enabled TINYINT(1) NOT NULL,
		bytes_total BIGINT NULL
	)`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

func TestMariaDBParser(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	setupSchema(t, db)

	db.Exec("INSERT INTO audit_policy (vdom, policy_id, policy_name, src_objects, dst_objects, service_objects, action, log_enabled, bytes_total) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		"root", 101, "branch-out", `["branch-net"]`, `["dc-net"]`, `["HTTPS"]`, "accept", 1, 15420)
	db.Exec("INSERT INTO audit_policy (vdom, policy_id, policy_name, src_objects, dst_objects, service_objects, action, log_enabled, bytes_total) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		"root", 102, nil, `["all"]`, `["all"]`, `["ALL"]`, "accept", 0, nil)
	db.Exec("INSERT INTO audit_policy (vdom, policy_id, policy_name, src_objects, dst_objects, service_objects, action, log_enabled, bytes_total) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		"guest", 201, "guest-only", `["guest-net"]`, `["all"]`, `["DNS"]`, "deny", 1, 0)

	p, err := NewMariaDBParser(dsn, "")
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	defer p.Close()
	if err := p.Parse(); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(p.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(p.Records))
	}

	first := p.Records[0]
	if first.ID != "101" || first.Name != "branch-out" || first.Action != "ACCEPT" {
		t.Errorf("unexpected first record: %+v", first)
	}
	if !first.HasBytes || first.Bytes != 15420 {
		t.Errorf("expected bytes 15420, got %d (present=%v)", first.Bytes, first.HasBytes)
	}

	second := p.Records[1]
	if !second.Source.Any || !second.Destination.Any || !second.Service.Any {
		t.Errorf("expected wildcard fields on record 102: %+v", second)
	}
	if second.HasBytes {
		t.Errorf("expected NULL counter to be recorded as absent")
	}
	if second.Name != "Rule_102" {
		t.Errorf("expected NULL name to default to Rule_102, got %q", second.Name)
	}
}

func TestMariaDBParserVdomFilter(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	setupSchema(t, db)

	db.Exec("INSERT INTO audit_policy (vdom, policy_id, policy_name, src_objects, dst_objects, service_objects, action, log_enabled, bytes_total) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		"root", 101, "root-rule", `["a"]`, `["b"]`, `["SSH"]`, "accept", 1, 1)
	db.Exec("INSERT INTO audit_policy (vdom, policy_id, policy_name, src_objects, dst_objects, service_objects, action, log_enabled, bytes_total) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		"guest", 201, "guest-rule", `["c"]`, `["d"]`, `["DNS"]`, "deny", 1, 1)

	p, err := NewMariaDBParser(dsn, "guest")
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	defer p.Close()
	if err := p.Parse(); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(p.Records) != 1 || p.Records[0].Name != "guest-rule" {
		t.Fatalf("expected only the guest vdom rule, got %v", p.Records)
	}
}

func TestNewMariaDBParserErrors(t *testing.T) {
	if _, err := NewMariaDBParser("invalid-dsn", ""); err == nil {
		t.Errorf("expected error for invalid DSN")
	}
}

package parser

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"fortigate-audit-toolkit/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

// MariaDBParser loads audit records from a policy inventory database, for
// deployments that mirror their FortiGate configuration into MariaDB
// instead of shipping JSON exports around.
type MariaDBParser struct {
	db   *sql.DB
	vdom string

	Records []model.PolicyRecord
}

// NewMariaDBParser connects to the database. vdom, when non-empty, narrows
// the query to one virtual domain.
func NewMariaDBParser(dsn, vdom string) (*MariaDBParser, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &MariaDBParser{db: db, vdom: vdom}, nil
}

func (p *MariaDBParser) Close() {
	p.db.Close()
}

func (p *MariaDBParser) Parse() error {
	query := "SELECT policy_id, policy_name, src_objects, dst_objects, service_objects, action, log_enabled, bytes_total FROM audit_policy"
	args := []any{}
	if p.vdom != "" {
		query += " WHERE vdom = ?"
		args = append(args, p.vdom)
	}
	query += " ORDER BY policy_id ASC"

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name sql.NullString
		var srcJSON, dstJSON, svcJSON, action string
		var logEnabled bool
		var bytesTotal sql.NullInt64
		if err := rows.Scan(&id, &name, &srcJSON, &dstJSON, &svcJSON, &action, &logEnabled, &bytesTotal); err != nil {
			return err
		}

		record := model.PolicyRecord{
			ID:          strconv.FormatInt(id, 10),
			Action:      strings.ToUpper(action),
			Source:      newFieldSet(decodeMembers(srcJSON)),
			Destination: newFieldSet(decodeMembers(dstJSON)),
			Service:     newFieldSet(decodeMembers(svcJSON)),
			LogEnabled:  logEnabled,
		}
		if name.Valid && name.String != "" {
			record.Name = name.String
		} else {
			record.Name = "Rule_" + record.ID
		}
		// NULL counter means the inventory never synced traffic stats for
		// this rule; that is not the same as a zero counter.
		if bytesTotal.Valid {
			record.Bytes = uint64(max(bytesTotal.Int64, 0))
			record.HasBytes = true
		}

		p.Records = append(p.Records, record)
	}
	return rows.Err()
}

// decodeMembers reads a JSON string-array column. A malformed column is
// treated as empty, which parses to the wildcard and keeps the rule visible
// in the permissive buckets rather than invisible.
func decodeMembers(raw string) []string {
	var members []string
	if err := json.Unmarshal([]byte(raw), &members); err != nil {
		return nil
	}
	return members
}

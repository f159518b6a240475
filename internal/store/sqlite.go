package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/prospectline/leadgen/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// Times are stored in SQLite's own text format so date() and range comparisons
// work server-side.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "_time_format=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	search_query TEXT NOT NULL,
	notes        TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	email             TEXT NOT NULL,
	name              TEXT,
	company_name      TEXT,
	company_data      TEXT NOT NULL,
	campaign_id       TEXT REFERENCES campaigns(id),
	status            TEXT NOT NULL DEFAULT 'found',
	email_content     TEXT,
	follow_up_at      DATETIME,
	created_at        DATETIME NOT NULL,
	last_contacted_at DATETIME,
	sent_at           DATETIME,
	has_replied       INTEGER NOT NULL DEFAULT 0,
	source_domain     TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_email ON leads(lower(email));
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_campaign ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_follow_up ON leads(follow_up_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const leadColumns = `id, email, name, company_name, company_data, campaign_id,
	status, email_content, follow_up_at, created_at, last_contacted_at,
	sent_at, has_replied`

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusFound
	}
	lead.Email = strings.ToLower(strings.TrimSpace(lead.Email))
	if lead.Email == "" {
		return nil, eris.New("sqlite: lead email required")
	}

	profileJSON, err := json.Marshal(lead.Profile)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal profile")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (email, name, company_name, company_data, campaign_id,
			status, email_content, follow_up_at, created_at, has_replied, source_domain)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		lead.Email, lead.Name, lead.CompanyName, string(profileJSON),
		nullString(lead.CampaignID), string(lead.Status), lead.EmailContent,
		lead.FollowUpAt, lead.CreatedAt, hostOf(lead.Profile.WebsiteURL),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "idx_leads_email") {
			return nil, ErrDuplicateEmail
		}
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}

	lead.ID, err = res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	return lead, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	return scanLead(row)
}

func (s *SQLiteStore) GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE lower(email) = lower(?)`,
		strings.TrimSpace(email))
	return scanLead(row)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any
	if filter.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, filter.CampaignID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) UpdateEmailContent(ctx context.Context, id int64, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET email_content = ? WHERE id = ?`, content, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update email content %d", id)
	}
	return checkRowsAffected(res, id)
}

// MarkEmailed records a send and schedules the follow-up. The guard keeps a
// replied lead from being re-marked.
func (s *SQLiteStore) MarkEmailed(ctx context.Context, id int64, content string, sentAt, followUpAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads
		 SET status = ?, email_content = ?, sent_at = ?, last_contacted_at = ?, follow_up_at = ?
		 WHERE id = ? AND has_replied = 0 AND status IN (?, ?)`,
		string(model.LeadStatusEmailed), content, sentAt.UTC(), sentAt.UTC(), followUpAt.UTC(),
		id, string(model.LeadStatusFound), string(model.LeadStatusEmailed),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark emailed %d", id)
	}
	return checkRowsAffected(res, id)
}

// MarkFollowedUp advances an emailed lead and clears its follow-up slot.
// Returns false without error when the guard fails, which means another
// writer got there first (typically a reply).
func (s *SQLiteStore) MarkFollowedUp(ctx context.Context, id int64, sentAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads
		 SET status = ?, follow_up_at = NULL, last_contacted_at = ?
		 WHERE id = ? AND status = ? AND has_replied = 0`,
		string(model.LeadStatusFollowedUp), sentAt.UTC(),
		id, string(model.LeadStatusEmailed),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: mark followed up %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

// MarkReplied moves a lead to the terminal replied state and cancels any
// pending follow-up.
func (s *SQLiteStore) MarkReplied(ctx context.Context, email string) (*model.Lead, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE leads
		 SET status = ?, has_replied = 1, follow_up_at = NULL
		 WHERE lower(email) = lower(?)`,
		string(model.LeadStatusReplied), strings.TrimSpace(email),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: mark replied %s", email)
	}
	return s.GetLeadByEmail(ctx, email)
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete lead %d", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) DeleteAllLeads(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete all leads")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// DueFollowUps returns leads whose follow-up time has elapsed and which are
// still waiting on a first reply.
func (s *SQLiteStore) DueFollowUps(ctx context.Context, now time.Time) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE follow_up_at IS NOT NULL AND follow_up_at <= ?
		   AND status = ? AND has_replied = 0
		 ORDER BY follow_up_at ASC`,
		now.UTC(), string(model.LeadStatusEmailed),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: due follow-ups")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate follow-ups")
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, name, search_query, notes, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.SearchQuery, c.Notes, c.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert campaign %s", c.ID)
	}
	return c, nil
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.name, c.search_query, c.notes, c.created_at,
			(SELECT COUNT(*) FROM leads l WHERE l.campaign_id = c.id)
		 FROM campaigns c WHERE c.id = ?`, id)
	return scanCampaign(row)
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.search_query, c.notes, c.created_at,
			(SELECT COUNT(*) FROM leads l WHERE l.campaign_id = c.id)
		 FROM campaigns c ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, eris.Wrap(rows.Err(), "sqlite: iterate campaigns")
}

// DeleteCampaign removes a campaign. With deleteLeads the campaign's leads
// go too; otherwise they are detached and kept.
func (s *SQLiteStore) DeleteCampaign(ctx context.Context, id string, deleteLeads bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if deleteLeads {
		if _, err := tx.ExecContext(ctx, `DELETE FROM leads WHERE campaign_id = ?`, id); err != nil {
			return eris.Wrapf(err, "sqlite: delete campaign leads %s", id)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `UPDATE leads SET campaign_id = NULL WHERE campaign_id = ?`, id); err != nil {
			return eris.Wrapf(err, "sqlite: detach campaign leads %s", id)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete campaign %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'found' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'emailed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'followed_up' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'replied' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM campaigns)
		FROM leads`)

	var st Stats
	if err := row.Scan(&st.Total, &st.Found, &st.Emailed, &st.FollowedUp, &st.Replied, &st.Campaigns); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &st, nil
}

func (s *SQLiteStore) Timeseries(ctx context.Context, days int) ([]TimeseriesPoint, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT date(created_at), COUNT(*) FROM leads
		 WHERE created_at >= ? GROUP BY date(created_at) ORDER BY date(created_at)`,
		cutoff,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: timeseries")
	}
	defer rows.Close()

	var points []TimeseriesPoint
	for rows.Next() {
		var p TimeseriesPoint
		if err := rows.Scan(&p.Day, &p.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan timeseries")
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: iterate timeseries")
}

func (s *SQLiteStore) SourceBreakdown(ctx context.Context) ([]SourceCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(source_domain, ''), COUNT(*) FROM leads
		 GROUP BY source_domain ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: source breakdown")
	}
	defer rows.Close()

	var counts []SourceCount
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Domain, &sc.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source")
		}
		counts = append(counts, sc)
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: iterate sources")
}

func (s *SQLiteStore) CampaignPerformance(ctx context.Context) ([]CampaignStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name,
			COUNT(l.id),
			COALESCE(SUM(CASE WHEN l.status IN ('emailed', 'followed_up', 'replied') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN l.status = 'replied' THEN 1 ELSE 0 END), 0)
		FROM campaigns c
		LEFT JOIN leads l ON l.campaign_id = c.id
		GROUP BY c.id, c.name
		ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: campaign performance")
	}
	defer rows.Close()

	var stats []CampaignStats
	for rows.Next() {
		var cs CampaignStats
		if err := rows.Scan(&cs.CampaignID, &cs.CampaignName, &cs.Leads, &cs.Emailed, &cs.Replied); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign stats")
		}
		stats = append(stats, cs)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: iterate campaign stats")
}

// helpers

func checkRowsAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var profileJSON string
	var name, companyName, campaignID, emailContent sql.NullString
	var followUpAt, lastContactedAt, sentAt sql.NullTime

	err := row.Scan(&l.ID, &l.Email, &name, &companyName, &profileJSON,
		&campaignID, &l.Status, &emailContent, &followUpAt, &l.CreatedAt,
		&lastContactedAt, &sentAt, &l.HasReplied)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan lead")
	}

	l.Name = name.String
	l.CompanyName = companyName.String
	l.CampaignID = campaignID.String
	l.EmailContent = emailContent.String
	if followUpAt.Valid {
		t := followUpAt.Time.UTC()
		l.FollowUpAt = &t
	}
	if lastContactedAt.Valid {
		t := lastContactedAt.Time.UTC()
		l.LastContactedAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time.UTC()
		l.SentAt = &t
	}
	if err := json.Unmarshal([]byte(profileJSON), &l.Profile); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal profile")
	}
	return &l, nil
}

func scanCampaign(row scannable) (*model.Campaign, error) {
	var c model.Campaign
	var notes sql.NullString

	err := row.Scan(&c.ID, &c.Name, &c.SearchQuery, &notes, &c.CreatedAt, &c.LeadCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan campaign")
	}
	c.Notes = notes.String
	return &c, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

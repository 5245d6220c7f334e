package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// URL kinds accepted by talk_urls.
const (
	URLKindAudio = "audio"
	URLKindVideo = "video"
	URLKindText  = "text"
)

// NewTalk describes a talk and the child rows written with it. Zero ids mean
// the link is absent.
type NewTalk struct {
	Title        string
	ConferenceID int64
	Emeritus     bool
	SpeakerID    int64
	CallingID    int64
	Text         string
	URL          string
	Topics       []string
}

// TalkURL is one row of talk_urls.
type TalkURL struct {
	URL  string
	Kind string
}

// FindTalk probes for a talk by its natural key.
func (s *Store) FindTalk(ctx context.Context, title string, conferenceID int64) (int64, bool, error) {
	ctx = ensureContext(ctx)
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM talks WHERE title = ? AND conference = ?", title, conferenceID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find talk: %w", err)
	}
	return id, true, nil
}

// CreateTalk writes the talk and its child rows in one transaction. When a
// talk with the same (title, conference) already exists nothing is written and
// created is false. Constraint failures on child rows roll the transaction
// back and are reported as ErrPersistenceConflict.
func (s *Store) CreateTalk(ctx context.Context, talk NewTalk) (id int64, created bool, err error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(talk.Title) == "" {
		return 0, false, errors.New("create talk: title required")
	}
	if talk.ConferenceID == 0 {
		return 0, false, errors.New("create talk: conference required")
	}
	err = retryOnBusy(ctx, func() error {
		var txErr error
		id, created, txErr = s.createTalkTx(ctx, talk)
		return txErr
	})
	return id, created, err
}

func (s *Store) createTalkTx(ctx context.Context, talk NewTalk) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin talk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO talks (title, emeritus, conference) VALUES (?, ?, ?)
         ON CONFLICT (title, conference) DO NOTHING RETURNING id`,
		talk.Title, boolToInt(talk.Emeritus), talk.ConferenceID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM talks WHERE title = ? AND conference = ?", talk.Title, talk.ConferenceID,
		).Scan(&id); err != nil {
			return 0, false, fmt.Errorf("lookup existing talk: %w", err)
		}
		return id, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert talk: %w", err)
	}

	child := func(what, query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("%w: %s for talk %d: %w", ErrPersistenceConflict, what, id, err)
			}
			return fmt.Errorf("insert %s: %w", what, err)
		}
		return nil
	}

	if talk.SpeakerID != 0 {
		if err := child("speaker link", "INSERT INTO talk_speakers (talk, speaker) VALUES (?, ?)", id, talk.SpeakerID); err != nil {
			return 0, false, err
		}
	}
	if talk.CallingID != 0 {
		if err := child("calling link", "INSERT INTO talk_callings (talk, calling) VALUES (?, ?)", id, talk.CallingID); err != nil {
			return 0, false, err
		}
	}
	if err := child("text", "INSERT INTO talk_texts (talk, text) VALUES (?, ?)", id, talk.Text); err != nil {
		return 0, false, err
	}
	if talk.URL != "" {
		if err := child("url", "INSERT INTO talk_urls (talk, url, kind) VALUES (?, ?, ?)", id, talk.URL, URLKindText); err != nil {
			return 0, false, err
		}
	}
	for _, topic := range talk.Topics {
		if err := child("topic", "INSERT INTO talk_topics (talk, name) VALUES (?, ?) ON CONFLICT (talk, name) DO NOTHING", id, topic); err != nil {
			return 0, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit talk: %w", err)
	}
	return id, true, nil
}

// TalkText returns the stored body of a talk.
func (s *Store) TalkText(ctx context.Context, talkID int64) (string, error) {
	ctx = ensureContext(ctx)
	var text string
	err := s.db.QueryRowContext(ctx, "SELECT text FROM talk_texts WHERE talk = ?", talkID).Scan(&text)
	if err != nil {
		return "", fmt.Errorf("talk text: %w", err)
	}
	return text, nil
}

// TalkURLs lists the URLs recorded for a talk.
func (s *Store) TalkURLs(ctx context.Context, talkID int64) ([]TalkURL, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT url, kind FROM talk_urls WHERE talk = ? ORDER BY url", talkID)
	if err != nil {
		return nil, fmt.Errorf("talk urls: %w", err)
	}
	defer rows.Close()

	var urls []TalkURL
	for rows.Next() {
		var u TalkURL
		if err := rows.Scan(&u.URL, &u.Kind); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// TalkTopics lists a talk's topics in name order.
func (s *Store) TalkTopics(ctx context.Context, talkID int64) ([]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM talk_topics WHERE talk = ? ORDER BY name", talkID)
	if err != nil {
		return nil, fmt.Errorf("talk topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		topics = append(topics, name)
	}
	return topics, rows.Err()
}

// TalkSummary is a joined view of one talk used by reporting commands.
type TalkSummary struct {
	ID           int64
	Title        string
	Year         int
	Season       string
	Emeritus     bool
	Speaker      string
	Calling      string
	Organization string
}

// Talk returns the joined summary for one talk. Missing links yield empty
// strings.
func (s *Store) Talk(ctx context.Context, talkID int64) (TalkSummary, error) {
	ctx = ensureContext(ctx)
	var (
		summary  TalkSummary
		emeritus int
		speaker  sql.NullString
		calling  sql.NullString
		org      sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT t.id, t.title, c.year, c.season, t.emeritus,
               (SELECT sp.name FROM talk_speakers ts JOIN speakers sp ON sp.id = ts.speaker WHERE ts.talk = t.id ORDER BY sp.id LIMIT 1),
               (SELECT ca.name FROM talk_callings tc JOIN callings ca ON ca.id = tc.calling WHERE tc.talk = t.id ORDER BY ca.id LIMIT 1),
               (SELECT o.name FROM talk_callings tc JOIN callings ca ON ca.id = tc.calling JOIN organizations o ON o.id = ca.organization WHERE tc.talk = t.id ORDER BY ca.id LIMIT 1)
        FROM talks t JOIN conferences c ON c.id = t.conference
        WHERE t.id = ?`, talkID,
	).Scan(&summary.ID, &summary.Title, &summary.Year, &summary.Season, &emeritus, &speaker, &calling, &org)
	if err != nil {
		return TalkSummary{}, fmt.Errorf("talk summary: %w", err)
	}
	summary.Emeritus = emeritus != 0
	summary.Speaker = speaker.String
	summary.Calling = calling.String
	summary.Organization = org.String
	return summary, nil
}

package sinks

import (
	"encoding/json"
	"strings"

	"symbollist-observer/src/helpers"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"
)

const defaultRepublishSubject = "symbollist.records"

// Publisher is the part of *nats.Conn the republisher uses.
type Publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
}

// -----------------------------------------------------------------------------
// NatsSink republishes every record as JSON on
// <subject>.<service>.<ric>, with subject-unsafe characters replaced.
// -----------------------------------------------------------------------------

type NatsSink struct {
	Conn    Publisher
	Subject string
	Logger  *logger.Logger
}

func NewNatsSink(conn Publisher, subject string, log *logger.Logger) *NatsSink {
	if subject == "" {
		subject = defaultRepublishSubject
	}
	return &NatsSink{Conn: conn, Subject: subject, Logger: log}
}

func (s *NatsSink) Name() string {
	return "nats"
}

// SubjectFor returns the subject a record is published on.
func (s *NatsSink) SubjectFor(r models.DecodedRecord) string {
	return s.Subject + "." + token(r.GetString(models.KeyService)) + "." + token(r.GetString(models.KeyRIC))
}

func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}

// -----------------------------------------------------------------------------

func (s *NatsSink) Publish(records []models.DecodedRecord) error {
	if s.Conn == nil {
		return helpers.ErrNotConnected
	}
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return helpers.NewDecodeError("encode record", err)
		}
		subject := s.SubjectFor(r)
		if err := s.Conn.Publish(subject, data); err != nil {
			return helpers.NewSessionError("publish "+subject, err)
		}
	}
	return nil
}

func (s *NatsSink) Close() error {
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Flush()
}

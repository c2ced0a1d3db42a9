package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"symbollist-observer/src/helpers"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const defaultSubjectPrefix = "symbollist"

// -----------------------------------------------------------------------------
// NatsSession talks to an upstream bridge over NATS. Requests are published
// on <prefix>.request.<service>; the bridge answers on
// <prefix>.response.<handle> with JSON encoded response messages.
// -----------------------------------------------------------------------------

type NatsSession struct {
	URL    string
	Prefix string
	Logger *logger.Logger

	conn *nats.Conn
	mu   sync.Mutex
	subs map[models.SubscriptionHandle]*natsSubscription
}

type natsSubscription struct {
	interest models.MInterestSpec
	sub      *nats.Subscription
}

func NewNatsSession(cfg models.MSessionConfig, log *logger.Logger) *NatsSession {
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return &NatsSession{
		URL:    cfg.URL,
		Prefix: prefix,
		Logger: log,
		subs:   make(map[models.SubscriptionHandle]*natsSubscription),
	}
}

// -----------------------------------------------------------------------------

// Connect dials the NATS server, retrying with backoff.
func (s *NatsSession) Connect(retries int) error {
	url := s.URL
	if url == "" {
		url = nats.DefaultURL
	}

	return helpers.RetryWithBackoff("connect to nats", retries, 500*time.Millisecond, s.Logger, func() error {
		conn, err := nats.Connect(url,
			nats.Name("symbollist-observer"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					s.Logger.Warning("Disconnected from NATS: %v", err)
				}
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				s.Logger.Info("Reconnected to NATS at %s", c.ConnectedUrl())
			}),
		)
		if err != nil {
			return helpers.NewSessionError("dial "+url, err)
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.Logger.Info("Connected to NATS at %s", url)
		return nil
	})
}

// Conn returns the underlying connection, nil before Connect.
func (s *NatsSession) Conn() *nats.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// -----------------------------------------------------------------------------

func (s *NatsSession) RequestSubject(service string) string {
	return s.Prefix + ".request." + subjectToken(service)
}

func (s *NatsSession) ResponseSubject(handle models.SubscriptionHandle) string {
	return s.Prefix + ".response." + string(handle)
}

// subjectToken keeps a name usable as a single subject token.
func subjectToken(name string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(name)
}

// -----------------------------------------------------------------------------

func (s *NatsSession) Register(queue chan<- models.MEvent, interest models.MInterestSpec) (models.SubscriptionHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return "", helpers.ErrNotConnected
	}

	handle := models.SubscriptionHandle(uuid.NewString())
	reply := s.ResponseSubject(handle)

	sub, err := s.conn.Subscribe(reply, func(msg *nats.Msg) {
		resp, err := DecodeResponse(msg.Data)
		if err != nil {
			s.Logger.Warning("Dropping response on %s: %v", msg.Subject, err)
			return
		}
		queue <- models.MEvent{Handle: handle, Message: resp}
	})
	if err != nil {
		return "", helpers.NewSessionError("subscribe "+reply, err)
	}

	req := models.MSessionRequest{Handle: handle, Action: models.SessionOpen, Interest: &interest, ReplySubject: reply}
	if err := s.publish(interest.ServiceName, req); err != nil {
		_ = sub.Unsubscribe()
		return "", err
	}

	s.subs[handle] = &natsSubscription{interest: interest, sub: sub}
	return handle, nil
}

// -----------------------------------------------------------------------------

func (s *NatsSession) Reissue(handle models.SubscriptionHandle, interest models.MInterestSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.subs[handle]
	if !ok {
		return fmt.Errorf("reissue: unknown handle %s", handle)
	}
	entry.interest = interest

	req := models.MSessionRequest{Handle: handle, Action: models.SessionReissue, Interest: &interest, ReplySubject: s.ResponseSubject(handle)}
	return s.publish(interest.ServiceName, req)
}

// -----------------------------------------------------------------------------

func (s *NatsSession) Unregister(handle models.SubscriptionHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unregister(handle)
}

func (s *NatsSession) UnregisterAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for handle := range s.subs {
		if err := s.unregister(handle); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *NatsSession) unregister(handle models.SubscriptionHandle) error {
	entry, ok := s.subs[handle]
	if !ok {
		return nil
	}
	delete(s.subs, handle)

	if err := entry.sub.Unsubscribe(); err != nil {
		s.Logger.Warning("Unsubscribe %s: %v", handle, err)
	}
	return s.publish(entry.interest.ServiceName, models.MSessionRequest{Handle: handle, Action: models.SessionClose})
}

// -----------------------------------------------------------------------------

func (s *NatsSession) publish(service string, req models.MSessionRequest) error {
	if s.conn == nil {
		return helpers.ErrNotConnected
	}
	data, err := json.Marshal(req)
	if err != nil {
		return helpers.NewSessionError("encode request", err)
	}
	subject := s.RequestSubject(service)
	if err := s.conn.Publish(subject, data); err != nil {
		return helpers.NewSessionError("publish "+subject, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Close drains the connection after closing every subscription.
func (s *NatsSession) Close() error {
	if err := s.UnregisterAll(); err != nil {
		s.Logger.Warning("Closing subscriptions: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Drain()
	s.conn = nil
	return err
}

// -----------------------------------------------------------------------------

// DecodeResponse parses one JSON encoded response message.
func DecodeResponse(data []byte) (*models.MResponseMessage, error) {
	var resp models.MResponseMessage
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, helpers.NewDecodeError("response", err)
	}
	switch resp.Type {
	case models.RespRefresh, models.RespUpdate, models.RespStatus:
	default:
		return nil, helpers.NewDecodeError("response", fmt.Errorf("unknown response type '%s'", resp.Type))
	}
	return &resp, nil
}

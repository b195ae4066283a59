package notify

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

// fakeSMTPServer speaks just enough SMTP for go-mail: no TLS, no auth.
type fakeSMTPServer struct {
	ln net.Listener

	mu        sync.Mutex
	conns     int
	messages  int
	commands  []string
	rcptReply string
}

func startFakeSMTP(t *testing.T) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTPServer{ln: ln, rcptReply: "250 2.1.5 OK"}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeSMTPServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTPServer) setRcptReply(reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rcptReply = reply
}

func (s *fakeSMTPServer) stats() (conns, messages int, commands []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns, s.messages, append([]string(nil), s.commands...)
}

func (s *fakeSMTPServer) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns++
		s.mu.Unlock()
		go s.handle(c)
	}
}

func (s *fakeSMTPServer) handle(c net.Conn) {
	defer c.Close()
	tc := textproto.NewConn(c)
	_ = tc.PrintfLine("220 localhost ESMTP fake")
	for {
		line, err := tc.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.Fields(line + " x")[0])
		s.mu.Lock()
		s.commands = append(s.commands, verb)
		rcpt := s.rcptReply
		s.mu.Unlock()

		switch verb {
		case "EHLO", "HELO":
			_ = tc.PrintfLine("250-localhost")
			_ = tc.PrintfLine("250 8BITMIME")
		case "RCPT":
			_ = tc.PrintfLine("%s", rcpt)
		case "DATA":
			_ = tc.PrintfLine("354 go ahead")
			if _, err := tc.ReadDotBytes(); err != nil {
				return
			}
			s.mu.Lock()
			s.messages++
			s.mu.Unlock()
			_ = tc.PrintfLine("250 2.0.0 queued")
		case "QUIT":
			_ = tc.PrintfLine("221 bye")
			return
		default:
			_ = tc.PrintfLine("250 OK")
		}
	}
}

func newTestSMTP(srv *fakeSMTPServer, maxMessages int) *SMTPProvider {
	return NewSMTPProvider(SMTPConfig{
		Host:        "127.0.0.1",
		Port:        srv.port(),
		TLSPolicy:   "none",
		Timeout:     5 * time.Second,
		MaxMessages: maxMessages,
		FromEmail:   "noreply@jetriderentals.com",
		FromName:    "Jet Ride Rentals",
	}, logging.Discard())
}

func countVerb(commands []string, verb string) int {
	n := 0
	for _, c := range commands {
		if c == verb {
			n++
		}
	}
	return n
}

func TestSMTPProvider_RecyclesAfterQuota(t *testing.T) {
	srv := startFakeSMTP(t)
	p := newTestSMTP(srv, 3)
	defer p.Close()

	for i := 0; i < 4; i++ {
		id, err := p.Send(context.Background(), testMsg)
		require.NoError(t, err, "send %d", i)
		assert.NotEmpty(t, id)
	}

	conns, messages, commands := srv.stats()
	assert.Equal(t, 4, messages)
	assert.Equal(t, 2, conns, "quota of 3 should force a second connection")
	assert.GreaterOrEqual(t, countVerb(commands, "RSET"), 2, "reused connection must be verified")
}

func TestSMTPProvider_PermanentRejection(t *testing.T) {
	srv := startFakeSMTP(t)
	srv.setRcptReply("550 5.1.1 mailbox unavailable")
	p := newTestSMTP(srv, 3)
	defer p.Close()

	_, err := p.Send(context.Background(), testMsg)
	var smtpErr *SMTPError
	require.True(t, errors.As(err, &smtpErr), "got %v", err)
	assert.Equal(t, 550, smtpErr.Code)
	assert.False(t, smtpErr.Temporary)
	assert.False(t, Retryable(err))
}

func TestSMTPProvider_TemporaryRejectionRedials(t *testing.T) {
	srv := startFakeSMTP(t)
	srv.setRcptReply("451 4.7.1 try again later")
	p := newTestSMTP(srv, 3)
	defer p.Close()

	_, err := p.Send(context.Background(), testMsg)
	var smtpErr *SMTPError
	require.True(t, errors.As(err, &smtpErr), "got %v", err)
	assert.Equal(t, 451, smtpErr.Code)
	assert.True(t, smtpErr.RateLimited())
	assert.True(t, Retryable(err))

	srv.setRcptReply("250 2.1.5 OK")
	_, err = p.Send(context.Background(), testMsg)
	require.NoError(t, err)

	conns, _, _ := srv.stats()
	assert.Equal(t, 2, conns, "a failed send drops the pooled connection")
}

func TestSMTPProvider_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	p := NewSMTPProvider(SMTPConfig{
		Host: "127.0.0.1", Port: port, TLSPolicy: "none", Timeout: time.Second, FromEmail: "noreply@jetriderentals.com",
	}, logging.Discard())
	_, err = p.Send(context.Background(), testMsg)
	require.Error(t, err)
	assert.True(t, Retryable(err), "connection failures are retryable: %v", err)
}

func TestSMTPProvider_NotConfigured(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{}, nil)
	_, err := p.Send(context.Background(), testMsg)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClassifySMTP_FromMessage(t *testing.T) {
	err := classifySMTP(errors.New("SMTP AUTH failed: 535 5.7.8 Authentication credentials invalid"))
	var smtpErr *SMTPError
	require.ErrorAs(t, err, &smtpErr)
	assert.Equal(t, 535, smtpErr.Code)
	assert.True(t, smtpErr.AuthFailed())

	err = classifySMTP(&textproto.Error{Code: 421, Msg: "too many connections"})
	require.ErrorAs(t, err, &smtpErr)
	assert.True(t, smtpErr.Temporary)
	assert.Equal(t, strconv.Itoa(421), strconv.Itoa(smtpErr.Code))
}

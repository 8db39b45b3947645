package adapters

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"unisoncomms/models"
)

// sendError tags an SMTP failure with the machine-readable confirmation
// error kind for the stage that failed.
type sendError struct {
	kind string
	err  error
}

func (e *sendError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func newSendError(kind string, err error) *sendError {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		kind = models.ErrKindTimeout
	}
	return &sendError{kind: kind, err: err}
}

// SMTPClient sends mail over a short-lived authenticated session per call.
// No connection pooling: dial, send, quit.
type SMTPClient struct {
	server      string
	port        int
	address     string
	password    string
	useSTARTTLS bool
	timeout     time.Duration
}

// NewSMTPClient creates a new SMTP client
func NewSMTPClient(server string, port int, address, password string, useSTARTTLS bool, timeout time.Duration) *SMTPClient {
	return &SMTPClient{
		server:      server,
		port:        port,
		address:     address,
		password:    password,
		useSTARTTLS: useSTARTTLS,
		timeout:     timeout,
	}
}

// Send delivers a plain-text message to the recipients and returns the
// generated Message-ID. Failures come back as *sendError.
func (c *SMTPClient) Send(to []string, subject, body string) (string, error) {
	addr := fmt.Sprintf("%s:%d", c.server, c.port)
	domain := domainFromAddress(c.address)

	var conn net.Conn
	var err error
	if c.useSTARTTLS {
		conn, err = net.DialTimeout("tcp", addr, c.timeout)
	} else {
		// Implicit TLS (port 465)
		conn, err = tls.DialWithDialer(&net.Dialer{Timeout: c.timeout}, "tcp", addr, &tls.Config{ServerName: c.server})
	}
	if err != nil {
		return "", newSendError(models.ErrKindNetworkUnreachable, err)
	}
	conn.SetDeadline(time.Now().Add(c.timeout))

	client, err := smtp.NewClient(conn, c.server)
	if err != nil {
		conn.Close()
		return "", newSendError(models.ErrKindNetworkUnreachable, err)
	}
	defer client.Close()

	if err := client.Hello(domain); err != nil {
		return "", newSendError(models.ErrKindNetworkUnreachable, err)
	}

	if c.useSTARTTLS {
		tlsConfig := &tls.Config{ServerName: c.server}
		if err := client.StartTLS(tlsConfig); err != nil {
			return "", newSendError(models.ErrKindNetworkUnreachable, err)
		}
	}

	auth := smtp.PlainAuth("", c.address, c.password, c.server)
	if err := client.Auth(auth); err != nil {
		return "", newSendError(models.ErrKindAuthFailed, err)
	}

	if err := client.Mail(c.address); err != nil {
		return "", newSendError(models.ErrKindInvalidRecipient, err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return "", newSendError(models.ErrKindInvalidRecipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return "", newSendError(models.ErrKindNetworkUnreachable, err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString(fmt.Sprintf("From: %s\r\n", c.address))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Message-ID: %s\r\n", messageID))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if _, err := writer.Write([]byte(msg.String())); err != nil {
		return "", newSendError(models.ErrKindNetworkUnreachable, err)
	}
	if err := writer.Close(); err != nil {
		return "", newSendError(models.ErrKindNetworkUnreachable, err)
	}

	if err := client.Quit(); err != nil {
		return "", newSendError(models.ErrKindNetworkUnreachable, err)
	}

	return messageID, nil
}

func domainFromAddress(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 && at+1 < len(address) {
		return address[at+1:]
	}
	return "localhost"
}

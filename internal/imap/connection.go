package imap

import (
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
)

// ConnectToIMAP connects to the IMAP server with the given dial timeout.
// useTLS: true for production (TLS), false for tests (non-TLS).
func ConnectToIMAP(addr string, useTLS bool, timeout time.Duration) (*client.Client, error) {
	dialer := &net.Dialer{
		Timeout: timeout,
	}

	if useTLS {
		c, err := client.DialWithDialerTLS(dialer, addr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial with TLS: %w", err)
		}
		return c, nil
	}

	// Non-TLS connection for testing
	c, err := client.DialWithDialer(dialer, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	return c, nil
}

// Login authenticates with the IMAP server.
func Login(c *client.Client, username, password string) error {
	if err := c.Login(username, password); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	return nil
}

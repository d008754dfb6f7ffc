package config

import (
	"net"
	"net/url"
	"os"
	"sync"
)

const hostGateway = "host.docker.internal"

var (
	inContainerOnce sync.Once
	inContainer     bool

	// runningInContainer is swapped in tests.
	runningInContainer = detectContainer
)

func detectContainer() bool {
	inContainerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inContainer = err == nil
	})
	return inContainer
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ResolveHost points loopback hosts at the container host gateway when the
// engine runs inside a container. Postgres, Redis and self-hosted model
// servers are usually published on the host.
func ResolveHost(host string) string {
	if runningInContainer() && isLoopback(host) {
		return hostGateway
	}
	return host
}

// ResolveBaseURL applies ResolveHost to the host of a provider endpoint.
// Unparseable or empty URLs are returned unchanged.
func ResolveBaseURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	host := u.Hostname()
	resolved := ResolveHost(host)
	if resolved == host {
		return raw
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(resolved, port)
	} else {
		u.Host = resolved
	}
	return u.String()
}

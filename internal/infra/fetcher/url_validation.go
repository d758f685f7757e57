package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/url"
)

// validateURL rejects URLs that are malformed, use a scheme other than
// http/https, or (when denyPrivateIPs is set) resolve to a private,
// loopback or link-local address.
func validateURL(ctx context.Context, u *url.URL, denyPrivateIPs bool) error {
	if u == nil {
		return fmt.Errorf("%w: missing URL", ErrInvalidURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme '%s' not allowed (only http/https)", ErrInvalidURL, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("%w: empty hostname", ErrInvalidURL)
	}

	if !denyPrivateIPs {
		return nil
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: %s", ErrPrivateIP, ip.String())
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %v", ErrInvalidURL, hostname, err)
	}

	for _, addr := range addrs {
		if isPrivateIP(addr.IP) {
			return fmt.Errorf("%w: hostname '%s' resolves to %s", ErrPrivateIP, hostname, addr.IP.String())
		}
	}

	return nil
}

// parseURL parses raw and validates it.
func parseURL(ctx context.Context, raw string, denyPrivateIPs bool) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse error: %v", ErrInvalidURL, err)
	}
	if err := validateURL(ctx, u, denyPrivateIPs); err != nil {
		return nil, err
	}
	return u, nil
}

// isPrivateIP reports loopback, RFC 1918 / RFC 4193 private and link-local addresses.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

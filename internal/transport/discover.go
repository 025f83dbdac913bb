package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// Endpoint 是通过 mDNS 发现的宿主。
type Endpoint struct {
	Name string
	URL  string
}

// Discover 在局域网内查询 service（如 _linechat._tcp）并返回宿主地址。
func Discover(ctx context.Context, service string, timeout time.Duration) ([]Endpoint, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, errors.New("mdns: empty service name")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(service)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	var found []Endpoint
	seen := make(map[string]bool)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for entry := range entries {
			ep, ok := endpointFromEntry(entry)
			if !ok || seen[ep.URL] {
				continue
			}
			seen[ep.URL] = true
			found = append(found, ep)
		}
	}()

	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-collected
	if err != nil {
		return found, fmt.Errorf("mdns query %s: %w", service, err)
	}
	return found, nil
}

// endpointFromEntry 优先使用 TXT 记录里的 url=，否则拼接 ws://host:port/link。
func endpointFromEntry(entry *mdns.ServiceEntry) (Endpoint, bool) {
	if entry == nil {
		return Endpoint{}, false
	}
	ep := Endpoint{Name: entry.Name}
	for _, field := range entry.InfoFields {
		if rest, ok := strings.CutPrefix(field, "url="); ok && rest != "" {
			ep.URL = rest
			return ep, true
		}
	}
	var ip net.IP
	switch {
	case entry.AddrV4 != nil:
		ip = entry.AddrV4
	case entry.AddrV6 != nil:
		ip = entry.AddrV6
	}
	if ip == nil || entry.Port <= 0 {
		return Endpoint{}, false
	}
	ep.URL = "ws://" + net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)) + "/link"
	return ep, true
}

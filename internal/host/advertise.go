package host

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/mdns"
	qrcode "github.com/skip2/go-qrcode"
)

// Advertise 在局域网内通过 mDNS 公布链路地址，TXT 记录携带 url=。
func Advertise(service string, port int, url string) (*mdns.Server, error) {
	if port <= 0 {
		return nil, fmt.Errorf("invalid port for mDNS advertisement: %d", port)
	}
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, errors.New("empty mDNS service name")
	}
	name, err := os.Hostname()
	if err != nil || strings.TrimSpace(name) == "" {
		name = "linechat"
	}
	txt := []string{
		"name=" + name,
		"url=" + url,
	}
	zone, err := mdns.NewMDNSService(name, service, "local.", "", port, nil, txt)
	if err != nil {
		return nil, err
	}
	return mdns.NewServer(&mdns.Config{Zone: zone})
}

// QRCode 把链路地址渲染为可在终端显示的二维码。
func QRCode(url string) (string, error) {
	code, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return code.ToString(false), nil
}

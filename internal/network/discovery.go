package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const probeTimeout = 500 * time.Millisecond

// DiscoveredHost is a capturing host found on the network
type DiscoveredHost struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Captured bool   `json:"captured"`
	// Authorized is false when the host wants a different API token
	Authorized bool `json:"authorized"`
}

// GetLocalIP returns the primary local IP address
func GetLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

// ScanLAN probes every address of the local /24 for a host API on port
func ScanLAN(ctx context.Context, port int, token string) ([]DiscoveredHost, error) {
	localIP, err := GetLocalIP()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IP: %w", err)
	}

	ip := net.ParseIP(localIP).To4()
	if ip == nil {
		return nil, fmt.Errorf("not an IPv4 address: %s", localIP)
	}

	candidates := make([]string, 0, 254)
	for i := 1; i <= 254; i++ {
		addr := net.IPv4(ip[0], ip[1], ip[2], byte(i)).String()
		if addr != localIP {
			candidates = append(candidates, addr)
		}
	}
	log.Debug().Str("component", "discovery").Str("local", localIP).Int("port", port).Msg("Scanning /24")
	return ScanHosts(ctx, candidates, port, token), nil
}

// ScanHosts probes the given addresses concurrently and returns the ones
// answering, sorted by IP
func ScanHosts(ctx context.Context, ips []string, port int, token string) []DiscoveredHost {
	var (
		hosts []DiscoveredHost
		mu    sync.Mutex
		wg    sync.WaitGroup
	)

	client := &http.Client{Timeout: probeTimeout}
	for _, ip := range ips {
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			if host, ok := probeHost(ctx, client, ip, port, token); ok {
				mu.Lock()
				hosts = append(hosts, host)
				mu.Unlock()
			}
		}(ip)
	}
	wg.Wait()

	sort.Slice(hosts, func(i, j int) bool { return hosts[i].IP < hosts[j].IP })
	return hosts
}

// probeHost checks /health, then reads the capture state from /api/status
func probeHost(ctx context.Context, client *http.Client, ip string, port int, token string) (DiscoveredHost, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	base := fmt.Sprintf("http://%s", net.JoinHostPort(ip, fmt.Sprint(port)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return DiscoveredHost{}, false
	}
	resp, err := client.Do(req)
	if err != nil {
		return DiscoveredHost{}, false
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return DiscoveredHost{}, false
	}

	host := DiscoveredHost{IP: ip, Port: port}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/status", nil)
	if err != nil {
		return host, true
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err = client.Do(req)
	if err != nil {
		return host, true
	}
	defer resp.Body.Close()

	var status struct {
		Captured bool `json:"captured"`
	}
	if resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&status) == nil {
		host.Captured = status.Captured
		host.Authorized = true
	}
	return host, true
}

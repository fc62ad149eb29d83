package vessel

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

const udpFlushInterval = 5 * time.Second

// StationMap resolves a sender IP to a configured station identifier; IPs
// not present map to a synthetic identifier based on the IP itself.
type StationMap map[string]string

// ParseStationMap parses the "ip=station,ip=station" env format.
func ParseStationMap(spec string) StationMap {
	m := make(StationMap)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		m[parts[0]] = parts[1]
	}
	return m
}

func (m StationMap) resolve(ip string) string {
	if station, ok := m[ip]; ok {
		return station
	}
	return "udp-" + ip
}

// UDPListener binds one UDP socket and buffers decoded records per source,
// keyed by MMSI, flushing to the registry on a fixed timer (spec.md §4.3).
type UDPListener struct {
	port     int
	stations StationMap
	registry *Registry

	mu     sync.Mutex
	buffer map[string]map[int]Update // source -> mmsi -> latest update
}

// NewUDPListener creates a listener bound to port, merging into registry.
func NewUDPListener(port int, stations StationMap, registry *Registry) *UDPListener {
	return &UDPListener{
		port:     port,
		stations: stations,
		registry: registry,
		buffer:   make(map[string]map[int]Update),
	}
}

// Run binds the socket and processes datagrams until ctx is cancelled.
func (l *UDPListener) Run(ctx context.Context) error {
	addr := &net.UDPAddr{Port: l.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	slog.Info("AIS UDP listener started", "port", l.port)

	go l.flushLoop(ctx)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 4096)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("AIS UDP read error", "error", err)
			continue
		}
		source := l.stations.resolve(raddr.IP.String())
		l.ingest(source, string(buf[:n]))
	}
}

func (l *UDPListener) ingest(source, raw string) {
	updates := decodeAIVDM(raw)
	if len(updates) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buffer[source]
	if !ok {
		bucket = make(map[int]Update)
		l.buffer[source] = bucket
	}
	for _, u := range updates {
		u.Source = "udp"
		if existing, ok := bucket[u.MMSI]; ok {
			bucket[u.MMSI] = mergeUpdates(existing, u)
		} else {
			bucket[u.MMSI] = u
		}
	}
}

// mergeUpdates folds a newer decoded fragment (e.g. a static report) into an
// existing buffered one (e.g. a position report) for the same MMSI within
// one flush window, so a single merge call carries both.
func mergeUpdates(existing, next Update) Update {
	out := existing
	if next.HasPosition {
		out.HasPosition = true
		out.Position = next.Position
	}
	if next.SpeedKnots != nil {
		out.SpeedKnots = next.SpeedKnots
	}
	if next.Course != nil {
		out.Course = next.Course
	}
	if next.Heading != nil {
		out.Heading = next.Heading
	}
	if next.Name != nil {
		out.Name = next.Name
	}
	if next.TypeCode != nil {
		out.TypeCode = next.TypeCode
		out.TypeName = next.TypeName
		out.TypeCategory = next.TypeCategory
	}
	if next.Destination != nil {
		out.Destination = next.Destination
	}
	if next.Dimensions != nil {
		out.Dimensions = next.Dimensions
	}
	return out
}

func (l *UDPListener) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(udpFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.flush()
		}
	}
}

func (l *UDPListener) flush() {
	l.mu.Lock()
	buffer := l.buffer
	l.buffer = make(map[string]map[int]Update)
	l.mu.Unlock()

	for _, bucket := range buffer {
		for _, u := range bucket {
			u.Source = "udp"
			l.registry.Merge(u)
		}
	}
}
